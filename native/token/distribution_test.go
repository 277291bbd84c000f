package token

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"posichain/core/events"
	"posichain/crypto"
)

func TestAirdropRegistrationAndDistribution(t *testing.T) {
	f := newFixture(t)
	recipients := []crypto.Address{accountB, accountC}

	if err := f.engine.DistributeAirdrop(deployer, recipients, tokens(1)); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("expected ErrNotRegistered, got %v", err)
	}
	if err := f.engine.RegisterAirdropDistribution(accountB); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	require.NoError(t, f.engine.RegisterAirdropDistribution(deployer))
	if err := f.engine.RegisterAirdropDistribution(deployer); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}

	reserve, err := f.engine.AirdropReserve()
	require.NoError(t, err)
	require.Equal(t, DefaultAirdropReserve, reserve)
	supply, err := f.engine.TotalSupply()
	require.NoError(t, err)
	require.Equal(t, tokens(11_000_000), supply)

	// Move some value around first so the rate is no longer the genesis rate.
	require.NoError(t, f.engine.Transfer(deployer, accountB, tokens(1_234)))
	bBefore := f.balance(t, accountB)

	require.NoError(t, f.engine.DistributeAirdrop(deployer, recipients, tokens(1_000)))
	require.Equal(t, tokens(1_000), f.balance(t, accountC))
	requireWithin(t, new(uint256.Int).Add(bBefore, tokens(1_000)), f.balance(t, accountB), 1)

	reserve, err = f.engine.AirdropReserve()
	require.NoError(t, err)
	require.Equal(t, tokens(998_000), reserve)
	f.requireConserved(t)
}

func TestAirdropRejectsOversizedBatch(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.engine.RegisterAirdropDistribution(deployer))
	err := f.engine.DistributeAirdrop(deployer, []crypto.Address{accountB, accountC}, tokens(600_000))
	if !errors.Is(err, ErrInsufficientReserve) {
		t.Fatalf("expected ErrInsufficientReserve, got %v", err)
	}
	require.True(t, f.balance(t, accountB).IsZero())
	if err := f.engine.DistributeAirdrop(accountB, []crypto.Address{accountC}, tokens(1)); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	if err := f.engine.DistributeAirdrop(deployer, nil, tokens(1)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestWhitelistSaleChecks(t *testing.T) {
	f := newFixture(t)
	f.engine.SetSaleRegistry(NewStaticRegistry(map[crypto.Address]*uint256.Int{
		accountB: tokens(100),
	}))

	if err := f.engine.DistributeWhitelistSale(accountB, accountB, tokens(1)); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	if err := f.engine.DistributeWhitelistSale(saleAdmin, accountC, tokens(1)); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("expected ErrNotRegistered, got %v", err)
	}
	if err := f.engine.DistributeWhitelistSale(saleAdmin, accountB, tokens(101)); !errors.Is(err, ErrAllocationExceeded) {
		t.Fatalf("expected ErrAllocationExceeded, got %v", err)
	}
	if err := f.engine.DistributeWhitelistSale(saleAdmin, accountB, tokens(10)); !errors.Is(err, ErrInsufficientReserve) {
		t.Fatalf("expected ErrInsufficientReserve, got %v", err)
	}

	require.NoError(t, f.engine.RegisterSaleDistribution(deployer))
	if err := f.engine.RegisterSaleDistribution(deployer); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered, got %v", err)
	}
	require.NoError(t, f.engine.DistributeWhitelistSale(saleAdmin, accountB, tokens(60)))
	require.Equal(t, tokens(60), f.balance(t, accountB))
	distributed, err := f.engine.SaleDistributed(accountB)
	require.NoError(t, err)
	require.Equal(t, tokens(60), distributed)

	if err := f.engine.DistributeWhitelistSale(saleAdmin, accountB, tokens(41)); !errors.Is(err, ErrAllocationExceeded) {
		t.Fatalf("expected ErrAllocationExceeded, got %v", err)
	}
	require.NoError(t, f.engine.DistributeWhitelistSale(saleAdmin, accountB, tokens(40)))
	reserve, err := f.engine.SaleReserve()
	require.NoError(t, err)
	require.Equal(t, tokens(4_999_900), reserve)
	f.requireConserved(t)
}

func TestPauseBlocksNonExemptTransfers(t *testing.T) {
	f := newFixture(t)
	if err := f.engine.SetTransferStatus(deployer, true); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	require.NoError(t, f.engine.SetTransferStatus(botKeeper, true))
	paused, err := f.engine.Paused()
	require.NoError(t, err)
	require.True(t, paused)

	last := f.events[len(f.events)-1].(events.TransferStatusChanged)
	require.False(t, last.Previous)
	require.True(t, last.Current)

	if err := f.engine.Transfer(deployer, accountB, tokens(1)); !errors.Is(err, ErrTransfersPaused) {
		t.Fatalf("expected ErrTransfersPaused, got %v", err)
	}

	// Custody payouts stay available while paused.
	require.NoError(t, f.engine.RegisterAirdropDistribution(deployer))
	require.NoError(t, f.engine.DistributeAirdrop(deployer, []crypto.Address{accountB}, tokens(5)))

	require.NoError(t, f.engine.SetExempt(deployer, deployer, true))
	require.NoError(t, f.engine.Transfer(deployer, accountC, tokens(1)))

	require.NoError(t, f.engine.SetTransferStatus(botKeeper, false))
	require.NoError(t, f.engine.Transfer(accountB, accountC, tokens(1)))
}

func TestExcludeIncludeRoundTrip(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.engine.Transfer(deployer, accountB, tokens(333_333)))
	require.NoError(t, f.engine.Transfer(accountB, accountC, tokens(1_111)))
	before := f.balance(t, accountB)

	if err := f.engine.ExcludeAccount(accountB, accountB); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	require.NoError(t, f.engine.ExcludeAccount(deployer, accountB))
	requireWithin(t, before, f.balance(t, accountB), 1)
	// Idempotent.
	require.NoError(t, f.engine.ExcludeAccount(deployer, accountB))
	require.NoError(t, f.engine.IncludeAccount(deployer, accountB))
	requireWithin(t, before, f.balance(t, accountB), 1)
	excluded, err := f.engine.IsExcluded(accountB)
	require.NoError(t, err)
	require.False(t, excluded)
	f.requireConserved(t)
}

func TestRoleSetters(t *testing.T) {
	f := newFixture(t)
	if err := f.engine.SetBotKeeper(accountB, accountB); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	require.NoError(t, f.engine.SetBotKeeper(deployer, accountB))
	require.NoError(t, f.engine.SetInsuranceFund(deployer, accountC))
	require.NoError(t, f.engine.SetSaleAdmin(deployer, accountC))
	require.NoError(t, f.engine.SetStakingManager(deployer, manager))

	roles, err := f.engine.Roles()
	require.NoError(t, err)
	require.Equal(t, accountB, roles.BotKeeper)
	require.True(t, roles.HasRole(accountC, RoleMinter))
	require.True(t, roles.HasRole(manager, RoleMinter))
	require.False(t, roles.HasRole(insurance, RoleMinter))
	require.False(t, roles.HasRole(crypto.ZeroAddress, RoleOwner))

	if err := f.engine.SetTransferFee(deployer, 10_001); !errors.Is(err, ErrInvalidFee) {
		t.Fatalf("expected ErrInvalidFee, got %v", err)
	}
	require.NoError(t, f.engine.SetTransferFee(deployer, 0))
	require.NoError(t, f.engine.Transfer(deployer, accountB, tokens(10)))
	require.Equal(t, tokens(10), f.balance(t, accountB))
}

func TestStakingManagerAssignedOnce(t *testing.T) {
	engine, err := NewEngine(DefaultParams())
	require.NoError(t, err)
	engine.SetState(newMockEngineState())
	require.NoError(t, engine.Genesis(Roles{Owner: deployer}, crypto.ZeroAddress))

	require.NoError(t, engine.SetStakingManager(deployer, manager))
	excluded, err := engine.IsExcluded(manager)
	require.NoError(t, err)
	require.True(t, excluded)

	other := makeAddress(0x20)
	if err := engine.SetStakingManager(deployer, other); !errors.Is(err, ErrRoleLocked) {
		t.Fatalf("expected ErrRoleLocked, got %v", err)
	}
	roles, err := engine.Roles()
	require.NoError(t, err)
	require.Equal(t, manager, roles.StakingManager)
	excluded, err = engine.IsExcluded(other)
	require.NoError(t, err)
	require.False(t, excluded)
}
