package core

import (
	"bytes"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"posichain/config"
	"posichain/core/events"
	"posichain/crypto"
	"posichain/native/token"
	"posichain/storage"
)

var (
	owner   = crypto.ModuleAddress("test/owner")
	dev     = crypto.ModuleAddress("test/dev")
	alice   = crypto.ModuleAddress("test/alice")
	manager = crypto.ModuleAddress("staking")
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Roles = config.Roles{
		Owner:          owner,
		BotKeeper:      owner,
		InsuranceFund:  owner,
		StakingManager: manager,
		SaleAdmin:      owner,
		Dev:            dev,
		Fee:            owner,
	}
	return cfg
}

func wei(n uint64) *uint256.Int { return uint256.NewInt(n) }

func ether(n uint64) *uint256.Int {
	unit := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(18))
	return new(uint256.Int).Mul(uint256.NewInt(n), unit)
}

type recorder struct{ events []events.Event }

func (r *recorder) Emit(e events.Event) { r.events = append(r.events, e) }

func newTestLedger(t *testing.T, db storage.Database, rec *recorder) *Ledger {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(new(bytes.Buffer), nil))
	opts := Options{Logger: logger}
	if rec != nil {
		opts.Emitter = rec
	}
	l, err := NewLedger(testConfig(), db, opts)
	require.NoError(t, err)
	return l
}

func requireBalance(t *testing.T, l *Ledger, holder crypto.Address, want *uint256.Int) {
	t.Helper()
	got, err := l.BalanceOf(holder)
	require.NoError(t, err)
	if !got.Eq(want) {
		t.Fatalf("balance of %s: got %s want %s", holder, got.Dec(), want.Dec())
	}
}

func TestLedgerGenesisAndReload(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	db, err := storage.NewLevelDB(dir)
	require.NoError(t, err)

	l := newTestLedger(t, db, nil)
	if _, err := l.Commit(); !errors.Is(err, ErrNotInitialised) {
		t.Fatalf("expected ErrNotInitialised, got %v", err)
	}
	require.NoError(t, l.Genesis())
	require.ErrorIs(t, l.Genesis(), token.ErrAlreadyInitialised)
	requireBalance(t, l, owner, ether(10_000_000))

	require.NoError(t, l.Transfer(owner, alice, ether(1_000)))
	require.NoError(t, l.Advance(7))
	n, err := l.Commit()
	require.NoError(t, err)
	require.Positive(t, n)

	aliceBalance, err := l.BalanceOf(alice)
	require.NoError(t, err)
	ownerBalance, err := l.BalanceOf(owner)
	require.NoError(t, err)
	db.Close()

	db, err = storage.NewLevelDB(dir)
	require.NoError(t, err)
	defer db.Close()
	reloaded := newTestLedger(t, db, nil)
	ok, err := reloaded.Initialised()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(7), reloaded.Height())
	requireBalance(t, reloaded, alice, aliceBalance)
	requireBalance(t, reloaded, owner, ownerBalance)
}

func TestLedgerFailedCallEmitsNothing(t *testing.T) {
	rec := new(recorder)
	l := newTestLedger(t, storage.NewMemDB(), rec)
	require.NoError(t, l.Genesis())
	before := len(rec.events)
	require.Positive(t, before)

	err := l.Transfer(alice, owner, ether(1))
	require.ErrorIs(t, err, token.ErrInsufficientBalance)
	require.Len(t, rec.events, before)
	requireBalance(t, l, owner, ether(10_000_000))

	require.NoError(t, l.Transfer(owner, alice, ether(1)))
	require.Greater(t, len(rec.events), before)
}

func TestLedgerStakingScenario(t *testing.T) {
	l := newTestLedger(t, storage.NewMemDB(), nil)
	require.NoError(t, l.Genesis())

	pid, err := l.AddPool(owner, 100, "POSI", 0, 1000, false)
	require.NoError(t, err)
	require.Equal(t, uint64(0), pid)

	require.NoError(t, l.Approve(owner, manager, token.MaxAllowance()))
	require.NoError(t, l.Advance(10))
	require.NoError(t, l.Deposit(owner, pid, wei(1_000_000), crypto.ZeroAddress))
	requireBalance(t, l, manager, wei(1_000_000))

	require.NoError(t, l.Advance(5))
	require.NoError(t, l.UpdatePool(pid))

	pending, err := l.PendingReward(pid, owner)
	require.NoError(t, err)
	require.True(t, pending.Eq(ether(5)), "pending %s", pending.Dec())
	requireBalance(t, l, manager, new(uint256.Int).Add(ether(5), wei(1_000_000)))

	devBalance, err := l.BalanceOf(dev)
	require.NoError(t, err)
	share := new(uint256.Int).Div(ether(5), uint256.NewInt(10))
	diff := new(uint256.Int)
	if devBalance.Gt(share) {
		diff.Sub(devBalance, share)
	} else {
		diff.Sub(share, devBalance)
	}
	if diff.GtUint64(1) {
		t.Fatalf("dev share: got %s want %s", devBalance.Dec(), share.Dec())
	}

	require.NoError(t, l.Withdraw(owner, pid, wei(1_000_000)))
	stake, err := l.Staking().UserStake(pid, owner)
	require.NoError(t, err)
	require.True(t, stake.Amount.IsZero())
	require.True(t, stake.RewardLockedUp.Eq(ether(5)))
	locked, err := l.Staking().TotalLockedUp()
	require.NoError(t, err)
	require.True(t, locked.Eq(ether(5)))
}

func TestLedgerFailedStakingRevertsMint(t *testing.T) {
	l := newTestLedger(t, storage.NewMemDB(), nil)
	require.NoError(t, l.Genesis())
	pid, err := l.AddPool(owner, 100, "POSI", 0, 0, false)
	require.NoError(t, err)
	require.NoError(t, l.Approve(owner, manager, wei(1_000)))
	require.NoError(t, l.Deposit(owner, pid, wei(1_000), crypto.ZeroAddress))
	require.NoError(t, l.Advance(3))

	supply, err := l.Token().TotalSupply()
	require.NoError(t, err)

	// The pool update mints rewards before the missing allowance fails the deposit.
	err = l.Deposit(owner, pid, wei(1_000), crypto.ZeroAddress)
	require.ErrorIs(t, err, token.ErrInsufficientAllowance)

	after, err := l.Token().TotalSupply()
	require.NoError(t, err)
	require.True(t, after.Eq(supply), "supply moved from %s to %s", supply.Dec(), after.Dec())
	pool, err := l.Staking().Pool(pid)
	require.NoError(t, err)
	require.Equal(t, uint64(0), pool.LastRewardUnit)
}
