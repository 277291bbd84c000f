package state

import (
	"path/filepath"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"posichain/crypto"
	"posichain/native/staking"
	"posichain/native/token"
	"posichain/storage"
)

func makeAddress(b byte) crypto.Address {
	var addr crypto.Address
	for i := range addr {
		addr[i] = b
	}
	return addr
}

func TestMissingRecordsReadAsZero(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	account, err := m.TokenAccount("posi", makeAddress(1))
	require.NoError(t, err)
	require.Equal(t, token.Account{}, account)
	allowance, err := m.TokenAllowance("POSI", makeAddress(1), makeAddress(2))
	require.NoError(t, err)
	require.True(t, allowance.IsZero())
	_, ok, err := m.StakingPool(3)
	require.NoError(t, err)
	require.False(t, ok)
	h, err := m.Height()
	require.NoError(t, err)
	require.Zero(t, h)
}

func TestSnapshotRevertNested(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	addr := makeAddress(1)
	require.NoError(t, m.PutTokenAccount("POSI", addr, token.Account{Balance: *uint256.NewInt(1)}))

	outer := m.Snapshot()
	require.NoError(t, m.PutTokenAccount("POSI", addr, token.Account{Balance: *uint256.NewInt(2)}))
	inner := m.Snapshot()
	require.NoError(t, m.PutTokenAccount("POSI", addr, token.Account{Kind: token.Excluded, Balance: *uint256.NewInt(3)}))
	require.NoError(t, m.PutHeight(9))

	m.RevertToSnapshot(inner)
	account, err := m.TokenAccount("POSI", addr)
	require.NoError(t, err)
	require.Equal(t, uint64(2), account.Balance.Uint64())
	h, err := m.Height()
	require.NoError(t, err)
	require.Zero(t, h)

	m.RevertToSnapshot(outer)
	account, err = m.TokenAccount("posi", addr)
	require.NoError(t, err)
	require.Equal(t, uint64(1), account.Balance.Uint64())
	require.Equal(t, token.Included, account.Kind)
}

func TestRevertedKeyWrittenTwiceAtOneLevel(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	rev := m.Snapshot()
	require.NoError(t, m.PutHeight(1))
	require.NoError(t, m.PutHeight(2))
	m.RevertToSnapshot(rev)
	require.NoError(t, m.PutHeight(3))
	h, err := m.Height()
	require.NoError(t, err)
	require.EqualValues(t, 3, h)
}

func TestFinaliseFoldsCheckpoints(t *testing.T) {
	db := storage.NewMemDB()
	m := NewManager(db)
	require.NoError(t, m.PutHeight(1))
	m.Snapshot()
	require.NoError(t, m.PutHeight(2))
	m.Snapshot()
	require.NoError(t, m.PutHeight(3))

	m.Finalise()
	if depth := m.sm.depth(); depth != 1 {
		t.Fatalf("expected a single level after finalise, got %d", depth)
	}
	h, err := m.Height()
	require.NoError(t, err)
	require.Equal(t, uint64(3), h)

	rev := m.Snapshot()
	require.NoError(t, m.PutHeight(4))
	m.RevertToSnapshot(rev)
	h, err = m.Height()
	require.NoError(t, err)
	require.Equal(t, uint64(3), h)

	n, err := m.Commit()
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, 1, db.Len())
}

func TestCommitPersistsAndReloads(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	db, err := storage.NewLevelDB(dir)
	require.NoError(t, err)

	owner := makeAddress(1)
	spender := makeAddress(2)
	supply := token.Supply{}
	supply.Total.SetUint64(1_000)
	supply.Reflected.SetUint64(1_000_000)
	supply.Fees.SetUint64(7)
	roles := token.Roles{Owner: owner, BotKeeper: spender}
	pool := staking.Pool{ID: 4, StakedAsset: "POSI", AllocPoint: 100, HarvestInterval: 1000, LastRewardUnit: 12}
	pool.AccRewardPerShare.SetUint64(55)
	pool.TotalStaked.SetUint64(66)
	user := staking.UserStake{NextHarvestUntil: 1012}
	user.Amount.SetUint64(66)

	m := NewManager(db)
	require.NoError(t, m.PutTokenAccount("POSI", owner, token.Account{Kind: token.Excluded, Balance: *uint256.NewInt(10), Exempt: true}))
	require.NoError(t, m.PutTokenAllowance("POSI", owner, spender, new(uint256.Int).SetAllOne()))
	require.NoError(t, m.PutTokenSupply("POSI", supply))
	require.NoError(t, m.PutTokenStatus("POSI", token.Status{Initialised: true, TransferFeeBps: 100}))
	require.NoError(t, m.PutTokenRoles("POSI", roles))
	require.NoError(t, m.PutSaleDistributed("POSI", spender, uint256.NewInt(5)))
	require.NoError(t, m.PutStakingGlobals(staking.Globals{Initialised: true, PoolCount: 5, TotalAllocPoint: 100}))
	require.NoError(t, m.PutStakingPool(pool))
	require.NoError(t, m.PutStakingUser(4, owner, user))
	require.NoError(t, m.PutStakingReferrer(owner, spender))
	require.NoError(t, m.PutHeight(42))
	// Overwrite before commit; only the latest value is written.
	require.NoError(t, m.PutHeight(43))

	written, err := m.Commit()
	require.NoError(t, err)
	require.Equal(t, 11, written)
	require.Zero(t, m.Pending())
	db.Close()

	db, err = storage.NewLevelDB(dir)
	require.NoError(t, err)
	defer db.Close()
	m = NewManager(db)

	account, err := m.TokenAccount("POSI", owner)
	require.NoError(t, err)
	require.Equal(t, token.Account{Kind: token.Excluded, Balance: *uint256.NewInt(10), Exempt: true}, account)
	allowance, err := m.TokenAllowance("POSI", owner, spender)
	require.NoError(t, err)
	require.Equal(t, new(uint256.Int).SetAllOne(), allowance)
	gotSupply, err := m.TokenSupply("POSI")
	require.NoError(t, err)
	require.Equal(t, supply, gotSupply)
	status, err := m.TokenStatus("POSI")
	require.NoError(t, err)
	require.True(t, status.Initialised)
	require.EqualValues(t, 100, status.TransferFeeBps)
	gotRoles, err := m.TokenRoles("POSI")
	require.NoError(t, err)
	require.Equal(t, roles, gotRoles)
	distributed, err := m.SaleDistributed("POSI", spender)
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(5), distributed)
	globals, err := m.StakingGlobals()
	require.NoError(t, err)
	require.EqualValues(t, 5, globals.PoolCount)
	gotPool, ok, err := m.StakingPool(4)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, pool, gotPool)
	gotUser, err := m.StakingUser(4, owner)
	require.NoError(t, err)
	require.Equal(t, user, gotUser)
	ref, err := m.StakingReferrer(owner)
	require.NoError(t, err)
	require.Equal(t, spender, ref)
	h, err := m.Height()
	require.NoError(t, err)
	require.EqualValues(t, 43, h)
}

func TestSymbolsAreIsolated(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	addr := makeAddress(1)
	require.NoError(t, m.PutTokenAccount("POSI", addr, token.Account{Balance: *uint256.NewInt(1)}))
	other, err := m.TokenAccount("LP", addr)
	require.NoError(t, err)
	require.True(t, other.Balance.IsZero())
}
