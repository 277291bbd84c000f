package staking

import (
	"errors"
	"maps"

	"github.com/holiman/uint256"

	"posichain/crypto"
)

type userKey struct {
	pid  uint64
	addr crypto.Address
}

type balanceKey struct {
	symbol string
	addr   crypto.Address
}

type allowanceKey struct {
	symbol  string
	owner   crypto.Address
	spender crypto.Address
}

type mockSnapshot struct {
	globals    Globals
	pools      map[uint64]Pool
	users      map[userKey]UserStake
	referrers  map[crypto.Address]crypto.Address
	balances   map[balanceKey]uint256.Int
	allowances map[allowanceKey]uint256.Int
}

// mockEngineState also carries the balances of the fake assets so a revert
// rolls back token movements together with staking records.
type mockEngineState struct {
	mockSnapshot
	snapshots []mockSnapshot
}

func newMockEngineState() *mockEngineState {
	return &mockEngineState{mockSnapshot: mockSnapshot{
		pools:      make(map[uint64]Pool),
		users:      make(map[userKey]UserStake),
		referrers:  make(map[crypto.Address]crypto.Address),
		balances:   make(map[balanceKey]uint256.Int),
		allowances: make(map[allowanceKey]uint256.Int),
	}}
}

func (m *mockEngineState) Snapshot() int {
	m.snapshots = append(m.snapshots, mockSnapshot{
		globals:    m.globals,
		pools:      maps.Clone(m.pools),
		users:      maps.Clone(m.users),
		referrers:  maps.Clone(m.referrers),
		balances:   maps.Clone(m.balances),
		allowances: maps.Clone(m.allowances),
	})
	return len(m.snapshots) - 1
}

func (m *mockEngineState) RevertToSnapshot(rev int) {
	m.mockSnapshot = m.snapshots[rev]
	m.snapshots = m.snapshots[:rev]
}

func (m *mockEngineState) StakingGlobals() (Globals, error) { return m.globals, nil }

func (m *mockEngineState) PutStakingGlobals(globals Globals) error {
	m.globals = globals
	return nil
}

func (m *mockEngineState) StakingPool(pid uint64) (Pool, bool, error) {
	pool, ok := m.pools[pid]
	return pool, ok, nil
}

func (m *mockEngineState) PutStakingPool(pool Pool) error {
	m.pools[pool.ID] = pool
	return nil
}

func (m *mockEngineState) StakingUser(pid uint64, addr crypto.Address) (UserStake, error) {
	return m.users[userKey{pid, addr}], nil
}

func (m *mockEngineState) PutStakingUser(pid uint64, addr crypto.Address, stake UserStake) error {
	m.users[userKey{pid, addr}] = stake
	return nil
}

func (m *mockEngineState) StakingReferrer(user crypto.Address) (crypto.Address, error) {
	return m.referrers[user], nil
}

func (m *mockEngineState) PutStakingReferrer(user, referrer crypto.Address) error {
	m.referrers[user] = referrer
	return nil
}

var (
	errFakeBalance   = errors.New("fake: insufficient balance")
	errFakeAllowance = errors.New("fake: insufficient allowance")
	errFakeMinter    = errors.New("fake: not minter")
)

// fakeAsset is a plain balance map inside the mock state. A non-zero
// burnBps burns part of every transfer to mimic fee-on-transfer assets.
type fakeAsset struct {
	state   *mockEngineState
	symbol  string
	minter  crypto.Address
	burnBps uint64
}

func (f *fakeAsset) Symbol() string { return f.symbol }

func (f *fakeAsset) BalanceOf(addr crypto.Address) (*uint256.Int, error) {
	v := f.state.balances[balanceKey{f.symbol, addr}]
	return v.Clone(), nil
}

func (f *fakeAsset) set(addr crypto.Address, amount *uint256.Int) {
	f.state.balances[balanceKey{f.symbol, addr}] = *amount
}

func (f *fakeAsset) Transfer(from, to crypto.Address, amount *uint256.Int) error {
	fromBal, _ := f.BalanceOf(from)
	if fromBal.Lt(amount) {
		return errFakeBalance
	}
	f.set(from, new(uint256.Int).Sub(fromBal, amount))
	burned := new(uint256.Int).Div(new(uint256.Int).Mul(amount, uint256.NewInt(f.burnBps)), uint256.NewInt(10_000))
	toBal, _ := f.BalanceOf(to)
	f.set(to, new(uint256.Int).Add(toBal, new(uint256.Int).Sub(amount, burned)))
	return nil
}

func (f *fakeAsset) TransferFrom(spender, from, to crypto.Address, amount *uint256.Int) error {
	key := allowanceKey{f.symbol, from, spender}
	allowance := f.state.allowances[key]
	if allowance.Lt(amount) {
		return errFakeAllowance
	}
	if err := f.Transfer(from, to, amount); err != nil {
		return err
	}
	f.state.allowances[key] = *new(uint256.Int).Sub(&allowance, amount)
	return nil
}

func (f *fakeAsset) Approve(owner, spender crypto.Address, amount *uint256.Int) {
	f.state.allowances[allowanceKey{f.symbol, owner, spender}] = *amount
}

func (f *fakeAsset) Mint(caller, to crypto.Address, amount *uint256.Int) error {
	if caller != f.minter {
		return errFakeMinter
	}
	bal, _ := f.BalanceOf(to)
	f.set(to, new(uint256.Int).Add(bal, amount))
	return nil
}
