package token

import (
	"maps"

	"github.com/holiman/uint256"

	"posichain/crypto"
)

type allowanceKey struct {
	owner   crypto.Address
	spender crypto.Address
}

type mockSnapshot struct {
	accounts    map[crypto.Address]Account
	allowances  map[allowanceKey]uint256.Int
	distributed map[crypto.Address]uint256.Int
	supply      Supply
	status      Status
	roles       Roles
}

// mockEngineState holds a single token's records and snapshots by copying.
type mockEngineState struct {
	mockSnapshot
	snapshots []mockSnapshot
}

func newMockEngineState() *mockEngineState {
	return &mockEngineState{mockSnapshot: mockSnapshot{
		accounts:    make(map[crypto.Address]Account),
		allowances:  make(map[allowanceKey]uint256.Int),
		distributed: make(map[crypto.Address]uint256.Int),
	}}
}

func (m *mockEngineState) Snapshot() int {
	m.snapshots = append(m.snapshots, mockSnapshot{
		accounts:    maps.Clone(m.accounts),
		allowances:  maps.Clone(m.allowances),
		distributed: maps.Clone(m.distributed),
		supply:      m.supply,
		status:      m.status,
		roles:       m.roles,
	})
	return len(m.snapshots) - 1
}

func (m *mockEngineState) RevertToSnapshot(rev int) {
	m.mockSnapshot = m.snapshots[rev]
	m.snapshots = m.snapshots[:rev]
}

func (m *mockEngineState) TokenAccount(_ string, addr crypto.Address) (Account, error) {
	return m.accounts[addr], nil
}

func (m *mockEngineState) PutTokenAccount(_ string, addr crypto.Address, account Account) error {
	m.accounts[addr] = account
	return nil
}

func (m *mockEngineState) TokenAllowance(_ string, owner, spender crypto.Address) (*uint256.Int, error) {
	v := m.allowances[allowanceKey{owner, spender}]
	return v.Clone(), nil
}

func (m *mockEngineState) PutTokenAllowance(_ string, owner, spender crypto.Address, amount *uint256.Int) error {
	m.allowances[allowanceKey{owner, spender}] = *amount
	return nil
}

func (m *mockEngineState) TokenSupply(string) (Supply, error) { return m.supply, nil }

func (m *mockEngineState) PutTokenSupply(_ string, supply Supply) error {
	m.supply = supply
	return nil
}

func (m *mockEngineState) TokenStatus(string) (Status, error) { return m.status, nil }

func (m *mockEngineState) PutTokenStatus(_ string, status Status) error {
	m.status = status
	return nil
}

func (m *mockEngineState) TokenRoles(string) (Roles, error) { return m.roles, nil }

func (m *mockEngineState) PutTokenRoles(_ string, roles Roles) error {
	m.roles = roles
	return nil
}

func (m *mockEngineState) SaleDistributed(_ string, addr crypto.Address) (*uint256.Int, error) {
	v := m.distributed[addr]
	return v.Clone(), nil
}

func (m *mockEngineState) PutSaleDistributed(_ string, addr crypto.Address, amount *uint256.Int) error {
	m.distributed[addr] = *amount
	return nil
}
