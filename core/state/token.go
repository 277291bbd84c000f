package state

import (
	"github.com/holiman/uint256"

	"posichain/crypto"
	"posichain/native/token"
)

func (m *Manager) TokenAccount(symbol string, addr crypto.Address) (token.Account, error) {
	account, _, err := get[token.Account](m, tokenAccountKey{normalizeSymbol(symbol), addr})
	return account, err
}

func (m *Manager) PutTokenAccount(symbol string, addr crypto.Address, account token.Account) error {
	return put(m, tokenAccountKey{normalizeSymbol(symbol), addr}, account)
}

func (m *Manager) TokenAllowance(symbol string, owner, spender crypto.Address) (*uint256.Int, error) {
	amount, _, err := get[uint256.Int](m, tokenAllowanceKey{normalizeSymbol(symbol), owner, spender})
	if err != nil {
		return nil, err
	}
	return &amount, nil
}

func (m *Manager) PutTokenAllowance(symbol string, owner, spender crypto.Address, amount *uint256.Int) error {
	return put(m, tokenAllowanceKey{normalizeSymbol(symbol), owner, spender}, *amount)
}

// TokenSupply returns the reflection supply cell of a token.
func (m *Manager) TokenSupply(symbol string) (token.Supply, error) {
	supply, _, err := get[token.Supply](m, tokenSupplyKey{normalizeSymbol(symbol)})
	return supply, err
}

func (m *Manager) PutTokenSupply(symbol string, supply token.Supply) error {
	return put(m, tokenSupplyKey{normalizeSymbol(symbol)}, supply)
}

func (m *Manager) TokenStatus(symbol string) (token.Status, error) {
	status, _, err := get[token.Status](m, tokenStatusKey{normalizeSymbol(symbol)})
	return status, err
}

func (m *Manager) PutTokenStatus(symbol string, status token.Status) error {
	return put(m, tokenStatusKey{normalizeSymbol(symbol)}, status)
}

func (m *Manager) TokenRoles(symbol string) (token.Roles, error) {
	roles, _, err := get[token.Roles](m, tokenRolesKey{normalizeSymbol(symbol)})
	return roles, err
}

func (m *Manager) PutTokenRoles(symbol string, roles token.Roles) error {
	return put(m, tokenRolesKey{normalizeSymbol(symbol)}, roles)
}

// SaleDistributed returns the amount a sale has already paid addr.
func (m *Manager) SaleDistributed(symbol string, addr crypto.Address) (*uint256.Int, error) {
	amount, _, err := get[uint256.Int](m, saleDistributedKey{normalizeSymbol(symbol), addr})
	if err != nil {
		return nil, err
	}
	return &amount, nil
}

func (m *Manager) PutSaleDistributed(symbol string, addr crypto.Address, amount *uint256.Int) error {
	return put(m, saleDistributedKey{normalizeSymbol(symbol), addr}, *amount)
}
