package token

import (
	"fmt"

	"github.com/holiman/uint256"

	"posichain/core/events"
	"posichain/crypto"
	nativecommon "posichain/native/common"
)

// RegisterSaleDistribution mints the sale reserve into its custody account.
// Owner only, and only once.
func (e *Engine) RegisterSaleDistribution(caller crypto.Address) error {
	if err := e.guard(); err != nil {
		return err
	}
	return e.atomic(func(buf *events.Buffer) error {
		if _, err := e.requireRole(caller, RoleOwner); err != nil {
			return err
		}
		status, err := e.loadStatus()
		if err != nil {
			return err
		}
		if status.SaleRegistered {
			return fmt.Errorf("%w: sale", ErrAlreadyRegistered)
		}
		status.SaleRegistered = true
		if err := e.state.PutTokenStatus(e.symbol(), status); err != nil {
			return err
		}
		return e.mintTo(buf, e.params.SaleCustody, e.params.SaleReserve, events.SupplyReasonSale)
	})
}

// DistributeWhitelistSale pays amount from the sale reserve to a whitelisted
// recipient, fee-free. Checks run in order: caller role, registration,
// remaining allocation, reserve.
func (e *Engine) DistributeWhitelistSale(caller, recipient crypto.Address, amount *uint256.Int) error {
	if err := e.guard(); err != nil {
		return err
	}
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}
	return e.atomic(func(buf *events.Buffer) error {
		if _, err := e.requireRole(caller, RoleSaleAdmin); err != nil {
			return err
		}
		if e.registry == nil || !e.registry.IsRegistered(recipient) {
			return fmt.Errorf("%w: %s", ErrNotRegistered, recipient)
		}
		distributed, err := e.state.SaleDistributed(e.symbol(), recipient)
		if err != nil {
			return err
		}
		after, err := nativecommon.Add(distributed, amount)
		if err != nil {
			return err
		}
		allocation := e.registry.AllocationOf(recipient)
		if after.Gt(allocation) {
			return fmt.Errorf("%w: %s allocated %s, received %s", ErrAllocationExceeded, recipient, allocation.Dec(), distributed.Dec())
		}
		reserve, err := e.BalanceOf(e.params.SaleCustody)
		if err != nil {
			return err
		}
		if reserve.Lt(amount) {
			return fmt.Errorf("%w: sale holds %s, needs %s", ErrInsufficientReserve, reserve.Dec(), amount.Dec())
		}
		if err := e.state.PutSaleDistributed(e.symbol(), recipient, after); err != nil {
			return err
		}
		_, err = e.move(buf, e.params.SaleCustody, recipient, amount, true)
		return err
	})
}

// SaleDistributed returns the amount already paid to addr by the sale.
func (e *Engine) SaleDistributed(addr crypto.Address) (*uint256.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.state.SaleDistributed(e.symbol(), addr)
}

// SaleReserve returns the undistributed sale balance.
func (e *Engine) SaleReserve() (*uint256.Int, error) {
	return e.BalanceOf(e.params.SaleCustody)
}
