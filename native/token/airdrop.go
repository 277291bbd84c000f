package token

import (
	"fmt"

	"github.com/holiman/uint256"

	"posichain/core/events"
	"posichain/crypto"
	nativecommon "posichain/native/common"
)

// RegisterAirdropDistribution mints the airdrop reserve into its custody
// account. Owner only, and only once.
func (e *Engine) RegisterAirdropDistribution(caller crypto.Address) error {
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
		if status.AirdropRegistered {
			return fmt.Errorf("%w: airdrop", ErrAlreadyRegistered)
		}
		status.AirdropRegistered = true
		if err := e.state.PutTokenStatus(e.symbol(), status); err != nil {
			return err
		}
		return e.mintTo(buf, e.params.AirdropCustody, e.params.AirdropReserve, events.SupplyReasonAirdrop)
	})
}

// DistributeAirdrop pays perRecipient to every recipient out of the airdrop
// reserve. Payouts are fee-free. Owner only.
func (e *Engine) DistributeAirdrop(caller crypto.Address, recipients []crypto.Address, perRecipient *uint256.Int) error {
	if err := e.guard(); err != nil {
		return err
	}
	if len(recipients) == 0 || perRecipient == nil || perRecipient.IsZero() {
		return ErrInvalidAmount
	}
	return e.atomic(func(buf *events.Buffer) error {
		if _, err := e.requireRole(caller, RoleOwner); err != nil {
			return err
		}
		status, err := e.loadStatus()
		if err != nil {
			return err
		}
		if !status.AirdropRegistered {
			return fmt.Errorf("%w: airdrop", ErrNotRegistered)
		}
		total, err := nativecommon.Mul(perRecipient, uint256.NewInt(uint64(len(recipients))))
		if err != nil {
			return err
		}
		reserve, err := e.BalanceOf(e.params.AirdropCustody)
		if err != nil {
			return err
		}
		if reserve.Lt(total) {
			return fmt.Errorf("%w: airdrop holds %s, needs %s", ErrInsufficientReserve, reserve.Dec(), total.Dec())
		}
		for _, recipient := range recipients {
			if _, err := e.move(buf, e.params.AirdropCustody, recipient, perRecipient, true); err != nil {
				return err
			}
		}
		return nil
	})
}

// AirdropReserve returns the undistributed airdrop balance.
func (e *Engine) AirdropReserve() (*uint256.Int, error) {
	return e.BalanceOf(e.params.AirdropCustody)
}
