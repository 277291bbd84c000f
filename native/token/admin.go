package token

import (
	"fmt"

	"posichain/core/events"
	"posichain/crypto"
	"posichain/native/fees"
)

// ExcludeAccount moves addr into the excluded view. Owner only; excluding an
// already excluded account is a no-op.
func (e *Engine) ExcludeAccount(caller, addr crypto.Address) error {
	return e.setExcluded(caller, addr, true)
}

// IncludeAccount moves addr back into the included view. Owner only.
func (e *Engine) IncludeAccount(caller, addr crypto.Address) error {
	return e.setExcluded(caller, addr, false)
}

func (e *Engine) setExcluded(caller, addr crypto.Address, excluded bool) error {
	if err := e.guard(); err != nil {
		return err
	}
	if addr.IsZero() {
		return ErrInvalidAddress
	}
	return e.atomic(func(buf *events.Buffer) error {
		if _, err := e.requireRole(caller, RoleOwner); err != nil {
			return err
		}
		supply, err := e.loadSupply()
		if err != nil {
			return err
		}
		account, err := e.loadAccount(addr)
		if err != nil {
			return err
		}
		changed, err := account.setExcluded(excluded, &supply, e.params.ReflectionScale)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		if err := e.storeAccount(addr, account); err != nil {
			return err
		}
		if err := e.storeSupply(supply); err != nil {
			return err
		}
		balance, err := account.RealBalance(supply)
		if err != nil {
			return err
		}
		buf.Emit(events.AccountExclusion{Token: e.symbol(), Account: addr, Excluded: excluded, Balance: balance})
		return nil
	})
}

// SetExempt toggles fee and pause exemption for addr. Owner only.
func (e *Engine) SetExempt(caller, addr crypto.Address, exempt bool) error {
	if addr.IsZero() {
		return ErrInvalidAddress
	}
	return e.atomic(func(*events.Buffer) error {
		if _, err := e.requireRole(caller, RoleOwner); err != nil {
			return err
		}
		account, err := e.loadAccount(addr)
		if err != nil {
			return err
		}
		account.Exempt = exempt
		return e.storeAccount(addr, account)
	})
}

// SetTransferFee changes the transfer fee rate. Owner only.
func (e *Engine) SetTransferFee(caller crypto.Address, bps uint64) error {
	if bps > fees.MaxBps {
		return fmt.Errorf("%w: %d bps", ErrInvalidFee, bps)
	}
	return e.atomic(func(*events.Buffer) error {
		if _, err := e.requireRole(caller, RoleOwner); err != nil {
			return err
		}
		status, err := e.loadStatus()
		if err != nil {
			return err
		}
		status.TransferFeeBps = bps
		return e.state.PutTokenStatus(e.symbol(), status)
	})
}

// SetTransferStatus pauses or resumes non-exempt transfers. Only the bot
// keeper may call it.
func (e *Engine) SetTransferStatus(caller crypto.Address, paused bool) error {
	return e.atomic(func(buf *events.Buffer) error {
		if _, err := e.requireRole(caller, RoleBotKeeper); err != nil {
			return err
		}
		status, err := e.loadStatus()
		if err != nil {
			return err
		}
		previous := status.Paused
		status.Paused = paused
		if err := e.state.PutTokenStatus(e.symbol(), status); err != nil {
			return err
		}
		buf.Emit(events.TransferStatusChanged{Token: e.symbol(), Previous: previous, Current: paused})
		return nil
	})
}

func (e *Engine) SetBotKeeper(caller, addr crypto.Address) error {
	return e.setRole(caller, RoleBotKeeper, addr, func(r *Roles) { r.BotKeeper = addr })
}

func (e *Engine) SetInsuranceFund(caller, addr crypto.Address) error {
	return e.setRole(caller, RoleInsuranceFund, addr, func(r *Roles) { r.InsuranceFund = addr })
}

// SetStakingManager assigns the staking manager role. The manager holds
// stake and rewards in custody, so its account becomes excluded and exempt.
// Once assigned the role cannot move to another account.
func (e *Engine) SetStakingManager(caller, addr crypto.Address) error {
	return e.setRole(caller, RoleStakingManager, addr, func(r *Roles) { r.StakingManager = addr })
}

func (e *Engine) SetSaleAdmin(caller, addr crypto.Address) error {
	return e.setRole(caller, RoleSaleAdmin, addr, func(r *Roles) { r.SaleAdmin = addr })
}

func (e *Engine) setRole(caller crypto.Address, role Role, addr crypto.Address, assign func(*Roles)) error {
	if addr.IsZero() {
		return ErrInvalidAddress
	}
	return e.atomic(func(buf *events.Buffer) error {
		roles, err := e.requireRole(caller, RoleOwner)
		if err != nil {
			return err
		}
		if role == RoleStakingManager && !roles.StakingManager.IsZero() && roles.StakingManager != addr {
			return fmt.Errorf("%w: staking manager is %s", ErrRoleLocked, roles.StakingManager)
		}
		assign(&roles)
		if err := e.state.PutTokenRoles(e.symbol(), roles); err != nil {
			return err
		}
		if role == RoleStakingManager {
			if err := e.markCustody(addr); err != nil {
				return err
			}
		}
		buf.Emit(events.RoleChanged{Token: e.symbol(), Role: string(role), Account: addr})
		return nil
	})
}
