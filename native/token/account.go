package token

import (
	"github.com/holiman/uint256"

	nativecommon "posichain/native/common"
)

// Kind tags which accounting view an account's balance belongs to.
type Kind uint8

const (
	// Included accounts hold reflected units and share in redistribution.
	Included Kind = iota
	// Excluded accounts hold real units and never change through the rate.
	Excluded
)

func (k Kind) String() string {
	if k == Excluded {
		return "excluded"
	}
	return "included"
}

// Account is a tagged balance: Balance is reflected units when Kind is
// Included and real units when Kind is Excluded. Every read and write goes
// through the methods below, which are the only places that switch on Kind.
type Account struct {
	Kind    Kind
	Balance uint256.Int
	// Exempt accounts pay no transfer fee and may move funds while
	// transfers are paused.
	Exempt bool
}

// IsExcluded reports whether the account is in the excluded view.
func (a Account) IsExcluded() bool { return a.Kind == Excluded }

// RealBalance returns the account's balance in real units against the
// current supply cell.
func (a Account) RealBalance(s Supply) (*uint256.Int, error) {
	switch a.Kind {
	case Excluded:
		return a.Balance.Clone(), nil
	default:
		if a.Balance.IsZero() {
			return new(uint256.Int), nil
		}
		rate, err := s.Rate()
		if err != nil {
			// Reflected dust without backing is worth nothing.
			return new(uint256.Int), nil
		}
		return rate.ToReal(&a.Balance)
	}
}

// credit adds real units, converting at rate for included accounts, and
// keeps the supply aggregates in step.
func (a *Account) credit(amount *uint256.Int, rate Rate, s *Supply) error {
	switch a.Kind {
	case Excluded:
		bal, err := nativecommon.Add(&a.Balance, amount)
		if err != nil {
			return err
		}
		if err := s.addExcluded(amount); err != nil {
			return err
		}
		a.Balance = *bal
	default:
		r, err := rate.ToReflectedUp(amount)
		if err != nil {
			return err
		}
		bal, err := nativecommon.Add(&a.Balance, r)
		if err != nil {
			return err
		}
		if err := s.addReflected(r); err != nil {
			return err
		}
		a.Balance = *bal
	}
	return nil
}

// debit removes real units. The caller checks the real balance first; an
// insufficient stored balance here is reported as ErrInsufficientBalance.
func (a *Account) debit(amount *uint256.Int, rate Rate, s *Supply) error {
	switch a.Kind {
	case Excluded:
		if a.Balance.Lt(amount) {
			return ErrInsufficientBalance
		}
		if err := s.subExcluded(amount); err != nil {
			return err
		}
		a.Balance.Sub(&a.Balance, amount)
	default:
		r, err := rate.ToReflectedUp(amount)
		if err != nil {
			return err
		}
		if a.Balance.Lt(r) {
			return ErrInsufficientBalance
		}
		if err := s.subReflected(r); err != nil {
			return err
		}
		a.Balance.Sub(&a.Balance, r)
	}
	return nil
}

// setExcluded switches the account between views at the current rate. It
// rounds down when leaving the included view and up when entering it, so a
// round trip preserves the real balance within one unit. The returned flag
// is false when the account was already in the requested view.
func (a *Account) setExcluded(excluded bool, s *Supply, scale *uint256.Int) (bool, error) {
	if a.IsExcluded() == excluded {
		return false, nil
	}
	if excluded {
		real, err := a.RealBalance(*s)
		if err != nil {
			return false, err
		}
		if err := s.subReflected(&a.Balance); err != nil {
			return false, err
		}
		if err := s.addExcluded(real); err != nil {
			return false, err
		}
		a.Kind = Excluded
		a.Balance = *real
		return true, nil
	}
	rate, err := s.conversionRate(scale)
	if err != nil {
		return false, err
	}
	r, err := rate.ToReflectedUp(&a.Balance)
	if err != nil {
		return false, err
	}
	if err := s.subExcluded(&a.Balance); err != nil {
		return false, err
	}
	if err := s.addReflected(r); err != nil {
		return false, err
	}
	a.Kind = Included
	a.Balance = *r
	return true, nil
}

// unlimitedAllowance is the sentinel allowance that is never decremented.
var unlimitedAllowance = new(uint256.Int).SetAllOne()

// MaxAllowance returns the unlimited allowance sentinel.
func MaxAllowance() *uint256.Int { return unlimitedAllowance.Clone() }

// spendAllowance returns the allowance left after spending amount.
func spendAllowance(current, amount *uint256.Int) (*uint256.Int, error) {
	if current.Eq(unlimitedAllowance) {
		return current.Clone(), nil
	}
	if current.Lt(amount) {
		return nil, ErrInsufficientAllowance
	}
	return new(uint256.Int).Sub(current, amount), nil
}
