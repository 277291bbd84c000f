package token

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	nativecommon "posichain/native/common"
)

// Supply is the single shared cell behind every included balance. Included
// holders own reflected units; their real value is Reflected scaled by the
// included backing (Total - Excluded). Retaining a fee leaves its real value
// inside the backing without issuing reflected units for it, which raises the
// value of every reflected unit at once.
type Supply struct {
	// Reflected is the sum of all included reflected balances.
	Reflected uint256.Int
	// Total is the real-unit total supply.
	Total uint256.Int
	// Excluded is the sum of all excluded real balances.
	Excluded uint256.Int
	// Fees is the cumulative real amount redistributed through the rate.
	Fees uint256.Int
}

// Backing returns the real units owned collectively by included holders.
func (s Supply) Backing() (*uint256.Int, error) {
	return nativecommon.Sub(&s.Total, &s.Excluded)
}

// Rate returns the current reflected-per-real exchange rate. It fails with
// ErrDivisionByZero while no included supply exists.
func (s Supply) Rate() (Rate, error) {
	backing, err := s.Backing()
	if err != nil {
		return Rate{}, err
	}
	if backing.IsZero() || s.Reflected.IsZero() {
		return Rate{}, ErrDivisionByZero
	}
	return Rate{Reflected: s.Reflected, Real: *backing}, nil
}

// conversionRate is Rate with the genesis fallback: before any included
// supply exists new holders are issued scale reflected units per real unit.
func (s Supply) conversionRate(scale *uint256.Int) (Rate, error) {
	rate, err := s.Rate()
	if err == nil {
		return rate, nil
	}
	if !errors.Is(err, ErrDivisionByZero) {
		return Rate{}, err
	}
	return Rate{Reflected: *scale, Real: *uint256.NewInt(1)}, nil
}

// RetainFee records real units folded back into the included pool.
func (s *Supply) RetainFee(amount *uint256.Int) error {
	fees, err := nativecommon.Add(&s.Fees, amount)
	if err != nil {
		return err
	}
	s.Fees = *fees
	return nil
}

// Expand grows the total supply on mint.
func (s *Supply) Expand(amount *uint256.Int) error {
	total, err := nativecommon.Add(&s.Total, amount)
	if err != nil {
		return err
	}
	s.Total = *total
	return nil
}

// Contract shrinks the total supply on burn.
func (s *Supply) Contract(amount *uint256.Int) error {
	total, err := nativecommon.Sub(&s.Total, amount)
	if err != nil {
		return err
	}
	if total.Lt(&s.Excluded) {
		return ErrArithmeticFault
	}
	s.Total = *total
	return nil
}

func (s *Supply) addReflected(r *uint256.Int) error {
	v, err := nativecommon.Add(&s.Reflected, r)
	if err != nil {
		return err
	}
	s.Reflected = *v
	return nil
}

func (s *Supply) subReflected(r *uint256.Int) error {
	v, err := nativecommon.Sub(&s.Reflected, r)
	if err != nil {
		return err
	}
	s.Reflected = *v
	return nil
}

func (s *Supply) addExcluded(t *uint256.Int) error {
	v, err := nativecommon.Add(&s.Excluded, t)
	if err != nil {
		return err
	}
	if v.Gt(&s.Total) {
		return ErrArithmeticFault
	}
	s.Excluded = *v
	return nil
}

func (s *Supply) subExcluded(t *uint256.Int) error {
	v, err := nativecommon.Sub(&s.Excluded, t)
	if err != nil {
		return err
	}
	s.Excluded = *v
	return nil
}

// Rate is the exchange rate Reflected/Real expressed as an exact fraction.
// A falling rate means each reflected unit is worth more real units.
type Rate struct {
	Reflected uint256.Int
	Real      uint256.Int
}

// ToReal converts reflected units to real units, rounding down.
func (r Rate) ToReal(reflected *uint256.Int) (*uint256.Int, error) {
	return nativecommon.MulDiv(reflected, &r.Real, &r.Reflected)
}

// ToReflected converts real units to reflected units, rounding down.
func (r Rate) ToReflected(real *uint256.Int) (*uint256.Int, error) {
	return nativecommon.MulDiv(real, &r.Reflected, &r.Real)
}

// ToReflectedUp converts real units to reflected units, rounding up. Credits
// and debits use it so the credited holder observes the exact real amount and
// the debited holder pays at least the exact amount.
func (r Rate) ToReflectedUp(real *uint256.Int) (*uint256.Int, error) {
	return nativecommon.MulDivUp(real, &r.Reflected, &r.Real)
}

// Cmp compares two rates as fractions.
func (r Rate) Cmp(o Rate) int {
	left := new(big.Int).Mul(r.Reflected.ToBig(), o.Real.ToBig())
	right := new(big.Int).Mul(o.Reflected.ToBig(), r.Real.ToBig())
	return left.Cmp(right)
}

// Quotient returns the integer part of Reflected/Real.
func (r Rate) Quotient() *uint256.Int {
	if r.Real.IsZero() {
		return new(uint256.Int)
	}
	return new(uint256.Int).Div(&r.Reflected, &r.Real)
}

func (r Rate) String() string {
	return fmt.Sprintf("%s/%s", r.Reflected.Dec(), r.Real.Dec())
}
