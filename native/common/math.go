package common

import (
	"errors"
	"math/bits"

	"github.com/holiman/uint256"
)

var (
	// ErrArithmeticFault signals an overflow, underflow or division by zero
	// inside ledger arithmetic. It is never recovered from.
	ErrArithmeticFault = errors.New("arithmetic fault")
	// ErrDivisionByZero is reported by rate queries before any supply exists.
	ErrDivisionByZero = errors.New("division by zero")
)

// BasisPoints is the denominator of every bps-denominated parameter.
const BasisPoints = 10_000

var bpsDenom = uint256.NewInt(BasisPoints)

// Add returns x+y or ErrArithmeticFault on overflow.
func Add(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow {
		return nil, ErrArithmeticFault
	}
	return z, nil
}

// AddUint64 returns x+y or ErrArithmeticFault when the sum wraps.
func AddUint64(x, y uint64) (uint64, error) {
	sum, carry := bits.Add64(x, y, 0)
	if carry != 0 {
		return 0, ErrArithmeticFault
	}
	return sum, nil
}

// Sub returns x-y or ErrArithmeticFault on underflow.
func Sub(x, y *uint256.Int) (*uint256.Int, error) {
	z, underflow := new(uint256.Int).SubOverflow(x, y)
	if underflow {
		return nil, ErrArithmeticFault
	}
	return z, nil
}

// Mul returns x*y or ErrArithmeticFault on overflow.
func Mul(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).MulOverflow(x, y)
	if overflow {
		return nil, ErrArithmeticFault
	}
	return z, nil
}

// Div returns floor(x/y).
func Div(x, y *uint256.Int) (*uint256.Int, error) {
	if y.IsZero() {
		return nil, ErrArithmeticFault
	}
	return new(uint256.Int).Div(x, y), nil
}

// MulDiv returns floor(x*y/d) using a 512-bit intermediate product.
func MulDiv(x, y, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, ErrArithmeticFault
	}
	z, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	if overflow {
		return nil, ErrArithmeticFault
	}
	return z, nil
}

// MulDivUp returns ceil(x*y/d).
func MulDivUp(x, y, d *uint256.Int) (*uint256.Int, error) {
	z, err := MulDiv(x, y, d)
	if err != nil {
		return nil, err
	}
	if new(uint256.Int).MulMod(x, y, d).IsZero() {
		return z, nil
	}
	return Add(z, uint256.NewInt(1))
}

// Bps returns floor(amount*bps/10_000).
func Bps(amount *uint256.Int, bps uint64) (*uint256.Int, error) {
	return MulDiv(amount, uint256.NewInt(bps), bpsDenom)
}

// Zero returns a fresh zero value.
func Zero() *uint256.Int { return new(uint256.Int) }

// Clone copies v, treating nil as zero.
func Clone(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(v)
}
