package token

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestRateFailsAtGenesis(t *testing.T) {
	var s Supply
	if _, err := s.Rate(); !errors.Is(err, ErrDivisionByZero) {
		t.Fatalf("expected ErrDivisionByZero, got %v", err)
	}
	rate, err := s.conversionRate(DefaultReflectionScale)
	require.NoError(t, err)
	require.Equal(t, DefaultReflectionScale, rate.Quotient())
}

func TestRetainFeeRaisesIncludedValue(t *testing.T) {
	s := Supply{}
	s.Total.SetUint64(1_000)
	s.Reflected.SetUint64(1_000_000)
	holder := Account{Balance: *uint256.NewInt(500_000)}

	before, err := holder.RealBalance(s)
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(500), before)

	rate, err := s.Rate()
	require.NoError(t, err)
	payer := Account{Balance: *uint256.NewInt(500_000)}
	require.NoError(t, payer.debit(uint256.NewInt(100), rate, &s))
	require.NoError(t, s.RetainFee(uint256.NewInt(100)))

	after, err := holder.RealBalance(s)
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(555), after)
	require.Equal(t, uint256.NewInt(100), &s.Fees)
}

func TestContractRejectsExcludedOverhang(t *testing.T) {
	s := Supply{}
	s.Total.SetUint64(10)
	s.Excluded.SetUint64(8)
	if err := s.Contract(uint256.NewInt(3)); !errors.Is(err, ErrArithmeticFault) {
		t.Fatalf("expected ErrArithmeticFault, got %v", err)
	}
	require.NoError(t, s.Contract(uint256.NewInt(2)))
	require.Equal(t, uint256.NewInt(8), &s.Total)
}

func TestRateConversionsRound(t *testing.T) {
	rate := Rate{Reflected: *uint256.NewInt(10), Real: *uint256.NewInt(3)}
	down, err := rate.ToReflected(uint256.NewInt(1))
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(3), down)
	up, err := rate.ToReflectedUp(uint256.NewInt(1))
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(4), up)
	real, err := rate.ToReal(uint256.NewInt(7))
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(2), real)

	other := Rate{Reflected: *uint256.NewInt(20), Real: *uint256.NewInt(6)}
	require.Zero(t, rate.Cmp(other))
	require.Equal(t, "10/3", rate.String())
}

func TestAccountDebitChecksBalance(t *testing.T) {
	s := Supply{}
	s.Total.SetUint64(100)
	s.Excluded.SetUint64(100)
	account := Account{Kind: Excluded, Balance: *uint256.NewInt(100)}
	if err := account.debit(uint256.NewInt(101), Rate{}, &s); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	require.NoError(t, account.debit(uint256.NewInt(40), Rate{}, &s))
	require.Equal(t, uint256.NewInt(60), &account.Balance)
	require.Equal(t, uint256.NewInt(60), &s.Excluded)
}

func TestSpendAllowanceSentinel(t *testing.T) {
	left, err := spendAllowance(MaxAllowance(), uint256.NewInt(5))
	require.NoError(t, err)
	require.Equal(t, MaxAllowance(), left)
	if _, err := spendAllowance(uint256.NewInt(4), uint256.NewInt(5)); !errors.Is(err, ErrInsufficientAllowance) {
		t.Fatalf("expected ErrInsufficientAllowance, got %v", err)
	}
}
