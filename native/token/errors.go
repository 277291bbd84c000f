package token

import (
	"errors"

	nativecommon "posichain/native/common"
)

var (
	ErrInsufficientBalance   = errors.New("token: insufficient balance")
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")
	ErrInsufficientReserve   = errors.New("token: insufficient reserve")
	ErrNotAuthorized         = errors.New("token: not authorized")
	ErrNotRegistered         = errors.New("token: not registered")
	ErrAlreadyRegistered     = errors.New("token: already registered")
	ErrTransfersPaused       = errors.New("token: transfer is paused")
	ErrAllocationExceeded    = errors.New("token: sale allocation exceeded")
	ErrInvalidAddress        = errors.New("token: invalid address")
	ErrInvalidAmount         = errors.New("token: invalid amount")
	ErrInvalidFee            = errors.New("token: fee exceeds 100%")
	ErrAlreadyInitialised    = errors.New("token: already initialised")
	ErrReflectionTooLarge    = errors.New("token: amount must be less than total reflections")
	ErrNoReflectionHolders   = errors.New("token: no included holder to receive reflections")
	ErrRoleLocked            = errors.New("token: role cannot be reassigned")
	errNilState              = errors.New("token engine: state not configured")

	// ErrArithmeticFault and ErrDivisionByZero are shared with the staking
	// module so callers can match them without importing native/common.
	ErrArithmeticFault = nativecommon.ErrArithmeticFault
	ErrDivisionByZero  = nativecommon.ErrDivisionByZero
)
