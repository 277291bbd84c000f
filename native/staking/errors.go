package staking

import (
	"errors"

	nativecommon "posichain/native/common"
)

var (
	ErrNotAuthorized          = errors.New("staking: not authorized")
	ErrInsufficientStake      = errors.New("staking: insufficient stake")
	ErrUnknownPool            = errors.New("staking: unknown pool")
	ErrUnknownAsset           = errors.New("staking: unknown staked asset")
	ErrInvalidDepositFee      = errors.New("staking: deposit fee exceeds limit")
	ErrInvalidHarvestInterval = errors.New("staking: harvest interval exceeds limit")
	ErrInvalidAmount          = errors.New("staking: invalid amount")
	ErrAlreadyInitialised     = errors.New("staking: already initialised")
	ErrNotInitialised         = errors.New("staking: not initialised")
	errNilState               = errors.New("staking engine: state not configured")
	errNilClock               = errors.New("staking engine: clock not configured")
	errNilRewardToken         = errors.New("staking engine: reward token not configured")

	ErrArithmeticFault = nativecommon.ErrArithmeticFault
)
