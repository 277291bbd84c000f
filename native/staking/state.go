package staking

import (
	"github.com/holiman/uint256"

	"posichain/crypto"
)

// Asset is a fungible balance the manager can hold as stake.
type Asset interface {
	Symbol() string
	BalanceOf(addr crypto.Address) (*uint256.Int, error)
	Transfer(from, to crypto.Address, amount *uint256.Int) error
	TransferFrom(spender, from, to crypto.Address, amount *uint256.Int) error
}

// RewardToken is the asset rewards are minted in.
type RewardToken interface {
	Asset
	Mint(caller, to crypto.Address, amount *uint256.Int) error
}

// Clock reports the current time unit.
type Clock interface {
	Height() uint64
}

// ClockFunc adapts a function into a Clock.
type ClockFunc func() uint64

func (f ClockFunc) Height() uint64 { return f() }

type engineState interface {
	Snapshot() int
	RevertToSnapshot(rev int)
	StakingGlobals() (Globals, error)
	PutStakingGlobals(globals Globals) error
	StakingPool(pid uint64) (Pool, bool, error)
	PutStakingPool(pool Pool) error
	StakingUser(pid uint64, addr crypto.Address) (UserStake, error)
	PutStakingUser(pid uint64, addr crypto.Address, stake UserStake) error
	StakingReferrer(user crypto.Address) (crypto.Address, error)
	PutStakingReferrer(user, referrer crypto.Address) error
}
