package staking

import (
	"fmt"

	"github.com/holiman/uint256"

	"posichain/crypto"
	"posichain/native/fees"
)

const (
	DefaultDevShareBps           = 1_000
	DefaultReferralCommissionBps = 100
	// DefaultMaxHarvestInterval is fourteen days of one-second units.
	DefaultMaxHarvestInterval = 1_209_600
	DefaultMaxDepositFeeBps   = fees.MaxBps
)

// accPrecision scales AccRewardPerShare.
var accPrecision = uint256.NewInt(1_000_000_000_000)

// DefaultRewardPerUnit is one whole reward token per time unit.
var DefaultRewardPerUnit = new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(18))

// Config holds the static parameters of a staking manager.
type Config struct {
	// Manager is the custody account for stake and rewards. It must hold the
	// reward token's minter role.
	Manager    crypto.Address
	Owner      crypto.Address
	DevAddress crypto.Address
	FeeAddress crypto.Address

	RewardPerUnit         *uint256.Int
	StartUnit             uint64
	DevShareBps           uint64
	ReferralCommissionBps uint64
	MaxHarvestInterval    uint64
	MaxDepositFeeBps      uint64
}

// DefaultConfig returns the production defaults with no addresses set.
func DefaultConfig() Config {
	return Config{
		RewardPerUnit:         DefaultRewardPerUnit.Clone(),
		DevShareBps:           DefaultDevShareBps,
		ReferralCommissionBps: DefaultReferralCommissionBps,
		MaxHarvestInterval:    DefaultMaxHarvestInterval,
		MaxDepositFeeBps:      DefaultMaxDepositFeeBps,
	}
}

// Validate checks the configuration bounds.
func (c Config) Validate() error {
	if c.Manager.IsZero() {
		return fmt.Errorf("staking: manager address must be set")
	}
	if c.Owner.IsZero() {
		return fmt.Errorf("staking: owner address must be set")
	}
	if c.RewardPerUnit == nil {
		return fmt.Errorf("staking: reward per unit must be set")
	}
	if c.DevShareBps > fees.MaxBps || c.ReferralCommissionBps > fees.MaxBps {
		return fmt.Errorf("staking: share bps must not exceed %d", fees.MaxBps)
	}
	if c.MaxDepositFeeBps > fees.MaxBps {
		return fmt.Errorf("staking: max deposit fee must not exceed %d bps", fees.MaxBps)
	}
	return nil
}

// Globals is the mutable manager-wide record.
type Globals struct {
	Initialised     bool
	RewardPerUnit   uint256.Int
	StartUnit       uint64
	TotalAllocPoint uint64
	PoolCount       uint64
	// TotalLockedUp is the sum of rewards waiting for their harvest interval.
	TotalLockedUp uint256.Int
}

// Pool is one staking pool.
type Pool struct {
	ID              uint64
	StakedAsset     string
	AllocPoint      uint64
	DepositFeeBps   uint64
	HarvestInterval uint64
	LastRewardUnit  uint64
	// AccRewardPerShare is scaled by 1e12.
	AccRewardPerShare uint256.Int
	TotalStaked       uint256.Int
}

// UserStake is one account's position in a pool.
type UserStake struct {
	Amount           uint256.Int
	RewardDebt       uint256.Int
	RewardLockedUp   uint256.Int
	NextHarvestUntil uint64
}
