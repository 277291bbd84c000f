package events

import (
	"github.com/holiman/uint256"

	"posichain/core/types"
	"posichain/crypto"
)

const (
	// TypePoolAdded is emitted when a staking pool is registered.
	TypePoolAdded = "stake.poolAdded"
	// TypePoolUpdated is emitted when a pool accrues rewards.
	TypePoolUpdated = "stake.poolUpdated"
	// TypeStakeDeposited is emitted after a deposit is credited.
	TypeStakeDeposited = "stake.deposited"
	// TypeStakeWithdrawn is emitted after a withdrawal is paid out.
	TypeStakeWithdrawn = "stake.withdrawn"
	// TypeStakeEmergencyWithdrawn is emitted when stake is returned without rewards.
	TypeStakeEmergencyWithdrawn = "stake.emergencyWithdrawn"
	// TypeStakeRewardsClaimed is emitted when pending rewards are paid.
	TypeStakeRewardsClaimed = "stake.rewardsClaimed"
	// TypeStakeRewardsLocked is emitted when pending rewards are held until the
	// harvest interval elapses.
	TypeStakeRewardsLocked = "stake.rewardsLocked"
	// TypeReferralRecorded is emitted on the first referred deposit.
	TypeReferralRecorded = "stake.referralRecorded"
	// TypeReferralCommission is emitted when a referrer is paid.
	TypeReferralCommission = "stake.referralCommission"
)

// PoolAdded captures the registration of a new pool.
type PoolAdded struct {
	Pool       uint64
	Asset      string
	AllocPoint uint64
}

// EventType satisfies the Event interface.
func (PoolAdded) EventType() string { return TypePoolAdded }

// Event converts the structured payload into a broadcastable event.
func (e PoolAdded) Event() *types.Event {
	return &types.Event{Type: TypePoolAdded, Attributes: map[string]string{
		"pool":       formatUint(e.Pool),
		"asset":      normalizeAsset(e.Asset),
		"allocPoint": formatUint(e.AllocPoint),
	}}
}

// PoolUpdated captures one accrual step.
type PoolUpdated struct {
	Pool              uint64
	Unit              uint64
	Reward            *uint256.Int
	AccRewardPerShare *uint256.Int
}

// EventType satisfies the Event interface.
func (PoolUpdated) EventType() string { return TypePoolUpdated }

// Event converts the structured payload into a broadcastable event.
func (e PoolUpdated) Event() *types.Event {
	return &types.Event{Type: TypePoolUpdated, Attributes: map[string]string{
		"pool":              formatUint(e.Pool),
		"unit":              formatUint(e.Unit),
		"reward":            formatAmount(e.Reward),
		"accRewardPerShare": formatAmount(e.AccRewardPerShare),
	}}
}

// StakeMoved is shared by deposit, withdraw and emergency withdraw events.
type StakeMoved struct {
	Kind    string
	Pool    uint64
	Account crypto.Address
	Amount  *uint256.Int
}

// EventType satisfies the Event interface.
func (e StakeMoved) EventType() string { return e.Kind }

// Event converts the structured payload into a broadcastable event.
func (e StakeMoved) Event() *types.Event {
	return &types.Event{Type: e.Kind, Attributes: map[string]string{
		"pool":   formatUint(e.Pool),
		"addr":   formatAddress(e.Account),
		"amount": formatAmount(e.Amount),
	}}
}

// StakeRewards is shared by claimed and locked reward events.
type StakeRewards struct {
	Kind    string
	Pool    uint64
	Account crypto.Address
	Amount  *uint256.Int
	// Until is the first unit at which locked rewards may be harvested.
	Until uint64
}

// EventType satisfies the Event interface.
func (e StakeRewards) EventType() string { return e.Kind }

// Event converts the structured payload into a broadcastable event.
func (e StakeRewards) Event() *types.Event {
	attrs := map[string]string{
		"pool":   formatUint(e.Pool),
		"addr":   formatAddress(e.Account),
		"amount": formatAmount(e.Amount),
	}
	if e.Until != 0 {
		attrs["until"] = formatUint(e.Until)
	}
	return &types.Event{Type: e.Kind, Attributes: attrs}
}

// Referral covers both recording and commission payment.
type Referral struct {
	Kind     string
	User     crypto.Address
	Referrer crypto.Address
	Amount   *uint256.Int
}

// EventType satisfies the Event interface.
func (e Referral) EventType() string { return e.Kind }

// Event converts the structured payload into a broadcastable event.
func (e Referral) Event() *types.Event {
	attrs := map[string]string{
		"user":     formatAddress(e.User),
		"referrer": formatAddress(e.Referrer),
	}
	if e.Amount != nil {
		attrs["amount"] = formatAmount(e.Amount)
	}
	return &types.Event{Type: e.Kind, Attributes: attrs}
}
