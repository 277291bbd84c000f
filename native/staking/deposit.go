package staking

import (
	"fmt"

	"github.com/holiman/uint256"

	"posichain/core/events"
	"posichain/crypto"
	nativecommon "posichain/native/common"
	"posichain/native/fees"
)

// Deposit stakes amount of the pool's asset for caller. Pending rewards are
// paid or locked first. The first deposit naming a referrer records it.
func (e *Engine) Deposit(caller crypto.Address, pid uint64, amount *uint256.Int, referrer crypto.Address) error {
	if err := e.guard(); err != nil {
		return err
	}
	if caller.IsZero() {
		return fmt.Errorf("%w: caller must be set", ErrNotAuthorized)
	}
	if amount == nil {
		return ErrInvalidAmount
	}
	return e.atomic(func(buf *events.Buffer) error {
		pool, err := e.updatePool(buf, pid)
		if err != nil {
			return err
		}
		if !amount.IsZero() && !referrer.IsZero() && referrer != caller {
			if err := e.recordReferral(buf, caller, referrer); err != nil {
				return err
			}
		}
		user, err := e.state.StakingUser(pid, caller)
		if err != nil {
			return err
		}
		if err := e.payOrLockupPending(buf, pool, caller, &user); err != nil {
			return err
		}
		if !amount.IsZero() {
			credited, err := e.pullStake(pool, caller, amount)
			if err != nil {
				return err
			}
			staked, err := nativecommon.Add(&user.Amount, credited)
			if err != nil {
				return err
			}
			total, err := nativecommon.Add(&pool.TotalStaked, credited)
			if err != nil {
				return err
			}
			user.Amount = *staked
			pool.TotalStaked = *total
			buf.Emit(events.StakeMoved{Kind: events.TypeStakeDeposited, Pool: pid, Account: caller, Amount: credited})
		}
		return e.storePosition(pool, caller, user)
	})
}

// pullStake moves amount from caller into custody and returns the stake to
// credit: the balance actually received, less the pool's deposit fee.
func (e *Engine) pullStake(pool Pool, caller crypto.Address, amount *uint256.Int) (*uint256.Int, error) {
	asset, err := e.asset(pool.StakedAsset)
	if err != nil {
		return nil, err
	}
	before, err := asset.BalanceOf(e.config.Manager)
	if err != nil {
		return nil, err
	}
	if err := asset.TransferFrom(e.config.Manager, caller, e.config.Manager, amount); err != nil {
		return nil, err
	}
	after, err := asset.BalanceOf(e.config.Manager)
	if err != nil {
		return nil, err
	}
	received, err := nativecommon.Sub(after, before)
	if err != nil {
		return nil, err
	}
	split, err := fees.Apply(fees.ApplyInput{
		Domain: fees.DomainDeposit,
		Gross:  received,
		Bps:    pool.DepositFeeBps,
		Exempt: e.config.FeeAddress.IsZero(),
	})
	if err != nil {
		return nil, err
	}
	if !split.Fee.IsZero() {
		if err := asset.Transfer(e.config.Manager, e.config.FeeAddress, split.Fee); err != nil {
			return nil, fmt.Errorf("staking: deposit fee: %w", err)
		}
	}
	return split.Net, nil
}

// Withdraw returns amount of caller's stake after settling rewards.
func (e *Engine) Withdraw(caller crypto.Address, pid uint64, amount *uint256.Int) error {
	if err := e.guard(); err != nil {
		return err
	}
	if amount == nil {
		return ErrInvalidAmount
	}
	return e.atomic(func(buf *events.Buffer) error {
		pool, err := e.updatePool(buf, pid)
		if err != nil {
			return err
		}
		user, err := e.state.StakingUser(pid, caller)
		if err != nil {
			return err
		}
		if user.Amount.Lt(amount) {
			return fmt.Errorf("%w: %s staked %s, withdraws %s", ErrInsufficientStake, caller, user.Amount.Dec(), amount.Dec())
		}
		if err := e.payOrLockupPending(buf, pool, caller, &user); err != nil {
			return err
		}
		if !amount.IsZero() {
			user.Amount.Sub(&user.Amount, amount)
			pool.TotalStaked.Sub(&pool.TotalStaked, amount)
			asset, err := e.asset(pool.StakedAsset)
			if err != nil {
				return err
			}
			if err := asset.Transfer(e.config.Manager, caller, amount); err != nil {
				return err
			}
			buf.Emit(events.StakeMoved{Kind: events.TypeStakeWithdrawn, Pool: pid, Account: caller, Amount: amount.Clone()})
		}
		return e.storePosition(pool, caller, user)
	})
}

// EmergencyWithdraw returns caller's whole stake and forfeits every pending
// and locked reward.
func (e *Engine) EmergencyWithdraw(caller crypto.Address, pid uint64) error {
	if err := e.guard(); err != nil {
		return err
	}
	return e.atomic(func(buf *events.Buffer) error {
		pool, err := e.loadPool(pid)
		if err != nil {
			return err
		}
		user, err := e.state.StakingUser(pid, caller)
		if err != nil {
			return err
		}
		amount := user.Amount.Clone()
		globals, err := e.loadGlobals()
		if err != nil {
			return err
		}
		locked, err := nativecommon.Sub(&globals.TotalLockedUp, &user.RewardLockedUp)
		if err != nil {
			return err
		}
		globals.TotalLockedUp = *locked
		if err := e.state.PutStakingGlobals(globals); err != nil {
			return err
		}
		remaining, err := nativecommon.Sub(&pool.TotalStaked, amount)
		if err != nil {
			return err
		}
		pool.TotalStaked = *remaining
		if err := e.state.PutStakingPool(pool); err != nil {
			return err
		}
		if err := e.state.PutStakingUser(pid, caller, UserStake{}); err != nil {
			return err
		}
		if !amount.IsZero() {
			asset, err := e.asset(pool.StakedAsset)
			if err != nil {
				return err
			}
			if err := asset.Transfer(e.config.Manager, caller, amount); err != nil {
				return err
			}
		}
		buf.Emit(events.StakeMoved{Kind: events.TypeStakeEmergencyWithdrawn, Pool: pid, Account: caller, Amount: amount})
		return nil
	})
}

// storePosition refreshes the reward debt and persists pool and user.
func (e *Engine) storePosition(pool Pool, addr crypto.Address, user UserStake) error {
	debt, err := accumulated(&user.Amount, &pool.AccRewardPerShare)
	if err != nil {
		return err
	}
	user.RewardDebt = *debt
	if err := e.state.PutStakingPool(pool); err != nil {
		return err
	}
	return e.state.PutStakingUser(pool.ID, addr, user)
}

// payOrLockupPending settles the reward accrued since the user's last
// action. Inside the harvest interval it is added to the locked balance;
// once the interval has elapsed pending and locked rewards are paid together
// and the interval restarts.
func (e *Engine) payOrLockupPending(buf *events.Buffer, pool Pool, addr crypto.Address, user *UserStake) error {
	now := e.now()
	if user.NextHarvestUntil == 0 {
		until, err := nativecommon.AddUint64(now, pool.HarvestInterval)
		if err != nil {
			return err
		}
		user.NextHarvestUntil = until
	}
	gross, err := accumulated(&user.Amount, &pool.AccRewardPerShare)
	if err != nil {
		return err
	}
	pending, err := nativecommon.Sub(gross, &user.RewardDebt)
	if err != nil {
		return err
	}
	globals, err := e.loadGlobals()
	if err != nil {
		return err
	}
	if now >= user.NextHarvestUntil {
		if pending.IsZero() && user.RewardLockedUp.IsZero() {
			return nil
		}
		total, err := nativecommon.Add(pending, &user.RewardLockedUp)
		if err != nil {
			return err
		}
		locked, err := nativecommon.Sub(&globals.TotalLockedUp, &user.RewardLockedUp)
		if err != nil {
			return err
		}
		globals.TotalLockedUp = *locked
		if err := e.state.PutStakingGlobals(globals); err != nil {
			return err
		}
		user.RewardLockedUp.Clear()
		until, err := nativecommon.AddUint64(now, pool.HarvestInterval)
		if err != nil {
			return err
		}
		user.NextHarvestUntil = until
		paid, err := e.safeRewardTransfer(addr, total)
		if err != nil {
			return err
		}
		buf.Emit(events.StakeRewards{Kind: events.TypeStakeRewardsClaimed, Pool: pool.ID, Account: addr, Amount: paid})
		return e.payReferralCommission(buf, addr, total)
	}
	if pending.IsZero() {
		return nil
	}
	lockedUp, err := nativecommon.Add(&user.RewardLockedUp, pending)
	if err != nil {
		return err
	}
	totalLocked, err := nativecommon.Add(&globals.TotalLockedUp, pending)
	if err != nil {
		return err
	}
	user.RewardLockedUp = *lockedUp
	globals.TotalLockedUp = *totalLocked
	if err := e.state.PutStakingGlobals(globals); err != nil {
		return err
	}
	buf.Emit(events.StakeRewards{Kind: events.TypeStakeRewardsLocked, Pool: pool.ID, Account: addr, Amount: pending, Until: user.NextHarvestUntil})
	return nil
}

// rewardBalance is the manager's reward-token balance not owed as stake.
func (e *Engine) rewardBalance() (*uint256.Int, error) {
	balance, err := e.reward.BalanceOf(e.config.Manager)
	if err != nil {
		return nil, err
	}
	globals, err := e.loadGlobals()
	if err != nil {
		return nil, err
	}
	symbol := normalizeSymbol(e.reward.Symbol())
	staked := new(uint256.Int)
	for pid := uint64(0); pid < globals.PoolCount; pid++ {
		pool, err := e.loadPool(pid)
		if err != nil {
			return nil, err
		}
		if pool.StakedAsset != symbol {
			continue
		}
		if staked, err = nativecommon.Add(staked, &pool.TotalStaked); err != nil {
			return nil, err
		}
	}
	if balance.Lt(staked) {
		return new(uint256.Int), nil
	}
	return new(uint256.Int).Sub(balance, staked), nil
}

// safeRewardTransfer pays up to amount, capped at the reward balance so a
// rounding shortfall never touches staked principal.
func (e *Engine) safeRewardTransfer(to crypto.Address, amount *uint256.Int) (*uint256.Int, error) {
	available, err := e.rewardBalance()
	if err != nil {
		return nil, err
	}
	paid := amount.Clone()
	if paid.Gt(available) {
		paid = available
	}
	if paid.IsZero() {
		return paid, nil
	}
	if err := e.reward.Transfer(e.config.Manager, to, paid); err != nil {
		return nil, fmt.Errorf("staking: reward transfer: %w", err)
	}
	return paid, nil
}

func (e *Engine) recordReferral(buf *events.Buffer, user, referrer crypto.Address) error {
	existing, err := e.state.StakingReferrer(user)
	if err != nil {
		return err
	}
	if !existing.IsZero() {
		return nil
	}
	if err := e.state.PutStakingReferrer(user, referrer); err != nil {
		return err
	}
	buf.Emit(events.Referral{Kind: events.TypeReferralRecorded, User: user, Referrer: referrer})
	return nil
}

// payReferralCommission mints the referrer's share of a harvest.
func (e *Engine) payReferralCommission(buf *events.Buffer, user crypto.Address, harvested *uint256.Int) error {
	if e.config.ReferralCommissionBps == 0 {
		return nil
	}
	referrer, err := e.state.StakingReferrer(user)
	if err != nil {
		return err
	}
	if referrer.IsZero() {
		return nil
	}
	commission, err := nativecommon.Bps(harvested, e.config.ReferralCommissionBps)
	if err != nil {
		return err
	}
	if commission.IsZero() {
		return nil
	}
	if err := e.reward.Mint(e.config.Manager, referrer, commission); err != nil {
		return fmt.Errorf("staking: referral commission: %w", err)
	}
	buf.Emit(events.Referral{Kind: events.TypeReferralCommission, User: user, Referrer: referrer, Amount: commission})
	return nil
}

// --- Views ---

// PendingReward returns the reward addr could harvest at the current unit,
// including locked rewards.
func (e *Engine) PendingReward(pid uint64, addr crypto.Address) (*uint256.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	globals, err := e.loadGlobals()
	if err != nil {
		return nil, err
	}
	pool, err := e.loadPool(pid)
	if err != nil {
		return nil, err
	}
	user, err := e.state.StakingUser(pid, addr)
	if err != nil {
		return nil, err
	}
	acc := pool.AccRewardPerShare.Clone()
	if !pool.TotalStaked.IsZero() {
		reward, err := poolReward(globals, pool, e.now())
		if err != nil {
			return nil, err
		}
		perShare, err := nativecommon.MulDiv(reward, accPrecision, &pool.TotalStaked)
		if err != nil {
			return nil, err
		}
		if acc, err = nativecommon.Add(acc, perShare); err != nil {
			return nil, err
		}
	}
	gross, err := accumulated(&user.Amount, acc)
	if err != nil {
		return nil, err
	}
	pending, err := nativecommon.Sub(gross, &user.RewardDebt)
	if err != nil {
		return nil, err
	}
	return nativecommon.Add(pending, &user.RewardLockedUp)
}

// CanHarvest reports whether addr's harvest interval has elapsed.
func (e *Engine) CanHarvest(pid uint64, addr crypto.Address) (bool, error) {
	if err := e.ready(); err != nil {
		return false, err
	}
	if _, err := e.loadPool(pid); err != nil {
		return false, err
	}
	user, err := e.state.StakingUser(pid, addr)
	if err != nil {
		return false, err
	}
	return e.now() >= user.NextHarvestUntil, nil
}

// UserStake returns addr's position in pid.
func (e *Engine) UserStake(pid uint64, addr crypto.Address) (UserStake, error) {
	if err := e.ready(); err != nil {
		return UserStake{}, err
	}
	if _, err := e.loadPool(pid); err != nil {
		return UserStake{}, err
	}
	return e.state.StakingUser(pid, addr)
}

// Referrer returns the account that referred user, or the zero address.
func (e *Engine) Referrer(user crypto.Address) (crypto.Address, error) {
	if err := e.ready(); err != nil {
		return crypto.ZeroAddress, err
	}
	return e.state.StakingReferrer(user)
}
