package staking

import (
	"fmt"

	"github.com/holiman/uint256"

	"posichain/core/events"
	"posichain/crypto"
	nativecommon "posichain/native/common"
)

func (e *Engine) checkPoolParams(depositFeeBps, harvestInterval uint64) error {
	if depositFeeBps > e.config.MaxDepositFeeBps {
		return fmt.Errorf("%w: %d bps", ErrInvalidDepositFee, depositFeeBps)
	}
	if harvestInterval > e.config.MaxHarvestInterval {
		return fmt.Errorf("%w: %d units", ErrInvalidHarvestInterval, harvestInterval)
	}
	return nil
}

// AddPool appends a pool staking asset. When withUpdate is set every
// existing pool is settled first so the weight change applies only from now.
func (e *Engine) AddPool(caller crypto.Address, allocPoint uint64, asset string, depositFeeBps, harvestInterval uint64, withUpdate bool) (uint64, error) {
	if err := e.guard(); err != nil {
		return 0, err
	}
	var pid uint64
	err := e.atomic(func(buf *events.Buffer) error {
		if err := e.requireOwner(caller); err != nil {
			return err
		}
		if err := e.checkPoolParams(depositFeeBps, harvestInterval); err != nil {
			return err
		}
		staked, err := e.asset(asset)
		if err != nil {
			return err
		}
		if withUpdate {
			if err := e.massUpdate(buf); err != nil {
				return err
			}
		}
		globals, err := e.loadGlobals()
		if err != nil {
			return err
		}
		last := e.now()
		if globals.StartUnit > last {
			last = globals.StartUnit
		}
		pid = globals.PoolCount
		pool := Pool{
			ID:              pid,
			StakedAsset:     normalizeSymbol(staked.Symbol()),
			AllocPoint:      allocPoint,
			DepositFeeBps:   depositFeeBps,
			HarvestInterval: harvestInterval,
			LastRewardUnit:  last,
		}
		globals.PoolCount++
		total, err := nativecommon.AddUint64(globals.TotalAllocPoint, allocPoint)
		if err != nil {
			return err
		}
		globals.TotalAllocPoint = total
		if err := e.state.PutStakingPool(pool); err != nil {
			return err
		}
		if err := e.state.PutStakingGlobals(globals); err != nil {
			return err
		}
		buf.Emit(events.PoolAdded{Pool: pid, Asset: pool.StakedAsset, AllocPoint: allocPoint})
		return nil
	})
	if err != nil {
		return 0, err
	}
	return pid, nil
}

// SetPool changes a pool's weight and fee parameters.
func (e *Engine) SetPool(caller crypto.Address, pid, allocPoint, depositFeeBps, harvestInterval uint64, withUpdate bool) error {
	if err := e.guard(); err != nil {
		return err
	}
	return e.atomic(func(buf *events.Buffer) error {
		if err := e.requireOwner(caller); err != nil {
			return err
		}
		if err := e.checkPoolParams(depositFeeBps, harvestInterval); err != nil {
			return err
		}
		if withUpdate {
			if err := e.massUpdate(buf); err != nil {
				return err
			}
		}
		globals, err := e.loadGlobals()
		if err != nil {
			return err
		}
		pool, err := e.loadPool(pid)
		if err != nil {
			return err
		}
		if globals.TotalAllocPoint < pool.AllocPoint {
			return ErrArithmeticFault
		}
		total, err := nativecommon.AddUint64(globals.TotalAllocPoint-pool.AllocPoint, allocPoint)
		if err != nil {
			return err
		}
		globals.TotalAllocPoint = total
		pool.AllocPoint = allocPoint
		pool.DepositFeeBps = depositFeeBps
		pool.HarvestInterval = harvestInterval
		if err := e.state.PutStakingPool(pool); err != nil {
			return err
		}
		return e.state.PutStakingGlobals(globals)
	})
}

// UpdateEmissionRate settles every pool and changes the reward per unit.
func (e *Engine) UpdateEmissionRate(caller crypto.Address, perUnit *uint256.Int) error {
	if err := e.guard(); err != nil {
		return err
	}
	if perUnit == nil {
		return ErrInvalidAmount
	}
	return e.atomic(func(buf *events.Buffer) error {
		if err := e.requireOwner(caller); err != nil {
			return err
		}
		if err := e.massUpdate(buf); err != nil {
			return err
		}
		globals, err := e.loadGlobals()
		if err != nil {
			return err
		}
		globals.RewardPerUnit = *perUnit
		return e.state.PutStakingGlobals(globals)
	})
}

// UpdatePool brings pid's accrual up to the current unit. A second call in
// the same unit is a no-op.
func (e *Engine) UpdatePool(pid uint64) error {
	if err := e.guard(); err != nil {
		return err
	}
	return e.atomic(func(buf *events.Buffer) error {
		_, err := e.updatePool(buf, pid)
		return err
	})
}

// MassUpdatePools updates every pool.
func (e *Engine) MassUpdatePools() error {
	if err := e.guard(); err != nil {
		return err
	}
	return e.atomic(e.massUpdate)
}

func (e *Engine) massUpdate(buf *events.Buffer) error {
	globals, err := e.loadGlobals()
	if err != nil {
		return err
	}
	for pid := uint64(0); pid < globals.PoolCount; pid++ {
		if _, err := e.updatePool(buf, pid); err != nil {
			return err
		}
	}
	return nil
}

// updatePool mints the pool's accrued reward into custody, sends the dev
// share and advances the checkpoint. Nothing is minted while the pool is
// empty or weightless, but the checkpoint still advances.
func (e *Engine) updatePool(buf *events.Buffer, pid uint64) (Pool, error) {
	pool, err := e.loadPool(pid)
	if err != nil {
		return Pool{}, err
	}
	now := e.now()
	if now <= pool.LastRewardUnit {
		return pool, nil
	}
	if pool.TotalStaked.IsZero() || pool.AllocPoint == 0 {
		pool.LastRewardUnit = now
		return pool, e.state.PutStakingPool(pool)
	}
	globals, err := e.loadGlobals()
	if err != nil {
		return Pool{}, err
	}
	reward, err := poolReward(globals, pool, now)
	if err != nil {
		return Pool{}, err
	}
	if !reward.IsZero() {
		devShare, err := nativecommon.Bps(reward, e.config.DevShareBps)
		if err != nil {
			return Pool{}, err
		}
		if !devShare.IsZero() && !e.config.DevAddress.IsZero() {
			if err := e.reward.Mint(e.config.Manager, e.config.DevAddress, devShare); err != nil {
				return Pool{}, fmt.Errorf("staking: mint dev share: %w", err)
			}
		}
		if err := e.reward.Mint(e.config.Manager, e.config.Manager, reward); err != nil {
			return Pool{}, fmt.Errorf("staking: mint pool reward: %w", err)
		}
		perShare, err := nativecommon.MulDiv(reward, accPrecision, &pool.TotalStaked)
		if err != nil {
			return Pool{}, err
		}
		acc, err := nativecommon.Add(&pool.AccRewardPerShare, perShare)
		if err != nil {
			return Pool{}, err
		}
		pool.AccRewardPerShare = *acc
	}
	pool.LastRewardUnit = now
	if err := e.state.PutStakingPool(pool); err != nil {
		return Pool{}, err
	}
	buf.Emit(events.PoolUpdated{Pool: pid, Unit: now, Reward: reward, AccRewardPerShare: pool.AccRewardPerShare.Clone()})
	return pool, nil
}

// --- Views ---

// Pool returns pid's record.
func (e *Engine) Pool(pid uint64) (Pool, error) {
	if err := e.ready(); err != nil {
		return Pool{}, err
	}
	return e.loadPool(pid)
}

func (e *Engine) PoolLength() (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	globals, err := e.loadGlobals()
	if err != nil {
		return 0, err
	}
	return globals.PoolCount, nil
}

func (e *Engine) TotalAllocPoint() (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	globals, err := e.loadGlobals()
	if err != nil {
		return 0, err
	}
	return globals.TotalAllocPoint, nil
}

// RewardPerUnit returns the current emission.
func (e *Engine) RewardPerUnit() (*uint256.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	globals, err := e.loadGlobals()
	if err != nil {
		return nil, err
	}
	return globals.RewardPerUnit.Clone(), nil
}

// StartUnit returns the first unit at which rewards accrue.
func (e *Engine) StartUnit() (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	globals, err := e.loadGlobals()
	if err != nil {
		return 0, err
	}
	return globals.StartUnit, nil
}

// TotalLockedUp returns the rewards waiting on harvest intervals.
func (e *Engine) TotalLockedUp() (*uint256.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	globals, err := e.loadGlobals()
	if err != nil {
		return nil, err
	}
	return globals.TotalLockedUp.Clone(), nil
}
