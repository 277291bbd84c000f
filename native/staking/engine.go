package staking

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"

	"posichain/core/events"
	"posichain/crypto"
	nativecommon "posichain/native/common"
)

const moduleName = "staking"

// Engine is a pool-weighted reward distributor. Rewards accrue per time unit,
// are minted on demand through the reward token and are shared within a pool
// by stake weight.
type Engine struct {
	state   engineState
	config  Config
	reward  RewardToken
	assets  map[string]Asset
	clock   Clock
	emitter events.Emitter
	pauses  nativecommon.PauseView
}

// NewEngine validates cfg and constructs an engine paying rewards in reward.
// The reward token is also registered as a stakeable asset.
func NewEngine(cfg Config, reward RewardToken) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if reward == nil {
		return nil, errNilRewardToken
	}
	e := &Engine{
		config:  cfg,
		reward:  reward,
		assets:  make(map[string]Asset),
		emitter: events.NoopEmitter{},
	}
	e.RegisterAsset(reward)
	return e, nil
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetClock wires the time unit source.
func (e *Engine) SetClock(clock Clock) { e.clock = clock }

func (e *Engine) SetEmitter(emitter events.Emitter) {
	if e == nil {
		return
	}
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
}

func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// RegisterAsset makes asset available as a pool's staked asset.
func (e *Engine) RegisterAsset(asset Asset) {
	if e == nil || asset == nil {
		return
	}
	e.assets[normalizeSymbol(asset.Symbol())] = asset
}

// Config returns the static configuration.
func (e *Engine) Config() Config { return e.config }

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func (e *Engine) asset(symbol string) (Asset, error) {
	asset, ok := e.assets[normalizeSymbol(symbol)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAsset, symbol)
	}
	return asset, nil
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.clock == nil {
		return errNilClock
	}
	return nil
}

// atomic runs fn inside a state checkpoint that is reverted on error.
// Buffered events are released only on success.
func (e *Engine) atomic(fn func(buf *events.Buffer) error) error {
	if err := e.ready(); err != nil {
		return err
	}
	rev := e.state.Snapshot()
	buf := new(events.Buffer)
	if err := fn(buf); err != nil {
		e.state.RevertToSnapshot(rev)
		buf.Discard()
		return err
	}
	buf.Flush(e.emitter)
	return nil
}

func (e *Engine) guard() error {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return fmt.Errorf("staking: %w", err)
	}
	return nil
}

func (e *Engine) now() uint64 { return e.clock.Height() }

func (e *Engine) requireOwner(caller crypto.Address) error {
	if caller.IsZero() || caller != e.config.Owner {
		return fmt.Errorf("%w: %s is not the owner", ErrNotAuthorized, caller)
	}
	return nil
}

func (e *Engine) loadGlobals() (Globals, error) {
	globals, err := e.state.StakingGlobals()
	if err != nil {
		return Globals{}, err
	}
	if !globals.Initialised {
		return Globals{}, ErrNotInitialised
	}
	return globals, nil
}

func (e *Engine) loadPool(pid uint64) (Pool, error) {
	pool, ok, err := e.state.StakingPool(pid)
	if err != nil {
		return Pool{}, err
	}
	if !ok {
		return Pool{}, fmt.Errorf("%w: %d", ErrUnknownPool, pid)
	}
	return pool, nil
}

// Initialise stores the manager-wide record. It runs once at genesis.
func (e *Engine) Initialise() error {
	return e.atomic(func(*events.Buffer) error {
		globals, err := e.state.StakingGlobals()
		if err != nil {
			return err
		}
		if globals.Initialised {
			return ErrAlreadyInitialised
		}
		globals = Globals{
			Initialised:   true,
			RewardPerUnit: *e.config.RewardPerUnit,
			StartUnit:     e.config.StartUnit,
		}
		return e.state.PutStakingGlobals(globals)
	})
}

// poolReward returns the reward accrued by pool between its checkpoint and
// now under the current emission and weights.
func poolReward(globals Globals, pool Pool, now uint64) (*uint256.Int, error) {
	if now <= pool.LastRewardUnit || pool.AllocPoint == 0 || globals.TotalAllocPoint == 0 {
		return new(uint256.Int), nil
	}
	elapsed := uint256.NewInt(now - pool.LastRewardUnit)
	emitted, err := nativecommon.Mul(elapsed, &globals.RewardPerUnit)
	if err != nil {
		return nil, err
	}
	return nativecommon.MulDiv(emitted, uint256.NewInt(pool.AllocPoint), uint256.NewInt(globals.TotalAllocPoint))
}

// accumulated returns amount*acc/1e12.
func accumulated(amount, acc *uint256.Int) (*uint256.Int, error) {
	return nativecommon.MulDiv(amount, acc, accPrecision)
}
