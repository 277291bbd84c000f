package core

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"posichain/config"
	"posichain/core/events"
	"posichain/core/state"
	"posichain/crypto"
	"posichain/native/staking"
	"posichain/native/token"
	"posichain/observability/metrics"
	"posichain/storage"
)

// ErrNotInitialised is returned by Commit before genesis has run.
var ErrNotInitialised = errors.New("ledger: genesis has not run")

// Options carries the optional collaborators of a Ledger.
type Options struct {
	Logger   *slog.Logger
	Metrics  *metrics.LedgerMetrics
	Emitter  events.Emitter
	Registry token.SaleRegistry
}

// Ledger hosts the reflection token and the staking manager over one journaled
// state. Calls are serialised; each runs inside a checkpoint that is reverted
// together with its buffered events when the call fails.
type Ledger struct {
	mu sync.Mutex

	cfg     *config.Config
	state   *state.Manager
	token   *token.Engine
	staking *staking.Engine

	pending *events.Buffer
	out     events.Emitter
	logger  *slog.Logger
	metrics *metrics.LedgerMetrics

	height uint64
}

// NewLedger wires the engines to a state manager reading through to db.
func NewLedger(cfg *config.Config, db storage.Database, opts Options) (*Ledger, error) {
	if cfg == nil {
		return nil, fmt.Errorf("ledger: nil config")
	}
	if db == nil {
		return nil, fmt.Errorf("ledger: nil database")
	}
	params, err := cfg.Token.Params()
	if err != nil {
		return nil, err
	}
	tokenEngine, err := token.NewEngine(params)
	if err != nil {
		return nil, err
	}
	stakingCfg, err := cfg.Staking.EngineConfig(cfg.Roles)
	if err != nil {
		return nil, err
	}
	stakingEngine, err := staking.NewEngine(stakingCfg, tokenEngine)
	if err != nil {
		return nil, err
	}

	l := &Ledger{
		cfg:     cfg,
		state:   state.NewManager(db),
		token:   tokenEngine,
		staking: stakingEngine,
		pending: new(events.Buffer),
		out:     opts.Emitter,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
	if l.out == nil {
		l.out = events.NoopEmitter{}
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	l.logger = l.logger.With("component", "ledger")

	height, err := l.state.Height()
	if err != nil {
		return nil, err
	}
	l.height = height

	tokenEngine.SetState(l.state)
	tokenEngine.SetEmitter(l.pending)
	tokenEngine.SetPauses(cfg.Pauses)
	if opts.Registry != nil {
		tokenEngine.SetSaleRegistry(opts.Registry)
	}
	stakingEngine.SetState(l.state)
	stakingEngine.SetEmitter(l.pending)
	stakingEngine.SetPauses(cfg.Pauses)
	stakingEngine.SetClock(staking.ClockFunc(func() uint64 { return l.height }))

	l.metrics.SetHeight(height)
	return l, nil
}

// Token exposes the token engine for read-only queries. Concurrent callers
// should use View instead.
func (l *Ledger) Token() *token.Engine { return l.token }

// Staking exposes the staking engine for read-only queries. Concurrent
// callers should use View instead.
func (l *Ledger) Staking() *staking.Engine { return l.staking }

// View runs fn under the ledger lock so every read sees the same state.
func (l *Ledger) View(fn func(t *token.Engine, s *staking.Engine) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(l.token, l.staking)
}

// Height returns the current time unit.
func (l *Ledger) Height() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.height
}

// Advance moves the clock forward by n units.
func (l *Ledger) Advance(n uint64) error {
	return l.run("advance", func() error {
		next := l.height + n
		if next < l.height {
			return fmt.Errorf("ledger: height overflow")
		}
		if err := l.state.PutHeight(next); err != nil {
			return err
		}
		l.height = next
		return nil
	}, slog.Uint64("units", n))
}

// Genesis seeds the token supply, roles and custody accounts and initialises
// the staking manager.
func (l *Ledger) Genesis() error {
	return l.run("genesis", func() error {
		if err := l.token.Genesis(l.cfg.Roles.TokenRoles(), l.cfg.Roles.InitialHolder); err != nil {
			return err
		}
		return l.staking.Initialise()
	})
}

// Initialised reports whether genesis has run.
func (l *Ledger) Initialised() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	status, err := l.token.Status()
	if err != nil {
		return false, err
	}
	return status.Initialised, nil
}

// Commit persists every finalised call and returns the number of records
// written.
func (l *Ledger) Commit() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	status, err := l.token.Status()
	if err != nil {
		return 0, err
	}
	if !status.Initialised {
		return 0, ErrNotInitialised
	}
	n, err := l.state.Commit()
	if err != nil {
		l.logger.Error("commit failed", "error", err)
		return 0, err
	}
	l.metrics.AddCommitted(n)
	l.logger.Info("state committed", "records", n, "height", l.height)
	return n, nil
}

// run executes fn as one all-or-nothing call.
func (l *Ledger) run(op string, fn func() error, attrs ...any) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	start := time.Now()
	logger := l.logger.With(append([]any{"op", op, "correlation_id", uuid.NewString()}, attrs...)...)
	height := l.height
	rev := l.state.Snapshot()
	err := fn()
	if err != nil {
		l.state.RevertToSnapshot(rev)
		l.pending.Discard()
		l.height = height
		logger.Warn("ledger call rejected", "error", err)
	} else {
		l.state.Finalise()
		for _, e := range l.pending.Events() {
			if updated, ok := e.(events.PoolUpdated); ok {
				l.metrics.ObservePoolUpdate(strconv.FormatUint(updated.Pool, 10))
			}
		}
		emitted := len(l.pending.Events())
		l.pending.Flush(l.out)
		logger.Debug("ledger call applied", "events", emitted)
		l.publishSupply()
	}
	l.metrics.ObserveOperation(op, err, time.Since(start).Seconds())
	l.metrics.SetHeight(l.height)
	return err
}

func (l *Ledger) publishSupply() {
	if l.metrics == nil {
		return
	}
	supply, err := l.token.Supply()
	if err != nil {
		return
	}
	l.metrics.SetSupply(l.token.Symbol(), &supply.Total, &supply.Fees)
}

func addr(key string, a crypto.Address) slog.Attr { return slog.String(key, a.String()) }
