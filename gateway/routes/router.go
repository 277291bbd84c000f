package routes

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"posichain/crypto"
	"posichain/gateway/middleware"
	"posichain/native/staking"
	"posichain/native/token"
	"posichain/services/indexer"
)

// AdminScope is required on every admin route.
const AdminScope = "ledger:admin"

// Ledger is the slice of the ledger host the gateway serves.
type Ledger interface {
	View(fn func(t *token.Engine, s *staking.Engine) error) error
	Height() uint64
	Advance(units uint64) error
	MassUpdatePools() error
}

// EventStore answers event history queries.
type EventStore interface {
	History(addr crypto.Address, limit int) ([]indexer.Event, error)
	Latest(limit int) ([]indexer.Event, error)
}

type Config struct {
	Ledger Ledger
	Events EventStore
	// Persist runs after every successful admin call.
	Persist       func() error
	Authenticator *middleware.Authenticator
	RateLimiter   *middleware.RateLimiter
	Observability *middleware.Observability
	Metrics       http.Handler
	CORS          middleware.CORSConfig
}

type api struct {
	ledger  Ledger
	events  EventStore
	persist func() error
}

func New(cfg Config) (http.Handler, error) {
	if cfg.Ledger == nil {
		return nil, errors.New("routes: ledger is required")
	}
	a := &api{ledger: cfg.Ledger, events: cfg.Events, persist: cfg.Persist}

	r := chi.NewRouter()
	r.Use(middleware.CORS(cfg.CORS))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}

	r.Route("/v1", func(v1 chi.Router) {
		v1.Group(func(q chi.Router) {
			if cfg.RateLimiter != nil {
				q.Use(cfg.RateLimiter.Middleware("query"))
			}
			if cfg.Observability != nil {
				q.Use(cfg.Observability.Middleware("query"))
			}
			q.Get("/token", a.getToken)
			q.Get("/balance/{address}", a.getBalance)
			q.Get("/pools/{id}", a.getPool)
			q.Get("/pools/{id}/pending/{address}", a.getPending)
			q.Get("/events", a.getEvents)
		})
		v1.Route("/admin", func(adm chi.Router) {
			if cfg.RateLimiter != nil {
				adm.Use(cfg.RateLimiter.Middleware("admin"))
			}
			if cfg.Observability != nil {
				adm.Use(cfg.Observability.Middleware("admin"))
			}
			if cfg.Authenticator == nil {
				adm.Use(denyAll)
			} else {
				adm.Use(cfg.Authenticator.Middleware(AdminScope))
			}
			adm.Post("/advance", a.postAdvance)
			adm.Post("/update-pools", a.postUpdatePools)
		})
	})
	return r, nil
}

func denyAll(http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusForbidden, errors.New("admin routes disabled"))
	})
}

type rateView struct {
	Reflected string `json:"reflected"`
	Real      string `json:"real"`
}

type tokenView struct {
	Name        string    `json:"name"`
	Symbol      string    `json:"symbol"`
	Decimals    uint8     `json:"decimals"`
	TotalSupply string    `json:"totalSupply"`
	TotalFees   string    `json:"totalFees"`
	Paused      bool      `json:"paused"`
	Rate        *rateView `json:"rate,omitempty"`
	Height      uint64    `json:"height"`
}

func (a *api) getToken(w http.ResponseWriter, _ *http.Request) {
	var out tokenView
	err := a.ledger.View(func(t *token.Engine, _ *staking.Engine) error {
		supply, err := t.Supply()
		if err != nil {
			return err
		}
		paused, err := t.Paused()
		if err != nil {
			return err
		}
		out = tokenView{
			Name:        t.Name(),
			Symbol:      t.Symbol(),
			Decimals:    t.Decimals(),
			TotalSupply: supply.Total.Dec(),
			TotalFees:   supply.Fees.Dec(),
			Paused:      paused,
		}
		rate, err := t.Rate()
		switch {
		case err == nil:
			out.Rate = &rateView{Reflected: rate.Reflected.Dec(), Real: rate.Real.Dec()}
		case !errors.Is(err, token.ErrDivisionByZero):
			return err
		}
		return nil
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	out.Height = a.ledger.Height()
	writeJSON(w, http.StatusOK, out)
}

type balanceView struct {
	Address  string `json:"address"`
	Balance  string `json:"balance"`
	Excluded bool   `json:"excluded"`
}

func (a *api) getBalance(w http.ResponseWriter, r *http.Request) {
	addr, err := crypto.DecodeAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	out := balanceView{Address: addr.String()}
	err = a.ledger.View(func(t *token.Engine, _ *staking.Engine) error {
		balance, err := t.BalanceOf(addr)
		if err != nil {
			return err
		}
		out.Balance = balance.Dec()
		out.Excluded, err = t.IsExcluded(addr)
		return err
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type poolView struct {
	ID                uint64 `json:"id"`
	Asset             string `json:"asset"`
	AllocPoint        uint64 `json:"allocPoint"`
	DepositFeeBps     uint64 `json:"depositFeeBps"`
	HarvestInterval   uint64 `json:"harvestInterval"`
	LastRewardUnit    uint64 `json:"lastRewardUnit"`
	AccRewardPerShare string `json:"accRewardPerShare"`
	TotalStaked       string `json:"totalStaked"`
}

func (a *api) getPool(w http.ResponseWriter, r *http.Request) {
	pid, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	var pool staking.Pool
	err = a.ledger.View(func(_ *token.Engine, s *staking.Engine) error {
		var err error
		pool, err = s.Pool(pid)
		return err
	})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, poolView{
		ID:                pool.ID,
		Asset:             pool.StakedAsset,
		AllocPoint:        pool.AllocPoint,
		DepositFeeBps:     pool.DepositFeeBps,
		HarvestInterval:   pool.HarvestInterval,
		LastRewardUnit:    pool.LastRewardUnit,
		AccRewardPerShare: pool.AccRewardPerShare.Dec(),
		TotalStaked:       pool.TotalStaked.Dec(),
	})
}

type pendingView struct {
	Pool       uint64 `json:"pool"`
	Address    string `json:"address"`
	Staked     string `json:"staked"`
	Pending    string `json:"pending"`
	LockedUp   string `json:"lockedUp"`
	CanHarvest bool   `json:"canHarvest"`
}

func (a *api) getPending(w http.ResponseWriter, r *http.Request) {
	pid, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	addr, err := crypto.DecodeAddress(chi.URLParam(r, "address"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	out := pendingView{Pool: pid, Address: addr.String()}
	err = a.ledger.View(func(_ *token.Engine, s *staking.Engine) error {
		pending, err := s.PendingReward(pid, addr)
		if err != nil {
			return err
		}
		stake, err := s.UserStake(pid, addr)
		if err != nil {
			return err
		}
		out.CanHarvest, err = s.CanHarvest(pid, addr)
		out.Pending = pending.Dec()
		out.Staked = stake.Amount.Dec()
		out.LockedUp = stake.RewardLockedUp.Dec()
		return err
	})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *api) getEvents(w http.ResponseWriter, r *http.Request) {
	if a.events == nil {
		writeError(w, http.StatusNotFound, errors.New("event index disabled"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	var (
		out []indexer.Event
		err error
	)
	if raw := r.URL.Query().Get("address"); raw != "" {
		addr, decodeErr := crypto.DecodeAddress(raw)
		if decodeErr != nil {
			writeError(w, http.StatusBadRequest, decodeErr)
			return
		}
		out, err = a.events.History(addr, limit)
	} else {
		out, err = a.events.Latest(limit)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type advanceRequest struct {
	Units uint64 `json:"units"`
}

func (a *api) postAdvance(w http.ResponseWriter, r *http.Request) {
	var req advanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Units == 0 {
		writeError(w, http.StatusBadRequest, errors.New(`body must be {"units": n} with n > 0`))
		return
	}
	a.mutate(w, func() error { return a.ledger.Advance(req.Units) })
}

func (a *api) postUpdatePools(w http.ResponseWriter, _ *http.Request) {
	a.mutate(w, a.ledger.MassUpdatePools)
}

func (a *api) mutate(w http.ResponseWriter, fn func() error) {
	if err := fn(); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if a.persist != nil {
		if err := a.persist(); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"height": a.ledger.Height()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, staking.ErrUnknownPool):
		return http.StatusNotFound
	case errors.Is(err, staking.ErrNotInitialised), errors.Is(err, staking.ErrInvalidAmount):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
