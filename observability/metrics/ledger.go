package metrics

import (
	"strings"
	"sync"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics tracks ledger operations and the headline supply figures.
type LedgerMetrics struct {
	operations    *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	supply        *prometheus.GaugeVec
	fees          *prometheus.GaugeVec
	poolRewards   *prometheus.CounterVec
	height        prometheus.Gauge
	commitRecords prometheus.Counter
}

var (
	ledgerOnce     sync.Once
	ledgerRegistry *LedgerMetrics
)

// Ledger returns the lazily registered ledger metrics.
func Ledger() *LedgerMetrics {
	ledgerOnce.Do(func() {
		ledgerRegistry = newLedgerMetrics()
		prometheus.MustRegister(
			ledgerRegistry.operations,
			ledgerRegistry.latency,
			ledgerRegistry.supply,
			ledgerRegistry.fees,
			ledgerRegistry.poolRewards,
			ledgerRegistry.height,
			ledgerRegistry.commitRecords,
		)
	})
	return ledgerRegistry
}

func newLedgerMetrics() *LedgerMetrics {
	return &LedgerMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "posi",
			Subsystem: "ledger",
			Name:      "operations_total",
			Help:      "Ledger operations segmented by name and outcome.",
		}, []string{"operation", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "posi",
			Subsystem: "ledger",
			Name:      "operation_seconds",
			Help:      "Ledger operation latency.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 8),
		}, []string{"operation"}),
		supply: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "posi",
			Subsystem: "token",
			Name:      "total_supply",
			Help:      "Real token supply in base units.",
		}, []string{"symbol"}),
		fees: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "posi",
			Subsystem: "token",
			Name:      "reflected_fees",
			Help:      "Cumulative fees reflected to holders in base units.",
		}, []string{"symbol"}),
		poolRewards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "posi",
			Subsystem: "staking",
			Name:      "pool_updates_total",
			Help:      "Pool reward checkpoints segmented by pool id.",
		}, []string{"pool"}),
		height: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "posi",
			Subsystem: "ledger",
			Name:      "height",
			Help:      "Current ledger height used as the staking time unit.",
		}),
		commitRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "posi",
			Subsystem: "ledger",
			Name:      "committed_records_total",
			Help:      "State records flushed to the database.",
		}),
	}
}

// ObserveOperation records the outcome and latency of a ledger operation.
func (m *LedgerMetrics) ObserveOperation(operation string, err error, seconds float64) {
	if m == nil {
		return
	}
	operation = strings.TrimSpace(operation)
	if operation == "" {
		operation = "unknown"
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
	m.latency.WithLabelValues(operation).Observe(seconds)
}

// SetSupply publishes the supply and reflected fee totals.
func (m *LedgerMetrics) SetSupply(symbol string, total, fees *uint256.Int) {
	if m == nil {
		return
	}
	if total != nil {
		m.supply.WithLabelValues(symbol).Set(total.Float64())
	}
	if fees != nil {
		m.fees.WithLabelValues(symbol).Set(fees.Float64())
	}
}

// ObservePoolUpdate counts a reward checkpoint for pool.
func (m *LedgerMetrics) ObservePoolUpdate(pool string) {
	if m == nil {
		return
	}
	m.poolRewards.WithLabelValues(pool).Inc()
}

// SetHeight publishes the ledger height.
func (m *LedgerMetrics) SetHeight(height uint64) {
	if m == nil {
		return
	}
	m.height.Set(float64(height))
}

// AddCommitted counts records written by a commit.
func (m *LedgerMetrics) AddCommitted(records int) {
	if m == nil || records <= 0 {
		return
	}
	m.commitRecords.Add(float64(records))
}
