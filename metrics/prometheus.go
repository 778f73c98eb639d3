package metrics

import (
	"math/big"
	"net/http"
	"sync"
	"time"

	"cosmossdk.io/math"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// LevFarm Metrics Collector
// Lending vaults, farming workers, liquidations and delta-neutral vaults

const namespace = "levfarm"

var (
	// Singleton collector
	collector     *Collector
	collectorOnce sync.Once
)

// Collector holds all LevFarm metrics
type Collector struct {
	// Lending vault metrics
	VaultTotalToken  *prometheus.GaugeVec
	VaultDebt        *prometheus.GaugeVec
	VaultUtilization *prometheus.GaugeVec
	VaultBorrowAPR   *prometheus.GaugeVec
	VaultFlowsTotal  *prometheus.CounterVec

	// Position metrics
	PositionsOpen *prometheus.GaugeVec
	WorkTotal     *prometheus.CounterVec
	WorkLatency   *prometheus.HistogramVec
	DebtRatio     *prometheus.HistogramVec

	// Liquidation metrics
	KillsTotal  *prometheus.CounterVec
	KillValue   *prometheus.CounterVec
	KillBadDebt *prometheus.CounterVec

	// Worker metrics
	ReinvestTotal  *prometheus.CounterVec
	ReinvestReward *prometheus.CounterVec
	ReinvestBounty *prometheus.CounterVec

	// Delta-neutral metrics
	DNEquity       *prometheus.GaugeVec
	DNActionsTotal *prometheus.CounterVec

	// Oracle metrics
	OraclePrice *prometheus.GaugeVec

	// WebSocket metrics
	WSConnectionsActive *prometheus.GaugeVec
	WSMessagesTotal     *prometheus.CounterVec
	WSMessageLatency    *prometheus.HistogramVec

	// API metrics
	APIRequestsTotal  *prometheus.CounterVec
	APIRequestLatency *prometheus.HistogramVec

	// System metrics
	BlockHeight prometheus.Gauge
	BlockTime   *prometheus.HistogramVec
}

// GetCollector returns the singleton metrics collector
func GetCollector() *Collector {
	collectorOnce.Do(func() {
		collector = newCollector()
	})
	return collector
}

// newCollector creates a new metrics collector
func newCollector() *Collector {
	c := &Collector{}

	// Lending vault metrics
	c.VaultTotalToken = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "vault",
			Name:      "total_token",
			Help:      "Pooled asset plus debt minus reserve",
		},
		[]string{"vault_id"},
	)

	c.VaultDebt = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "vault",
			Name:      "debt",
			Help:      "Total debt value owed by positions",
		},
		[]string{"vault_id"},
	)

	c.VaultUtilization = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "vault",
			Name:      "utilization",
			Help:      "Debt over debt plus floating liquidity (0-1)",
		},
		[]string{"vault_id"},
	)

	c.VaultBorrowAPR = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "vault",
			Name:      "borrow_apr",
			Help:      "Current borrow APR from the interest model",
		},
		[]string{"vault_id"},
	)

	c.VaultFlowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vault",
			Name:      "flows_total",
			Help:      "Lender deposits and withdrawals",
		},
		[]string{"vault_id", "kind"},
	)

	// Position metrics
	c.PositionsOpen = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "positions",
			Name:      "open",
			Help:      "Number of positions carrying debt",
		},
		[]string{"vault_id"},
	)

	c.WorkTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "positions",
			Name:      "work_total",
			Help:      "Work calls by strategy and outcome",
		},
		[]string{"vault_id", "worker_id", "strategy", "status"},
	)

	c.WorkLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "positions",
			Name:      "work_latency_ms",
			Help:      "Work processing latency in milliseconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100},
		},
		[]string{"vault_id"},
	)

	c.DebtRatio = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "positions",
			Name:      "debt_ratio",
			Help:      "Debt over health after work (0-1)",
			Buckets:   []float64{0.1, 0.25, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
		[]string{"vault_id"},
	)

	// Liquidation metrics
	c.KillsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "liquidation",
			Name:      "kills_total",
			Help:      "Positions liquidated",
		},
		[]string{"vault_id", "worker_id"},
	)

	c.KillValue = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "liquidation",
			Name:      "value_total",
			Help:      "Base recovered by liquidations",
		},
		[]string{"vault_id"},
	)

	c.KillBadDebt = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "liquidation",
			Name:      "bad_debt_total",
			Help:      "Debt left unpaid by liquidations",
		},
		[]string{"vault_id"},
	)

	// Worker metrics
	c.ReinvestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "reinvest_total",
			Help:      "Reinvest runs by trigger",
		},
		[]string{"worker_id", "trigger"},
	)

	c.ReinvestReward = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "reward_total",
			Help:      "Farm reward harvested for reinvest",
		},
		[]string{"worker_id"},
	)

	c.ReinvestBounty = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "bounty_total",
			Help:      "Reinvest bounty taken from rewards",
		},
		[]string{"worker_id"},
	)

	// Delta-neutral metrics
	c.DNEquity = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "deltaneutral",
			Name:      "equity_usd",
			Help:      "Equity of both legs in USD",
		},
		[]string{"dn_id"},
	)

	c.DNActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "deltaneutral",
			Name:      "actions_total",
			Help:      "Deposit, withdraw, reinvest and rebalance calls",
		},
		[]string{"dn_id", "action", "status"},
	)

	// Oracle metrics
	c.OraclePrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "oracle",
			Name:      "price",
			Help:      "Last fed USD price",
		},
		[]string{"denom"},
	)

	// WebSocket metrics
	c.WSConnectionsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "connections_active",
			Help:      "Number of active WebSocket connections",
		},
		[]string{},
	)

	c.WSMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "messages_total",
			Help:      "Total WebSocket event frames published by type",
		},
		[]string{"type"},
	)

	c.WSMessageLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "message_latency_ms",
			Help:      "Time to fan an event out to subscribers in milliseconds",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250},
		},
		[]string{"type"},
	)

	// API metrics
	c.APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total API requests",
		},
		[]string{"method", "path", "status"},
	)

	c.APIRequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_latency_ms",
			Help:      "API request latency in milliseconds",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"method", "path"},
	)

	// System metrics
	c.BlockHeight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "system",
			Name:      "block_height",
			Help:      "Current block height",
		},
	)

	c.BlockTime = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "system",
			Name:      "end_block_ms",
			Help:      "EndBlocker phase time in milliseconds",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500},
		},
		[]string{"phase"},
	)

	c.registerAll()
	return c
}

// registerAll registers all metrics with Prometheus
func (c *Collector) registerAll() {
	// Lending vault metrics
	prometheus.MustRegister(c.VaultTotalToken)
	prometheus.MustRegister(c.VaultDebt)
	prometheus.MustRegister(c.VaultUtilization)
	prometheus.MustRegister(c.VaultBorrowAPR)
	prometheus.MustRegister(c.VaultFlowsTotal)

	// Position metrics
	prometheus.MustRegister(c.PositionsOpen)
	prometheus.MustRegister(c.WorkTotal)
	prometheus.MustRegister(c.WorkLatency)
	prometheus.MustRegister(c.DebtRatio)

	// Liquidation metrics
	prometheus.MustRegister(c.KillsTotal)
	prometheus.MustRegister(c.KillValue)
	prometheus.MustRegister(c.KillBadDebt)

	// Worker metrics
	prometheus.MustRegister(c.ReinvestTotal)
	prometheus.MustRegister(c.ReinvestReward)
	prometheus.MustRegister(c.ReinvestBounty)

	// Delta-neutral metrics
	prometheus.MustRegister(c.DNEquity)
	prometheus.MustRegister(c.DNActionsTotal)

	// Oracle metrics
	prometheus.MustRegister(c.OraclePrice)

	// WebSocket metrics
	prometheus.MustRegister(c.WSConnectionsActive)
	prometheus.MustRegister(c.WSMessagesTotal)
	prometheus.MustRegister(c.WSMessageLatency)

	// API metrics
	prometheus.MustRegister(c.APIRequestsTotal)
	prometheus.MustRegister(c.APIRequestLatency)

	// System metrics
	prometheus.MustRegister(c.BlockHeight)
	prometheus.MustRegister(c.BlockTime)
}

// ============ Recording Helpers ============

// RecordVaultState records the accounting snapshot of a vault
func (c *Collector) RecordVaultState(vaultID string, totalToken, debt, utilization, apr float64) {
	c.VaultTotalToken.WithLabelValues(vaultID).Set(totalToken)
	c.VaultDebt.WithLabelValues(vaultID).Set(debt)
	c.VaultUtilization.WithLabelValues(vaultID).Set(utilization)
	c.VaultBorrowAPR.WithLabelValues(vaultID).Set(apr)
}

// RecordVaultFlow records a lender deposit or withdrawal
func (c *Collector) RecordVaultFlow(vaultID, kind string) {
	c.VaultFlowsTotal.WithLabelValues(vaultID, kind).Inc()
}

// RecordWork records a work call
func (c *Collector) RecordWork(vaultID, workerID, strategy, status string, latencyMs float64) {
	c.WorkTotal.WithLabelValues(vaultID, workerID, strategy, status).Inc()
	c.WorkLatency.WithLabelValues(vaultID).Observe(latencyMs)
}

// RecordDebtRatio records debt over health for a position after work
func (c *Collector) RecordDebtRatio(vaultID string, ratio float64) {
	c.DebtRatio.WithLabelValues(vaultID).Observe(ratio)
}

// RecordOpenPositions records the number of positions carrying debt
func (c *Collector) RecordOpenPositions(vaultID string, count int) {
	c.PositionsOpen.WithLabelValues(vaultID).Set(float64(count))
}

// RecordKill records a liquidation
func (c *Collector) RecordKill(vaultID, workerID string, value, badDebt float64) {
	c.KillsTotal.WithLabelValues(vaultID, workerID).Inc()
	c.KillValue.WithLabelValues(vaultID).Add(value)
	if badDebt > 0 {
		c.KillBadDebt.WithLabelValues(vaultID).Add(badDebt)
	}
}

// RecordReinvest records a worker reinvest
func (c *Collector) RecordReinvest(workerID, trigger string, reward, bounty float64) {
	c.ReinvestTotal.WithLabelValues(workerID, trigger).Inc()
	c.ReinvestReward.WithLabelValues(workerID).Add(reward)
	c.ReinvestBounty.WithLabelValues(workerID).Add(bounty)
}

// RecordDNAction records a delta-neutral vault action
func (c *Collector) RecordDNAction(dnID, action, status string) {
	c.DNActionsTotal.WithLabelValues(dnID, action, status).Inc()
}

// RecordDNEquity records the equity of a delta-neutral vault
func (c *Collector) RecordDNEquity(dnID string, equity float64) {
	c.DNEquity.WithLabelValues(dnID).Set(equity)
}

// RecordOraclePrice records a fed price
func (c *Collector) RecordOraclePrice(denom string, price float64) {
	c.OraclePrice.WithLabelValues(denom).Set(price)
}

// RecordAPIRequest records an API request
func (c *Collector) RecordAPIRequest(method, path, status string, latencyMs float64) {
	c.APIRequestsTotal.WithLabelValues(method, path, status).Inc()
	c.APIRequestLatency.WithLabelValues(method, path).Observe(latencyMs)
}

// RecordWSConnection records WebSocket connection changes
func (c *Collector) RecordWSConnection(delta int) {
	c.WSConnectionsActive.WithLabelValues().Add(float64(delta))
}

// RecordWSMessage records one published event frame and its fan-out time
func (c *Collector) RecordWSMessage(messageType string, latencyMs float64) {
	c.WSMessagesTotal.WithLabelValues(messageType).Inc()
	c.WSMessageLatency.WithLabelValues(messageType).Observe(latencyMs)
}

// RecordEndBlockPhase records the time spent in one EndBlocker phase
func (c *Collector) RecordEndBlockPhase(phase string, latencyMs float64) {
	c.BlockTime.WithLabelValues(phase).Observe(latencyMs)
}

// UpdateBlockHeight records the current block height
func (c *Collector) UpdateBlockHeight(height int64) {
	c.BlockHeight.Set(float64(height))
}

// IntValue converts an on-chain amount to a gauge value
func IntValue(i math.Int) float64 {
	if i.IsNil() {
		return 0
	}
	f, _ := new(big.Float).SetInt(i.BigInt()).Float64()
	return f
}

// DecValue converts an on-chain decimal to a gauge value
func DecValue(d math.LegacyDec) float64 {
	if d.IsNil() {
		return 0
	}
	f, _ := d.Float64()
	return f
}

// ============ HTTP Handler ============

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for measuring latency
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ElapsedMs returns the elapsed time in milliseconds
func (t *Timer) ElapsedMs() float64 {
	return float64(time.Since(t.start).Microseconds()) / 1000.0
}
