// Package metrics exposes the prometheus collectors for the simulator. The
// Ledger type satisfies the metrics contract the ledger reports through.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "chainsim"

// Metrics holds the set of collectors. Each value registers its collectors
// with its own registerer so tests can build as many as they need.
type Metrics struct {
	sealAttempts  *prometheus.HistogramVec
	sealDuration  *prometheus.HistogramVec
	blocks        *prometheus.CounterVec
	height        *prometheus.GaugeVec
	valueMoved    *prometheus.CounterVec
	staleSeals    *prometheus.CounterVec
	requests      *prometheus.CounterVec
	requestTiming *prometheus.HistogramVec
}

// New constructs the collectors and registers them with the registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		sealAttempts: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "seal_attempts",
			Help:      "Nonces tried to seal a block.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 12),
		}, []string{"chain"}),
		sealDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "seal_duration_seconds",
			Help:      "Duration of the proof search for a block.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"chain"}),
		blocks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "blocks_appended_total",
			Help:      "Count of blocks committed to a chain.",
		}, []string{"chain"}),
		height: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "chain_height",
			Help:      "Height of the tip of a chain.",
		}, []string{"chain"}),
		valueMoved: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "value_moved_total",
			Help:      "Sum of the transaction values committed to a chain.",
		}, []string{"chain"}),
		staleSeals: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "stale_seals_total",
			Help:      "Count of blocks rejected because another block won the tip.",
		}, []string{"chain"}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Count of HTTP requests.",
		}, []string{"method", "status"}),
		requestTiming: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "status"}),
	}
}

// BlockSealed records the work it took to seal a block.
func (m *Metrics) BlockSealed(chainID string, attempts uint64, duration time.Duration) {
	m.sealAttempts.WithLabelValues(chainID).Observe(float64(attempts))
	m.sealDuration.WithLabelValues(chainID).Observe(duration.Seconds())
}

// BlockAppended records a block committed to a chain.
func (m *Metrics) BlockAppended(chainID string, height uint64, value uint64) {
	m.blocks.WithLabelValues(chainID).Inc()
	m.height.WithLabelValues(chainID).Set(float64(height))
	m.valueMoved.WithLabelValues(chainID).Add(float64(value))
}

// StaleSeal records a block rejected for a stale tip.
func (m *Metrics) StaleSeal(chainID string) {
	m.staleSeals.WithLabelValues(chainID).Inc()
}

// ObserveRequest records a completed HTTP request.
func (m *Metrics) ObserveRequest(method string, status string, started time.Time) {
	m.requests.WithLabelValues(method, status).Inc()
	m.requestTiming.WithLabelValues(method, status).Observe(time.Since(started).Seconds())
}
