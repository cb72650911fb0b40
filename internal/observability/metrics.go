// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/holiman/uint256"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"soulverse-ledger/internal/domain"
	"soulverse-ledger/internal/ledgererr"
)

// Operation results used as the "result" label.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// Metrics holds all Prometheus metrics for a ledger host.
type Metrics struct {
	// Ledger metrics
	OperationsTotal   *prometheus.CounterVec
	RejectionsTotal   *prometheus.CounterVec
	CirculatingSupply prometheus.Gauge
	TotalBurned       prometheus.Gauge

	// Persistence metrics
	JournalErrors    *prometheus.CounterVec
	CheckpointsTotal *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastCheckpoint prometheus.Gauge
}

// NewMetrics creates a Metrics instance registered with reg.
// A nil reg uses the default registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "soulverse"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Ledger metrics
		OperationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "operations_total",
			Help:      "Total number of ledger operations by operation and result",
		}, []string{"op", "result"}),
		RejectionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "rejections_total",
			Help:      "Total number of rejected ledger operations by error code",
		}, []string{"op", "code"}),
		CirculatingSupply: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "circulating_supply_tokens",
			Help:      "Fixed supply minus burned tokens, in whole tokens",
		}),
		TotalBurned: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "total_burned_tokens",
			Help:      "Cumulative burned tokens, in whole tokens",
		}),

		// Persistence metrics
		JournalErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "journal",
			Name:      "errors_total",
			Help:      "Total number of failed journal appends by store",
		}, []string{"store"}),
		CheckpointsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "checkpoints_total",
			Help:      "Total number of snapshot checkpoints by result",
		}, []string{"result"}),

		// Database metrics
		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		// Health metrics
		LastCheckpoint: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_checkpoint_timestamp",
			Help:      "Unix timestamp of last successful snapshot checkpoint",
		}),
	}
}

// Handler returns an HTTP handler exposing the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// RecordOperation counts one ledger operation. Ledger rejections are
// labelled with their error code; any other error counts as "error".
func (m *Metrics) RecordOperation(op string, err error) {
	switch {
	case err == nil:
		m.OperationsTotal.WithLabelValues(op, ResultOK).Inc()
	case ledgererr.CodeOf(err) != "":
		m.OperationsTotal.WithLabelValues(op, ResultRejected).Inc()
		m.RejectionsTotal.WithLabelValues(op, string(ledgererr.CodeOf(err))).Inc()
	default:
		m.OperationsTotal.WithLabelValues(op, ResultError).Inc()
	}
}

// UpdateSupply sets the supply gauges from base-unit amounts.
func (m *Metrics) UpdateSupply(circulating, burned *uint256.Int) {
	m.CirculatingSupply.Set(domain.TokensFloat(circulating))
	m.TotalBurned.Set(domain.TokensFloat(burned))
}

// RecordJournalError counts a failed journal append.
func (m *Metrics) RecordJournalError(store string) {
	m.JournalErrors.WithLabelValues(store).Inc()
}

// RecordCheckpoint records a snapshot save attempt.
func (m *Metrics) RecordCheckpoint(unixSeconds int64, err error) {
	if err != nil {
		m.CheckpointsTotal.WithLabelValues(ResultError).Inc()
		return
	}
	m.CheckpointsTotal.WithLabelValues(ResultOK).Inc()
	m.LastCheckpoint.Set(float64(unixSeconds))
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, seconds float64, err error) {
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
