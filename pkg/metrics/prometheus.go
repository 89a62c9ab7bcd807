package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	errorsTotal   *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	ledgerRows    *prometheus.HistogramVec
	cacheResults  *prometheus.CounterVec
	invalidations *prometheus.CounterVec
}

// New registers the recorder's collectors with reg. A nil reg uses the
// default registry.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Recorder{
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "omnitrackiq_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "omnitrackiq_operation_duration_seconds",
				Help:    "Duration of analytics operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		ledgerRows: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "omnitrackiq_ledger_rows",
				Help:    "Rows returned per ledger read",
				Buckets: prometheus.ExponentialBuckets(10, 4, 8),
			},
			[]string{"ledger"},
		),
		cacheResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "omnitrackiq_cache_requests_total",
				Help: "Result cache lookups by outcome",
			},
			[]string{"operation", "result"},
		),
		invalidations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "omnitrackiq_cache_invalidations_total",
				Help: "Tenant cache invalidations by ledger",
			},
			[]string{"ledger"},
		),
	}
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordLedgerRows records the size of a ledger read.
func (r *Recorder) RecordLedgerRows(ledger string, rows int) {
	r.ledgerRows.WithLabelValues(ledger).Observe(float64(rows))
}

// RecordCacheResult counts a result cache hit or miss.
func (r *Recorder) RecordCacheResult(op string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheResults.WithLabelValues(op, result).Inc()
}

// RecordInvalidation counts a tenant invalidation.
func (r *Recorder) RecordInvalidation(ledger string) {
	r.invalidations.WithLabelValues(ledger).Inc()
}
