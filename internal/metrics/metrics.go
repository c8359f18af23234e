// Package metrics exposes prometheus collectors for the ingestion and
// verification pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics provides observability for the pipeline. All helper methods are
// nil-safe so components can run without metrics in tests.
type Metrics struct {
	// Ingest outcomes: accepted, validation_error, storage_error, internal_error.
	IngestTotal *prometheus.CounterVec

	// Verification outcomes by final status.
	VerificationOutcome *prometheus.CounterVec

	// External verification attempts consumed per operation.
	VerificationAttempts prometheus.Histogram

	// Storage breaker state: 0 closed, 1 open, 2 half-open.
	BreakerState prometheus.Gauge

	// Storage call latency by operation (put, get, delete).
	StorageCallDuration *prometheus.HistogramVec
}

// New creates a Metrics instance and registers its collectors with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		IngestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "precheck_ingest_total",
			Help: "Total document ingest operations by outcome.",
		}, []string{"outcome"}),

		VerificationOutcome: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "precheck_verification_outcomes_total",
			Help: "Total verification operations by final document status.",
		}, []string{"status"}),

		VerificationAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "precheck_verification_attempts",
			Help:    "External verification attempts consumed per operation.",
			Buckets: []float64{1, 2, 3, 4, 5},
		}),

		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "precheck_storage_breaker_state",
			Help: "Object storage circuit breaker state (0=closed, 1=open, 2=half-open).",
		}),

		StorageCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "precheck_storage_call_duration_seconds",
			Help:    "Duration of object storage calls by operation.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"operation"}),
	}

	collectors := []prometheus.Collector{
		m.IngestTotal,
		m.VerificationOutcome,
		m.VerificationAttempts,
		m.BreakerState,
		m.StorageCallDuration,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// IncIngest records an ingest outcome.
func (m *Metrics) IncIngest(outcome string) {
	if m != nil {
		m.IngestTotal.WithLabelValues(outcome).Inc()
	}
}

// IncVerificationOutcome records the final status of a verification run.
func (m *Metrics) IncVerificationOutcome(status string) {
	if m != nil {
		m.VerificationOutcome.WithLabelValues(status).Inc()
	}
}

// ObserveAttempts records how many external verification attempts a run used.
func (m *Metrics) ObserveAttempts(n int) {
	if m != nil {
		m.VerificationAttempts.Observe(float64(n))
	}
}

// SetBreakerState exports the breaker state as a gauge value.
func (m *Metrics) SetBreakerState(state float64) {
	if m != nil {
		m.BreakerState.Set(state)
	}
}

// ObserveStorageCall records the latency of one storage call.
func (m *Metrics) ObserveStorageCall(op string, seconds float64) {
	if m != nil {
		m.StorageCallDuration.WithLabelValues(op).Observe(seconds)
	}
}
