package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	recomputes *prometheus.CounterVec
	signals    *prometheus.CounterVec
	errors     *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

var (
	defaultOnce     sync.Once
	defaultRecorder *Recorder
)

// New returns the recorder registered with the default registry. Collectors are registered once.
func New() *Recorder {
	defaultOnce.Do(func() {
		defaultRecorder = NewWithRegistry(prometheus.DefaultRegisterer)
	})
	return defaultRecorder
}

// NewWithRegistry registers with reg; tests pass a fresh prometheus.NewRegistry().
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		recomputes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "demand_recompute_venues_total",
				Help: "Venue recomputes by outcome",
			},
			[]string{"outcome"},
		),
		signals: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "demand_signals_ingested_total",
				Help: "Signals persisted by kind",
			},
			[]string{"kind"},
		),
		errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "demand_errors_total",
				Help: "Errors encountered by kind",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "demand_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordRecompute counts one venue recompute with outcome ok or error.
func (r *Recorder) RecordRecompute(outcome string) {
	r.recomputes.WithLabelValues(outcome).Inc()
}

func (r *Recorder) RecordSignal(kind string) {
	r.signals.WithLabelValues(kind).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errors.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordRecompute(string)        {}
func (Nop) RecordSignal(string)           {}
func (Nop) RecordError(string)            {}
func (Nop) RecordLatency(string, float64) {}
