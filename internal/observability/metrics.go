// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Generation cycle metrics
	CyclesTotal        *prometheus.CounterVec
	CycleDuration      prometheus.Histogram
	StepDuration       *prometheus.HistogramVec
	StepErrors         *prometheus.CounterVec
	ImageBytes         prometheus.Histogram
	CandidatesScored   prometheus.Counter
	SelectedTokenTotal *prometheus.CounterVec

	// Provider metrics
	ProviderCallLatency *prometheus.HistogramVec
	ProviderCallErrors  *prometheus.CounterVec

	// Cache metrics
	CacheLookups *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulCycle prometheus.Gauge
	LastCycleStatus     *prometheus.GaugeVec
}

// NewMetrics creates a new Metrics instance registered on reg.
// A nil reg registers on the default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "doom_index"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		CyclesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "cycles_total",
			Help:      "Total number of generation cycles by status",
		}, []string{"status"}),
		CycleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "cycle_duration_seconds",
			Help:      "Generation cycle duration in seconds",
			Buckets:   []float64{0.5, 1, 5, 10, 30, 60, 120, 300},
		}),
		StepDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "step_duration_seconds",
			Help:      "Duration of each generation step in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"step"}),
		StepErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "step_errors_total",
			Help:      "Total number of failed generation steps by error kind",
		}, []string{"step", "kind"}),
		ImageBytes: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "image_bytes",
			Help:      "Size of generated images in bytes",
			Buckets:   prometheus.ExponentialBuckets(32*1024, 2, 8),
		}),
		CandidatesScored: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "selection",
			Name:      "candidates_scored_total",
			Help:      "Total number of token candidates scored",
		}),
		SelectedTokenTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "selection",
			Name:      "selected_total",
			Help:      "Total number of selections by candidate source",
		}, []string{"source"}),

		ProviderCallLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "call_latency_seconds",
			Help:      "External provider call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "operation"}),
		ProviderCallErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "call_errors_total",
			Help:      "Total number of failed external provider calls",
		}, []string{"provider", "operation"}),

		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Snapshot cache lookups by layer and result",
		}, []string{"layer", "result"}),

		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		LastSuccessfulCycle: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_cycle_timestamp",
			Help:      "Unix timestamp of the last generated painting",
		}),
		LastCycleStatus: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_cycle_status",
			Help:      "1 for the status of the most recent cycle, 0 for the others",
		}, []string{"status"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// Cycle statuses.
const (
	StatusGenerated = "generated"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

// RecordCycle records the outcome of one generation cycle.
func RecordCycle(status string, durationSeconds float64, finishedAtUnix int64) {
	DefaultMetrics.CyclesTotal.WithLabelValues(status).Inc()
	DefaultMetrics.CycleDuration.Observe(durationSeconds)
	for _, s := range []string{StatusGenerated, StatusSkipped, StatusFailed} {
		v := 0.0
		if s == status {
			v = 1
		}
		DefaultMetrics.LastCycleStatus.WithLabelValues(s).Set(v)
	}
	if status == StatusGenerated {
		DefaultMetrics.LastSuccessfulCycle.Set(float64(finishedAtUnix))
	}
}

// RecordStep records a step duration and, on failure, its error kind.
func RecordStep(step string, seconds float64, errKind string) {
	DefaultMetrics.StepDuration.WithLabelValues(step).Observe(seconds)
	if errKind != "" {
		DefaultMetrics.StepErrors.WithLabelValues(step, errKind).Inc()
	}
}

// RecordImageBytes records the size of a generated image.
func RecordImageBytes(n int) {
	DefaultMetrics.ImageBytes.Observe(float64(n))
}

// RecordSelection records one selection round.
func RecordSelection(scored int, source string) {
	DefaultMetrics.CandidatesScored.Add(float64(scored))
	DefaultMetrics.SelectedTokenTotal.WithLabelValues(source).Inc()
}

// RecordProviderCall records external call latency and errors.
func RecordProviderCall(provider, operation string, seconds float64, err error) {
	DefaultMetrics.ProviderCallLatency.WithLabelValues(provider, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.ProviderCallErrors.WithLabelValues(provider, operation).Inc()
	}
}

// RecordCacheLookup records a cache hit or miss for a layer.
func RecordCacheLookup(layer string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	DefaultMetrics.CacheLookups.WithLabelValues(layer, result).Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}
