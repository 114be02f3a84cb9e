package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	commitsTotal    *prometheus.CounterVec
	rejectionsTotal *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	latency         *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		commitsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "candlevault_commits_total",
				Help: "Total number of candles committed per backend",
			},
			[]string{"backend", "session"},
		),
		rejectionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "candlevault_rejections_total",
				Help: "Total number of submissions rejected per pipeline stage",
			},
			[]string{"stage"},
		),
		cacheLookups: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "candlevault_cache_lookups_total",
				Help: "Validation cache lookups partitioned by outcome",
			},
			[]string{"result"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "candlevault_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordCommit records a committed candle.
func (r *Recorder) RecordCommit(backend, sessionID string) {
	r.commitsTotal.WithLabelValues(backend, sessionID).Inc()
}

// RecordRejection records a rejected submission.
func (r *Recorder) RecordRejection(stage string) {
	r.rejectionsTotal.WithLabelValues(stage).Inc()
}

// RecordCacheLookup records one validation cache lookup.
func (r *Recorder) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
