// Package metrics exposes Prometheus collectors for the sync engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace is the namespace for all docwatch metrics.
const Namespace = "docwatch"

// Metrics holds the Prometheus collectors recorded by the sync engine.
// A nil *Metrics is valid and records nothing, so one-shot CLI runs can
// skip collector registration entirely.
type Metrics struct {
	SyncRunsTotal           prometheus.Counter
	DocumentsProcessedTotal *prometheus.CounterVec
	RunDurationSeconds      prometheus.Histogram
}

// New creates and registers the sync engine metrics. A nil registerer
// falls back to the default Prometheus registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	return &Metrics{
		SyncRunsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "sync_runs_total",
				Help:      "Total number of completed sync passes",
			},
		),
		DocumentsProcessedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "documents_processed_total",
				Help:      "Total number of documents processed per outcome status",
			},
			[]string{"status"},
		),
		RunDurationSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of sync passes in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12), // 0.1s to ~3.4min
			},
		),
	}
}

// RecordRun records one completed sync pass and its duration.
func (m *Metrics) RecordRun(duration time.Duration) {
	if m == nil {
		return
	}
	m.SyncRunsTotal.Inc()
	m.RunDurationSeconds.Observe(duration.Seconds())
}

// RecordDocument records one processed document by its execution status.
func (m *Metrics) RecordDocument(status string) {
	if m == nil {
		return
	}
	m.DocumentsProcessedTotal.WithLabelValues(status).Inc()
}
