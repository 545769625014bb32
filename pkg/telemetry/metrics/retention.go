package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"heirloom-hq/chronicle/pkg/config"
)

// RetentionMetrics tracks the retention engine.
//
// Metrics:
//   - chronicle_retention_runs_total: policy executions by policy and status
//   - chronicle_retention_duration_seconds: per-policy sweep duration
//   - chronicle_retention_items_deleted_total: deleted rows by policy
//   - chronicle_retention_storage_freed_bytes_total: freed blob bytes by policy
type RetentionMetrics struct {
	runsTotal    *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	itemsDeleted *prometheus.CounterVec
	storageFreed *prometheus.CounterVec
}

// NewRetentionMetrics creates and registers retention metrics with the
// provided registry.
func NewRetentionMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RetentionMetrics {
	rm := &RetentionMetrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "retention_runs_total",
				Help:      "Total number of retention policy executions",
			},
			[]string{"policy", "status"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "retention_duration_seconds",
				Help:      "Duration of retention policy executions in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300},
			},
			[]string{"policy"},
		),
		itemsDeleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "retention_items_deleted_total",
				Help:      "Total number of rows deleted by retention sweeps",
			},
			[]string{"policy"},
		),
		storageFreed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "retention_storage_freed_bytes_total",
				Help:      "Total blob storage freed by retention sweeps in bytes",
			},
			[]string{"policy"},
		),
	}

	registry.MustRegister(rm.runsTotal, rm.runDuration, rm.itemsDeleted, rm.storageFreed)
	return rm
}

// RecordRun records one retention policy execution.
func (rm *RetentionMetrics) RecordRun(policy, status string, duration time.Duration, itemsDeleted int, storageFreed int64) {
	rm.runsTotal.WithLabelValues(policy, status).Inc()
	rm.runDuration.WithLabelValues(policy).Observe(duration.Seconds())
	rm.itemsDeleted.WithLabelValues(policy).Add(float64(itemsDeleted))
	rm.storageFreed.WithLabelValues(policy).Add(float64(storageFreed))
}
