package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"heirloom-hq/chronicle/pkg/config"
)

// ExportMetrics tracks the export pipeline.
//
// Metrics:
//   - chronicle_exports_total: completed exports by format and status
//   - chronicle_export_duration_seconds: pipeline duration histogram
//   - chronicle_export_artifact_bytes: built artifact size histogram
//   - chronicle_exports_in_flight: currently running pipelines
type ExportMetrics struct {
	exportsTotal   *prometheus.CounterVec
	exportDuration *prometheus.HistogramVec
	artifactBytes  *prometheus.HistogramVec
	inFlight       prometheus.Gauge
}

// NewExportMetrics creates and registers export metrics with the provided
// registry.
func NewExportMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ExportMetrics {
	em := &ExportMetrics{
		exportsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "exports_total",
				Help:      "Total number of export pipelines completed",
			},
			[]string{"format", "status"},
		),
		exportDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "export_duration_seconds",
				Help:      "Duration of export pipelines in seconds",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 300},
			},
			[]string{"format"},
		),
		artifactBytes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "export_artifact_bytes",
				Help:      "Size of built export artifacts in bytes",
				Buckets:   prometheus.ExponentialBuckets(1024, 4, 10), // 1KB to ~256MB
			},
			[]string{"format"},
		),
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "exports_in_flight",
				Help:      "Number of export pipelines currently running",
			},
		),
	}

	registry.MustRegister(em.exportsTotal, em.exportDuration, em.artifactBytes, em.inFlight)
	return em
}

// RecordExport records a completed export pipeline.
func (em *ExportMetrics) RecordExport(format, status string, duration time.Duration, artifactSize int) {
	em.exportsTotal.WithLabelValues(format, status).Inc()
	em.exportDuration.WithLabelValues(format).Observe(duration.Seconds())
	if artifactSize > 0 {
		em.artifactBytes.WithLabelValues(format).Observe(float64(artifactSize))
	}
}

// PipelineStarted marks one pipeline as running.
func (em *ExportMetrics) PipelineStarted() {
	em.inFlight.Inc()
}

// PipelineFinished marks one pipeline as no longer running.
func (em *ExportMetrics) PipelineFinished() {
	em.inFlight.Dec()
}
