package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"heirloom-hq/chronicle/pkg/config"
)

// Collector is the orchestrator for all Prometheus metrics in Chronicle.
// It manages metric registration and provides a unified interface for
// recording metrics across the export pipeline and the retention engine.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	exportMetrics    *ExportMetrics
	retentionMetrics *RetentionMetrics
}

// NewCollector creates a new metrics collector with the specified
// configuration and Prometheus registry. If registry is nil, a fresh
// registry is used.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "chronicle"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "lifecycle"
	}

	return &Collector{
		config:           cfg,
		registry:         registry,
		exportMetrics:    NewExportMetrics(cfg, registry),
		retentionMetrics: NewRetentionMetrics(cfg, registry),
	}
}

// Registry returns the underlying Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Export returns the export pipeline metric group.
func (c *Collector) Export() *ExportMetrics {
	return c.exportMetrics
}

// Retention returns the retention engine metric group.
func (c *Collector) Retention() *RetentionMetrics {
	return c.retentionMetrics
}
