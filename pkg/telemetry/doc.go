// Package telemetry groups Chronicle's observability concerns.
//
// # Components
//
//   - logging: structured slog-based logging with context helpers
//   - metrics: Prometheus metrics for export pipelines and retention runs
//
// # Usage
//
//	logger := logging.Setup(cfg.Telemetry.Logging, os.Stdout)
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, prometheus.NewRegistry())
//	collector.Export().RecordExport("archive", "ready", duration, artifactBytes)
//
// Export pipeline spans are emitted through the global OpenTelemetry
// tracer; deployments that want them exported configure a trace provider
// before starting the orchestrator.
package telemetry
