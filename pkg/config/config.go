package config

import "time"

// Config is the root configuration structure for Chronicle. It contains
// all configuration sections for storage, the blob store, export
// processing, retention, and telemetry.
type Config struct {
	// Storage contains relational storage configuration.
	Storage StorageConfig `yaml:"storage"`

	// Blob contains blob store configuration for media and export
	// artifacts.
	Blob BlobConfig `yaml:"blob"`

	// Export contains export pipeline configuration.
	Export ExportConfig `yaml:"export"`

	// Retention contains retention engine and scheduler configuration.
	Retention RetentionConfig `yaml:"retention"`

	// Telemetry contains observability configuration: logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// StorageConfig contains relational storage configuration.
type StorageConfig struct {
	// Backend selects the storage backend.
	// Options: "sqlite", "memory"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite-specific settings.
	SQLite SQLiteConfig `yaml:"sqlite"`
}

// SQLiteConfig contains SQLite-specific settings.
type SQLiteConfig struct {
	// Path is the database file location.
	// Default: "data/chronicle.db"
	Path string `yaml:"path"`

	// WALMode enables write-ahead logging for concurrent reads.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long a connection waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// BlobConfig contains blob store configuration.
type BlobConfig struct {
	// Backend selects the blob store backend.
	// Options: "filesystem", "s3", "memory"
	// Default: "filesystem"
	Backend string `yaml:"backend"`

	// Filesystem contains filesystem backend settings.
	Filesystem FilesystemBlobConfig `yaml:"filesystem"`

	// S3 contains S3 backend settings.
	S3 S3BlobConfig `yaml:"s3"`
}

// FilesystemBlobConfig contains filesystem blob store settings.
type FilesystemBlobConfig struct {
	// Directory is the root directory for stored blobs.
	// Default: "data/blobs"
	Directory string `yaml:"directory"`

	// BaseURL, when set, is prepended to keys to form download URLs.
	// When empty, file:// URLs are produced.
	BaseURL string `yaml:"base_url"`
}

// S3BlobConfig contains S3 blob store settings.
type S3BlobConfig struct {
	// Bucket is the S3 bucket name.
	Bucket string `yaml:"bucket"`

	// Region is the AWS region.
	// Default: "us-east-1"
	Region string `yaml:"region"`

	// Prefix is prepended to every object key.
	Prefix string `yaml:"prefix"`

	// PublicBaseURL, when set, is used to build download URLs instead of
	// the standard S3 URL form.
	PublicBaseURL string `yaml:"public_base_url"`
}

// ExportConfig contains export pipeline configuration.
type ExportConfig struct {
	// ArtifactTTL is how long a ready artifact stays downloadable.
	// Default: 720h (30 days)
	ArtifactTTL time.Duration `yaml:"artifact_ttl"`

	// ConflictWindow is the lookback window of the concurrency guard: a
	// second export for the same project and facilitator inside this
	// window is rejected while the first is still queued or processing.
	// Default: 1h
	ConflictWindow time.Duration `yaml:"conflict_window"`

	// KeyPrefix is prepended to artifact storage keys.
	// Default: "exports"
	KeyPrefix string `yaml:"key_prefix"`
}

// RetentionConfig contains retention engine configuration.
type RetentionConfig struct {
	// Enabled controls whether scheduled retention runs at all.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Schedule is the cron expression for retention passes.
	// Default: "0 2 * * *" (daily at 02:00)
	Schedule string `yaml:"schedule"`

	// RunOnStart triggers one retention pass immediately on startup.
	// Default: false
	RunOnStart bool `yaml:"run_on_start"`

	// PolicyFile, when set, points to a YAML file of policy overrides.
	// The file is watched and reloaded on change.
	PolicyFile string `yaml:"policy_file"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether the metrics endpoint is served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the address of the metrics HTTP endpoint.
	// Default: "127.0.0.1:9090"
	ListenAddress string `yaml:"listen_address"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "chronicle"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "lifecycle"
	Subsystem string `yaml:"subsystem"`
}
