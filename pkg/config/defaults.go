package config

import "time"

// Default values applied by ApplyDefaults.
const (
	DefaultStorageBackend = "sqlite"
	DefaultSQLitePath     = "data/chronicle.db"
	DefaultBusyTimeout    = 5 * time.Second

	DefaultBlobBackend   = "filesystem"
	DefaultBlobDirectory = "data/blobs"
	DefaultS3Region      = "us-east-1"

	DefaultArtifactTTL    = 30 * 24 * time.Hour
	DefaultConflictWindow = time.Hour
	DefaultKeyPrefix      = "exports"

	DefaultRetentionSchedule = "0 2 * * *"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsListenAddress = "127.0.0.1:9090"
	DefaultMetricsPath          = "/metrics"
	DefaultMetricsNamespace     = "chronicle"
	DefaultMetricsSubsystem     = "lifecycle"
)

// NewDefaultConfig returns a configuration with all defaults applied.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills in default values for any unset fields.
func ApplyDefaults(cfg *Config) {
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = DefaultStorageBackend
	}
	if cfg.Storage.SQLite.Path == "" {
		cfg.Storage.SQLite.Path = DefaultSQLitePath
		cfg.Storage.SQLite.WALMode = true
	}
	if cfg.Storage.SQLite.BusyTimeout == 0 {
		cfg.Storage.SQLite.BusyTimeout = DefaultBusyTimeout
	}

	if cfg.Blob.Backend == "" {
		cfg.Blob.Backend = DefaultBlobBackend
	}
	if cfg.Blob.Filesystem.Directory == "" {
		cfg.Blob.Filesystem.Directory = DefaultBlobDirectory
	}
	if cfg.Blob.S3.Region == "" {
		cfg.Blob.S3.Region = DefaultS3Region
	}

	if cfg.Export.ArtifactTTL == 0 {
		cfg.Export.ArtifactTTL = DefaultArtifactTTL
	}
	if cfg.Export.ConflictWindow == 0 {
		cfg.Export.ConflictWindow = DefaultConflictWindow
	}
	if cfg.Export.KeyPrefix == "" {
		cfg.Export.KeyPrefix = DefaultKeyPrefix
	}

	if cfg.Retention.Schedule == "" {
		cfg.Retention.Enabled = true
		cfg.Retention.Schedule = DefaultRetentionSchedule
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}

	if cfg.Telemetry.Metrics.ListenAddress == "" {
		cfg.Telemetry.Metrics.Enabled = true
		cfg.Telemetry.Metrics.ListenAddress = DefaultMetricsListenAddress
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
}
