package config

import (
	"fmt"
	"strings"
)

// Validate checks a configuration for invalid or inconsistent values.
// It returns an error describing every problem found.
func Validate(cfg *Config) error {
	var problems []string

	switch cfg.Storage.Backend {
	case "sqlite":
		if cfg.Storage.SQLite.Path == "" {
			problems = append(problems, "storage.sqlite.path must not be empty")
		}
		if cfg.Storage.SQLite.BusyTimeout < 0 {
			problems = append(problems, "storage.sqlite.busy_timeout must not be negative")
		}
	case "memory":
	default:
		problems = append(problems, fmt.Sprintf("storage.backend %q is not supported (sqlite, memory)", cfg.Storage.Backend))
	}

	switch cfg.Blob.Backend {
	case "filesystem":
		if cfg.Blob.Filesystem.Directory == "" {
			problems = append(problems, "blob.filesystem.directory must not be empty")
		}
	case "s3":
		if cfg.Blob.S3.Bucket == "" {
			problems = append(problems, "blob.s3.bucket must not be empty")
		}
		if cfg.Blob.S3.Region == "" {
			problems = append(problems, "blob.s3.region must not be empty")
		}
	case "memory":
	default:
		problems = append(problems, fmt.Sprintf("blob.backend %q is not supported (filesystem, s3, memory)", cfg.Blob.Backend))
	}

	if cfg.Export.ArtifactTTL <= 0 {
		problems = append(problems, "export.artifact_ttl must be positive")
	}
	if cfg.Export.ConflictWindow <= 0 {
		problems = append(problems, "export.conflict_window must be positive")
	}

	if cfg.Retention.Enabled && cfg.Retention.Schedule == "" {
		problems = append(problems, "retention.schedule must not be empty when retention is enabled")
	}

	switch cfg.Telemetry.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("telemetry.logging.level %q is not supported (debug, info, warn, error)", cfg.Telemetry.Logging.Level))
	}
	switch cfg.Telemetry.Logging.Format {
	case "json", "text":
	default:
		problems = append(problems, fmt.Sprintf("telemetry.logging.format %q is not supported (json, text)", cfg.Telemetry.Logging.Format))
	}

	if cfg.Telemetry.Metrics.Enabled && cfg.Telemetry.Metrics.ListenAddress == "" {
		problems = append(problems, "telemetry.metrics.listen_address must not be empty when metrics are enabled")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}
