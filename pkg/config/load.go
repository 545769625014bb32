package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any
// errors. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies environment variable overrides. Variables follow the naming
// convention CHRONICLE_SECTION_FIELD (e.g. CHRONICLE_STORAGE_SQLITE_PATH)
// and always take precedence over file-based configuration.
//
// The loading sequence is:
//  1. Load YAML from file
//  2. Apply default values
//  3. Apply environment variable overrides
//  4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies CHRONICLE_* environment variables on top of
// the loaded configuration.
func applyEnvOverrides(cfg *Config) {
	// Storage overrides
	if val := os.Getenv("CHRONICLE_STORAGE_BACKEND"); val != "" {
		cfg.Storage.Backend = val
	}
	if val := os.Getenv("CHRONICLE_STORAGE_SQLITE_PATH"); val != "" {
		cfg.Storage.SQLite.Path = val
	}
	if val := os.Getenv("CHRONICLE_STORAGE_SQLITE_BUSY_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Storage.SQLite.BusyTimeout = d
		}
	}

	// Blob store overrides
	if val := os.Getenv("CHRONICLE_BLOB_BACKEND"); val != "" {
		cfg.Blob.Backend = val
	}
	if val := os.Getenv("CHRONICLE_BLOB_FILESYSTEM_DIRECTORY"); val != "" {
		cfg.Blob.Filesystem.Directory = val
	}
	if val := os.Getenv("CHRONICLE_BLOB_FILESYSTEM_BASE_URL"); val != "" {
		cfg.Blob.Filesystem.BaseURL = val
	}
	if val := os.Getenv("CHRONICLE_BLOB_S3_BUCKET"); val != "" {
		cfg.Blob.S3.Bucket = val
	}
	if val := os.Getenv("CHRONICLE_BLOB_S3_REGION"); val != "" {
		cfg.Blob.S3.Region = val
	}
	if val := os.Getenv("CHRONICLE_BLOB_S3_PREFIX"); val != "" {
		cfg.Blob.S3.Prefix = val
	}
	if val := os.Getenv("CHRONICLE_BLOB_S3_PUBLIC_BASE_URL"); val != "" {
		cfg.Blob.S3.PublicBaseURL = val
	}

	// Export overrides
	if val := os.Getenv("CHRONICLE_EXPORT_ARTIFACT_TTL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Export.ArtifactTTL = d
		}
	}
	if val := os.Getenv("CHRONICLE_EXPORT_CONFLICT_WINDOW"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Export.ConflictWindow = d
		}
	}
	if val := os.Getenv("CHRONICLE_EXPORT_KEY_PREFIX"); val != "" {
		cfg.Export.KeyPrefix = val
	}

	// Retention overrides
	if val := os.Getenv("CHRONICLE_RETENTION_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Retention.Enabled = b
		}
	}
	if val := os.Getenv("CHRONICLE_RETENTION_SCHEDULE"); val != "" {
		cfg.Retention.Schedule = val
	}
	if val := os.Getenv("CHRONICLE_RETENTION_RUN_ON_START"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Retention.RunOnStart = b
		}
	}
	if val := os.Getenv("CHRONICLE_RETENTION_POLICY_FILE"); val != "" {
		cfg.Retention.PolicyFile = val
	}

	// Telemetry overrides
	if val := os.Getenv("CHRONICLE_LOG_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("CHRONICLE_LOG_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("CHRONICLE_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("CHRONICLE_METRICS_LISTEN_ADDRESS"); val != "" {
		cfg.Telemetry.Metrics.ListenAddress = val
	}
}
