package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"heirloom-hq/chronicle/pkg/blob"
	"heirloom-hq/chronicle/pkg/config"
	"heirloom-hq/chronicle/pkg/lifecycle/storage"
)

// loadConfig loads the configuration honoring the global flags. A missing
// file at the default path falls back to built-in defaults so the CLI
// works out of the box.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !rootCmd.PersistentFlags().Changed("config") {
			cfg = config.NewDefaultConfig()
		} else {
			return nil, err
		}
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	return cfg, nil
}

// openRepository creates the configured relational storage backend.
func openRepository(cfg *config.Config) (storage.Repository, error) {
	switch cfg.Storage.Backend {
	case "sqlite":
		sqliteCfg := storage.DefaultSQLiteConfig()
		sqliteCfg.Path = cfg.Storage.SQLite.Path
		sqliteCfg.WALMode = cfg.Storage.SQLite.WALMode
		if cfg.Storage.SQLite.BusyTimeout > 0 {
			sqliteCfg.BusyTimeout = cfg.Storage.SQLite.BusyTimeout
		}
		return storage.NewSQLiteRepository(sqliteCfg)
	case "memory":
		return storage.NewMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}
}

// openBlobStore creates the configured blob store backend.
func openBlobStore(cfg *config.Config) (blob.Store, error) {
	switch cfg.Blob.Backend {
	case "filesystem":
		return blob.NewFilesystemStore(cfg.Blob.Filesystem.Directory, cfg.Blob.Filesystem.BaseURL)
	case "s3":
		return blob.NewS3Store(&blob.S3Config{
			Bucket:        cfg.Blob.S3.Bucket,
			Region:        cfg.Blob.S3.Region,
			Prefix:        cfg.Blob.S3.Prefix,
			PublicBaseURL: cfg.Blob.S3.PublicBaseURL,
		})
	case "memory":
		return blob.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported blob backend: %s", cfg.Blob.Backend)
	}
}

// closeRepository closes backends that hold resources.
func closeRepository(repo storage.Repository) {
	if c, ok := repo.(io.Closer); ok {
		c.Close()
	}
}
