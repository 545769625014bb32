package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"heirloom-hq/chronicle/pkg/analytics"
	"heirloom-hq/chronicle/pkg/lifecycle/exporter"
	"heirloom-hq/chronicle/pkg/lifecycle/retention"
	"heirloom-hq/chronicle/pkg/telemetry/logging"
	"heirloom-hq/chronicle/pkg/telemetry/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

var runFlags struct {
	logLevel   string
	runOnStart bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Chronicle lifecycle daemon",
	Long: `Start the Chronicle lifecycle daemon.

The daemon serves the Prometheus metrics endpoint and runs the retention
scheduler. Export requests created through the CLI or embedding code are
processed against the same storage and blob backends.

Examples:
  # Start with default config
  chronicle run

  # Start with custom config
  chronicle run --config /etc/chronicle/config.yaml

  # Run all retention policies once at startup
  chronicle run --run-retention-on-start`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.runOnStart, "run-retention-on-start", false, "run retention policies once at startup")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if runFlags.runOnStart {
		cfg.Retention.RunOnStart = true
	}

	logger := logging.Setup(cfg.Telemetry.Logging, os.Stdout)

	fmt.Printf("Chronicle v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)

	repo, err := openRepository(cfg)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer closeRepository(repo)
	fmt.Printf("✓ Storage initialized (%s)\n", cfg.Storage.Backend)

	blobs, err := openBlobStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open blob store: %w", err)
	}
	fmt.Printf("✓ Blob store initialized (%s)\n", cfg.Blob.Backend)

	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, prometheus.NewRegistry())
	sink := analytics.NewSink(0)

	orchestrator := exporter.New(repo, blobs, &exporter.Options{
		ArtifactTTL:    cfg.Export.ArtifactTTL,
		ConflictWindow: cfg.Export.ConflictWindow,
		KeyPrefix:      cfg.Export.KeyPrefix,
		Notifier:       &exporter.LogNotifier{Logger: logger},
		Analytics:      sink,
		Metrics:        collector.Export(),
	})
	fmt.Println("✓ Export orchestrator ready")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Retention engine, scheduler, and policy file watcher
	if cfg.Retention.Enabled {
		engine := retention.NewEngine(repo, blobs, &retention.EngineOptions{
			Analytics: sink,
			Metrics:   collector.Retention(),
		})

		if cfg.Retention.PolicyFile != "" {
			watcher, err := retention.NewPolicyWatcher(cfg.Retention.PolicyFile, engine)
			if err != nil {
				return fmt.Errorf("failed to create policy watcher: %w", err)
			}
			go func() {
				if err := watcher.Watch(ctx); err != nil {
					logger.Error("policy watcher stopped", "error", err)
				}
			}()
		}

		scheduler := retention.NewScheduler(engine, cfg.Retention.Schedule)
		if err := scheduler.Start(ctx); err != nil {
			return fmt.Errorf("failed to start retention scheduler: %w", err)
		}
		defer scheduler.Stop()
		if next := scheduler.NextRun(); next != nil {
			fmt.Printf("✓ Retention scheduler started (next run %s)\n", next.Format(time.RFC3339))
		}

		if cfg.Retention.RunOnStart {
			logger.Info("running retention policies on startup")
			scheduler.RunNow(ctx)
		}
	}

	// Metrics endpoint
	errChan := make(chan error, 1)
	var metricsSrv *http.Server
	if cfg.Telemetry.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
		metricsSrv = &http.Server{Addr: cfg.Telemetry.Metrics.ListenAddress, Handler: mux}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
		fmt.Printf("✓ Metrics endpoint: http://%s%s\n", cfg.Telemetry.Metrics.ListenAddress, cfg.Telemetry.Metrics.Path)
	}

	fmt.Println("\nPress Ctrl+C to stop")

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		fmt.Println("\nShutting down gracefully...")

		if metricsSrv != nil {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
				logger.Error("metrics server shutdown failed", "error", err)
			}
		}

		// Let in-flight export pipelines finish before closing storage.
		orchestrator.Wait()

		fmt.Println("✓ Stopped")
		return nil
	}
}
