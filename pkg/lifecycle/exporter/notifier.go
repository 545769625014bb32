package exporter

import (
	"context"
	"log/slog"

	"heirloom-hq/chronicle/pkg/lifecycle"
)

// Notifier is told when an export the requester asked to be notified
// about becomes ready. Failures are logged and never fail the pipeline.
type Notifier interface {
	ExportReady(ctx context.Context, req *lifecycle.ExportRequest) error
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

// ExportReady implements Notifier.
func (NopNotifier) ExportReady(ctx context.Context, req *lifecycle.ExportRequest) error {
	return nil
}

// LogNotifier writes notifications to the log. It stands in for a real
// delivery channel in single-node deployments.
type LogNotifier struct {
	Logger *slog.Logger
}

// ExportReady implements Notifier.
func (n *LogNotifier) ExportReady(ctx context.Context, req *lifecycle.ExportRequest) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("export ready for download",
		"export_id", req.ID,
		"project_id", req.ProjectID,
		"facilitator_id", req.FacilitatorID,
		"download_url", req.DownloadURL)
	return nil
}
