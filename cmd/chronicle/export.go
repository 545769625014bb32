package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"heirloom-hq/chronicle/pkg/lifecycle"
	"heirloom-hq/chronicle/pkg/lifecycle/exporter"
	"heirloom-hq/chronicle/pkg/telemetry/logging"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Manage project exports",
	Long:  `Create, inspect, list, and delete project export requests.`,
}

var exportCreateFlags struct {
	projectID     string
	facilitatorID string
	format        string
	audio         bool
	photos        bool
	transcripts   bool
	interactions  bool
	summaries     bool
	metadata      bool
	chapters      []string
	customName    string
	wait          bool
}

var exportCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new export request",
	Long: `Create a new export request for a project.

At least one content type must be selected.

Examples:
  # Archive with audio and transcripts
  chronicle export create --project proj-1 --facilitator user-1 --audio --transcripts

  # JSON document of transcripts, wait for completion
  chronicle export create --project proj-1 --facilitator user-1 \
    --format document --transcripts --wait`,
	RunE: runExportCreate,
}

var exportStatusCmd = &cobra.Command{
	Use:   "status <export-id>",
	Short: "Show the status of an export request",
	Args:  cobra.ExactArgs(1),
	RunE:  runExportStatus,
}

var exportListCmd = &cobra.Command{
	Use:   "list <project-id>",
	Short: "List a project's export requests",
	Args:  cobra.ExactArgs(1),
	RunE:  runExportList,
}

var exportDeleteCmd = &cobra.Command{
	Use:   "delete <export-id>",
	Short: "Delete an export request and its artifact",
	Args:  cobra.ExactArgs(1),
	RunE:  runExportDelete,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.AddCommand(exportCreateCmd, exportStatusCmd, exportListCmd, exportDeleteCmd)

	f := exportCreateCmd.Flags()
	f.StringVar(&exportCreateFlags.projectID, "project", "", "project id (required)")
	f.StringVar(&exportCreateFlags.facilitatorID, "facilitator", "", "requesting facilitator id (required)")
	f.StringVar(&exportCreateFlags.format, "format", "archive", "artifact format (archive, document)")
	f.BoolVar(&exportCreateFlags.audio, "audio", false, "include audio recordings")
	f.BoolVar(&exportCreateFlags.photos, "photos", false, "include photos")
	f.BoolVar(&exportCreateFlags.transcripts, "transcripts", false, "include transcripts")
	f.BoolVar(&exportCreateFlags.interactions, "interactions", false, "include family interactions")
	f.BoolVar(&exportCreateFlags.summaries, "summaries", false, "include chapter summaries")
	f.BoolVar(&exportCreateFlags.metadata, "metadata", true, "include project metadata")
	f.StringSliceVar(&exportCreateFlags.chapters, "chapters", nil, "restrict to chapter ids")
	f.StringVar(&exportCreateFlags.customName, "name", "", "custom artifact name")
	f.BoolVar(&exportCreateFlags.wait, "wait", false, "wait for the export to finish")

	exportCreateCmd.MarkFlagRequired("project")
	exportCreateCmd.MarkFlagRequired("facilitator")
}

// newOrchestrator wires an orchestrator for one-shot CLI use, with
// logging kept quiet unless --verbose is set.
func newOrchestrator() (*exporter.Orchestrator, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if !verbose {
		cfg.Telemetry.Logging.Level = "error"
	}
	logging.Setup(cfg.Telemetry.Logging, os.Stderr)

	repo, err := openRepository(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open storage: %w", err)
	}
	blobs, err := openBlobStore(cfg)
	if err != nil {
		closeRepository(repo)
		return nil, nil, fmt.Errorf("failed to open blob store: %w", err)
	}

	orchestrator := exporter.New(repo, blobs, &exporter.Options{
		ArtifactTTL:    cfg.Export.ArtifactTTL,
		ConflictWindow: cfg.Export.ConflictWindow,
		KeyPrefix:      cfg.Export.KeyPrefix,
	})
	cleanup := func() {
		orchestrator.Wait()
		closeRepository(repo)
	}
	return orchestrator, cleanup, nil
}

func runExportCreate(cmd *cobra.Command, args []string) error {
	orchestrator, cleanup, err := newOrchestrator()
	if err != nil {
		return err
	}
	defer cleanup()

	options := lifecycle.ExportOptions{
		IncludeAudio:            exportCreateFlags.audio,
		IncludePhotos:           exportCreateFlags.photos,
		IncludeTranscripts:      exportCreateFlags.transcripts,
		IncludeInteractions:     exportCreateFlags.interactions,
		IncludeChapterSummaries: exportCreateFlags.summaries,
		IncludeMetadata:         exportCreateFlags.metadata,
		Format:                  lifecycle.Format(exportCreateFlags.format),
		Chapters:                exportCreateFlags.chapters,
		CustomName:              exportCreateFlags.customName,
	}

	ctx := cmd.Context()
	exportID, err := orchestrator.CreateExport(ctx, exportCreateFlags.projectID, exportCreateFlags.facilitatorID, options)
	if err != nil {
		return err
	}
	fmt.Printf("Export created: %s\n", exportID)

	if !exportCreateFlags.wait {
		return nil
	}
	orchestrator.Wait()
	status, err := orchestrator.GetStatus(ctx, exportID)
	if err != nil {
		return err
	}
	printStatus(cmd.OutOrStdout(), status)
	if status.Status == lifecycle.ExportFailed {
		return fmt.Errorf("export failed: %s", status.Progress.Error)
	}
	return nil
}

func runExportStatus(cmd *cobra.Command, args []string) error {
	orchestrator, cleanup, err := newOrchestrator()
	if err != nil {
		return err
	}
	defer cleanup()

	status, err := orchestrator.GetStatus(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	printStatus(cmd.OutOrStdout(), status)
	return nil
}

func printStatus(w io.Writer, status *exporter.Status) {
	fmt.Fprintf(w, "ID:       %s\n", status.ID)
	fmt.Fprintf(w, "Status:   %s\n", status.Status)
	fmt.Fprintf(w, "Progress: %d%% (%s)\n", status.Progress.Progress, status.Progress.CurrentStep)
	if status.DownloadURL != "" {
		fmt.Fprintf(w, "Download: %s\n", status.DownloadURL)
	}
	if status.ExpiresAt != nil {
		fmt.Fprintf(w, "Expires:  %s\n", status.ExpiresAt.Format(time.RFC3339))
	}
	if status.Progress.Error != "" {
		fmt.Fprintf(w, "Error:    %s\n", status.Progress.Error)
	}
}

func runExportList(cmd *cobra.Command, args []string) error {
	orchestrator, cleanup, err := newOrchestrator()
	if err != nil {
		return err
	}
	defer cleanup()

	summaries, err := orchestrator.ListExports(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		fmt.Println("No exports found")
		return nil
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%-38s %-12s %-22s %s\n", "ID", "STATUS", "CREATED", "DOWNLOAD")
	for _, s := range summaries {
		download := "-"
		if s.DownloadURL != "" {
			download = s.DownloadURL
		}
		fmt.Fprintf(w, "%-38s %-12s %-22s %s\n", s.ID, s.Status, s.CreatedAt.Format(time.RFC3339), download)
	}
	return nil
}

func runExportDelete(cmd *cobra.Command, args []string) error {
	orchestrator, cleanup, err := newOrchestrator()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := orchestrator.DeleteExport(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Printf("Export deleted: %s\n", args[0])
	return nil
}
