package builder

import (
	"context"
	"fmt"
	"time"

	"heirloom-hq/chronicle/pkg/lifecycle"
)

// Manifest format identifiers. Viewers check these before parsing
// anything else, so they only change with a coordinated release.
const (
	DataFormat    = "chronicle-export"
	ExportVersion = "1.0"
)

// Manifest describes the contents of one export artifact. It is embedded
// verbatim in both formats and is the contract external viewers rely on.
type Manifest struct {
	DataFormat    string      `json:"dataFormat"`
	ExportVersion string      `json:"exportVersion"`
	ProjectInfo   ProjectInfo `json:"projectInfo"`
	ExportInfo    ExportInfo  `json:"exportInfo"`
	Structure     Structure   `json:"structure"`
}

// ProjectInfo is the trimmed project projection carried in the manifest.
type ProjectInfo struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	StorytellerID string     `json:"storytellerId"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"createdAt"`
	ArchivedAt    *time.Time `json:"archivedAt,omitempty"`
}

// ExportInfo carries the aggregate counts and generation metadata.
type ExportInfo struct {
	ExportID         string                  `json:"exportId"`
	GeneratedAt      time.Time               `json:"generatedAt"`
	Format           lifecycle.Format        `json:"format"`
	StoryCount       int                     `json:"storyCount"`
	InteractionCount int                     `json:"interactionCount"`
	ChapterCount     int                     `json:"chapterCount"`
	FileCount        int                     `json:"fileCount"`
	TotalSize        int64                   `json:"totalSize"`
	Options          lifecycle.ExportOptions `json:"options"`
}

// Structure lists every folder and file inside the artifact.
type Structure struct {
	Folders []string    `json:"folders"`
	Files   []FileEntry `json:"files"`
}

// FileEntry describes one file inside the artifact.
type FileEntry struct {
	Path        string `json:"path"`
	Type        string `json:"type"`
	Size        int64  `json:"size"`
	Description string `json:"description"`
}

// buildManifest assembles the manifest from the collected input and the
// file plan accumulated during the build. The total-size figure comes
// from a storage-usage query scoped to the project's blob prefix and is
// best-effort: a failed query leaves it at zero rather than failing the
// export.
func (b *Builder) buildManifest(ctx context.Context, in *Input, structure Structure) *Manifest {
	totalSize, err := b.blobs.TotalSize(ctx, in.Project.ID+"/")
	if err != nil {
		b.logger.Warn("storage usage query failed", "project_id", in.Project.ID, "error", err)
		totalSize = 0
	}

	return &Manifest{
		DataFormat:    DataFormat,
		ExportVersion: ExportVersion,
		ProjectInfo: ProjectInfo{
			ID:            in.Project.ID,
			Name:          in.Project.Name,
			StorytellerID: in.Project.StorytellerID,
			Status:        string(in.Project.Status),
			CreatedAt:     in.Project.CreatedAt,
			ArchivedAt:    in.Project.ArchivedAt,
		},
		ExportInfo: ExportInfo{
			ExportID:         in.ExportID,
			GeneratedAt:      b.now(),
			Format:           in.Options.Format,
			StoryCount:       len(in.Stories),
			InteractionCount: len(in.Interactions),
			ChapterCount:     len(in.Chapters),
			FileCount:        len(structure.Files),
			TotalSize:        totalSize,
			Options:          in.Options,
		},
		Structure: structure,
	}
}

// readmeText renders the human-readable artifact description.
func readmeText(m *Manifest) string {
	return fmt.Sprintf(`%s
%s

This archive contains the exported stories of the project above.

  Generated:    %s
  Stories:      %d
  Interactions: %d
  Chapters:     %d
  Files:        %d

Layout:
  manifest.json              machine-readable contents listing
  metadata/                  project and export details
  data/                      all records as JSON
  stories/<chapter>/<title>/ one folder per story

The manifest carries dataFormat %q version %s; viewers should check it
before parsing anything else.
`,
		m.ProjectInfo.Name,
		m.ExportInfo.GeneratedAt.Format("January 2, 2006"),
		m.ExportInfo.GeneratedAt.Format(time.RFC3339),
		m.ExportInfo.StoryCount,
		m.ExportInfo.InteractionCount,
		m.ExportInfo.ChapterCount,
		m.ExportInfo.FileCount,
		m.DataFormat,
		m.ExportVersion,
	)
}
