package builder

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"heirloom-hq/chronicle/pkg/blob"
	"heirloom-hq/chronicle/pkg/lifecycle"
)

// newTestInput builds a project snapshot with two stories: one in a
// chapter with audio, one uncategorized without.
func newTestInput(opts lifecycle.ExportOptions) *Input {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	return &Input{
		ExportID: "exp-1",
		Project: &lifecycle.Project{
			ID: "proj-1", Name: "Grandma Rose", StorytellerID: "storyteller-1",
			Status: lifecycle.ProjectActive, CreatedAt: now, UpdatedAt: now,
		},
		Chapters: []*lifecycle.Chapter{
			{ID: "ch-1", ProjectID: "proj-1", Name: "Early Years", Position: 1, CreatedAt: now},
		},
		Stories: []*lifecycle.Story{
			{
				ID: "s-1", ProjectID: "proj-1", ChapterID: "ch-1",
				Title: "The farm", Transcript: "We grew up on a farm.",
				AudioKey: "proj-1/audio/s-1.mp3", AudioFormat: "mp3",
				RecordedAt: now, CreatedAt: now,
			},
			{
				ID: "s-2", ProjectID: "proj-1",
				Title: "The move", Transcript: "Then we moved to the city.",
				RecordedAt: now.Add(time.Hour), CreatedAt: now,
			},
		},
		Interactions: []*lifecycle.Interaction{
			{ID: "int-1", ProjectID: "proj-1", StoryID: "s-1", AuthorID: "facilitator-1",
				Kind: "comment", Body: "wonderful", CreatedAt: now},
		},
		Summaries: []*lifecycle.ChapterSummary{
			{ID: "sum-1", ProjectID: "proj-1", ChapterID: "ch-1",
				Summary: "A childhood on the farm.", CreatedAt: now},
		},
		Options: opts,
	}
}

// zipEntries returns the set of file names inside a zip artifact.
func zipEntries(t *testing.T, data []byte) map[string]bool {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("Failed to open zip: %v", err)
	}
	entries := map[string]bool{}
	for _, f := range zr.File {
		entries[f.Name] = true
	}
	return entries
}

// readZipFile returns the contents of one entry inside a zip artifact.
func readZipFile(t *testing.T, data []byte, name string) []byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("Failed to open zip: %v", err)
	}
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("Failed to open %s: %v", name, err)
		}
		defer rc.Close()
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(rc); err != nil {
			t.Fatalf("Failed to read %s: %v", name, err)
		}
		return buf.Bytes()
	}
	t.Fatalf("Entry %q not found in zip", name)
	return nil
}

func TestBuilder_Archive_Layout(t *testing.T) {
	store := blob.NewMemoryStore()
	b := New(store)

	in := newTestInput(lifecycle.ExportOptions{
		IncludeTranscripts:  true,
		IncludeInteractions: true,
		IncludeMetadata:     true,
		Format:              lifecycle.FormatArchive,
	})

	result, err := b.Build(context.Background(), in, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if result.ContentType != "application/zip" {
		t.Errorf("Expected application/zip, got %s", result.ContentType)
	}

	entries := zipEntries(t, result.Data)
	for _, want := range []string{
		"manifest.json",
		"README.txt",
		"metadata/export-info.json",
		"metadata/project-info.json",
		"data/stories.json",
		"data/interactions.json",
		"stories/Early_Years/The_farm/metadata.json",
		"stories/Early_Years/The_farm/transcript.txt",
		"stories/uncategorized/The_move/metadata.json",
		"stories/uncategorized/The_move/transcript.txt",
	} {
		if !entries[want] {
			t.Errorf("Expected zip entry %q, got %v", want, entries)
		}
	}

	// Audio and photos were not requested; summaries were not requested.
	for name := range entries {
		if bytes.Contains([]byte(name), []byte("audio.")) || bytes.Contains([]byte(name), []byte("photo.")) {
			t.Errorf("Unexpected media entry %q", name)
		}
	}
	if entries["data/chapter-summaries.json"] {
		t.Error("Did not expect chapter summaries entry")
	}

	if result.Manifest.ExportInfo.StoryCount != 2 {
		t.Errorf("Expected 2 stories in manifest, got %d", result.Manifest.ExportInfo.StoryCount)
	}
	if result.Manifest.DataFormat != DataFormat || result.Manifest.ExportVersion != ExportVersion {
		t.Error("Expected manifest format tags")
	}
}

func TestBuilder_Archive_DownloadFailureSkipsFile(t *testing.T) {
	store := blob.NewMemoryStore()
	store.FailGet("proj-1/audio/s-1.mp3", errors.New("connection reset"))
	b := New(store)

	in := newTestInput(lifecycle.ExportOptions{
		IncludeAudio:       true,
		IncludeTranscripts: true,
		Format:             lifecycle.FormatArchive,
	})

	result, err := b.Build(context.Background(), in, nil)
	if err != nil {
		t.Fatalf("Expected build to survive download failure, got %v", err)
	}
	if result.SkippedFiles != 1 {
		t.Errorf("Expected 1 skipped file, got %d", result.SkippedFiles)
	}

	entries := zipEntries(t, result.Data)
	if entries["stories/Early_Years/The_farm/audio.mp3"] {
		t.Error("Expected failed audio download to be omitted")
	}

	// The story's metadata no longer references the missing audio.
	meta := readZipFile(t, result.Data, "stories/Early_Years/The_farm/metadata.json")
	var rec StoryRecord
	if err := json.Unmarshal(meta, &rec); err != nil {
		t.Fatalf("Failed to decode metadata: %v", err)
	}
	if rec.AudioFormat != "" {
		t.Errorf("Expected audio format cleared, got %q", rec.AudioFormat)
	}

	// The aggregate listing agrees with the per-story metadata: no
	// record in data/stories.json references the missing audio either.
	var records []StoryRecord
	if err := json.Unmarshal(readZipFile(t, result.Data, "data/stories.json"), &records); err != nil {
		t.Fatalf("Failed to decode stories.json: %v", err)
	}
	for _, r := range records {
		if r.ID == "s-1" && r.AudioFormat != "" {
			t.Errorf("Expected audio format cleared in stories.json, got %q", r.AudioFormat)
		}
	}
}

func TestBuilder_Archive_IncludesMedia(t *testing.T) {
	store := blob.NewMemoryStore()
	ctx := context.Background()
	if _, err := store.Put(ctx, "proj-1/audio/s-1.mp3", []byte("mp3-bytes"), "audio/mpeg"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	b := New(store)

	in := newTestInput(lifecycle.ExportOptions{
		IncludeAudio: true,
		Format:       lifecycle.FormatArchive,
	})

	result, err := b.Build(ctx, in, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	entries := zipEntries(t, result.Data)
	if !entries["stories/Early_Years/The_farm/audio.mp3"] {
		t.Errorf("Expected audio entry, got %v", entries)
	}
	if result.SkippedFiles != 0 {
		t.Errorf("Expected no skipped files, got %d", result.SkippedFiles)
	}
}

func TestBuilder_Archive_ReadmeUsesInjectedClock(t *testing.T) {
	b := New(blob.NewMemoryStore())
	fixed := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	b.SetClock(func() time.Time { return fixed })

	in := newTestInput(lifecycle.ExportOptions{
		IncludeTranscripts: true,
		IncludeMetadata:    true,
		Format:             lifecycle.FormatArchive,
	})

	result, err := b.Build(context.Background(), in, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	readme := readZipFile(t, result.Data, "README.txt")
	if !bytes.Contains(readme, []byte("March 15, 2026")) {
		t.Error("Expected README date from the injected clock")
	}
	if !bytes.Contains(readme, []byte(fixed.Format(time.RFC3339))) {
		t.Error("Expected README generation timestamp from the injected clock")
	}
}

func TestBuilder_Archive_ReportsSubProgress(t *testing.T) {
	b := New(blob.NewMemoryStore())
	in := newTestInput(lifecycle.ExportOptions{
		IncludeTranscripts: true,
		Format:             lifecycle.FormatArchive,
	})

	var fractions []float64
	_, err := b.Build(context.Background(), in, func(f float64) {
		fractions = append(fractions, f)
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(fractions) != 2 {
		t.Fatalf("Expected one progress report per story, got %v", fractions)
	}
	if fractions[0] != 0.5 || fractions[1] != 1 {
		t.Errorf("Expected [0.5 1], got %v", fractions)
	}
}

func TestBuilder_Document_RoundTrip(t *testing.T) {
	b := New(blob.NewMemoryStore())
	in := newTestInput(lifecycle.ExportOptions{
		IncludeAudio:            true,
		IncludePhotos:           true,
		IncludeTranscripts:      true,
		IncludeInteractions:     true,
		IncludeChapterSummaries: true,
		IncludeMetadata:         true,
		Format:                  lifecycle.FormatDocument,
	})

	result, err := b.Build(context.Background(), in, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if result.ContentType != "application/json" {
		t.Errorf("Expected application/json, got %s", result.ContentType)
	}

	var doc Document
	if err := json.Unmarshal(result.Data, &doc); err != nil {
		t.Fatalf("Failed to parse document: %v", err)
	}
	if len(doc.Stories) != len(in.Stories) {
		t.Errorf("Expected %d stories, got %d", len(in.Stories), len(doc.Stories))
	}
	if len(doc.Interactions) != len(in.Interactions) {
		t.Errorf("Expected %d interactions, got %d", len(in.Interactions), len(doc.Interactions))
	}
	if len(doc.ChapterSummaries) != len(in.Summaries) {
		t.Errorf("Expected %d summaries, got %d", len(in.Summaries), len(doc.ChapterSummaries))
	}
	if doc.Manifest == nil || doc.Manifest.DataFormat != DataFormat {
		t.Error("Expected embedded manifest")
	}
	if doc.Stories[0].Transcript == nil {
		t.Error("Expected transcript present when requested")
	}
}

func TestBuilder_Document_SuppressesTranscripts(t *testing.T) {
	b := New(blob.NewMemoryStore())
	in := newTestInput(lifecycle.ExportOptions{
		IncludeInteractions: true,
		Format:              lifecycle.FormatDocument,
	})

	result, err := b.Build(context.Background(), in, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	var doc Document
	if err := json.Unmarshal(result.Data, &doc); err != nil {
		t.Fatalf("Failed to parse document: %v", err)
	}
	for _, s := range doc.Stories {
		if s.Transcript != nil {
			t.Errorf("Expected null transcript for story %s", s.ID)
		}
		if s.AudioFormat != "" {
			t.Errorf("Expected audio format suppressed for story %s", s.ID)
		}
	}
}
