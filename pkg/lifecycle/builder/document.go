package builder

import (
	"context"
	"encoding/json"
	"time"

	"heirloom-hq/chronicle/pkg/lifecycle"
)

// Document is the flat JSON export. Field order is the declaration order
// below, which keeps serialization stable across builds.
type Document struct {
	Manifest         *Manifest        `json:"manifest"`
	Project          ProjectInfo      `json:"project"`
	Stories          []StoryRecord    `json:"stories"`
	Interactions     []InteractionDoc `json:"interactions"`
	ChapterSummaries []ChapterSummDoc `json:"chapterSummaries"`
}

// StoryRecord is a story as exported. Suppressed fields are null or
// omitted depending on the export options.
type StoryRecord struct {
	ID        string `json:"id"`
	ChapterID string `json:"chapterId,omitempty"`
	Title     string `json:"title"`

	// Transcript is null unless transcripts were requested.
	Transcript *string `json:"transcript"`

	AudioFormat     string    `json:"audioFormat,omitempty"`
	PhotoFormat     string    `json:"photoFormat,omitempty"`
	DurationSeconds int       `json:"durationSeconds,omitempty"`
	RecordedAt      time.Time `json:"recordedAt"`
	CreatedAt       time.Time `json:"createdAt"`
}

// InteractionDoc is an interaction as exported.
type InteractionDoc struct {
	ID        string    `json:"id"`
	StoryID   string    `json:"storyId"`
	AuthorID  string    `json:"authorId"`
	Kind      string    `json:"kind"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

// ChapterSummDoc is a chapter summary as exported.
type ChapterSummDoc struct {
	ID        string    `json:"id"`
	ChapterID string    `json:"chapterId"`
	Summary   string    `json:"summary"`
	CreatedAt time.Time `json:"createdAt"`
}

// storyRecord projects a story through the include flags.
func storyRecord(s *lifecycle.Story, opts lifecycle.ExportOptions) StoryRecord {
	rec := StoryRecord{
		ID:              s.ID,
		ChapterID:       s.ChapterID,
		Title:           s.Title,
		DurationSeconds: s.DurationSeconds,
		RecordedAt:      s.RecordedAt,
		CreatedAt:       s.CreatedAt,
	}
	if opts.IncludeTranscripts && s.Transcript != "" {
		t := s.Transcript
		rec.Transcript = &t
	}
	if opts.IncludeAudio {
		rec.AudioFormat = s.AudioFormat
	}
	if opts.IncludePhotos {
		rec.PhotoFormat = s.PhotoFormat
	}
	return rec
}

func interactionDocs(interactions []*lifecycle.Interaction) []InteractionDoc {
	docs := make([]InteractionDoc, 0, len(interactions))
	for _, i := range interactions {
		docs = append(docs, InteractionDoc{
			ID: i.ID, StoryID: i.StoryID, AuthorID: i.AuthorID,
			Kind: i.Kind, Body: i.Body, CreatedAt: i.CreatedAt,
		})
	}
	return docs
}

func summaryDocs(summaries []*lifecycle.ChapterSummary) []ChapterSummDoc {
	docs := make([]ChapterSummDoc, 0, len(summaries))
	for _, s := range summaries {
		docs = append(docs, ChapterSummDoc{
			ID: s.ID, ChapterID: s.ChapterID, Summary: s.Summary, CreatedAt: s.CreatedAt,
		})
	}
	return docs
}

// buildDocument produces the flat JSON artifact. No media is embedded,
// so there is nothing to download and nothing to skip.
func (b *Builder) buildDocument(ctx context.Context, in *Input, progress ProgressFunc) (*Result, error) {
	stories := make([]StoryRecord, 0, len(in.Stories))
	for _, s := range in.Stories {
		stories = append(stories, storyRecord(s, in.Options))
	}

	doc := &Document{
		Stories:          stories,
		Interactions:     []InteractionDoc{},
		ChapterSummaries: []ChapterSummDoc{},
	}
	if in.Options.IncludeInteractions {
		doc.Interactions = interactionDocs(in.Interactions)
	}
	if in.Options.IncludeChapterSummaries {
		doc.ChapterSummaries = summaryDocs(in.Summaries)
	}

	manifest := b.buildManifest(ctx, in, Structure{Folders: []string{}, Files: []FileEntry{}})
	doc.Manifest = manifest
	doc.Project = manifest.ProjectInfo

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, lifecycle.NewBuildError(in.Options.Format, err)
	}
	reportProgress(progress, 1)

	return &Result{
		Data:        data,
		ContentType: in.Options.Format.ContentType(),
		Manifest:    manifest,
	}, nil
}
