package builder

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"

	"heirloom-hq/chronicle/pkg/lifecycle"
)

// uncategorizedFolder holds stories with no chapter.
const uncategorizedFolder = "uncategorized"

// stagedFile is one zip entry waiting to be written, with the metadata
// the manifest needs.
type stagedFile struct {
	path        string
	data        []byte
	fileType    string
	description string
}

// buildArchive produces the zip artifact. The layout is fixed:
//
//	manifest.json, README.txt              (if metadata requested)
//	metadata/{export-info,project-info}.json
//	data/*.json
//	stories/<chapter>/<title>/metadata.json
//	stories/<chapter>/<title>/transcript.txt, audio.<ext>, photo.<ext>
//
// Content files are staged first so the manifest can list them with real
// sizes, then everything is written in layout order.
func (b *Builder) buildArchive(ctx context.Context, in *Input, progress ProgressFunc) (*Result, error) {
	var storyFiles []stagedFile
	skipped := 0

	stageStory := func(p string, data []byte, fileType, description string) {
		storyFiles = append(storyFiles, stagedFile{path: p, data: data, fileType: fileType, description: description})
	}

	names := chapterNames(in.Chapters)
	usedFolders := map[string]int{}
	records := make([]StoryRecord, 0, len(in.Stories))

	for i, story := range in.Stories {
		folder := storyFolder(names, usedFolders, story)

		rec := storyRecord(story, in.Options)

		if in.Options.IncludeAudio && story.AudioKey != "" {
			data, err := b.blobs.Get(ctx, story.AudioKey)
			if err != nil {
				b.logger.Warn("audio download failed, skipping file",
					"story_id", story.ID, "key", story.AudioKey, "error", err)
				skipped++
				rec.AudioFormat = ""
			} else {
				name := "audio." + ext(story.AudioFormat)
				stageStory(path.Join(folder, name), data, "audio", "Story audio recording")
			}
		}
		if in.Options.IncludePhotos && story.PhotoKey != "" {
			data, err := b.blobs.Get(ctx, story.PhotoKey)
			if err != nil {
				b.logger.Warn("photo download failed, skipping file",
					"story_id", story.ID, "key", story.PhotoKey, "error", err)
				skipped++
				rec.PhotoFormat = ""
			} else {
				name := "photo." + ext(story.PhotoFormat)
				stageStory(path.Join(folder, name), data, "photo", "Story photo")
			}
		}
		if in.Options.IncludeTranscripts && story.Transcript != "" {
			stageStory(path.Join(folder, "transcript.txt"), []byte(story.Transcript), "text", "Story transcript")
		}

		meta, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return nil, lifecycle.NewBuildError(in.Options.Format, err)
		}
		stageStory(path.Join(folder, "metadata.json"), meta, "json", "Story metadata")
		records = append(records, rec)

		reportProgress(progress, float64(i+1)/float64(len(in.Stories)))
	}
	if len(in.Stories) == 0 {
		reportProgress(progress, 1)
	}

	// The aggregate data files are staged after the download loop so a
	// skipped media file is absent from data/stories.json too, matching
	// the per-story metadata.
	var staged []stagedFile
	stage := func(p string, data []byte, fileType, description string) {
		staged = append(staged, stagedFile{path: p, data: data, fileType: fileType, description: description})
	}

	storiesJSON, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, lifecycle.NewBuildError(in.Options.Format, err)
	}
	stage("data/stories.json", storiesJSON, "json", "All stories as JSON records")

	if in.Options.IncludeInteractions && len(in.Interactions) > 0 {
		data, err := json.MarshalIndent(interactionDocs(in.Interactions), "", "  ")
		if err != nil {
			return nil, lifecycle.NewBuildError(in.Options.Format, err)
		}
		stage("data/interactions.json", data, "json", "Comments, questions, and reactions")
	}
	if in.Options.IncludeChapterSummaries && len(in.Summaries) > 0 {
		data, err := json.MarshalIndent(summaryDocs(in.Summaries), "", "  ")
		if err != nil {
			return nil, lifecycle.NewBuildError(in.Options.Format, err)
		}
		stage("data/chapter-summaries.json", data, "json", "Generated chapter summaries")
	}
	staged = append(staged, storyFiles...)

	manifest := b.buildManifest(ctx, in, structureOf(staged))

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	if in.Options.IncludeMetadata {
		manifestJSON, err := json.MarshalIndent(manifest, "", "  ")
		if err != nil {
			return nil, lifecycle.NewBuildError(in.Options.Format, err)
		}
		if err := writeZipFile(zw, "manifest.json", manifestJSON); err != nil {
			return nil, lifecycle.NewBuildError(in.Options.Format, err)
		}
		if err := writeZipFile(zw, "README.txt", []byte(readmeText(manifest))); err != nil {
			return nil, lifecycle.NewBuildError(in.Options.Format, err)
		}
		exportInfo, err := json.MarshalIndent(manifest.ExportInfo, "", "  ")
		if err != nil {
			return nil, lifecycle.NewBuildError(in.Options.Format, err)
		}
		if err := writeZipFile(zw, "metadata/export-info.json", exportInfo); err != nil {
			return nil, lifecycle.NewBuildError(in.Options.Format, err)
		}
		projectInfo, err := json.MarshalIndent(manifest.ProjectInfo, "", "  ")
		if err != nil {
			return nil, lifecycle.NewBuildError(in.Options.Format, err)
		}
		if err := writeZipFile(zw, "metadata/project-info.json", projectInfo); err != nil {
			return nil, lifecycle.NewBuildError(in.Options.Format, err)
		}
	}

	for _, f := range staged {
		if err := writeZipFile(zw, f.path, f.data); err != nil {
			return nil, lifecycle.NewBuildError(in.Options.Format, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, lifecycle.NewBuildError(in.Options.Format, err)
	}

	return &Result{
		Data:         buf.Bytes(),
		ContentType:  in.Options.Format.ContentType(),
		Manifest:     manifest,
		SkippedFiles: skipped,
	}, nil
}

// storyFolder computes the story's folder path, suffixing duplicates so
// two stories with the same sanitized title never collide.
func storyFolder(chapterNames map[string]string, used map[string]int, story *lifecycle.Story) string {
	chapter := uncategorizedFolder
	if story.ChapterID != "" {
		if name, ok := chapterNames[story.ChapterID]; ok {
			chapter = name
		}
	}
	folder := path.Join("stories", chapter, SanitizeFileName(story.Title))
	used[folder]++
	if n := used[folder]; n > 1 {
		folder = fmt.Sprintf("%s_%d", folder, n)
	}
	return folder
}

// structureOf derives the folder and file listing from the staged
// content files. The manifest and README themselves are not listed.
func structureOf(staged []stagedFile) Structure {
	folderSet := map[string]bool{}
	files := make([]FileEntry, 0, len(staged))
	for _, f := range staged {
		files = append(files, FileEntry{
			Path:        f.path,
			Type:        f.fileType,
			Size:        int64(len(f.data)),
			Description: f.description,
		})
		for dir := path.Dir(f.path); dir != "." && dir != "/"; dir = path.Dir(dir) {
			folderSet[dir] = true
		}
	}
	folders := make([]string, 0, len(folderSet))
	for f := range folderSet {
		folders = append(folders, f)
	}
	sort.Strings(folders)
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return Structure{Folders: folders, Files: files}
}

// ext returns the file extension to use for a media format, defaulting
// to "bin" when the format was never recorded.
func ext(format string) string {
	if format == "" {
		return "bin"
	}
	return format
}

func writeZipFile(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
