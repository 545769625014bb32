// Package builder assembles export artifacts from a project snapshot.
//
// The builder is a pure function of its input: given a project, its
// stories, interactions, and chapter summaries, plus the export options,
// it produces a byte buffer and content type. Two formats are supported:
//
//   - archive: a zip with a fixed folder layout, one folder per story
//     grouped by chapter, with media downloaded from the blob store
//   - document: a single flat JSON document
//
// Both formats embed the same generated manifest, which is the contract
// external viewers rely on.
//
// Media downloads are best-effort: a single file's download failure is
// logged, the file is omitted from the story's metadata, and the build
// continues. The builder never fails because one blob was unreachable.
package builder
