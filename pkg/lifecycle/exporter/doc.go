// Package exporter orchestrates the export request lifecycle.
//
// CreateExport validates the request synchronously (options, project
// existence, membership, concurrency guard), persists the request in the
// queued state, and launches the pipeline as a detached background task.
// The caller gets the export id immediately; everything after that is
// observable only by polling GetStatus.
//
// # The Pipeline
//
// Seven fixed, weighted steps run in order: initialize, re-validate
// access, collect data, download media, build the artifact, upload it,
// and finalize. Progress and the current step name are persisted on the
// request row at every transition. Any failure persists status=failed
// with the error message; the pipeline never re-raises to a caller.
//
// # The Concurrency Guard
//
// The guard is advisory: a time-windowed query for an existing queued or
// processing export by the same facilitator on the same project. An
// in-process lease per (project, facilitator) pair closes the race the
// windowed query alone would admit between two near-simultaneous calls
// on the same node.
package exporter
