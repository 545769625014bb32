// Package lifecycle defines the domain model for Chronicle's archival data
// lifecycle: portable project exports and retention-driven purging.
//
// # Architecture
//
// The lifecycle subsystem consists of three cooperating parts that share the
// entities defined here:
//
//  1. Export Job Orchestrator - validates export requests and drives the
//     detached build/upload pipeline (pkg/lifecycle/exporter)
//  2. Archive Builder - pure transformation of a project snapshot into a
//     zip archive or flat JSON document (pkg/lifecycle/builder)
//  3. Retention Policy Engine - scheduled sweeps and the atomic cascading
//     project purge (pkg/lifecycle/retention)
//
// Persistence is abstracted behind the Repository interface in
// pkg/lifecycle/storage; binary artifacts live behind the blob gateway in
// pkg/blob.
//
// # Export Request Lifecycle
//
//	queued -> processing -> ready -> expired
//	               \-> failed
//
// failed and expired are terminal. DownloadURL and ExpiresAt are set iff the
// request is ready.
package lifecycle
