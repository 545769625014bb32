// Package storage provides persistence backends for the lifecycle
// subsystem: export requests and the domain entities that export and
// retention read and delete.
//
// # Backends
//
//   - SQLite: embedded database for single-node deployments
//   - Memory: in-memory repository for testing
//
// # SQLite Backend
//
// The SQLite backend provides durable storage with:
//
//   - WAL mode for concurrent reads/writes
//   - Busy timeout for handling locks
//   - Schema versioning
//   - A real transaction around the cascading project purge
//
// # The Purge Transaction
//
// PurgeProject is the one operation with all-or-nothing semantics. It
// deletes a project's children in strict dependency order inside a single
// transaction, invoking the caller's BlobDeleter for story and export
// artifacts mid-flight. Any failure, including a blob delete failure,
// rolls the whole transaction back.
//
// # Thread Safety
//
// Both backends are safe for concurrent use.
package storage
