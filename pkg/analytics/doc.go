// Package analytics provides the in-process event sink the lifecycle
// subsystem emits into. Events are buffered in memory; delivery to an
// external analytics pipeline is out of scope, but the buffer is a sweep
// target for the retention engine (ClearBefore).
package analytics
