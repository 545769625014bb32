// Package retention enforces data retention policies.
//
// A policy names a retention period, the project scope it applies to
// (archived, active, or both), and the data types it sweeps. Four
// default policies ship in-process: archived-project cleanup at 7 years,
// export-request cleanup at 90 days, temp-file cleanup at 30 days, and
// analytics-event cleanup at 2 years. A YAML override file can adjust or
// extend them, and is hot-reloaded on change.
//
// # Execution Model
//
// ExecuteAll runs enabled policies sequentially; one policy's failure is
// reported but never stops the rest. Within a per-row sweep, one
// candidate's error is recorded and the sweep continues (partial-failure
// isolation). The project sweep is the exception: each matching project
// is removed via the repository's atomic cascading purge, where any
// failure rolls the whole project's deletion back.
//
// The engine also expires ready export artifacts whose expiry has
// passed, removing the stored blob and clearing the download URL.
package retention
