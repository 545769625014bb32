// Package logging provides structured logging for Chronicle.
//
// # Overview
//
// Logging is built on log/slog. Setup constructs the root logger from
// configuration (level, format, source annotation) and installs it as the
// process default; components derive their own loggers with the Component
// helper, which tags every record with a "component" attribute.
//
// # Context Helpers
//
// Identifiers that travel with a unit of work (project id, export id,
// requesting user) can be attached to a context and pulled into log
// records with FromContext, so deep call sites log them without threading
// them explicitly.
package logging
