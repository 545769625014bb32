// Package metrics provides Prometheus metrics for Chronicle.
//
// The Collector owns a registry and two metric groups: export pipeline
// metrics (counts, durations, artifact sizes) and retention metrics
// (sweep durations, deleted items, freed storage). It exposes a standard
// promhttp handler for scraping.
//
// All Record* methods are safe for concurrent use and cheap enough to
// call from hot paths.
package metrics
