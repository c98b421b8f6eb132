// Package api implements the read-only HTTP inspection API of a Gray Bus node.
//
// This package provides:
//   - Topic listing and lookup by ID or name
//   - The latest statistics sample and per-topic history
//   - Runtime metrics and a health endpoint
//   - Middleware stack (request ID, logging, recovery)
//
// # Architecture
//
// The server reads the immutable bus registry, the monitor's latest sample
// and the SQLite history repository. It never publishes: bus messages stay
// inside the process.
//
// # Graceful Degradation
//
// MQTT and the history store are optional. Without history the
// /stats/history endpoint answers 503; everything else keeps working.
package api
