// Package server exposes the HTTP control API: session start/stop,
// result retrieval, health, stats, and Prometheus metrics.
package server
