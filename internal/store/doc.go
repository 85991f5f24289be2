// Package store persists encoded audio segments to disk and keeps a
// SQLite-backed history of completed transcriptions. All writes are
// best-effort from the pipeline's point of view; a failed write never stops
// a session.
package store
