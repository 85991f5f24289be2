// Package session implements the recording session lifecycle: the
// Idle/Running state machine, wall-clock windowing of captured audio,
// and dispatch of completed windows to the transcription pipeline.
package session
