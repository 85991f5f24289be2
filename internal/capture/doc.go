// Package capture abstracts the live audio capture source as a push-based,
// unbounded stream of normalized sample chunks. It provides a microphone
// implementation backed by miniaudio and a synthetic tone source for running
// the pipeline without audio hardware.
package capture
