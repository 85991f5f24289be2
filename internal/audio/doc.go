// Package audio provides the pure audio-processing leaves of the pipeline:
// linear-interpolation resampling of normalized sample sequences and
// encoding to PCM WAV containers for transcription.
package audio
