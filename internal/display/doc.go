// Package display renders transcription results for the user. The service's
// polymorphic text payload (string, list of text-bearing records, or any
// JSON value) is resolved here, once, into a tagged variant; the rest of the
// pipeline carries it opaquely.
package display
