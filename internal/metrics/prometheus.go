// Package metrics defines the Prometheus instrumentation for the
// transcription pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the microphone transcriber.
type Metrics struct {
	// Capture metrics
	ChunksReceived prometheus.Counter
	SamplesBuffered prometheus.Gauge

	// Windowing metrics
	WindowsCompleted prometheus.Counter
	WindowsEmpty     prometheus.Counter
	WindowsDiscarded prometheus.Counter
	WindowDuration   prometheus.Histogram

	// Session metrics
	SessionsStarted prometheus.Counter
	SessionsStopped prometheus.Counter
	SessionActive   prometheus.Gauge

	// Segment processing metrics
	SegmentsProcessed prometheus.Counter
	SegmentsFailed    prometheus.Counter
	SegmentBytes      prometheus.Histogram
	StaleResults      prometheus.Counter

	// Transcription metrics
	TranscriptionRequests prometheus.Counter
	TranscriptionFailures prometheus.Counter
	TranscriptionDuration prometheus.Histogram

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		ChunksReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mic_chunks_received_total",
			Help: "Total number of capture chunks received",
		}),
		SamplesBuffered: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "mic_samples_buffered",
			Help: "Samples accumulated in the current window buffer",
		}),

		WindowsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mic_windows_completed_total",
			Help: "Total number of windows completed by interval ticks",
		}),
		WindowsEmpty: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mic_windows_empty_total",
			Help: "Total number of empty windows skipped",
		}),
		WindowsDiscarded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mic_windows_discarded_total",
			Help: "Total number of partial windows discarded on stop",
		}),
		WindowDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "mic_window_audio_seconds",
			Help:    "Audio duration of completed windows",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8), // 1s to ~2 minutes
		}),

		SessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mic_sessions_started_total",
			Help: "Total number of recording sessions started",
		}),
		SessionsStopped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mic_sessions_stopped_total",
			Help: "Total number of recording sessions stopped",
		}),
		SessionActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "mic_session_active",
			Help: "Whether a recording session is currently active (0 or 1)",
		}),

		SegmentsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mic_segments_processed_total",
			Help: "Total number of segments processed successfully",
		}),
		SegmentsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mic_segments_failed_total",
			Help: "Total number of segments that failed processing",
		}),
		SegmentBytes: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "mic_segment_size_bytes",
			Help:    "Size of encoded segments in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 12), // 1KB to ~4MB
		}),
		StaleResults: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mic_stale_results_total",
			Help: "Total number of results discarded for belonging to an ended session",
		}),

		TranscriptionRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mic_transcription_requests_total",
			Help: "Total number of transcription requests sent",
		}),
		TranscriptionFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "mic_transcription_failures_total",
			Help: "Total number of failed transcription requests",
		}),
		TranscriptionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "mic_transcription_duration_seconds",
			Help:    "Round-trip duration of transcription requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),

		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mic_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mic_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "mic_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordChunkReceived increments the chunks received counter.
func (m *Metrics) RecordChunkReceived() {
	m.ChunksReceived.Inc()
}

// SetSamplesBuffered sets the current window buffer size.
func (m *Metrics) SetSamplesBuffered(samples int) {
	m.SamplesBuffered.Set(float64(samples))
}

// RecordWindowCompleted records one completed window and its audio duration.
func (m *Metrics) RecordWindowCompleted(audioSeconds float64) {
	m.WindowsCompleted.Inc()
	m.WindowDuration.Observe(audioSeconds)
}

// RecordWindowEmpty increments the skipped empty window counter.
func (m *Metrics) RecordWindowEmpty() {
	m.WindowsEmpty.Inc()
}

// RecordWindowDiscarded increments the discarded partial window counter.
func (m *Metrics) RecordWindowDiscarded() {
	m.WindowsDiscarded.Inc()
}

// RecordSessionStarted marks a session start.
func (m *Metrics) RecordSessionStarted() {
	m.SessionsStarted.Inc()
	m.SessionActive.Set(1)
}

// RecordSessionStopped marks a session stop.
func (m *Metrics) RecordSessionStopped() {
	m.SessionsStopped.Inc()
	m.SessionActive.Set(0)
}

// RecordSegmentProcessed records a successful segment and its encoded size.
func (m *Metrics) RecordSegmentProcessed(sizeBytes int) {
	m.SegmentsProcessed.Inc()
	m.SegmentBytes.Observe(float64(sizeBytes))
}

// RecordSegmentFailed increments the failed segment counter.
func (m *Metrics) RecordSegmentFailed() {
	m.SegmentsFailed.Inc()
}

// RecordStaleResult increments the stale result counter.
func (m *Metrics) RecordStaleResult() {
	m.StaleResults.Inc()
}

// RecordTranscriptionRequest increments the transcription requests counter.
func (m *Metrics) RecordTranscriptionRequest() {
	m.TranscriptionRequests.Inc()
}

// RecordTranscriptionSuccess records the round trip of a successful request.
func (m *Metrics) RecordTranscriptionSuccess(durationSeconds float64) {
	m.TranscriptionDuration.Observe(durationSeconds)
}

// RecordTranscriptionFailure records a failed request and its round trip.
func (m *Metrics) RecordTranscriptionFailure(durationSeconds float64) {
	m.TranscriptionFailures.Inc()
	m.TranscriptionDuration.Observe(durationSeconds)
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
