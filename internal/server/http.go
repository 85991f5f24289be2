package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skypro1111/mic-transcriber/internal/config"
	"github.com/skypro1111/mic-transcriber/internal/display"
	"github.com/skypro1111/mic-transcriber/internal/metrics"
	"github.com/skypro1111/mic-transcriber/internal/session"
	"github.com/skypro1111/mic-transcriber/internal/store"
	"github.com/skypro1111/mic-transcriber/internal/transcription"
)

// HTTPServer provides HTTP API endpoints for session control and monitoring
type HTTPServer struct {
	server     *http.Server
	logger     *slog.Logger
	config     *config.Config
	controller *session.Controller
	client     *transcription.Client
	history    *store.Store
	hub        *display.Hub
	metrics    *metrics.Metrics

	startTime time.Time
}

// NewHTTPServer creates a new HTTP API server. history and hub may be
// nil when the corresponding features are disabled.
func NewHTTPServer(cfg config.HTTPConfig, logger *slog.Logger,
	appConfig *config.Config, controller *session.Controller, client *transcription.Client,
	history *store.Store, hub *display.Hub, m *metrics.Metrics) *HTTPServer {

	h := &HTTPServer{
		logger:     logger,
		config:     appConfig,
		controller: controller,
		client:     client,
		history:    history,
		hub:        hub,
		metrics:    m,
		startTime:  time.Now(),
	}

	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	// Session control endpoints
	mux.HandleFunc("/session/start", h.withMetrics("/session/start", h.handleSessionStart))
	mux.HandleFunc("/session/stop", h.withMetrics("/session/stop", h.handleSessionStop))

	// Result retrieval endpoints
	mux.HandleFunc("/results", h.withMetrics("/results", h.handleResults))
	mux.HandleFunc("/history", h.withMetrics("/history", h.handleHistory))

	// Monitoring endpoints
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))
	mux.HandleFunc("/config", h.withMetrics("/config", h.handleConfig))
	mux.HandleFunc("/stats", h.withMetrics("/stats", h.handleStats))

	// Live result stream over WebSocket
	if h.hub != nil {
		mux.Handle("/ws", h.hub)
	}

	// Prometheus metrics endpoint (no metrics needed for metrics endpoint)
	mux.Handle("/metrics", promhttp.Handler())

	// Root endpoint with API documentation
	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ww := &responseWriter{ResponseWriter: w, statusCode: 200}

		handler(ww, r)

		duration := time.Since(startTime).Seconds()
		statusCode := fmt.Sprintf("%d", ww.statusCode)

		h.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP API server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP API server...")

	return h.server.Shutdown(ctx)
}

// Handler returns the server's root handler, used by tests.
func (h *HTTPServer) Handler() http.Handler {
	return h.server.Handler
}

// handleSessionStart implements the POST /session/start endpoint
func (h *HTTPServer) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := h.controller.StartSession(); err != nil {
		h.logger.Error("Failed to start session", slog.String("error", err.Error()))
		http.Error(w, fmt.Sprintf("Failed to start session: %v", err), http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"state":      h.controller.State(),
		"generation": h.controller.Stats().Generation,
		"timestamp":  time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleSessionStop implements the POST /session/stop endpoint
func (h *HTTPServer) handleSessionStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.controller.StopSession()

	response := map[string]interface{}{
		"state":        h.controller.State(),
		"result_count": len(h.controller.Results()),
		"timestamp":    time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleResults implements the /results endpoint
func (h *HTTPServer) handleResults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	results := h.controller.Results()
	entries := make([]map[string]interface{}, 0, len(results))
	for _, e := range results {
		entries = append(entries, map[string]interface{}{
			"seq":           e.Seq,
			"segment_id":    e.SegmentID,
			"text":          display.ResolveText(e.Text).String(),
			"confidence":    e.Confidence,
			"round_trip_ms": e.RoundTrip.Milliseconds(),
			"completed_at":  e.CompletedAt.UTC(),
		})
	}

	response := map[string]interface{}{
		"state":     h.controller.State(),
		"count":     len(entries),
		"results":   entries,
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleHistory implements the /history endpoint
func (h *HTTPServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.history == nil {
		http.Error(w, "History persistence is disabled", http.StatusNotFound)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	transcripts, err := h.history.ListTranscripts(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list transcripts", slog.String("error", err.Error()))
		http.Error(w, "Failed to list transcripts", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"count":       len(transcripts),
		"transcripts": transcripts,
		"timestamp":   time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(h.startTime)
	sessionStats := h.controller.Stats()
	clientStats := h.client.GetStats()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    uptime.String(),
		"service": map[string]interface{}{
			"name":    "mic-transcriber",
			"version": "1.0.0",
		},
		"components": map[string]interface{}{
			"session": map[string]interface{}{
				"state":              sessionStats.State,
				"generation":         sessionStats.Generation,
				"segments_succeeded": sessionStats.SegmentsSucceeded,
				"segments_failed":    sessionStats.SegmentsFailed,
			},
			"transcription": map[string]interface{}{
				"status":          "running",
				"total_requests":  clientStats.TotalRequests,
				"success_rate":    clientStats.SuccessRate,
				"active_requests": clientStats.ActiveRequests,
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// handleConfig implements the /config endpoint
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Return sanitized configuration (remove sensitive data)
	sanitizedConfig := map[string]interface{}{
		"capture": map[string]interface{}{
			"backend":      h.config.Capture.Backend,
			"device_id":    h.config.Capture.DeviceID,
			"sample_rate":  h.config.Capture.SampleRate,
			"channels":     h.config.Capture.Channels,
			"chunk_frames": h.config.Capture.ChunkFrames,
			"buffer_depth": h.config.Capture.BufferDepth,
		},
		"audio": map[string]interface{}{
			"window_interval_seconds": h.config.Audio.WindowIntervalSeconds,
			"target_sample_rate":      h.config.Audio.TargetSampleRate,
			"bit_depth":               h.config.Audio.BitDepth,
		},
		"transcription": map[string]interface{}{
			"endpoint":        h.config.Transcription.Endpoint,
			"timeout_seconds": h.config.Transcription.TimeoutSeconds,
			"max_concurrent":  h.config.Transcription.MaxConcurrent,
			"language":        h.config.Transcription.Language,
			"model":           h.config.Transcription.Model,
			// Note: API key is intentionally omitted for security
		},
		"storage": map[string]interface{}{
			"segments_dir": h.config.Storage.SegmentsDir,
			"history_path": h.config.Storage.HistoryPath,
		},
		"logging": map[string]interface{}{
			"level":  h.config.Logging.Level,
			"format": h.config.Logging.Format,
			"output": h.config.Logging.Output,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sanitizedConfig)
}

// handleStats implements the /stats endpoint
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionStats := h.controller.Stats()
	clientStats := h.client.GetStats()
	uptime := time.Since(h.startTime)

	stats := map[string]interface{}{
		"uptime":        uptime.String(),
		"timestamp":     time.Now().UTC(),
		"session":       sessionStats,
		"transcription": clientStats,
	}
	if h.hub != nil {
		stats["websocket"] = map[string]interface{}{
			"clients": h.hub.ClientCount(),
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]interface{}{
		"service": "Microphone Transcription Service",
		"version": "1.0.0",
		"endpoints": map[string]interface{}{
			"GET /":                   "API documentation",
			"POST /session/start":     "Start a recording session",
			"POST /session/stop":      "Stop the recording session",
			"GET /results":            "Current session results in completion order",
			"GET /history":            "Persisted transcript history",
			"GET /health":             "Service health check",
			"GET /config":             "Get service configuration",
			"GET /stats":              "Get service statistics",
			"GET /metrics":            "Prometheus metrics",
			"GET /ws":                 "Live result stream over WebSocket",
		},
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(apiDoc)
}
