package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/skypro1111/mic-transcriber/internal/capture"
	"github.com/skypro1111/mic-transcriber/internal/config"
	"github.com/skypro1111/mic-transcriber/internal/display"
	"github.com/skypro1111/mic-transcriber/internal/metrics"
	"github.com/skypro1111/mic-transcriber/internal/server"
	"github.com/skypro1111/mic-transcriber/internal/session"
	"github.com/skypro1111/mic-transcriber/internal/store"
	"github.com/skypro1111/mic-transcriber/internal/transcription"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "mic-transcriber"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load .env if present so the API key can live outside the config file
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary (without sensitive data)
	logger.Info("Configuration loaded",
		slog.String("capture_backend", cfg.Capture.Backend),
		slog.Int("capture_sample_rate", cfg.Capture.SampleRate),
		slog.Int("window_interval_seconds", cfg.Audio.WindowIntervalSeconds),
		slog.Int("target_sample_rate", cfg.Audio.TargetSampleRate),
		slog.String("transcription_endpoint", cfg.Transcription.Endpoint),
		slog.Int("max_concurrent", cfg.Transcription.MaxConcurrent),
		slog.String("log_level", cfg.Logging.Level),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Initialize persistence (disabled when paths are empty)
	var st *store.Store
	if cfg.Storage.SegmentsDir != "" || cfg.Storage.HistoryPath != "" {
		st, err = store.Open(ctx, store.Config{
			SegmentsDir: cfg.Storage.SegmentsDir,
			HistoryPath: cfg.Storage.HistoryPath,
		}, logger)
		if err != nil {
			logger.Error("Failed to open storage", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("Storage initialized",
			slog.String("segments_dir", cfg.Storage.SegmentsDir),
			slog.String("history_path", cfg.Storage.HistoryPath),
		)
	}

	// Initialize capture source
	source, err := capture.NewSource(capture.Config{
		Backend:     cfg.Capture.Backend,
		DeviceID:    cfg.Capture.DeviceID,
		SampleRate:  cfg.Capture.SampleRate,
		Channels:    cfg.Capture.Channels,
		ChunkFrames: cfg.Capture.ChunkFrames,
		BufferDepth: cfg.Capture.BufferDepth,
	})
	if err != nil {
		logger.Error("Failed to create capture source", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Capture source initialized", slog.String("backend", cfg.Capture.Backend))

	// Initialize transcription client
	client, err := transcription.NewClient(transcription.Config{
		Endpoint:           cfg.Transcription.Endpoint,
		APIKey:             cfg.Transcription.APIKey,
		Timeout:            cfg.Transcription.Timeout(),
		MaxConcurrent:      cfg.Transcription.MaxConcurrent,
		Language:           cfg.Transcription.Language,
		Model:              cfg.Transcription.Model,
		InsecureSkipVerify: cfg.Transcription.InsecureSkipVerify,
	})
	if err != nil {
		logger.Error("Failed to create transcription client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Transcription client initialized",
		slog.String("endpoint", cfg.Transcription.Endpoint),
	)

	// Assemble result displays: always log, stream over WebSocket when
	// the HTTP API is enabled.
	displays := display.Multi{display.NewLogDisplay(logger)}
	var hub *display.Hub
	if cfg.HTTP.Enabled {
		hub = display.NewHub(logger)
		displays = append(displays, hub)
	}

	// Initialize window processor and session controller
	var segStore session.SegmentStore
	var histStore session.HistoryStore
	if st != nil {
		segStore = st
		histStore = st
	}
	proc := session.NewProcessor(session.ProcessorConfig{
		TargetSampleRate: cfg.Audio.TargetSampleRate,
		BitDepth:         cfg.Audio.BitDepth,
		Language:         cfg.Transcription.Language,
		Model:            cfg.Transcription.Model,
	}, client, segStore, appMetrics, logger)

	controller := session.NewController(session.Config{
		WindowInterval: cfg.Audio.WindowInterval(),
	}, source, proc, histStore, displays, appMetrics, logger)
	logger.Info("Session controller initialized",
		slog.Duration("window_interval", cfg.Audio.WindowInterval()),
	)

	// Initialize HTTP API server (if enabled)
	var httpServer *server.HTTPServer
	if cfg.HTTP.Enabled {
		httpServer = server.NewHTTPServer(cfg.HTTP, logger, cfg, controller, client, st, hub, appMetrics)
		if err := httpServer.Start(); err != nil {
			logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
			os.Exit(1)
		}
		logger.Info("HTTP API server initialized",
			slog.String("address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
		)
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...")

	// Wait for shutdown signal
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down")
	}

	logger.Info("Starting graceful shutdown...")

	// Stop HTTP server first (stop accepting new requests)
	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
		}
	}

	// Stop the session and wait for in-flight segments
	controller.Close()

	// Close the transcription client and storage
	client.Close()
	if st != nil {
		if err := st.Close(); err != nil {
			logger.Error("Error closing storage", slog.String("error", err.Error()))
		}
	}

	// Get final statistics
	stats := controller.Stats()
	clientStats := client.GetStats()
	logger.Info("Final session statistics",
		slog.Uint64("sessions_started", stats.SessionsStarted),
		slog.Uint64("segments_succeeded", stats.SegmentsSucceeded),
		slog.Uint64("segments_failed", stats.SegmentsFailed),
		slog.Uint64("stale_dropped", stats.StaleDropped),
		slog.Uint64("transcription_requests", clientStats.TotalRequests),
	)

	logger.Info("Service stopped")
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		// Default to text format
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
