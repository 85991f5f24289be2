package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Capture       CaptureConfig       `yaml:"capture"`
	Audio         AudioConfig         `yaml:"audio"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Storage       StorageConfig       `yaml:"storage"`
	HTTP          HTTPConfig          `yaml:"http"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// CaptureConfig configures the audio input device.
type CaptureConfig struct {
	Backend     string `yaml:"backend"`
	DeviceID    string `yaml:"device_id"`
	SampleRate  int    `yaml:"sample_rate"`
	Channels    int    `yaml:"channels"`
	ChunkFrames int    `yaml:"chunk_frames"`
	BufferDepth int    `yaml:"buffer_depth"`
}

// AudioConfig configures windowing and output encoding.
type AudioConfig struct {
	WindowIntervalSeconds int `yaml:"window_interval_seconds"`
	TargetSampleRate      int `yaml:"target_sample_rate"`
	BitDepth              int `yaml:"bit_depth"`
}

// WindowInterval returns the window length as a duration.
func (c AudioConfig) WindowInterval() time.Duration {
	return time.Duration(c.WindowIntervalSeconds) * time.Second
}

// TranscriptionConfig configures the speech recognition client.
type TranscriptionConfig struct {
	Endpoint           string `yaml:"endpoint"`
	APIKey             string `yaml:"api_key"`
	TimeoutSeconds     int    `yaml:"timeout_seconds"`
	MaxConcurrent      int    `yaml:"max_concurrent"`
	Language           string `yaml:"language"`
	Model              string `yaml:"model"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

// Timeout returns the per-request timeout as a duration.
func (c TranscriptionConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// StorageConfig configures optional persistence. Empty paths disable
// the corresponding feature.
type StorageConfig struct {
	SegmentsDir string `yaml:"segments_dir"`
	HistoryPath string `yaml:"history_path"`
}

// HTTPConfig configures the control API server.
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// DefaultConfig returns a configuration with sensible defaults for
// local use against a transcription service on localhost.
func DefaultConfig() *Config {
	return &Config{
		Capture: CaptureConfig{
			Backend:     "mic",
			SampleRate:  48000,
			Channels:    1,
			ChunkFrames: 1024,
			BufferDepth: 64,
		},
		Audio: AudioConfig{
			WindowIntervalSeconds: 30,
			TargetSampleRate:      16000,
			BitDepth:              16,
		},
		Transcription: TranscriptionConfig{
			Endpoint:       "http://localhost:8080/transcribe",
			TimeoutSeconds: 30,
			MaxConcurrent:  4,
			Language:       "en",
		},
		HTTP: HTTPConfig{
			Enabled: true,
			Address: "0.0.0.0",
			Port:    8090,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// Load reads the YAML configuration file, applies environment
// overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyEnv overlays secrets and endpoint overrides from the
// environment. Environment values win over file values.
func (c *Config) applyEnv() {
	if v := os.Getenv("TRANSCRIPTION_API_KEY"); v != "" {
		c.Transcription.APIKey = v
	}
	if v := os.Getenv("TRANSCRIPTION_ENDPOINT"); v != "" {
		c.Transcription.Endpoint = v
	}
}

// Validate checks all sections.
func (c *Config) Validate() error {
	if err := c.Capture.Validate(); err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio: %w", err)
	}
	if err := c.Transcription.Validate(); err != nil {
		return fmt.Errorf("transcription: %w", err)
	}
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}

func (c CaptureConfig) Validate() error {
	switch c.Backend {
	case "mic", "synthetic":
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.Channels != 1 {
		return fmt.Errorf("only mono capture is supported, got %d channels", c.Channels)
	}
	if c.ChunkFrames <= 0 {
		return fmt.Errorf("chunk_frames must be positive, got %d", c.ChunkFrames)
	}
	if c.BufferDepth <= 0 {
		return fmt.Errorf("buffer_depth must be positive, got %d", c.BufferDepth)
	}
	return nil
}

func (c AudioConfig) Validate() error {
	if c.WindowIntervalSeconds <= 0 {
		return fmt.Errorf("window_interval_seconds must be positive, got %d", c.WindowIntervalSeconds)
	}
	if c.TargetSampleRate <= 0 {
		return fmt.Errorf("target_sample_rate must be positive, got %d", c.TargetSampleRate)
	}
	if c.BitDepth != 16 {
		return fmt.Errorf("only 16-bit output is supported, got %d", c.BitDepth)
	}
	return nil
}

func (c TranscriptionConfig) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("timeout_seconds must be positive, got %d", c.TimeoutSeconds)
	}
	if c.MaxConcurrent <= 0 {
		return fmt.Errorf("max_concurrent must be positive, got %d", c.MaxConcurrent)
	}
	return nil
}

func (c HTTPConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", c.Port)
	}
	if c.Address == "" {
		return fmt.Errorf("address is required")
	}
	return nil
}

func (c LoggingConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Level)
	}
	switch c.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Format)
	}
	return nil
}
