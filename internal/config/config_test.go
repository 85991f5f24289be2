package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

const validYAML = `
capture:
  backend: synthetic
  sample_rate: 44100
  channels: 1
  chunk_frames: 512
  buffer_depth: 32
audio:
  window_interval_seconds: 15
  target_sample_rate: 16000
  bit_depth: 16
transcription:
  endpoint: http://stt.local/transcribe
  api_key: file-key
  timeout_seconds: 20
  max_concurrent: 2
  language: uk
  model: large-v3
storage:
  segments_dir: /tmp/segments
  history_path: /tmp/history.db
http:
  enabled: true
  address: 127.0.0.1
  port: 9000
logging:
  level: debug
  format: json
  output: stdout
`

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Capture.Backend != "synthetic" {
		t.Errorf("backend = %q", cfg.Capture.Backend)
	}
	if cfg.Capture.SampleRate != 44100 {
		t.Errorf("sample rate = %d", cfg.Capture.SampleRate)
	}
	if cfg.Audio.WindowInterval() != 15*time.Second {
		t.Errorf("window interval = %v", cfg.Audio.WindowInterval())
	}
	if cfg.Transcription.Timeout() != 20*time.Second {
		t.Errorf("timeout = %v", cfg.Transcription.Timeout())
	}
	if cfg.Transcription.Model != "large-v3" {
		t.Errorf("model = %q", cfg.Transcription.Model)
	}
	if cfg.Storage.HistoryPath != "/tmp/history.db" {
		t.Errorf("history path = %q", cfg.Storage.HistoryPath)
	}
	if cfg.HTTP.Port != 9000 {
		t.Errorf("port = %d", cfg.HTTP.Port)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "transcription:\n  endpoint: http://stt.local/transcribe\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Capture.Backend != "mic" {
		t.Errorf("default backend = %q", cfg.Capture.Backend)
	}
	if cfg.Audio.WindowInterval() != 30*time.Second {
		t.Errorf("default window interval = %v", cfg.Audio.WindowInterval())
	}
	if cfg.Audio.TargetSampleRate != 16000 {
		t.Errorf("default target rate = %d", cfg.Audio.TargetSampleRate)
	}
	if cfg.Transcription.MaxConcurrent != 4 {
		t.Errorf("default max concurrent = %d", cfg.Transcription.MaxConcurrent)
	}
	if cfg.Storage.SegmentsDir != "" {
		t.Errorf("persistence should default to disabled, got %q", cfg.Storage.SegmentsDir)
	}
}

func TestLoadEnvOverridesAPIKey(t *testing.T) {
	t.Setenv("TRANSCRIPTION_API_KEY", "env-key")
	t.Setenv("TRANSCRIPTION_ENDPOINT", "http://override.local/stt")

	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Transcription.APIKey != "env-key" {
		t.Errorf("api key = %q, expected env override", cfg.Transcription.APIKey)
	}
	if cfg.Transcription.Endpoint != "http://override.local/stt" {
		t.Errorf("endpoint = %q, expected env override", cfg.Transcription.Endpoint)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "capture: [not a map")); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{"unknown backend", func(c *Config) { c.Capture.Backend = "tape" }, "backend"},
		{"zero sample rate", func(c *Config) { c.Capture.SampleRate = 0 }, "sample_rate"},
		{"stereo capture", func(c *Config) { c.Capture.Channels = 2 }, "mono"},
		{"zero window", func(c *Config) { c.Audio.WindowIntervalSeconds = 0 }, "window_interval"},
		{"wrong bit depth", func(c *Config) { c.Audio.BitDepth = 24 }, "16-bit"},
		{"no endpoint", func(c *Config) { c.Transcription.Endpoint = "" }, "endpoint"},
		{"zero timeout", func(c *Config) { c.Transcription.TimeoutSeconds = 0 }, "timeout"},
		{"bad port", func(c *Config) { c.HTTP.Port = 70000 }, "port"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "log level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q does not mention %q", err, tt.wantSub)
			}
		})
	}
}

func TestDisabledHTTPSkipsValidation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HTTP.Enabled = false
	cfg.HTTP.Port = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
