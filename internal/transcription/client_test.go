package transcription

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testRequest() *Request {
	return &Request{
		SegmentID:   "segment-1",
		RequestID:   "req-1",
		AudioData:   []byte("RIFF fake wav bytes"),
		SampleRate:  16000,
		Duration:    30 * time.Second,
		WindowStart: time.Now().Add(-30 * time.Second),
		WindowEnd:   time.Now(),
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Error("Expected error for empty endpoint")
	}

	client, err := NewClient(Config{Endpoint: "http://localhost:9000/transcribe"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	if client.config.Timeout != 30*time.Second {
		t.Errorf("Expected default timeout 30s, got %v", client.config.Timeout)
	}
	if client.config.MaxConcurrent != 4 {
		t.Errorf("Expected default max concurrent 4, got %d", client.config.MaxConcurrent)
	}
}

func TestTranscribeSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Expected bearer auth, got %q", got)
		}

		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Fatalf("Failed to parse multipart form: %v", err)
		}
		if got := r.FormValue("segment_id"); got != "segment-1" {
			t.Errorf("Expected segment_id 'segment-1', got %q", got)
		}
		if got := r.FormValue("language"); got != "en" {
			t.Errorf("Expected language 'en', got %q", got)
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("Missing audio file part: %v", err)
		}
		defer file.Close()
		if header.Filename != "segment-1.wav" {
			t.Errorf("Expected filename 'segment-1.wav', got %q", header.Filename)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"text":       "hello world",
			"confidence": 0.92,
			"language":   "en",
		})
	}))
	defer server.Close()

	client, err := NewClient(Config{Endpoint: server.URL, APIKey: "test-key", Language: "en"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	result, err := client.Transcribe(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}

	var text string
	if err := json.Unmarshal(result.Text, &text); err != nil {
		t.Fatalf("Text is not a JSON string: %v", err)
	}
	if text != "hello world" {
		t.Errorf("Expected text 'hello world', got %q", text)
	}
	if result.Confidence != 0.92 {
		t.Errorf("Expected confidence 0.92, got %f", result.Confidence)
	}
	if result.RoundTrip <= 0 {
		t.Error("Expected positive round-trip duration")
	}

	stats := client.GetStats()
	if stats.TotalRequests != 1 || stats.SuccessRequests != 1 {
		t.Errorf("Expected 1 total / 1 success, got %d / %d", stats.TotalRequests, stats.SuccessRequests)
	}
}

func TestTranscribeSegmentedText(t *testing.T) {
	// Services may return a list of text-bearing records instead of a
	// string; the client must carry the shape through untouched.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text":[{"text":"hello"},{"text":"world"}],"confidence":0.8}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	result, err := client.Transcribe(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}

	var segments []struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(result.Text, &segments); err != nil {
		t.Fatalf("Text is not a segment list: %v", err)
	}
	if len(segments) != 2 || segments[0].Text != "hello" {
		t.Errorf("Unexpected segments: %+v", segments)
	}
}

func TestTranscribeFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
		},
		{
			name: "empty body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			},
		},
		{
			name: "invalid JSON",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("not json"))
			},
		},
		{
			name: "missing text field",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"confidence":0.5}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client, err := NewClient(Config{Endpoint: server.URL})
			if err != nil {
				t.Fatalf("NewClient failed: %v", err)
			}

			if _, err := client.Transcribe(context.Background(), testRequest()); err == nil {
				t.Error("Expected error")
			}

			stats := client.GetStats()
			if stats.FailedRequests != 1 {
				t.Errorf("Expected 1 failed request, got %d", stats.FailedRequests)
			}
		})
	}
}

func TestTranscribeNoRetry(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := NewClient(Config{Endpoint: server.URL})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	if _, err := client.Transcribe(context.Background(), testRequest()); err == nil {
		t.Fatal("Expected error")
	}

	// A failed segment is dropped, never replayed.
	if calls != 1 {
		t.Errorf("Expected exactly 1 request, got %d", calls)
	}
}

func TestTranscribeContextCancelled(t *testing.T) {
	client, err := NewClient(Config{Endpoint: "http://localhost:1/transcribe"})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := client.Transcribe(ctx, testRequest()); err == nil {
		t.Error("Expected error for cancelled context")
	}
}
