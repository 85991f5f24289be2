package transcription

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"sync"
	"time"
)

// Client provides HTTP client functionality for transcription API requests
type Client struct {
	config     Config
	httpClient *http.Client
	semaphore  chan struct{} // Concurrency limiting semaphore

	// Statistics
	totalRequests   uint64
	successRequests uint64
	failedRequests  uint64
	avgResponseTime time.Duration

	mu sync.RWMutex
}

// Config contains transcription client configuration
type Config struct {
	Endpoint      string
	APIKey        string
	Timeout       time.Duration
	MaxConcurrent int
	Language      string
	Model         string

	// InsecureSkipVerify relaxes TLS certificate validation for private
	// endpoints with self-signed certificates.
	InsecureSkipVerify bool
}

// Request describes one encoded audio segment to transcribe.
type Request struct {
	SegmentID   string
	RequestID   string
	AudioData   []byte // WAV container bytes
	SampleRate  int
	Duration    time.Duration // audio duration of the segment
	WindowStart time.Time
	WindowEnd   time.Time

	// Optional per-request overrides of the client defaults.
	Language string
	Model    string
}

// Result is the parsed transcription response. Text is carried as raw JSON
// because the service may return a plain string, a list of text-bearing
// segment records, or an arbitrary value; the shape is resolved at the
// display boundary, not here. RoundTrip is measured by the client.
type Result struct {
	SegmentID   string          `json:"segment_id"`
	Text        json.RawMessage `json:"text"`
	Confidence  float64         `json:"confidence,omitempty"`
	Language    string          `json:"language,omitempty"`
	RoundTrip   time.Duration   `json:"round_trip"`
	ProcessedAt time.Time       `json:"processed_at"`
	Raw         json.RawMessage `json:"-"` // full response body, service-defined fields included
}

// ClientStats represents client statistics
type ClientStats struct {
	TotalRequests   uint64        `json:"total_requests"`
	SuccessRequests uint64        `json:"success_requests"`
	FailedRequests  uint64        `json:"failed_requests"`
	SuccessRate     float64       `json:"success_rate"`
	AvgResponseTime time.Duration `json:"avg_response_time"`
	ActiveRequests  int           `json:"active_requests"`
}

// NewClient creates a new transcription HTTP client
func NewClient(config Config) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint cannot be empty")
	}

	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 4
	}

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	if config.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	httpClient := &http.Client{
		Timeout:   config.Timeout,
		Transport: transport,
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
		semaphore:  make(chan struct{}, config.MaxConcurrent),
	}, nil
}

// Transcribe sends one encoded segment and returns the parsed result with
// the measured round-trip time attached. Failures are surfaced to the
// caller; the client performs no retries.
func (c *Client) Transcribe(ctx context.Context, request *Request) (*Result, error) {
	select {
	case c.semaphore <- struct{}{}:
		defer func() { <-c.semaphore }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	c.incrementTotalRequests()

	startTime := time.Now()
	result, err := c.doRequest(ctx, request)
	roundTrip := time.Since(startTime)

	if err != nil {
		c.incrementFailedRequests()
		return nil, err
	}

	result.RoundTrip = roundTrip
	c.incrementSuccessRequests()
	c.updateAvgResponseTime(roundTrip)

	return result, nil
}

// doRequest performs a single HTTP request to the transcription API
func (c *Client) doRequest(ctx context.Context, request *Request) (*Result, error) {
	body, contentType, err := c.createMultipartRequest(request)
	if err != nil {
		return nil, fmt.Errorf("failed to create multipart request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", contentType)
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", "mic-transcriber/1.0")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(respBody))
	}

	if len(respBody) == 0 {
		return nil, fmt.Errorf("empty response body")
	}

	var parsed struct {
		Text       json.RawMessage `json:"text"`
		Confidence float64         `json:"confidence"`
		Language   string          `json:"language"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w", err)
	}
	if len(parsed.Text) == 0 {
		return nil, fmt.Errorf("response is missing the text field")
	}

	return &Result{
		SegmentID:   request.SegmentID,
		Text:        parsed.Text,
		Confidence:  parsed.Confidence,
		Language:    parsed.Language,
		ProcessedAt: time.Now(),
		Raw:         respBody,
	}, nil
}

// createMultipartRequest creates a multipart/form-data request body
func (c *Client) createMultipartRequest(request *Request) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if len(request.AudioData) == 0 {
		return nil, "", fmt.Errorf("request has no audio data")
	}

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s.wav"`, request.SegmentID))
	header.Set("Content-Type", "audio/wav")

	fileWriter, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := fileWriter.Write(request.AudioData); err != nil {
		return nil, "", fmt.Errorf("failed to write audio data: %w", err)
	}

	fields := map[string]string{
		"segment_id":   request.SegmentID,
		"request_id":   request.RequestID,
		"sample_rate":  fmt.Sprintf("%d", request.SampleRate),
		"duration":     fmt.Sprintf("%.3f", request.Duration.Seconds()),
		"window_start": request.WindowStart.Format(time.RFC3339),
		"window_end":   request.WindowEnd.Format(time.RFC3339),
	}

	language := request.Language
	if language == "" {
		language = c.config.Language
	}
	if language != "" {
		fields["language"] = language
	}

	model := request.Model
	if model == "" {
		model = c.config.Model
	}
	if model != "" {
		fields["model"] = model
	}

	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", key, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	return &buf, writer.FormDataContentType(), nil
}

// Statistics methods
func (c *Client) incrementTotalRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRequests++
}

func (c *Client) incrementSuccessRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.successRequests++
}

func (c *Client) incrementFailedRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failedRequests++
}

func (c *Client) updateAvgResponseTime(responseTime time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Simple moving average
	if c.avgResponseTime == 0 {
		c.avgResponseTime = responseTime
	} else {
		c.avgResponseTime = (c.avgResponseTime + responseTime) / 2
	}
}

// GetStats returns current client statistics
func (c *Client) GetStats() ClientStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	successRate := float64(0)
	if c.totalRequests > 0 {
		successRate = float64(c.successRequests) / float64(c.totalRequests) * 100
	}

	return ClientStats{
		TotalRequests:   c.totalRequests,
		SuccessRequests: c.successRequests,
		FailedRequests:  c.failedRequests,
		SuccessRate:     successRate,
		AvgResponseTime: c.avgResponseTime,
		ActiveRequests:  len(c.semaphore),
	}
}

// Close waits for all active requests to complete.
func (c *Client) Close() error {
	for i := 0; i < c.config.MaxConcurrent; i++ {
		c.semaphore <- struct{}{}
	}
	return nil
}
