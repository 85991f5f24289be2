package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/skypro1111/mic-transcriber/internal/audio"
	"github.com/skypro1111/mic-transcriber/internal/metrics"
	"github.com/skypro1111/mic-transcriber/internal/transcription"
)

// Transcriber sends one encoded segment to the recognition service.
type Transcriber interface {
	Transcribe(ctx context.Context, req *transcription.Request) (*transcription.Result, error)
}

// SegmentStore persists encoded segment audio. Implementations may be
// disabled and return an empty path.
type SegmentStore interface {
	SaveSegment(name string, data []byte) (string, error)
}

// Segment is the outcome of processing one window end to end.
type Segment struct {
	Result        *transcription.Result
	WAVPath       string
	WAVSize       int
	AudioDuration time.Duration
}

// ProcessorConfig controls how windows are converted and submitted.
type ProcessorConfig struct {
	TargetSampleRate int
	BitDepth         int
	Language         string
	Model            string
}

// Processor converts a window to WAV, persists it, and submits it for
// transcription. Safe for concurrent use: each window is independent.
type Processor struct {
	cfg     ProcessorConfig
	client  Transcriber
	store   SegmentStore
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewProcessor creates a window processor. store may be nil when
// segment persistence is disabled.
func NewProcessor(cfg ProcessorConfig, client Transcriber, store SegmentStore, m *metrics.Metrics, logger *slog.Logger) *Processor {
	return &Processor{
		cfg:     cfg,
		client:  client,
		store:   store,
		metrics: m,
		logger:  logger,
	}
}

// Process resamples the window to the target rate, encodes it as WAV,
// saves it best-effort, and submits it for transcription. A persistence
// failure is logged and does not block submission.
func (p *Processor) Process(ctx context.Context, w Window) (*Segment, error) {
	samples := audio.Resample(w.Samples, w.SampleRate, p.cfg.TargetSampleRate)

	wavData, err := audio.EncodeWAV(samples, audio.EncodeOptions{
		Channels:   1,
		SampleRate: p.cfg.TargetSampleRate,
		BitDepth:   p.cfg.BitDepth,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode window: %w", err)
	}

	segmentID := uuid.New().String()
	wavPath := ""
	if p.store != nil {
		path, err := p.store.SaveSegment(segmentFilename(w.Start), wavData)
		if err != nil {
			p.logger.Warn("failed to persist segment audio",
				"segment_id", segmentID,
				"error", err)
		} else {
			wavPath = path
		}
	}

	req := &transcription.Request{
		SegmentID:   segmentID,
		RequestID:   uuid.New().String(),
		AudioData:   wavData,
		SampleRate:  p.cfg.TargetSampleRate,
		Duration:    w.Duration(),
		WindowStart: w.Start,
		WindowEnd:   w.End,
		Language:    p.cfg.Language,
		Model:       p.cfg.Model,
	}

	p.metrics.RecordTranscriptionRequest()
	started := time.Now()
	result, err := p.client.Transcribe(ctx, req)
	if err != nil {
		p.metrics.RecordTranscriptionFailure(time.Since(started).Seconds())
		return nil, fmt.Errorf("transcription failed for segment %s: %w", segmentID, err)
	}
	p.metrics.RecordTranscriptionSuccess(result.RoundTrip.Seconds())

	return &Segment{
		Result:        result,
		WAVPath:       wavPath,
		WAVSize:       len(wavData),
		AudioDuration: w.Duration(),
	}, nil
}

// segmentFilename derives a filesystem-safe name from the window start.
func segmentFilename(start time.Time) string {
	ts := start.UTC().Format("2006-01-02T15:04:05.000Z")
	return strings.NewReplacer(":", "-", ".", "-").Replace(ts) + ".wav"
}
