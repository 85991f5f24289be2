package capture

import (
	"context"
	"math"
	"time"
)

// SyntheticSource generates a continuous sine tone in fixed-size chunks. It
// stands in for a microphone when no audio hardware is available and drives
// the pipeline end to end in development.
type SyntheticSource struct {
	cfg       Config
	frequency float64
	amplitude float64
	interval  time.Duration
}

// NewSyntheticSource creates a tone generator at the configured sample rate.
// Chunk cadence is derived from ChunkFrames so the stream plays out in real
// time, matching how a capture device would deliver audio.
func NewSyntheticSource(cfg Config) *SyntheticSource {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.ChunkFrames <= 0 {
		cfg.ChunkFrames = cfg.SampleRate / 10 // 100ms chunks
	}
	if cfg.BufferDepth <= 0 {
		cfg.BufferDepth = 64
	}

	interval := time.Duration(float64(cfg.ChunkFrames) / float64(cfg.SampleRate) * float64(time.Second))

	return &SyntheticSource{
		cfg:       cfg,
		frequency: 440,
		amplitude: 0.2,
		interval:  interval,
	}
}

// SampleRate returns the generator's sample rate.
func (s *SyntheticSource) SampleRate() int {
	return s.cfg.SampleRate
}

// Start begins emitting tone chunks until ctx is cancelled.
func (s *SyntheticSource) Start(ctx context.Context) (<-chan Chunk, <-chan error, error) {
	chunks := make(chan Chunk, s.cfg.BufferDepth)
	errs := make(chan error, 1)

	go func() {
		defer close(chunks)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		var phase float64
		step := 2 * math.Pi * s.frequency / float64(s.cfg.SampleRate)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				chunk := make(Chunk, s.cfg.ChunkFrames)
				for i := range chunk {
					chunk[i] = float32(s.amplitude * math.Sin(phase))
					phase += step
					if phase > 2*math.Pi {
						phase -= 2 * math.Pi
					}
				}
				select {
				case chunks <- chunk:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return chunks, errs, nil
}
