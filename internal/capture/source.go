package capture

import (
	"context"
	"fmt"
)

// Chunk is a finite sequence of normalized mono samples in [-1, 1] delivered
// by a capture source. Chunk sizes and arrival timing are device-dependent;
// consumers must not assume either.
type Chunk []float32

// Source is a live capture device. Start opens a subscription that pushes
// chunks until the context is cancelled; there is no backpressure contract,
// so consumers must accept chunks as fast as they arrive. The error channel
// delivers at most one terminal stream error, after which the chunk channel
// is closed. Start may be called again after a prior subscription ended.
type Source interface {
	SampleRate() int
	Start(ctx context.Context) (<-chan Chunk, <-chan error, error)
}

// Config describes the capture device parameters.
type Config struct {
	Backend     string // "mic" or "synthetic"
	DeviceID    string // empty selects the default device
	SampleRate  int
	Channels    int
	ChunkFrames int // frames per delivered chunk
	BufferDepth int // chunk channel capacity
}

// NewSource constructs a capture source for the configured backend.
func NewSource(cfg Config) (Source, error) {
	switch cfg.Backend {
	case "mic":
		return NewMicSource(cfg)
	case "synthetic":
		return NewSyntheticSource(cfg), nil
	default:
		return nil, fmt.Errorf("unknown capture backend %q", cfg.Backend)
	}
}
