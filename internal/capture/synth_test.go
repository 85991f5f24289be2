package capture

import (
	"context"
	"testing"
	"time"
)

func TestSyntheticSourceEmitsChunks(t *testing.T) {
	src := NewSyntheticSource(Config{SampleRate: 16000, ChunkFrames: 160})

	if src.SampleRate() != 16000 {
		t.Errorf("Expected sample rate 16000, got %d", src.SampleRate())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chunks, _, err := src.Start(ctx)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	select {
	case chunk := <-chunks:
		if len(chunk) != 160 {
			t.Errorf("Expected 160 frames per chunk, got %d", len(chunk))
		}
		for i, s := range chunk {
			if s < -1 || s > 1 {
				t.Fatalf("Sample %d out of range: %f", i, s)
			}
		}
	case <-time.After(time.Second):
		t.Fatal("No chunk received within 1s")
	}
}

func TestSyntheticSourceStopsOnCancel(t *testing.T) {
	src := NewSyntheticSource(Config{SampleRate: 16000, ChunkFrames: 160})

	ctx, cancel := context.WithCancel(context.Background())
	chunks, _, err := src.Start(ctx)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	cancel()

	// The chunk channel must close shortly after cancellation; drain any
	// chunks emitted before the generator observed the cancel.
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-chunks:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("Chunk channel not closed after cancellation")
		}
	}
}

func TestNewSourceUnknownBackend(t *testing.T) {
	if _, err := NewSource(Config{Backend: "tape-deck"}); err == nil {
		t.Error("Expected error for unknown backend")
	}
}
