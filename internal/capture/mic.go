package capture

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/gen2brain/malgo"
)

// MicSource captures mono audio from the default microphone via miniaudio.
// Only one subscription may be active at a time; the device is initialized
// on Start and released when the subscription context is cancelled.
type MicSource struct {
	cfg Config

	mu     sync.Mutex
	active bool
}

// NewMicSource creates a microphone capture source.
func NewMicSource(cfg Config) (*MicSource, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", cfg.SampleRate)
	}
	if cfg.Channels != 1 {
		return nil, fmt.Errorf("only mono capture is supported, got %d channels", cfg.Channels)
	}
	if cfg.BufferDepth <= 0 {
		cfg.BufferDepth = 64
	}
	return &MicSource{cfg: cfg}, nil
}

// SampleRate returns the device's configured native sample rate.
func (m *MicSource) SampleRate() int {
	return m.cfg.SampleRate
}

// Start opens the capture device and begins pushing chunks. The device and
// its miniaudio context are released when ctx is cancelled.
func (m *MicSource) Start(ctx context.Context) (<-chan Chunk, <-chan error, error) {
	m.mu.Lock()
	if m.active {
		m.mu.Unlock()
		return nil, nil, fmt.Errorf("microphone capture already active")
	}
	m.active = true
	m.mu.Unlock()

	release := func() {
		m.mu.Lock()
		m.active = false
		m.mu.Unlock()
	}

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		release()
		return nil, nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = uint32(m.cfg.Channels)
	deviceConfig.SampleRate = uint32(m.cfg.SampleRate)
	deviceConfig.Alsa.NoMMap = 1

	chunks := make(chan Chunk, m.cfg.BufferDepth)
	errs := make(chan error, 1)

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, frameCount uint32) {
			chunk := decodeF32(input, int(frameCount))
			if len(chunk) == 0 {
				return
			}
			select {
			case chunks <- chunk:
			case <-ctx.Done():
			default:
				// Consumer stalled; drop rather than block the device thread.
			}
		},
		Stop: func() {
			// Uninit during shutdown also fires this; only a stop while the
			// subscription is still live is a stream failure.
			if ctx.Err() != nil {
				return
			}
			select {
			case errs <- fmt.Errorf("capture device stopped unexpectedly"):
			default:
			}
		},
	}

	device, err := malgo.InitDevice(mctx.Context, deviceConfig, callbacks)
	if err != nil {
		mctx.Uninit()
		mctx.Free()
		release()
		return nil, nil, fmt.Errorf("failed to initialize capture device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		mctx.Uninit()
		mctx.Free()
		release()
		return nil, nil, fmt.Errorf("failed to start capture device: %w", err)
	}

	go func() {
		<-ctx.Done()
		device.Uninit()
		mctx.Uninit()
		mctx.Free()
		close(chunks)
		release()
	}()

	return chunks, errs, nil
}

// decodeF32 converts little-endian float32 PCM bytes into a normalized chunk.
func decodeF32(data []byte, frames int) Chunk {
	if frames*4 > len(data) {
		frames = len(data) / 4
	}
	if frames <= 0 {
		return nil
	}

	chunk := make(Chunk, frames)
	for i := 0; i < frames; i++ {
		bits := binary.LittleEndian.Uint32(data[i*4:])
		chunk[i] = math.Float32frombits(bits)
	}
	return chunk
}
