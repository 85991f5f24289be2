package session

import (
	"log/slog"
	"time"

	"github.com/skypro1111/mic-transcriber/internal/capture"
	"github.com/skypro1111/mic-transcriber/internal/metrics"
)

// Window is a completed interval of captured audio, detached from the
// accumulation buffer and ready for processing.
type Window struct {
	Samples    []float32
	SampleRate int
	Start      time.Time
	End        time.Time
	Generation uint64
}

// Duration returns the audio duration of the window.
func (w Window) Duration() time.Duration {
	if w.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(w.Samples)) / float64(w.SampleRate) * float64(time.Second))
}

// tickerFactory returns a tick channel and a stop function. Tests swap
// in a manual channel to drive window boundaries deterministically.
type tickerFactory func(d time.Duration) (<-chan time.Time, func())

func defaultTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// scheduler accumulates capture chunks into a buffer and detaches it as
// a Window on every interval tick. One scheduler serves one session.
type scheduler struct {
	interval   time.Duration
	sampleRate int
	generation uint64
	newTicker  tickerFactory
	clock      func() time.Time
	onWindow   func(Window)
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// run consumes chunks until the channel closes, an error arrives, or
// done is closed. The buffer held at exit is discarded, never flushed.
// Returns the capture error, if any, that ended the loop.
func (s *scheduler) run(done <-chan struct{}, chunks <-chan capture.Chunk, errs <-chan error) error {
	tick, stopTicker := s.newTicker(s.interval)
	defer stopTicker()

	var buffer []float32
	windowStart := s.clock()

	discard := func() {
		if len(buffer) > 0 {
			s.metrics.RecordWindowDiscarded()
			s.logger.Info("discarding partial window",
				"samples", len(buffer),
				"generation", s.generation)
			buffer = nil
		}
		s.metrics.SetSamplesBuffered(0)
	}

	for {
		select {
		case <-done:
			discard()
			return nil

		case chunk, ok := <-chunks:
			if !ok {
				discard()
				return nil
			}
			buffer = append(buffer, chunk...)
			s.metrics.RecordChunkReceived()
			s.metrics.SetSamplesBuffered(len(buffer))

		case err := <-errs:
			discard()
			return err

		case now := <-tick:
			if len(buffer) == 0 {
				s.metrics.RecordWindowEmpty()
				s.logger.Debug("empty window skipped", "generation", s.generation)
				windowStart = now
				continue
			}
			w := Window{
				Samples:    buffer,
				SampleRate: s.sampleRate,
				Start:      windowStart,
				End:        now,
				Generation: s.generation,
			}
			buffer = nil
			windowStart = now
			s.metrics.SetSamplesBuffered(0)
			s.metrics.RecordWindowCompleted(w.Duration().Seconds())
			s.logger.Debug("window completed",
				"samples", len(w.Samples),
				"duration", w.Duration(),
				"generation", s.generation)
			s.onWindow(w)
		}
	}
}
