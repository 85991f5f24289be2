package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/skypro1111/mic-transcriber/internal/capture"
	"github.com/skypro1111/mic-transcriber/internal/display"
	"github.com/skypro1111/mic-transcriber/internal/metrics"
	"github.com/skypro1111/mic-transcriber/internal/store"
)

// State is the controller lifecycle state.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
)

// HistoryStore records finished transcripts. Implementations may be
// disabled and return without effect.
type HistoryStore interface {
	AppendTranscript(ctx context.Context, t store.Transcript) error
}

// Config controls session windowing.
type Config struct {
	// WindowInterval is the wall-clock window length.
	WindowInterval time.Duration
}

// Stats is a snapshot of controller counters for the stats endpoint.
type Stats struct {
	State             State  `json:"state"`
	Generation        uint64 `json:"generation"`
	SessionsStarted   uint64 `json:"sessions_started"`
	SegmentsSucceeded uint64 `json:"segments_succeeded"`
	SegmentsFailed    uint64 `json:"segments_failed"`
	StaleDropped      uint64 `json:"stale_dropped"`
	ResultCount       int    `json:"result_count"`
	LastError         string `json:"last_error,omitempty"`
}

// Controller owns the Idle/Running state machine. Start and stop are
// idempotent. Results from a previous session never surface: each
// start bumps the generation and delivery checks it.
type Controller struct {
	cfg      Config
	source   capture.Source
	proc     *Processor
	history  HistoryStore
	displays display.Display
	metrics  *metrics.Metrics
	logger   *slog.Logger

	newTicker tickerFactory
	clock     func() time.Time

	mu         sync.Mutex
	state      State
	generation uint64
	cancel     context.CancelFunc
	done       chan struct{}
	seq        int
	results    []display.Entry
	stats      Stats

	wg sync.WaitGroup
}

// NewController creates an idle controller. history may be nil when
// transcript persistence is disabled.
func NewController(cfg Config, source capture.Source, proc *Processor, history HistoryStore, displays display.Display, m *metrics.Metrics, logger *slog.Logger) *Controller {
	return &Controller{
		cfg:       cfg,
		source:    source,
		proc:      proc,
		history:   history,
		displays:  displays,
		metrics:   m,
		logger:    logger,
		newTicker: defaultTicker,
		clock:     time.Now,
		state:     StateIdle,
	}
}

// StartSession transitions Idle to Running. Calling it while running
// is a no-op. The capture source is started synchronously so device
// failures surface to the caller.
func (c *Controller) StartSession() error {
	c.mu.Lock()
	if c.state == StateRunning {
		c.mu.Unlock()
		c.logger.Info("start requested while already running")
		return nil
	}
	prev := c.done
	c.mu.Unlock()

	// Previous session loop must fully exit before the device is reopened.
	if prev != nil {
		<-prev
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateRunning {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	chunks, errs, err := c.source.Start(ctx)
	if err != nil {
		cancel()
		return err
	}

	c.generation++
	c.seq = 0
	c.results = nil
	c.state = StateRunning
	c.cancel = cancel
	c.done = make(chan struct{})
	c.stats.SessionsStarted++
	c.stats.LastError = ""
	c.metrics.RecordSessionStarted()

	gen := c.generation
	done := c.done
	c.logger.Info("session started",
		"generation", gen,
		"window_interval", c.cfg.WindowInterval)

	go c.runSession(ctx, gen, done, chunks, errs)
	return nil
}

// StopSession transitions Running to Idle, discarding the partial
// window. Calling it while idle is a no-op. Returns once the session
// loop has exited; in-flight transcription requests keep running and
// their results are dropped by the generation check.
func (c *Controller) StopSession() {
	c.mu.Lock()
	if c.state != StateRunning {
		c.mu.Unlock()
		c.logger.Info("stop requested while idle")
		return
	}
	c.state = StateIdle
	c.cancel()
	c.cancel = nil
	done := c.done
	gen := c.generation
	c.metrics.RecordSessionStopped()
	c.mu.Unlock()

	<-done
	c.logger.Info("session stopped", "generation", gen)
}

// runSession drives the scheduler loop and handles its exit.
func (c *Controller) runSession(ctx context.Context, gen uint64, done chan struct{}, chunks <-chan capture.Chunk, errs <-chan error) {
	defer close(done)

	s := &scheduler{
		interval:   c.cfg.WindowInterval,
		sampleRate: c.source.SampleRate(),
		generation: gen,
		newTicker:  c.newTicker,
		clock:      c.clock,
		onWindow:   c.handleWindow,
		metrics:    c.metrics,
		logger:     c.logger,
	}

	if err := s.run(ctx.Done(), chunks, errs); err != nil {
		c.logger.Error("capture failed, stopping session",
			"generation", gen,
			"error", err)
		c.mu.Lock()
		if c.state == StateRunning && c.generation == gen {
			c.state = StateIdle
			c.cancel()
			c.cancel = nil
			c.stats.LastError = err.Error()
			c.metrics.RecordSessionStopped()
		}
		c.mu.Unlock()
	}
}

// handleWindow processes a completed window on its own goroutine so a
// slow transcription never blocks the capture loop.
func (c *Controller) handleWindow(w Window) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		// The window outlives its session on purpose: stop does not
		// cancel in-flight requests, delivery filters them instead.
		seg, err := c.proc.Process(context.Background(), w)
		if err != nil {
			c.metrics.RecordSegmentFailed()
			c.logger.Error("segment processing failed",
				"generation", w.Generation,
				"window_start", w.Start,
				"error", err)
			c.mu.Lock()
			c.stats.SegmentsFailed++
			c.mu.Unlock()
			return
		}
		c.metrics.RecordSegmentProcessed(seg.WAVSize)
		c.deliver(w, seg)
	}()
}

// deliver appends the result in completion order unless the session
// that produced it has ended.
func (c *Controller) deliver(w Window, seg *Segment) {
	res := seg.Result

	c.mu.Lock()
	if w.Generation != c.generation || c.state != StateRunning {
		c.stats.StaleDropped++
		c.mu.Unlock()
		c.metrics.RecordStaleResult()
		c.logger.Info("dropping result from ended session",
			"generation", w.Generation,
			"segment_id", res.SegmentID)
		return
	}
	c.seq++
	entry := display.Entry{
		Seq:         c.seq,
		SegmentID:   res.SegmentID,
		Text:        res.Text,
		Confidence:  res.Confidence,
		RoundTrip:   res.RoundTrip,
		CompletedAt: res.ProcessedAt,
	}
	c.results = append(c.results, entry)
	c.stats.SegmentsSucceeded++
	c.mu.Unlock()

	c.displays.Show(entry)

	if c.history != nil {
		t := store.Transcript{
			SegmentID:   res.SegmentID,
			Generation:  w.Generation,
			Text:        display.ResolveText(res.Text).String(),
			Confidence:  res.Confidence,
			RoundTripMS: res.RoundTrip.Milliseconds(),
			WAVPath:     seg.WAVPath,
		}
		if err := c.history.AppendTranscript(context.Background(), t); err != nil {
			c.logger.Warn("failed to record transcript history",
				"segment_id", res.SegmentID,
				"error", err)
		}
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Results returns a snapshot of the current session's results in
// completion order.
func (c *Controller) Results() []display.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]display.Entry, len(c.results))
	copy(out, c.results)
	return out
}

// Stats returns a snapshot of controller counters.
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.State = c.state
	s.Generation = c.generation
	s.ResultCount = len(c.results)
	return s
}

// Close stops any active session and waits for in-flight segment
// processing to finish. Used during shutdown.
func (c *Controller) Close() {
	c.StopSession()
	c.wg.Wait()
}
