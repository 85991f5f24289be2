package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/skypro1111/mic-transcriber/internal/audio"
	"github.com/skypro1111/mic-transcriber/internal/transcription"
)

type stubTranscriber struct {
	lastReq *transcription.Request
	result  *transcription.Result
	err     error
	calls   int
}

func (s *stubTranscriber) Transcribe(_ context.Context, req *transcription.Request) (*transcription.Result, error) {
	s.calls++
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	res := *s.result
	res.SegmentID = req.SegmentID
	return &res, nil
}

type stubSegmentStore struct {
	name string
	data []byte
	err  error
}

func (s *stubSegmentStore) SaveSegment(name string, data []byte) (string, error) {
	s.name = name
	s.data = data
	if s.err != nil {
		return "", s.err
	}
	return "/tmp/" + name, nil
}

func okResult() *transcription.Result {
	return &transcription.Result{
		Text:        json.RawMessage(`"hello world"`),
		Confidence:  0.9,
		RoundTrip:   50 * time.Millisecond,
		ProcessedAt: time.Now(),
	}
}

func testWindow(samples int, rate int) Window {
	s := make([]float32, samples)
	for i := range s {
		s[i] = 0.25
	}
	return Window{
		Samples:    s,
		SampleRate: rate,
		Start:      time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		End:        time.Date(2025, 3, 1, 12, 0, 30, 0, time.UTC),
		Generation: 1,
	}
}

func TestProcessorResamplesAndSubmits(t *testing.T) {
	tr := &stubTranscriber{result: okResult()}
	st := &stubSegmentStore{}
	p := NewProcessor(ProcessorConfig{
		TargetSampleRate: 16000,
		BitDepth:         16,
		Language:         "en",
		Model:            "base",
	}, tr, st, testMetrics(), testLogger())

	seg, err := p.Process(context.Background(), testWindow(48000, 48000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tr.lastReq.SampleRate != 16000 {
		t.Errorf("expected request sample rate 16000, got %d", tr.lastReq.SampleRate)
	}
	if tr.lastReq.Language != "en" || tr.lastReq.Model != "base" {
		t.Errorf("unexpected language/model: %q %q", tr.lastReq.Language, tr.lastReq.Model)
	}
	if tr.lastReq.SegmentID == "" || tr.lastReq.RequestID == "" {
		t.Error("expected segment and request IDs to be set")
	}

	samples, rate, err := audio.DecodeWAV(tr.lastReq.AudioData)
	if err != nil {
		t.Fatalf("request carries invalid WAV: %v", err)
	}
	if rate != 16000 {
		t.Errorf("WAV sample rate %d, expected 16000", rate)
	}
	if len(samples) != 16000 {
		t.Errorf("expected 16000 resampled samples, got %d", len(samples))
	}

	if seg.WAVSize != len(tr.lastReq.AudioData) {
		t.Errorf("WAVSize %d does not match encoded size %d", seg.WAVSize, len(tr.lastReq.AudioData))
	}
	if seg.WAVPath == "" {
		t.Error("expected persisted WAV path")
	}
	if seg.Result.SegmentID != tr.lastReq.SegmentID {
		t.Error("result segment ID does not match request")
	}
}

func TestProcessorPersistsWithTimestampName(t *testing.T) {
	tr := &stubTranscriber{result: okResult()}
	st := &stubSegmentStore{}
	p := NewProcessor(ProcessorConfig{TargetSampleRate: 16000, BitDepth: 16}, tr, st, testMetrics(), testLogger())

	if _, err := p.Process(context.Background(), testWindow(1600, 16000)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.name != "2025-03-01T12-00-00-000Z.wav" {
		t.Errorf("unexpected segment filename %q", st.name)
	}
	if len(st.data) == 0 {
		t.Error("expected WAV bytes persisted")
	}
}

func TestProcessorStoreFailureDoesNotBlockSubmission(t *testing.T) {
	tr := &stubTranscriber{result: okResult()}
	st := &stubSegmentStore{err: errors.New("disk full")}
	p := NewProcessor(ProcessorConfig{TargetSampleRate: 16000, BitDepth: 16}, tr, st, testMetrics(), testLogger())

	seg, err := p.Process(context.Background(), testWindow(1600, 16000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.calls != 1 {
		t.Errorf("expected transcription despite store failure, got %d calls", tr.calls)
	}
	if seg.WAVPath != "" {
		t.Errorf("expected empty WAV path after store failure, got %q", seg.WAVPath)
	}
}

func TestProcessorNilStore(t *testing.T) {
	tr := &stubTranscriber{result: okResult()}
	p := NewProcessor(ProcessorConfig{TargetSampleRate: 16000, BitDepth: 16}, tr, nil, testMetrics(), testLogger())

	seg, err := p.Process(context.Background(), testWindow(1600, 16000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seg.WAVPath != "" {
		t.Errorf("expected empty WAV path, got %q", seg.WAVPath)
	}
}

func TestProcessorTranscriptionFailure(t *testing.T) {
	tr := &stubTranscriber{err: errors.New("service unavailable")}
	p := NewProcessor(ProcessorConfig{TargetSampleRate: 16000, BitDepth: 16}, tr, nil, testMetrics(), testLogger())

	if _, err := p.Process(context.Background(), testWindow(1600, 16000)); err == nil {
		t.Fatal("expected error from failed transcription")
	}
	if tr.calls != 1 {
		t.Errorf("expected exactly one attempt, got %d", tr.calls)
	}
}

func TestProcessorRejectsEmptyWindow(t *testing.T) {
	tr := &stubTranscriber{result: okResult()}
	p := NewProcessor(ProcessorConfig{TargetSampleRate: 16000, BitDepth: 16}, tr, nil, testMetrics(), testLogger())

	if _, err := p.Process(context.Background(), testWindow(0, 16000)); err == nil {
		t.Fatal("expected error for empty window")
	}
	if tr.calls != 0 {
		t.Error("empty window must not reach the transcription client")
	}
}
