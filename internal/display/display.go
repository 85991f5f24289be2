package display

import (
	"encoding/json"
	"log/slog"
	"strings"
	"time"
)

// TextKind tags the shape the transcription service returned for its text
// payload.
type TextKind int

const (
	TextPlain    TextKind = iota // a JSON string
	TextSegments                 // an array of records each carrying a "text" field
	TextRaw                      // anything else, stringified as a fallback
)

// Text is the resolved form of a service text payload.
type Text struct {
	Kind     TextKind
	Plain    string
	Segments []Segment
	Raw      string
}

// Segment is one text-bearing sub-record of a segmented response.
type Segment struct {
	Text string `json:"text"`
}

// ResolveText decodes the raw text payload into its tagged variant.
func ResolveText(raw json.RawMessage) Text {
	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return Text{Kind: TextPlain, Plain: plain}
	}

	var segments []Segment
	if err := json.Unmarshal(raw, &segments); err == nil {
		return Text{Kind: TextSegments, Segments: segments}
	}

	return Text{Kind: TextRaw, Raw: string(raw)}
}

// String renders the variant as a single human-readable line. Segment texts
// are joined with single spaces.
func (t Text) String() string {
	switch t.Kind {
	case TextPlain:
		return t.Plain
	case TextSegments:
		parts := make([]string, 0, len(t.Segments))
		for _, s := range t.Segments {
			parts = append(parts, s.Text)
		}
		return strings.Join(parts, " ")
	default:
		return t.Raw
	}
}

// Entry is one displayed transcription result.
type Entry struct {
	Seq         int             `json:"seq"`
	SegmentID   string          `json:"segment_id"`
	Text        json.RawMessage `json:"text"`
	Confidence  float64         `json:"confidence,omitempty"`
	RoundTrip   time.Duration   `json:"round_trip"`
	CompletedAt time.Time       `json:"completed_at"`
}

// Display receives one transcription result at a time.
type Display interface {
	Show(entry Entry)
}

// LogDisplay writes resolved transcripts to the structured log.
type LogDisplay struct {
	logger *slog.Logger
}

// NewLogDisplay creates a log-backed display.
func NewLogDisplay(logger *slog.Logger) *LogDisplay {
	return &LogDisplay{logger: logger}
}

// Show logs the resolved text of one result.
func (d *LogDisplay) Show(entry Entry) {
	d.logger.Info("Transcript",
		slog.Int("seq", entry.Seq),
		slog.String("segment_id", entry.SegmentID),
		slog.String("text", ResolveText(entry.Text).String()),
		slog.Float64("confidence", entry.Confidence),
		slog.Duration("round_trip", entry.RoundTrip),
	)
}

// Multi fans one result out to several displays in order.
type Multi []Display

// Show forwards the entry to every display.
func (m Multi) Show(entry Entry) {
	for _, d := range m {
		d.Show(entry)
	}
}
