package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Config contains storage configuration.
type Config struct {
	SegmentsDir string // empty disables segment files
	HistoryPath string // empty disables transcript history
}

// Transcript is one recorded transcription result.
type Transcript struct {
	ID          int64     `json:"id"`
	SegmentID   string    `json:"segment_id"`
	Generation  uint64    `json:"generation"`
	Text        string    `json:"text"`
	Confidence  float64   `json:"confidence"`
	RoundTripMS int64     `json:"round_trip_ms"`
	WAVPath     string    `json:"wav_path,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store writes segment WAV files and transcript history rows.
type Store struct {
	cfg    Config
	db     *sql.DB
	logger *slog.Logger
	clock  func() time.Time
}

// Open initializes the store, creating the segments directory and the
// history schema as needed.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	s := &Store{cfg: cfg, logger: logger, clock: time.Now}

	if cfg.SegmentsDir != "" {
		if err := os.MkdirAll(cfg.SegmentsDir, 0o755); err != nil {
			return nil, fmt.Errorf("create segments dir: %w", err)
		}
	}

	if cfg.HistoryPath == "" {
		return s, nil
	}

	dir := filepath.Dir(cfg.HistoryPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", cfg.HistoryPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s.db = db

	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS transcripts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    segment_id TEXT NOT NULL,
    generation INTEGER NOT NULL,
    text TEXT NOT NULL,
    confidence REAL,
    round_trip_ms INTEGER,
    wav_path TEXT,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transcripts_created ON transcripts(created_at);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// Close releases the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveSegment writes one encoded segment under the segments directory and
// returns the full path. Returns an empty path when segment persistence is
// disabled.
func (s *Store) SaveSegment(name string, data []byte) (string, error) {
	if s.cfg.SegmentsDir == "" {
		return "", nil
	}
	if len(data) == 0 {
		return "", fmt.Errorf("refusing to write empty segment %s", name)
	}

	path := filepath.Join(s.cfg.SegmentsDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write segment: %w", err)
	}
	return path, nil
}

// AppendTranscript records one completed transcription.
func (s *Store) AppendTranscript(ctx context.Context, t Transcript) error {
	if s.db == nil {
		return nil
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.clock().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transcripts(segment_id, generation, text, confidence, round_trip_ms, wav_path, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?)`,
		t.SegmentID, t.Generation, t.Text, t.Confidence, t.RoundTripMS, t.WAVPath,
		t.CreatedAt.Format(time.RFC3339Nano))
	return err
}

// ListTranscripts returns up to limit most recent transcripts, newest first.
func (s *Store) ListTranscripts(ctx context.Context, limit int) ([]Transcript, error) {
	if s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, segment_id, generation, text, confidence, round_trip_ms, wav_path, created_at
		 FROM transcripts ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transcripts []Transcript
	for rows.Next() {
		var t Transcript
		var created string
		if err := rows.Scan(&t.ID, &t.SegmentID, &t.Generation, &t.Text, &t.Confidence,
			&t.RoundTripMS, &t.WAVPath, &created); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			t.CreatedAt = ts
		}
		transcripts = append(transcripts, t)
	}
	return transcripts, rows.Err()
}
