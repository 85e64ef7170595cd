// Package postgres provides an optional PostgreSQL sink for per-segment
// telemetry. When configured, every resolved segment is recorded so that
// recognition quality and latency can be analyzed across sessions; the
// engine runs fine without it.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SegmentRecord is one resolved segment as persisted.
type SegmentRecord struct {
	At           time.Time
	Utterance    string
	SegmentIndex int
	Segment      string
	Stage        string
	Command      string
	Confidence   float64
	Ambiguous    bool
	Arbiter      string
	Mode         string
	Latency      time.Duration
}

// Store is the PostgreSQL-backed telemetry sink. It holds a single
// [pgxpool.Pool] and is safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore establishes a connection pool to dsn and ensures the telemetry
// table exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("telemetry store: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("telemetry store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("telemetry store: ping: %w", err)
	}

	if err := migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("telemetry store: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS voxctl_segments (
	id            BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	at            TIMESTAMPTZ NOT NULL,
	utterance     TEXT        NOT NULL,
	segment_index INT         NOT NULL,
	segment       TEXT        NOT NULL,
	stage         TEXT        NOT NULL,
	command       TEXT        NOT NULL DEFAULT '',
	confidence    REAL        NOT NULL,
	ambiguous     BOOLEAN     NOT NULL,
	arbiter       TEXT        NOT NULL DEFAULT '',
	mode          TEXT        NOT NULL,
	latency_ms    BIGINT      NOT NULL
);
CREATE INDEX IF NOT EXISTS voxctl_segments_at_idx ON voxctl_segments (at);
CREATE INDEX IF NOT EXISTS voxctl_segments_stage_idx ON voxctl_segments (stage);
`

func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}

// RecordSegment persists one resolved segment.
func (s *Store) RecordSegment(ctx context.Context, rec SegmentRecord) error {
	if rec.At.IsZero() {
		rec.At = time.Now()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO voxctl_segments
			(at, utterance, segment_index, segment, stage, command,
			 confidence, ambiguous, arbiter, mode, latency_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rec.At, rec.Utterance, rec.SegmentIndex, rec.Segment, rec.Stage,
		rec.Command, rec.Confidence, rec.Ambiguous, rec.Arbiter, rec.Mode,
		rec.Latency.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("telemetry store: insert segment: %w", err)
	}
	return nil
}

// StageCounts aggregates resolved segments per stage since the given time.
func (s *Store) StageCounts(ctx context.Context, since time.Time) (map[string]int64, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT stage, COUNT(*) FROM voxctl_segments
		WHERE at >= $1 GROUP BY stage`, since)
	if err != nil {
		return nil, fmt.Errorf("telemetry store: stage counts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var stage string
		var n int64
		if err := rows.Scan(&stage, &n); err != nil {
			return nil, fmt.Errorf("telemetry store: scan: %w", err)
		}
		out[stage] = n
	}
	return out, rows.Err()
}

// Close releases all connections held by the pool.
func (s *Store) Close() {
	s.pool.Close()
}
