package querylog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/pkg/resilience"
)

const schema = `
CREATE TABLE IF NOT EXISTS query_log (
    id                BIGSERIAL PRIMARY KEY,
    request_id        TEXT NOT NULL DEFAULT '',
    query             TEXT NOT NULL,
    terms             TEXT[] NOT NULL,
    outcome           TEXT NOT NULL,
    total_hits        INTEGER NOT NULL,
    returned          INTEGER NOT NULL,
    alpha             DOUBLE PRECISION NOT NULL,
    top_n             INTEGER NOT NULL,
    mode              TEXT NOT NULL,
    cache_hit         BOOLEAN NOT NULL,
    latency_ms        DOUBLE PRECISION NOT NULL,
    index_fingerprint TEXT NOT NULL,
    created_at        TIMESTAMPTZ NOT NULL
)`

const createdIndex = `CREATE INDEX IF NOT EXISTS query_log_created_at_idx ON query_log (created_at DESC)`

var _ Log = (*PGStore)(nil)

// PGStore persists the query log in the query_log table. Writes fail fast
// while the database keeps failing.
type PGStore struct {
	db      *postgres.Client
	breaker *resilience.CircuitBreaker
	logger  *slog.Logger
}

func NewPGStore(db *postgres.Client, m *metrics.Metrics) *PGStore {
	return &PGStore{
		db: db,
		breaker: resilience.NewCircuitBreaker("query-log", resilience.CircuitBreakerConfig{
			FailureThreshold: 5,
			ResetTimeout:     30 * time.Second,
			OnStateChange: func(name string, to resilience.State) {
				m.SetCircuitState(name, int(to))
			},
		}),
		logger: slog.Default().With("component", "querylog"),
	}
}

// EnsureSchema creates the query_log table and its index if missing.
func (s *PGStore) EnsureSchema(ctx context.Context) error {
	return s.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, schema); err != nil {
			return fmt.Errorf("creating query_log table: %w", err)
		}
		if _, err := tx.ExecContext(ctx, createdIndex); err != nil {
			return fmt.Errorf("creating query_log index: %w", err)
		}
		return nil
	})
}

func (s *PGStore) Record(ctx context.Context, ev analytics.SearchEvent) error {
	terms := ev.Terms
	if terms == nil {
		terms = []string{}
	}
	return s.breaker.Execute(func() error {
		return s.insert(ctx, ev, terms)
	})
}

func (s *PGStore) insert(ctx context.Context, ev analytics.SearchEvent, terms []string) error {
	_, err := s.db.DB.ExecContext(ctx,
		`INSERT INTO query_log
		 (request_id, query, terms, outcome, total_hits, returned, alpha, top_n, mode, cache_hit, latency_ms, index_fingerprint, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		ev.RequestID, ev.Query, pq.Array(terms), ev.Outcome, ev.TotalHits, ev.Returned,
		ev.Alpha, ev.TopN, ev.Mode, ev.CacheHit, ev.LatencyMs, ev.Fingerprint, ev.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("recording query: %w", err)
	}
	return nil
}

func (s *PGStore) Recent(ctx context.Context, limit int) ([]analytics.SearchEvent, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT request_id, query, terms, outcome, total_hits, returned, alpha, top_n, mode, cache_hit, latency_ms, index_fingerprint, created_at
		 FROM query_log ORDER BY created_at DESC, id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing recent queries: %w", err)
	}
	defer rows.Close()

	events := make([]analytics.SearchEvent, 0, limit)
	for rows.Next() {
		ev := analytics.SearchEvent{Type: analytics.EventSearch}
		if err := rows.Scan(
			&ev.RequestID, &ev.Query, pq.Array(&ev.Terms), &ev.Outcome, &ev.TotalHits, &ev.Returned,
			&ev.Alpha, &ev.TopN, &ev.Mode, &ev.CacheHit, &ev.LatencyMs, &ev.Fingerprint, &ev.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scanning query_log row: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query_log rows: %w", err)
	}
	s.logger.Debug("recent queries loaded", "count", len(events))
	return events, nil
}
