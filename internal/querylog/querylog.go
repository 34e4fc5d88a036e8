// Package querylog keeps a history of answered queries for the
// /api/v1/queries/recent endpoint. PGStore persists it in PostgreSQL;
// Ring keeps the most recent entries in memory when no database is
// configured.
package querylog

import (
	"context"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/analytics"
)

// Log records search events and lists them newest first.
type Log interface {
	Record(ctx context.Context, event analytics.SearchEvent) error
	Recent(ctx context.Context, limit int) ([]analytics.SearchEvent, error)
}

// Ring is an in-memory Log holding at most its capacity of entries.
type Ring struct {
	mu      sync.Mutex
	entries []analytics.SearchEvent
	next    int
	full    bool
}

func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 1000
	}
	return &Ring{entries: make([]analytics.SearchEvent, capacity)}
}

func (r *Ring) Record(_ context.Context, event analytics.SearchEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[r.next] = event
	r.next = (r.next + 1) % len(r.entries)
	if r.next == 0 {
		r.full = true
	}
	return nil
}

func (r *Ring) Recent(_ context.Context, limit int) ([]analytics.SearchEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	size := r.next
	if r.full {
		size = len(r.entries)
	}
	if limit <= 0 || limit > size {
		limit = size
	}
	out := make([]analytics.SearchEvent, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (r.next - i + len(r.entries)) % len(r.entries)
		out = append(out, r.entries[idx])
	}
	return out, nil
}
