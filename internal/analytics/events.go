package analytics

import "time"

type EventType string

const (
	EventSearch     EventType = "search"
	EventIndexBuilt EventType = "index_built"
)

// SearchEvent describes one answered query.
type SearchEvent struct {
	Type        EventType `json:"type"`
	RequestID   string    `json:"request_id,omitempty"`
	Query       string    `json:"query"`
	Terms       []string  `json:"terms"`
	Outcome     string    `json:"outcome"`
	TotalHits   int       `json:"total_hits"`
	Returned    int       `json:"returned"`
	Alpha       float64   `json:"alpha"`
	TopN        int       `json:"top_n"`
	Mode        string    `json:"mode"`
	CacheHit    bool      `json:"cache_hit"`
	LatencyMs   float64   `json:"latency_ms"`
	Fingerprint string    `json:"index_fingerprint"`
	Timestamp   time.Time `json:"timestamp"`
}

// IndexBuiltEvent announces a freshly written index file. Searchers that
// can read IndexPath reload from it.
type IndexBuiltEvent struct {
	Type        EventType `json:"type"`
	Fingerprint string    `json:"fingerprint"`
	IndexPath   string    `json:"index_path"`
	Documents   int       `json:"documents"`
	Terms       int       `json:"terms"`
	Bytes       int64     `json:"bytes"`
	DurationMs  int64     `json:"duration_ms"`
	Timestamp   time.Time `json:"timestamp"`
}
