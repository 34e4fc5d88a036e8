package analytics

import (
	"maps"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	maxLatencySamples = 10000
	topQueriesLimit   = 10
	maxTopQueries     = 100
)

// AggregatedStats summarises search traffic since start-up.
type AggregatedStats struct {
	TotalSearches    int64        `json:"total_searches"`
	CacheHits        int64        `json:"cache_hits"`
	CacheMisses      int64        `json:"cache_misses"`
	NoResultCount    int64        `json:"no_result_count"`
	AvgLatencyMs     float64      `json:"avg_latency_ms"`
	P50LatencyMs     float64      `json:"p50_latency_ms"`
	P95LatencyMs     float64      `json:"p95_latency_ms"`
	P99LatencyMs     float64      `json:"p99_latency_ms"`
	TopQueries       []QueryCount `json:"top_queries"`
	NoResultQueries  []QueryCount `json:"no_result_queries"`
	QueriesPerMinute float64      `json:"queries_per_minute"`
	CacheHitRate     float64      `json:"cache_hit_rate"`
	// Outcomes counts searches by executor outcome (matched, no_results,
	// empty_index).
	Outcomes map[string]int64 `json:"outcomes"`
	// Modes counts searches by scoring mode.
	Modes map[string]int64 `json:"modes"`
	// IndexFingerprint is the index the most recent search ran against.
	IndexFingerprint string `json:"index_fingerprint,omitempty"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Aggregator keeps in-memory search statistics. Latency percentiles are
// computed over the most recent samples only.
type Aggregator struct {
	mu              sync.Mutex
	totalSearches   int64
	cacheHits       int64
	cacheMisses     int64
	noResults       int64
	latencies       []float64
	next            int
	queryCounts     map[string]int64
	noResultQueries map[string]int64
	outcomes        map[string]int64
	modes           map[string]int64
	fingerprint     string
	startTime       time.Time
	now             func() time.Time
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:       make([]float64, 0, 1024),
		queryCounts:     make(map[string]int64),
		noResultQueries: make(map[string]int64),
		outcomes:        make(map[string]int64),
		modes:           make(map[string]int64),
		startTime:       time.Now(),
		now:             time.Now,
	}
}

func (a *Aggregator) Record(event SearchEvent) {
	query := strings.ToLower(strings.TrimSpace(event.Query))

	a.mu.Lock()
	defer a.mu.Unlock()
	a.totalSearches++
	if event.CacheHit {
		a.cacheHits++
	} else {
		a.cacheMisses++
	}
	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, event.LatencyMs)
	} else {
		a.latencies[a.next] = event.LatencyMs
		a.next = (a.next + 1) % maxLatencySamples
	}
	a.queryCounts[query]++
	if event.TotalHits == 0 {
		a.noResults++
		a.noResultQueries[query]++
	}
	if event.Outcome != "" {
		a.outcomes[event.Outcome]++
	}
	if event.Mode != "" {
		a.modes[event.Mode]++
	}
	if event.Fingerprint != "" {
		a.fingerprint = event.Fingerprint
	}
}

func (a *Aggregator) Stats() AggregatedStats {
	return a.StatsTop(topQueriesLimit)
}

// StatsTop is Stats with at most top entries in each query ranking.
func (a *Aggregator) StatsTop(top int) AggregatedStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	stats := AggregatedStats{
		TotalSearches:    a.totalSearches,
		CacheHits:        a.cacheHits,
		CacheMisses:      a.cacheMisses,
		NoResultCount:    a.noResults,
		Outcomes:         maps.Clone(a.outcomes),
		Modes:            maps.Clone(a.modes),
		IndexFingerprint: a.fingerprint,
	}
	if a.totalSearches > 0 {
		stats.CacheHitRate = float64(a.cacheHits) / float64(a.totalSearches)
	}
	if len(a.latencies) > 0 {
		sorted := make([]float64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Float64s(sorted)

		var sum float64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = sum / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopQueries = topQueries(a.queryCounts, top)
	stats.NoResultQueries = topQueries(a.noResultQueries, top)
	if elapsed := a.now().Sub(a.startTime).Minutes(); elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalSearches) / elapsed
	}
	return stats
}

func percentile(sorted []float64, pct int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func topQueries(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
