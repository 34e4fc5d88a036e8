// Package handler serves the search HTTP API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/querylog"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/vector-space-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/pkg/middleware"
)

// NoResultsMessage accompanies responses whose outcome is not "matched".
const NoResultsMessage = "No matching documents found."

const (
	defaultRecentLimit = 20
	maxRecentLimit     = 500
	queryLogTimeout    = 500 * time.Millisecond
)

// Index is the live index the handler queries.
type Index interface {
	Snapshot() *indexer.Snapshot
	Normalizer() *tokenizer.Normalizer
}

// Options carries query defaults from configuration.
type Options struct {
	Defaults parser.Params
	MaxTopN  int
}

// Deps groups the handler's optional collaborators; nil fields disable the
// corresponding feature.
type Deps struct {
	Cache     *cache.QueryCache
	Collector *analytics.Collector
	QueryLog  querylog.Log
	Metrics   *metrics.Metrics
}

type Handler struct {
	index    Index
	executor *executor.Executor
	opts     Options
	deps     Deps
	logger   *slog.Logger
}

func New(index Index, exec *executor.Executor, opts Options, deps Deps) *Handler {
	return &Handler{
		index:    index,
		executor: exec,
		opts:     opts,
		deps:     deps,
		logger:   slog.Default().With("component", "search-handler"),
	}
}

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/index/stats", h.IndexStats)
	mux.HandleFunc("GET /api/v1/queries/recent", h.RecentQueries)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

// SearchResponse is the JSON body of GET /api/v1/search.
type SearchResponse struct {
	*executor.SearchResult
	Mode      string  `json:"mode"`
	CacheHit  bool    `json:"cache_hit"`
	LatencyMs float64 `json:"latency_ms"`
	Message   string  `json:"message,omitempty"`
}

// Search answers GET /api/v1/search?q=&top_n=&alpha=. An empty or
// all-stop-word query is not an error; it has outcome no_results.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)
	q := r.URL.Query()

	params, err := parser.ParseParams(q.Get("top_n"), q.Get("alpha"), h.opts.Defaults, h.opts.MaxTopN)
	if err != nil {
		h.observe("error", "none", 0, start)
		h.writeError(w, err)
		return
	}
	query := q.Get("q")
	plan := parser.Parse(query, h.index.Normalizer())

	result, cacheStatus, err := h.execute(ctx, plan, params)
	if err != nil {
		h.observe("error", cacheStatus, 0, start)
		log.Error("search failed", "query", query, "error", err)
		h.writeError(w, err)
		return
	}

	latency := time.Since(start)
	latencyMs := float64(latency.Microseconds()) / 1000
	resp := SearchResponse{
		SearchResult: result,
		Mode:         string(h.executor.Mode()),
		CacheHit:     cacheStatus == "hit",
		LatencyMs:    latencyMs,
	}
	if result.Outcome != executor.OutcomeMatched {
		resp.Message = NoResultsMessage
	}
	h.observe(string(result.Outcome), cacheStatus, len(result.Results), start)
	log.Info("search completed",
		"query", query,
		"outcome", result.Outcome,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache", cacheStatus,
		"latency_ms", latencyMs,
	)

	event := analytics.SearchEvent{
		Type:        analytics.EventSearch,
		RequestID:   middleware.GetRequestID(r),
		Query:       query,
		Terms:       plan.Terms,
		Outcome:     string(result.Outcome),
		TotalHits:   result.TotalHits,
		Returned:    len(result.Results),
		Alpha:       params.Alpha,
		TopN:        params.TopN,
		Mode:        resp.Mode,
		CacheHit:    resp.CacheHit,
		LatencyMs:   latencyMs,
		Fingerprint: result.Fingerprint,
		Timestamp:   time.Now().UTC(),
	}
	if h.deps.Collector != nil {
		h.deps.Collector.Track(event)
	}
	if h.deps.QueryLog != nil {
		logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), queryLogTimeout)
		if err := h.deps.QueryLog.Record(logCtx, event); err != nil {
			log.Warn("query log write failed", "error", err)
		}
		cancel()
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// execute runs plan through the cache when one is configured. The returned
// status is "hit", "miss" or "disabled".
func (h *Handler) execute(ctx context.Context, plan *parser.QueryPlan, params parser.Params) (*executor.SearchResult, string, error) {
	snap := h.index.Snapshot()
	if h.deps.Cache == nil || snap == nil {
		result, err := h.executor.Execute(ctx, plan, params)
		return result, "disabled", err
	}
	req := cache.Request{
		Fingerprint: snap.Fingerprint,
		Plan:        plan,
		Params:      params,
		Mode:        h.executor.Mode(),
	}
	result, hit, err := h.deps.Cache.GetOrCompute(ctx, req, func() (*executor.SearchResult, error) {
		return h.executor.Execute(ctx, plan, params)
	})
	if hit {
		return result, "hit", err
	}
	return result, "miss", err
}

func (h *Handler) observe(outcome, cacheStatus string, returned int, start time.Time) {
	m := h.deps.Metrics
	if m == nil {
		return
	}
	m.SearchQueriesTotal.WithLabelValues(outcome).Inc()
	m.SearchLatency.WithLabelValues(cacheStatus).Observe(time.Since(start).Seconds())
	if outcome != "error" {
		m.SearchResultsCount.Observe(float64(returned))
	}
}

// IndexStatsResponse is the JSON body of GET /api/v1/index/stats.
type IndexStatsResponse struct {
	indexer.Stats
	Mode      string `json:"mode"`
	StopWords int    `json:"stop_words"`
	Stemmer   string `json:"stemmer"`
}

func (h *Handler) IndexStats(w http.ResponseWriter, r *http.Request) {
	snap := h.index.Snapshot()
	if snap == nil {
		h.writeError(w, apperrors.ErrIndexNotReady)
		return
	}
	n := h.index.Normalizer()
	h.writeJSON(w, http.StatusOK, IndexStatsResponse{
		Stats:     snap.Stats(),
		Mode:      string(h.executor.Mode()),
		StopWords: len(n.StopWords()),
		Stemmer:   n.StemmerName(),
	})
}

// RecentQueries answers GET /api/v1/queries/recent?limit=.
func (h *Handler) RecentQueries(w http.ResponseWriter, r *http.Request) {
	if h.deps.QueryLog == nil {
		h.writeMessage(w, http.StatusServiceUnavailable, "query log is disabled")
		return
	}
	limit := defaultRecentLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			h.writeError(w, apperrors.InvalidParam("limit", "must be a positive integer"))
			return
		}
		limit = min(n, maxRecentLimit)
	}
	events, err := h.deps.QueryLog.Recent(r.Context(), limit)
	if err != nil {
		h.logger.Error("listing recent queries failed", "error", err)
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(events),
		"queries": events,
	})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.deps.Cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	stats, err := h.deps.Cache.Stats(r.Context())
	if err != nil {
		h.logger.Error("cache stats failed", "error", err)
		h.writeError(w, err)
		return
	}
	total := stats.Hits + stats.Misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(stats.Hits) / float64(total)
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":   "enabled",
		"hits":     stats.Hits,
		"misses":   stats.Misses,
		"keys":     stats.Keys,
		"hit_rate": hitRate,
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.deps.Cache == nil {
		h.writeMessage(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	deleted, err := h.deps.Cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

// writeError maps err to a status code. Only AppError messages are shown
// to the caller; other errors are reported generically.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	message := http.StatusText(status)
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		message = appErr.Error()
	case errors.Is(err, apperrors.ErrIndexNotReady):
		message = apperrors.ErrIndexNotReady.Error()
	}
	h.writeMessage(w, status, message)
}

func (h *Handler) writeMessage(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
