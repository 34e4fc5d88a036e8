// Package cache stores champions lists in Redis. Keys are namespaced by
// the index fingerprint, so a rebuilt or reloaded index never serves
// results computed against an older one.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/vector-space-search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/pkg/resilience"
)

const keyPrefix = "search:"

// Store is the subset of the Redis client the cache needs.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
	CountByPattern(ctx context.Context, pattern string) (int64, error)
}

// Stats reports cache effectiveness since start-up.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Keys   int64 `json:"keys"`
}

type QueryCache struct {
	store   Store
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New returns a cache over store. m may be nil.
func New(store Store, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		store:   store,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

// Request identifies one cacheable query.
type Request struct {
	Fingerprint string
	Plan        *parser.QueryPlan
	Params      parser.Params
	Mode        ranker.Mode
}

func (c *QueryCache) Get(ctx context.Context, req Request) (*executor.SearchResult, bool) {
	key := buildKey(req)
	data, err := c.store.Get(ctx, key)
	if err != nil {
		switch {
		case pkgredis.IsNilError(err):
		case errors.Is(err, resilience.ErrCircuitOpen):
			c.logger.Debug("cache bypassed", "reason", err)
		default:
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.miss()
		return nil, false
	}
	var result executor.SearchResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	c.logger.Debug("cache hit", "query", req.Plan.RawQuery, "key", key)
	return &result, true
}

func (c *QueryCache) Set(ctx context.Context, req Request, result *executor.SearchResult) {
	key := buildKey(req)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for req, or runs compute once for
// all concurrent callers with the same key and caches its result. The
// boolean reports a cache hit. A result computed against a different
// index than req.Fingerprint is returned but not cached.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	req Request,
	compute func() (*executor.SearchResult, error),
) (*executor.SearchResult, bool, error) {
	if result, ok := c.Get(ctx, req); ok {
		result.Query = req.Plan.RawQuery
		return result, true, nil
	}
	val, err, _ := c.group.Do(buildKey(req), func() (any, error) {
		result, err := compute()
		if err != nil {
			return nil, err
		}
		if result.Fingerprint == req.Fingerprint {
			c.Set(ctx, req, result)
		}
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	// shared callers may differ in raw query text
	result := *val.(*executor.SearchResult)
	result.Query = req.Plan.RawQuery
	return &result, false, nil
}

// Invalidate drops every cached result.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.store.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats(ctx context.Context) (Stats, error) {
	keys, err := c.store.CountByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return Stats{}, fmt.Errorf("counting cache keys: %w", err)
	}
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load(), Keys: keys}, nil
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

// buildKey hashes everything that affects the champions list. Queries that
// normalise to the same vector share a key.
func buildKey(req Request) string {
	raw := fmt.Sprintf("%s|alpha=%s|top=%d|%s",
		req.Mode,
		strconv.FormatFloat(req.Params.Alpha, 'g', -1, 64),
		req.Params.TopN,
		req.Plan.Key(),
	)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%s:%x", keyPrefix, req.Fingerprint, hash[:16])
}
