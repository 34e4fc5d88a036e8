package cache

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/vector-space-search/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/vector-space-search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/pkg/resilience"
)

// NewBreaker returns a circuit breaker for the cache store. Cache misses do
// not count as failures. State changes are exported through m.
func NewBreaker(m *metrics.Metrics) *resilience.CircuitBreaker {
	return resilience.NewCircuitBreaker("query-cache", resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		IsFailure: func(err error) bool {
			return err != nil && !pkgredis.IsNilError(err)
		},
		OnStateChange: func(name string, to resilience.State) {
			m.SetCircuitState(name, int(to))
		},
	})
}

// Guard wraps store so that while cb is open every call fails fast with
// resilience.ErrCircuitOpen instead of waiting on an unreachable server.
func Guard(store Store, cb *resilience.CircuitBreaker) Store {
	return &guardedStore{store: store, cb: cb}
}

type guardedStore struct {
	store Store
	cb    *resilience.CircuitBreaker
}

func (g *guardedStore) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := g.cb.Execute(func() error {
		var err error
		data, err = g.store.Get(ctx, key)
		return err
	})
	return data, err
}

func (g *guardedStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return g.cb.Execute(func() error {
		return g.store.Set(ctx, key, value, ttl)
	})
}

func (g *guardedStore) FlushByPattern(ctx context.Context, pattern string) (int64, error) {
	var n int64
	err := g.cb.Execute(func() error {
		var err error
		n, err = g.store.FlushByPattern(ctx, pattern)
		return err
	})
	return n, err
}

func (g *guardedStore) CountByPattern(ctx context.Context, pattern string) (int64, error) {
	var n int64
	err := g.cb.Execute(func() error {
		var err error
		n, err = g.store.CountByPattern(ctx, pattern)
		return err
	})
	return n, err
}
