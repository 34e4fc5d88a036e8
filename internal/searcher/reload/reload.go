// Package reload keeps a running searcher in step with the indexer: each
// index.built event makes it load the announced index file.
package reload

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/pkg/kafka"
)

// Loader is satisfied by *indexer.Engine.
type Loader interface {
	Snapshot() *indexer.Snapshot
	Load(path string) (*indexer.Snapshot, error)
}

// Invalidator is satisfied by *cache.QueryCache.
type Invalidator interface {
	Invalidate(ctx context.Context) (int64, error)
}

// Handler returns a kafka.MessageHandler for index.built events. Events
// without an index path fall back to defaultPath; events for the index
// already active are ignored. inv may be nil.
func Handler(loader Loader, inv Invalidator, defaultPath string) kafka.MessageHandler {
	logger := slog.Default().With("component", "index-reloader")
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[analytics.IndexBuiltEvent](value)
		if err != nil {
			return err
		}
		if cur := loader.Snapshot(); cur != nil && event.Fingerprint != "" && cur.Fingerprint == event.Fingerprint {
			logger.Debug("index already active", "fingerprint", event.Fingerprint)
			return nil
		}
		path := event.IndexPath
		if path == "" {
			path = defaultPath
		}
		snap, err := loader.Load(path)
		if err != nil {
			return fmt.Errorf("reloading index from %s: %w", path, err)
		}
		if event.Fingerprint != "" && snap.Fingerprint != event.Fingerprint {
			logger.Warn("loaded index differs from announced build",
				"announced", event.Fingerprint,
				"loaded", snap.Fingerprint,
			)
		}
		logger.Info("index reloaded",
			"path", path,
			"fingerprint", snap.Fingerprint,
			"documents", snap.TotalDocs,
		)
		if inv != nil {
			if _, err := inv.Invalidate(ctx); err != nil {
				logger.Warn("cache invalidation after reload failed", "error", err)
			}
		}
		return nil
	}
}
