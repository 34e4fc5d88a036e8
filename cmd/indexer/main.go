package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/pkg/logger"
	pkgredis "github.com/Adithya-Monish-Kumar-K/vector-space-search/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	corpusDir := flag.String("corpus", "", "corpus directory (overrides corpus.path)")
	indexPath := flag.String("out", "", "index file to write (overrides indexer.indexPath)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *corpusDir != "" {
		cfg.Corpus.Path = *corpusDir
	}
	if *indexPath != "" {
		cfg.Indexer.IndexPath = *indexPath
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting index build",
		"corpus", cfg.Corpus.Path,
		"index", cfg.Indexer.IndexPath,
		"stemmer", cfg.Tokenizer.Stemmer,
		"workers", cfg.Indexer.Workers,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("index build failed", "error", err)
		os.Exit(1)
	}
	fmt.Println("Indexes saved successfully.")
}

func run(ctx context.Context, cfg *config.Config) error {
	start := time.Now()
	normalizer, err := tokenizer.FromConfig(cfg.Tokenizer)
	if err != nil {
		return err
	}
	engine := indexer.NewEngine(normalizer, indexer.Options{
		Extensions: cfg.Corpus.Extensions,
		Workers:    cfg.Indexer.Workers,
	}, nil)

	snap, err := engine.Build(ctx, cfg.Corpus.Path)
	if err != nil {
		return err
	}
	stats, err := engine.Save(cfg.Indexer.IndexPath)
	if err != nil {
		return err
	}
	slog.Info("index written",
		"path", cfg.Indexer.IndexPath,
		"documents", snap.TotalDocs,
		"terms", stats.Terms,
		"bytes", stats.Bytes,
		"fingerprint", stats.Fingerprint,
		"duration", time.Since(start).Round(time.Millisecond),
	)

	// Notifications are best effort: the index file is already in place.
	if cfg.Kafka.Enabled {
		publishBuilt(ctx, cfg, analytics.IndexBuiltEvent{
			Type:        analytics.EventIndexBuilt,
			Fingerprint: stats.Fingerprint,
			IndexPath:   cfg.Indexer.IndexPath,
			Documents:   stats.Documents,
			Terms:       stats.Terms,
			Bytes:       stats.Bytes,
			DurationMs:  time.Since(start).Milliseconds(),
			Timestamp:   time.Now().UTC(),
		})
	}
	if cfg.Redis.Enabled {
		invalidateCache(ctx, cfg.Redis)
	}
	return nil
}

func publishBuilt(ctx context.Context, cfg *config.Config, event analytics.IndexBuiltEvent) {
	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexBuilt)
	defer producer.Close()
	pubCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := producer.Publish(pubCtx, kafka.Event{Key: event.Fingerprint, Value: event}); err != nil {
		slog.Warn("index.built event not published", "error", err)
		return
	}
	slog.Info("index.built event published", "topic", cfg.Kafka.Topics.IndexBuilt)
}

func invalidateCache(ctx context.Context, cfg config.RedisConfig) {
	client, err := pkgredis.NewClient(ctx, cfg)
	if err != nil {
		slog.Warn("redis unavailable, query cache not invalidated", "error", err)
		return
	}
	defer client.Close()
	if _, err := cache.New(client, cfg.CacheTTL, nil).Invalidate(ctx); err != nil {
		slog.Warn("query cache invalidation failed", "error", err)
	}
}
