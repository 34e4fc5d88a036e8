package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/querylog"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/searcher/reload"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/vector-space-search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/pkg/resilience"
)

const recentQueryCapacity = 1000

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	rebuild := flag.Bool("rebuild", false, "rebuild the index from the corpus even if an index file exists")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service",
		"port", cfg.Server.Port,
		"scoring", cfg.Search.Scoring,
		"alpha", cfg.Search.Alpha,
		"top_n", cfg.Search.TopN,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)

	normalizer, err := tokenizer.FromConfig(cfg.Tokenizer)
	if err != nil {
		slog.Error("failed to initialise tokenizer", "error", err)
		os.Exit(1)
	}
	engine := indexer.NewEngine(normalizer, indexer.Options{
		Extensions: cfg.Corpus.Extensions,
		Workers:    cfg.Indexer.Workers,
	}, m)
	if _, err := engine.LoadOrBuild(ctx, cfg.Indexer.IndexPath, cfg.Corpus.Path, *rebuild); err != nil {
		slog.Error("failed to prepare index", "error", err)
		os.Exit(1)
	}

	mode, err := ranker.ParseMode(cfg.Search.Scoring)
	if err != nil {
		slog.Error("invalid scoring mode", "error", err)
		os.Exit(1)
	}
	exec := executor.New(engine, mode)

	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		snap := engine.Snapshot()
		if snap == nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: "no index loaded"}
		}
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d documents, %d terms", snap.TotalDocs, snap.Index.Len()),
		}
	})

	var queryCache *cache.QueryCache
	if cfg.Redis.Enabled {
		var redisClient *pkgredis.Client
		err := resilience.Retry(ctx, "redis connect", resilience.RetryConfig{}, func() error {
			var err error
			redisClient, err = pkgredis.NewClient(ctx, cfg.Redis)
			return err
		})
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(cache.Guard(redisClient, cache.NewBreaker(m)), cfg.Redis.CacheTTL, m)
			checker.Register("redis", health.PingCheck(redisClient.Ping, false))
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	var queryLog querylog.Log = querylog.NewRing(recentQueryCapacity)
	if cfg.Postgres.Enabled {
		var db *postgres.Client
		err := resilience.Retry(ctx, "postgres connect", resilience.RetryConfig{}, func() error {
			var err error
			db, err = postgres.New(ctx, cfg.Postgres)
			return err
		})
		if err != nil {
			slog.Warn("postgres unavailable, keeping query log in memory", "error", err)
		} else {
			defer db.Close()
			store := querylog.NewPGStore(db, m)
			if err := store.EnsureSchema(ctx); err != nil {
				slog.Warn("query log schema setup failed, keeping query log in memory", "error", err)
			} else {
				queryLog = store
				checker.Register("postgres", health.PingCheck(db.Ping, false))
				slog.Info("query log persisted to postgres", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
			}
		}
	}

	var publisher analytics.Publisher
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.SearchEvents)
		defer producer.Close()
		publisher = producer

		var inv reload.Invalidator
		if queryCache != nil {
			inv = queryCache
		}
		consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.IndexBuilt,
			reload.Handler(engine, inv, cfg.Indexer.IndexPath))
		go func() {
			if err := consumer.Start(ctx); err != nil {
				slog.Error("index.built consumer error", "error", err)
			}
		}()
		slog.Info("kafka enabled",
			"search_events", cfg.Kafka.Topics.SearchEvents,
			"index_built", cfg.Kafka.Topics.IndexBuilt,
		)
	}
	aggregator := analytics.NewAggregator()
	collector := analytics.NewCollector(publisher, aggregator, 10000)
	collector.Start(ctx)
	defer collector.Close()

	h := handler.New(engine, exec, handler.Options{
		Defaults: parser.Params{Alpha: cfg.Search.Alpha, TopN: cfg.Search.TopN},
		MaxTopN:  cfg.Search.MaxTopN,
	}, handler.Deps{
		Cache:     queryCache,
		Collector: collector,
		QueryLog:  queryLog,
		Metrics:   m,
	})

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /api/v1/analytics/stats", analytics.NewHandler(aggregator).Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var limiter *middleware.Limiter
	if cfg.Server.RateLimit > 0 {
		limiter = middleware.NewLimiter(cfg.Server.RateLimit)
	}
	chain := middleware.Chain(mux,
		middleware.RequestID,
		middleware.CORS(cfg.Server.CORSOrigins),
		middleware.Metrics(m),
		middleware.RateLimit(limiter),
		middleware.Timeout(cfg.Server.WriteTimeout),
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, prometheus.DefaultGatherer)
		defer shutdownMetrics(context.Background())
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	// in-flight requests still track analytics until Shutdown returns
	<-shutdownDone

	slog.Info("search service stopped")
}
