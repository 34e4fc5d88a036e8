// Command query answers a single free-text query against the index and
// prints the champions list.
//
//	query [-config file] [-top-n N] [-alpha A] [-rebuild] words...
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/pkg/logger"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	topN := flag.String("top-n", "", "maximum number of results (default search.topN)")
	alpha := flag.String("alpha", "", "minimum similarity score (default search.alpha)")
	rebuild := flag.Bool("rebuild", false, "rebuild the index from the corpus before querying")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	// keep stdout for results
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	params, err := parser.ParseParams(*topN, *alpha,
		parser.Params{Alpha: cfg.Search.Alpha, TopN: cfg.Search.TopN}, cfg.Search.MaxTopN)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	result, err := run(context.Background(), cfg, strings.Join(flag.Args(), " "), params, *rebuild)
	if err != nil {
		slog.Error("query failed", "error", err)
		os.Exit(1)
	}
	printResults(os.Stdout, result)
}

func run(ctx context.Context, cfg *config.Config, query string, params parser.Params, rebuild bool) (*executor.SearchResult, error) {
	normalizer, err := tokenizer.FromConfig(cfg.Tokenizer)
	if err != nil {
		return nil, err
	}
	engine := indexer.NewEngine(normalizer, indexer.Options{
		Extensions: cfg.Corpus.Extensions,
		Workers:    cfg.Indexer.Workers,
	}, nil)
	if _, err := engine.LoadOrBuild(ctx, cfg.Indexer.IndexPath, cfg.Corpus.Path, rebuild); err != nil {
		return nil, err
	}
	mode, err := ranker.ParseMode(cfg.Search.Scoring)
	if err != nil {
		return nil, err
	}
	return executor.New(engine, mode).Execute(ctx, parser.Parse(query, normalizer), params)
}

func printResults(w io.Writer, result *executor.SearchResult) {
	if result.Outcome != executor.OutcomeMatched {
		fmt.Fprintln(w, "No matching documents found.")
		return
	}
	fmt.Fprintln(w, "Search Results:")
	for _, doc := range result.Results {
		fmt.Fprintf(w, "Document ID: %s, Score: %s\n", doc.DocID, formatScore(doc.Score))
	}
}

// formatScore renders v the way the original tool printed floats: shortest
// round-trip digits, always with a fractional part in the fixed range.
func formatScore(v float64) string {
	abs := math.Abs(v)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
