package executor

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/vector-space-search/pkg/errors"
)

// Outcome distinguishes why a query did or did not return champions.
type Outcome string

const (
	// OutcomeMatched means at least one document cleared alpha. The
	// champions list may still be empty when TopN is 0.
	OutcomeMatched Outcome = "matched"
	// OutcomeNoResults means the index has documents but none cleared alpha.
	OutcomeNoResults Outcome = "no_results"
	// OutcomeEmptyIndex means the active index contains no documents.
	OutcomeEmptyIndex Outcome = "empty_index"
)

type SearchResult struct {
	Query       string             `json:"query"`
	Terms       []string           `json:"terms"`
	Outcome     Outcome            `json:"outcome"`
	TotalHits   int                `json:"total_hits"`
	Results     []ranker.ScoredDoc `json:"results"`
	Fingerprint string             `json:"index_fingerprint"`
}

// SnapshotSource supplies the index a query runs against.
type SnapshotSource interface {
	Snapshot() *indexer.Snapshot
}

type Executor struct {
	source SnapshotSource
	mode   ranker.Mode
	logger *slog.Logger
}

func New(source SnapshotSource, mode ranker.Mode) *Executor {
	if mode == "" {
		mode = ranker.ModeCosine
	}
	return &Executor{
		source: source,
		mode:   mode,
		logger: slog.Default().With("component", "query-executor"),
	}
}

// Mode reports the scoring mode in use.
func (e *Executor) Mode() ranker.Mode {
	return e.mode
}

// Execute scores plan against the active snapshot. Documents scoring below
// params.Alpha are dropped and at most params.TopN are returned, best
// first with ties in document-ID order. It only reads the snapshot, so
// any number of queries may run concurrently.
func (e *Executor) Execute(ctx context.Context, plan *parser.QueryPlan, params parser.Params) (*SearchResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	snap := e.source.Snapshot()
	if snap == nil {
		return nil, apperrors.ErrIndexNotReady
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	result := &SearchResult{
		Query:       plan.RawQuery,
		Terms:       plan.Terms,
		Results:     []ranker.ScoredDoc{},
		Fingerprint: snap.Fingerprint,
	}
	if snap.TotalDocs == 0 {
		result.Outcome = OutcomeEmptyIndex
		return result, nil
	}

	scores := ranker.Score(plan.Vector, snap.Index, snap.Vectors, e.mode)
	champions, survivors := ranker.Champions(scores, params.Alpha, params.TopN)
	result.Results = champions
	result.TotalHits = survivors
	if survivors == 0 {
		result.Outcome = OutcomeNoResults
	} else {
		result.Outcome = OutcomeMatched
	}

	e.logger.Debug("query executed",
		"query", plan.RawQuery,
		"terms", plan.Terms,
		"mode", e.mode,
		"candidates", len(scores),
		"survivors", survivors,
		"results", len(champions),
		"duration_us", time.Since(start).Microseconds(),
	)
	return result, nil
}
