// Package indexer builds, persists and reloads the search index. The
// resulting Snapshot is immutable and shared by all concurrent queries.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/indexer/corpus"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/indexer/tfidf"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/pkg/metrics"
)

const (
	SourceBuild = "build"
	SourceFile  = "file"
)

// Snapshot is a complete, validated index with its TF-IDF vectors. It is
// never modified after creation.
type Snapshot struct {
	Index       *index.InvertedIndex
	Counts      index.DocumentCounts
	Vectors     map[string]tfidf.Vector
	TotalDocs   int
	Fingerprint string
	Source      string
	CreatedAt   time.Time
}

// Stats summarises a snapshot for health and stats endpoints.
type Stats struct {
	Terms       int       `json:"terms"`
	Documents   int       `json:"documents"`
	Fingerprint string    `json:"fingerprint"`
	Source      string    `json:"source"`
	CreatedAt   time.Time `json:"created_at"`
}

func (s *Snapshot) Stats() Stats {
	return Stats{
		Terms:       s.Index.Len(),
		Documents:   s.TotalDocs,
		Fingerprint: s.Fingerprint,
		Source:      s.Source,
		CreatedAt:   s.CreatedAt,
	}
}

// Options configures corpus reading.
type Options struct {
	Extensions []string
	Workers    int
}

type Engine struct {
	normalizer *tokenizer.Normalizer
	opts       Options
	metrics    *metrics.Metrics
	logger     *slog.Logger
	current    atomic.Pointer[Snapshot]
}

// NewEngine returns an engine with no active snapshot. m may be nil.
func NewEngine(n *tokenizer.Normalizer, opts Options, m *metrics.Metrics) *Engine {
	return &Engine{
		normalizer: n,
		opts:       opts,
		metrics:    m,
		logger:     slog.Default().With("component", "indexer"),
	}
}

// Normalizer returns the normalizer used for documents; queries must use
// the same one.
func (e *Engine) Normalizer() *tokenizer.Normalizer {
	return e.normalizer
}

// Snapshot returns the active snapshot, or nil before the first successful
// Build or Load.
func (e *Engine) Snapshot() *Snapshot {
	return e.current.Load()
}

// Build indexes every document in dir and activates the result. On error
// the previously active snapshot stays in place.
func (e *Engine) Build(ctx context.Context, dir string) (*Snapshot, error) {
	start := time.Now()
	res, err := corpus.Read(ctx, dir, e.normalizer, corpus.Options{
		Extensions: e.opts.Extensions,
		Workers:    e.opts.Workers,
	})
	if err != nil {
		e.observe(SourceBuild, start, err)
		return nil, fmt.Errorf("building index from %s: %w", dir, err)
	}
	idx := index.Build(res.Counts)
	snap, err := e.activate(idx, res.Counts, SourceBuild, "")
	e.observe(SourceBuild, start, err)
	if err != nil {
		return nil, fmt.Errorf("building index from %s: %w", dir, err)
	}
	if e.metrics != nil {
		e.metrics.DocsIndexedTotal.Add(float64(res.Files))
	}
	e.logger.Info("index built",
		"dir", dir,
		"documents", snap.TotalDocs,
		"terms", snap.Index.Len(),
		"collisions", len(res.Collisions),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return snap, nil
}

// Load reads a persisted index and activates it. A malformed file leaves the
// previously active snapshot in place.
func (e *Engine) Load(path string) (*Snapshot, error) {
	start := time.Now()
	contents, err := segment.ReadFile(path)
	if err != nil {
		e.observe(SourceFile, start, err)
		return nil, err
	}
	snap, err := e.activate(contents.Index, contents.Counts, SourceFile, contents.Stats.Fingerprint)
	e.observe(SourceFile, start, err)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	e.logger.Info("index loaded",
		"path", path,
		"documents", snap.TotalDocs,
		"terms", snap.Index.Len(),
		"bytes", contents.Stats.Bytes,
	)
	return snap, nil
}

// Save persists the active snapshot to path.
func (e *Engine) Save(path string) (segment.Stats, error) {
	snap := e.Snapshot()
	if snap == nil {
		return segment.Stats{}, fmt.Errorf("saving index: no index has been built or loaded")
	}
	stats, err := segment.WriteFile(path, snap.Index, snap.Counts)
	if err != nil {
		return segment.Stats{}, fmt.Errorf("saving index to %s: %w", path, err)
	}
	e.logger.Info("index saved",
		"path", path,
		"terms", stats.Terms,
		"documents", stats.Documents,
		"bytes", stats.Bytes,
	)
	return stats, nil
}

// LoadOrBuild loads indexPath when it exists and rebuild is false.
// Otherwise it builds from corpusDir and saves the result to indexPath.
func (e *Engine) LoadOrBuild(ctx context.Context, indexPath, corpusDir string, rebuild bool) (*Snapshot, error) {
	if !rebuild {
		_, err := os.Stat(indexPath)
		switch {
		case err == nil:
			return e.Load(indexPath)
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("checking index file %s: %w", indexPath, err)
		}
		e.logger.Info("no index file, building from corpus", "path", indexPath, "corpus", corpusDir)
	}
	snap, err := e.Build(ctx, corpusDir)
	if err != nil {
		return nil, err
	}
	if _, err := e.Save(indexPath); err != nil {
		return nil, err
	}
	return snap, nil
}

func (e *Engine) activate(idx *index.InvertedIndex, counts index.DocumentCounts, source, fp string) (*Snapshot, error) {
	if err := index.Validate(idx, counts); err != nil {
		return nil, fmt.Errorf("inconsistent index: %w", err)
	}
	if fp == "" {
		var err error
		fp, err = segment.Fingerprint(idx, counts)
		if err != nil {
			return nil, fmt.Errorf("fingerprinting index: %w", err)
		}
	}
	total := len(counts)
	snap := &Snapshot{
		Index:       idx,
		Counts:      counts,
		Vectors:     tfidf.ComputeVectors(idx, counts, total),
		TotalDocs:   total,
		Fingerprint: fp,
		Source:      source,
		CreatedAt:   time.Now().UTC(),
	}
	e.current.Store(snap)
	if e.metrics != nil {
		e.metrics.IndexTerms.Set(float64(idx.Len()))
		e.metrics.IndexDocuments.Set(float64(total))
	}
	return snap, nil
}

func (e *Engine) observe(source string, start time.Time, err error) {
	if e.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	e.metrics.IndexLoadsTotal.WithLabelValues(source, status).Inc()
	e.metrics.IndexBuildDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
}
