// Package corpus reads a directory of plain-text files and produces the
// per-document term counts the index is built from.
package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/vector-space-search/pkg/errors"
)

// Options controls which files are read and how many are tokenised at once.
type Options struct {
	Extensions []string
	Workers    int
}

// Document is one corpus file after normalisation.
type Document struct {
	ID     string
	Path   string
	Counts index.TermCounts
	Tokens int
}

// Result is the outcome of reading a corpus.
type Result struct {
	Counts     index.DocumentCounts
	Files      int
	Tokens     int
	Collisions []string
}

// DocID derives a document ID from a file name: everything before the
// first '.'.
func DocID(filename string) string {
	id, _, _ := strings.Cut(filename, ".")
	return id
}

// Read tokenises every matching file in dir. Any unreadable or non-UTF-8
// file, or one whose document ID the index file cannot store, aborts the whole read with ErrCorpusRead; no partial result is
// returned. Files are merged in file-name order, so when two files map to
// the same document ID the lexicographically last one wins.
func Read(ctx context.Context, dir string, n *tokenizer.Normalizer, opts Options) (*Result, error) {
	logger := slog.Default().With("component", "corpus")
	paths, err := listFiles(dir, opts.Extensions)
	if err != nil {
		return nil, err
	}

	docs := make([]Document, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	if opts.Workers > 0 {
		g.SetLimit(opts.Workers)
	}
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			doc, err := readDocument(path, n)
			if err != nil {
				return err
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{
		Counts: make(index.DocumentCounts, len(docs)),
		Files:  len(docs),
	}
	owner := make(map[string]string, len(docs))
	for _, doc := range docs {
		if prev, ok := owner[doc.ID]; ok {
			logger.Warn("document ID collision, later file replaces earlier",
				"doc_id", doc.ID,
				"replaced", prev,
				"file", doc.Path,
			)
			result.Collisions = append(result.Collisions, doc.ID)
			result.Tokens -= result.Counts[doc.ID].Total()
		}
		owner[doc.ID] = doc.Path
		result.Counts[doc.ID] = doc.Counts
		result.Tokens += doc.Tokens
	}
	logger.Info("corpus read",
		"dir", dir,
		"files", result.Files,
		"documents", len(result.Counts),
		"tokens", result.Tokens,
	)
	return result, nil
}

func listFiles(dir string, extensions []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: listing %s: %v", apperrors.ErrCorpusRead, dir, err)
	}
	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !hasExtension(entry.Name(), extensions) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

func hasExtension(name string, extensions []string) bool {
	for _, ext := range extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

func readDocument(path string, n *tokenizer.Normalizer) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("%w: reading %s: %v", apperrors.ErrCorpusRead, path, err)
	}
	if !utf8.Valid(data) {
		return Document{}, fmt.Errorf("%w: %s is not valid UTF-8", apperrors.ErrCorpusRead, path)
	}
	id := DocID(filepath.Base(path))
	if err := segment.CheckDocID(id); err != nil {
		return Document{}, fmt.Errorf("%w: %s: %v", apperrors.ErrCorpusRead, path, err)
	}
	counts := index.TermCounts(n.Count(string(data)))
	return Document{
		ID:     id,
		Path:   path,
		Counts: counts,
		Tokens: counts.Total(),
	}, nil
}
