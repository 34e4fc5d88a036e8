// Package segment persists an inverted index and its per-document term
// counts as a two-section, line-oriented text file and reads it back.
//
//	Inverted Index:
//	<term>: <docID>, <docID>, ...
//
//	Document Word Counts:
//	<docID>: {'<term>': <count>, ...}
package segment

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/indexer/index"
)

const (
	InvertedIndexHeader = "Inverted Index:"
	WordCountsHeader    = "Document Word Counts:"

	postingsSep = ", "
	keySep      = ": "
)

// Stats describes a persisted index file.
type Stats struct {
	Terms       int
	Documents   int
	Bytes       int64
	Fingerprint string
}

// Encode writes idx and counts to w. Terms, document IDs and count keys are
// emitted in ascending order so equal indexes encode to identical bytes.
func Encode(w io.Writer, idx *index.InvertedIndex, counts index.DocumentCounts) error {
	docIDs := counts.DocIDs()
	for _, id := range docIDs {
		if err := CheckDocID(id); err != nil {
			return err
		}
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, InvertedIndexHeader)
	for _, entry := range idx.Snapshot() {
		fmt.Fprintf(bw, "%s%s%s\n", entry.Term, keySep, strings.Join(entry.DocIDs, postingsSep))
	}
	fmt.Fprintln(bw)
	fmt.Fprintln(bw, WordCountsHeader)
	for _, id := range docIDs {
		fmt.Fprintf(bw, "%s%s%s\n", id, keySep, formatCounts(counts[id]))
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}
	return nil
}

// CheckDocID rejects document IDs the index format cannot read back
// unambiguously.
func CheckDocID(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("cannot encode empty document ID")
	case strings.ContainsAny(id, "\r\n"):
		return fmt.Errorf("document ID %q contains a line break", id)
	case strings.Contains(id, postingsSep), strings.Contains(id, keySep):
		return fmt.Errorf("document ID %q contains a reserved separator", id)
	case strings.TrimSpace(id) != id:
		return fmt.Errorf("document ID %q has surrounding whitespace", id)
	}
	return nil
}

// WriteFile atomically writes the index to path. It writes to a .tmp file
// first and renames on success.
func WriteFile(path string, idx *index.InvertedIndex, counts index.DocumentCounts) (Stats, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return Stats{}, fmt.Errorf("creating index directory: %w", err)
		}
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return Stats{}, fmt.Errorf("creating temp index file: %w", err)
	}
	defer os.Remove(tmpPath)
	defer f.Close()

	h := sha256.New()
	cw := &countingWriter{w: io.MultiWriter(f, h)}
	if err := Encode(cw, idx, counts); err != nil {
		return Stats{}, err
	}
	if err := f.Sync(); err != nil {
		return Stats{}, fmt.Errorf("syncing index file: %w", err)
	}
	if err := f.Close(); err != nil {
		return Stats{}, fmt.Errorf("closing index file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return Stats{}, fmt.Errorf("renaming index file: %w", err)
	}
	return Stats{
		Terms:       idx.Len(),
		Documents:   len(counts),
		Bytes:       cw.n,
		Fingerprint: fingerprint(h.Sum(nil)),
	}, nil
}

func fingerprint(sum []byte) string {
	return hex.EncodeToString(sum[:8])
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// Fingerprint returns the fingerprint WriteFile would report for idx and
// counts without touching disk.
func Fingerprint(idx *index.InvertedIndex, counts index.DocumentCounts) (string, error) {
	h := sha256.New()
	if err := Encode(h, idx, counts); err != nil {
		return "", err
	}
	return fingerprint(h.Sum(nil)), nil
}
