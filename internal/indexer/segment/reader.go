package segment

import (
	"bufio"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/vector-space-search/pkg/errors"
)

// FormatError reports a malformed line in a persisted index.
type FormatError struct {
	Section string
	Line    int
	Reason  string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("index format error: %s section, line %d: %s", e.Section, e.Line, e.Reason)
}

func (e *FormatError) Unwrap() error {
	return apperrors.ErrIndexFormat
}

// Contents is a decoded index file.
type Contents struct {
	Index  *index.InvertedIndex
	Counts index.DocumentCounts
	Stats  Stats
}

const (
	sectionNone     = "preamble"
	sectionInverted = "inverted index"
	sectionCounts   = "document word counts"
)

// ReadFile loads an index written by WriteFile.
func ReadFile(path string) (*Contents, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening index file: %w", err)
	}
	defer f.Close()
	c, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return c, nil
}

// Decode parses an index. Lines may carry surrounding whitespace and blank
// lines are ignored. The first malformed line aborts decoding; nothing is
// returned in that case. The decoded postings and counts must agree with
// each other or a FormatError is returned.
func Decode(r io.Reader) (*Contents, error) {
	h := sha256.New()
	cr := &countingWriter{w: h}
	br := bufio.NewReader(io.TeeReader(r, cr))

	var entries []index.TermEntry
	counts := make(index.DocumentCounts)
	seenTerms := make(map[string]struct{})
	section := sectionNone
	sawInverted, sawCounts := false, false

	for lineNo := 1; ; lineNo++ {
		raw, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("reading index: %w", err)
		}
		if raw == "" && errors.Is(err, io.EOF) {
			break
		}
		line := strings.TrimSpace(raw)

		switch {
		case line == "":
		case line == InvertedIndexHeader:
			if sawInverted {
				return nil, &FormatError{Section: section, Line: lineNo, Reason: "duplicate inverted index header"}
			}
			section, sawInverted = sectionInverted, true
		case line == WordCountsHeader:
			if sawCounts {
				return nil, &FormatError{Section: section, Line: lineNo, Reason: "duplicate word counts header"}
			}
			section, sawCounts = sectionCounts, true
		case section == sectionInverted:
			entry, reason := parsePostingsLine(line)
			if reason != "" {
				return nil, &FormatError{Section: section, Line: lineNo, Reason: reason}
			}
			if _, dup := seenTerms[entry.Term]; dup {
				return nil, &FormatError{Section: section, Line: lineNo, Reason: fmt.Sprintf("duplicate term %q", entry.Term)}
			}
			seenTerms[entry.Term] = struct{}{}
			entries = append(entries, entry)
		case section == sectionCounts:
			docID, rest, ok := strings.Cut(line, keySep)
			if !ok || docID == "" {
				return nil, &FormatError{Section: section, Line: lineNo, Reason: "missing \": \" separator"}
			}
			if _, dup := counts[docID]; dup {
				return nil, &FormatError{Section: section, Line: lineNo, Reason: fmt.Sprintf("duplicate document %q", docID)}
			}
			tc, perr := parseCounts(rest)
			if perr != nil {
				return nil, &FormatError{Section: section, Line: lineNo, Reason: "unparsable counts literal: " + perr.Error()}
			}
			counts[docID] = tc
		default:
			return nil, &FormatError{Section: section, Line: lineNo, Reason: "content before any section header"}
		}

		if errors.Is(err, io.EOF) {
			break
		}
	}

	if !sawInverted || !sawCounts {
		return nil, &FormatError{Section: section, Line: 0, Reason: "missing section header"}
	}
	idx := index.FromPostings(entries)
	if err := index.Validate(idx, counts); err != nil {
		return nil, &FormatError{Section: "consistency", Line: 0, Reason: err.Error()}
	}
	return &Contents{
		Index:  idx,
		Counts: counts,
		Stats: Stats{
			Terms:       idx.Len(),
			Documents:   len(counts),
			Bytes:       cr.n,
			Fingerprint: fingerprint(h.Sum(nil)),
		},
	}, nil
}

func parsePostingsLine(line string) (index.TermEntry, string) {
	term, rest, ok := strings.Cut(line, keySep)
	if !ok || term == "" {
		return index.TermEntry{}, "missing \": \" separator"
	}
	docIDs := strings.Split(rest, postingsSep)
	for _, id := range docIDs {
		if strings.TrimSpace(id) == "" {
			return index.TermEntry{}, fmt.Sprintf("empty document ID in postings for %q", term)
		}
	}
	return index.TermEntry{Term: term, DocIDs: docIDs}, ""
}
