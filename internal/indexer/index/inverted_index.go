package index

import (
	"fmt"
	"sort"
)

// InvertedIndex maps each term to the set of documents containing it. It is
// built once and must not be mutated afterwards; concurrent readers need no
// locking.
type InvertedIndex struct {
	postings map[string]Postings
}

// New returns an empty index.
func New() *InvertedIndex {
	return &InvertedIndex{postings: make(map[string]Postings)}
}

// Build derives the index from per-document term counts. A document is
// added to a term's postings iff the term's count is at least one, so the
// result does not depend on map iteration order.
func Build(counts DocumentCounts) *InvertedIndex {
	idx := New()
	for docID, tc := range counts {
		for term, n := range tc {
			if n < 1 {
				continue
			}
			idx.add(term, docID)
		}
	}
	return idx
}

// FromPostings builds an index from explicit term postings, as read back
// from a persisted index file.
func FromPostings(entries []TermEntry) *InvertedIndex {
	idx := New()
	for _, e := range entries {
		for _, docID := range e.DocIDs {
			idx.add(e.Term, docID)
		}
	}
	return idx
}

func (x *InvertedIndex) add(term, docID string) {
	p, ok := x.postings[term]
	if !ok {
		p = make(Postings)
		x.postings[term] = p
	}
	p[docID] = struct{}{}
}

// Postings returns the documents containing term, or nil. Callers must not
// modify the returned set.
func (x *InvertedIndex) Postings(term string) Postings {
	return x.postings[term]
}

func (x *InvertedIndex) Contains(term string) bool {
	_, ok := x.postings[term]
	return ok
}

// DocFreq returns the number of documents containing term.
func (x *InvertedIndex) DocFreq(term string) int {
	return len(x.postings[term])
}

// Len returns the vocabulary size.
func (x *InvertedIndex) Len() int {
	return len(x.postings)
}

// Terms returns the vocabulary in ascending order.
func (x *InvertedIndex) Terms() []string {
	terms := make([]string, 0, len(x.postings))
	for term := range x.postings {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}

// Snapshot returns every term with its sorted postings, ordered by term.
func (x *InvertedIndex) Snapshot() []TermEntry {
	entries := make([]TermEntry, 0, len(x.postings))
	for _, term := range x.Terms() {
		entries = append(entries, TermEntry{
			Term:   term,
			DocIDs: x.postings[term].Sorted(),
		})
	}
	return entries
}

// Validate checks that idx and counts agree: a document appears in a term's
// postings iff its count for that term is at least one.
func Validate(idx *InvertedIndex, counts DocumentCounts) error {
	for term, p := range idx.postings {
		if len(p) == 0 {
			return fmt.Errorf("term %q has empty postings", term)
		}
		for docID := range p {
			tc, ok := counts[docID]
			if !ok {
				return fmt.Errorf("term %q lists unknown document %q", term, docID)
			}
			if tc[term] < 1 {
				return fmt.Errorf("term %q lists document %q but its count is %d", term, docID, tc[term])
			}
		}
	}
	for docID, tc := range counts {
		for term, n := range tc {
			if n < 0 {
				return fmt.Errorf("document %q has negative count %d for term %q", docID, n, term)
			}
			if n >= 1 && !idx.postings[term].Contains(docID) {
				return fmt.Errorf("document %q counts term %q but is missing from its postings", docID, term)
			}
		}
	}
	return nil
}
