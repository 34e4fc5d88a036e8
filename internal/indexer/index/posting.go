package index

import "sort"

// TermCounts maps a term to its raw occurrence count in one document.
type TermCounts map[string]int

// Total returns the document length in tokens.
func (c TermCounts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// DocumentCounts maps a document ID to its term counts.
type DocumentCounts map[string]TermCounts

// DocIDs returns the document IDs in ascending order.
func (d DocumentCounts) DocIDs() []string {
	ids := make([]string, 0, len(d))
	for id := range d {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Postings is the set of document IDs containing a term.
type Postings map[string]struct{}

// Sorted returns the document IDs in ascending order.
func (p Postings) Sorted() []string {
	ids := make([]string, 0, len(p))
	for id := range p {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (p Postings) Contains(docID string) bool {
	_, ok := p[docID]
	return ok
}

// TermEntry is one term with its postings in document-ID order.
type TermEntry struct {
	Term   string
	DocIDs []string
}
