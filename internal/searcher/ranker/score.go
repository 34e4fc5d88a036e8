package ranker

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/indexer/tfidf"
)

// Mode selects how candidate documents are scored.
type Mode string

const (
	// ModeCosine scores each candidate once with the cosine similarity
	// between the query and document vectors.
	ModeCosine Mode = "cosine"
	// ModeAccumulate adds the full cosine similarity once for every
	// distinct query term the document contains, so documents matching k
	// terms score k times their cosine.
	ModeAccumulate Mode = "accumulate"
)

// ParseMode validates a scoring mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeCosine, ModeAccumulate:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown scoring mode %q", s)
	}
}

// Score returns a score for every document containing at least one query
// term present in idx. Documents without a vector score 0.
func Score(query map[string]int, idx *index.InvertedIndex, vectors map[string]tfidf.Vector, mode Mode) map[string]float64 {
	matches := make(map[string]int)
	for term := range query {
		for docID := range idx.Postings(term) {
			matches[docID]++
		}
	}
	scores := make(map[string]float64, len(matches))
	for docID, k := range matches {
		sim := Cosine(query, vectors[docID])
		if mode != ModeAccumulate {
			scores[docID] = sim
			continue
		}
		var total float64
		for i := 0; i < k; i++ {
			total += sim
		}
		scores[docID] = total
	}
	return scores
}
