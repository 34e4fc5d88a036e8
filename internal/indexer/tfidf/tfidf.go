// Package tfidf derives sparse TF-IDF weight vectors from an inverted index
// and per-document term counts.
package tfidf

import (
	"math"

	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/indexer/index"
)

// Vector is a sparse term-weight vector. Absent terms weigh zero.
type Vector map[string]float64

// Norm returns the Euclidean norm over the vector's own terms.
func (v Vector) Norm() float64 {
	var sum float64
	for _, w := range v {
		sum += w * w
	}
	return math.Sqrt(sum)
}

// IDF returns ln(totalDocs / (docFreq + 1)). It is negative for terms that
// occur in (almost) every document and is deliberately not clamped.
func IDF(totalDocs int, docFreq int) float64 {
	return math.Log(float64(totalDocs) / float64(docFreq+1))
}

// TF returns count / docLength, or 0 for an empty document.
func TF(count int, docLength int) float64 {
	if docLength == 0 {
		return 0
	}
	return float64(count) / float64(docLength)
}

// ComputeVectors weights every (document, term) pair present in idx as
// tf * idf. Each document gets a vector, empty when it has no terms.
func ComputeVectors(idx *index.InvertedIndex, counts index.DocumentCounts, totalDocs int) map[string]Vector {
	vectors := make(map[string]Vector, len(counts))
	lengths := make(map[string]int, len(counts))
	for docID, tc := range counts {
		vectors[docID] = make(Vector, len(tc))
		lengths[docID] = tc.Total()
	}
	for _, term := range idx.Terms() {
		postings := idx.Postings(term)
		idf := IDF(totalDocs, len(postings))
		for docID := range postings {
			vec, ok := vectors[docID]
			if !ok {
				continue
			}
			vec[term] = TF(counts[docID][term], lengths[docID]) * idf
		}
	}
	return vectors
}
