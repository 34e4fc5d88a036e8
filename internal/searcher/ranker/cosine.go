// Package ranker scores documents against a query vector with cosine
// similarity and selects the champions list.
package ranker

import "github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/indexer/tfidf"

// Cosine returns the cosine similarity of a query term-frequency vector and
// a document weight vector. It returns 0 when either vector has zero norm.
func Cosine(query map[string]int, doc tfidf.Vector) float64 {
	q := make(tfidf.Vector, len(query))
	for term, n := range query {
		q[term] = float64(n)
	}
	return CosineVectors(q, doc)
}

// CosineVectors returns (a·b) / (‖a‖·‖b‖), where the dot product runs over
// the terms of a, or 0 when either norm is zero.
func CosineVectors(a, b tfidf.Vector) float64 {
	var dot float64
	for term, w := range a {
		dot += w * b[term]
	}
	na, nb := a.Norm(), b.Norm()
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (na * nb)
}
