package parser

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/vector-space-search/pkg/errors"
)

// QueryPlan is a normalised free-text query.
type QueryPlan struct {
	RawQuery string
	Terms    []string
	Vector   map[string]int
}

// Parse normalises query with n and counts its terms. Terms lists each
// distinct term once, in ascending order.
func Parse(query string, n *tokenizer.Normalizer) *QueryPlan {
	vector := n.Count(query)
	terms := make([]string, 0, len(vector))
	for term := range vector {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return &QueryPlan{
		RawQuery: query,
		Terms:    terms,
		Vector:   vector,
	}
}

// Key renders the plan's vector canonically, e.g. "cat:2,dog:1". Queries
// with equal vectors produce equal keys.
func (p *QueryPlan) Key() string {
	parts := make([]string, len(p.Terms))
	for i, term := range p.Terms {
		parts[i] = term + ":" + strconv.Itoa(p.Vector[term])
	}
	return strings.Join(parts, ",")
}

// Params are the per-query knobs a caller may supply.
type Params struct {
	Alpha float64
	TopN  int
}

// ParseParams converts caller-supplied strings to Params. Empty strings
// fall back to defaults; topN is capped at maxTopN when maxTopN > 0.
func ParseParams(topN, alpha string, defaults Params, maxTopN int) (Params, error) {
	p := defaults
	if s := strings.TrimSpace(topN); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return Params{}, apperrors.InvalidParam("top_n", "%q is not an integer", topN)
		}
		p.TopN = n
	}
	if s := strings.TrimSpace(alpha); s != "" {
		a, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Params{}, apperrors.InvalidParam("alpha", "%q is not a number", alpha)
		}
		p.Alpha = a
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	if maxTopN > 0 && p.TopN > maxTopN {
		p.TopN = maxTopN
	}
	return p, nil
}

// Validate rejects a negative TopN and a non-finite Alpha.
func (p Params) Validate() error {
	if p.TopN < 0 {
		return apperrors.InvalidParam("top_n", "must be >= 0, got %d", p.TopN)
	}
	if math.IsNaN(p.Alpha) || math.IsInf(p.Alpha, 0) {
		return apperrors.InvalidParam("alpha", "must be a finite number")
	}
	return nil
}
