package executor

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/vector-space-search/pkg/errors"
)

const eps = 1e-9

func buildEngine(t *testing.T, docs map[string]string) *indexer.Engine {
	t.Helper()
	dir := t.TempDir()
	for name, body := range docs {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	e := indexer.NewEngine(tokenizer.New(tokenizer.NewStopWords("the"), nil), indexer.Options{Extensions: []string{".txt"}}, nil)
	_, err := e.Build(context.Background(), dir)
	require.NoError(t, err)
	return e
}

var scenarioA = map[string]string{
	"doc1.txt": "cat dog",
	"doc2.txt": "dog bird",
	"doc3.txt": "cat cat bird",
}

func paddedScenarioA() map[string]string {
	docs := map[string]string{"doc4.txt": "fish", "doc5.txt": "fish"}
	for k, v := range scenarioA {
		docs[k] = v
	}
	return docs
}

func run(t *testing.T, e *indexer.Engine, mode ranker.Mode, query string, alpha float64, topN int) *SearchResult {
	t.Helper()
	ex := New(e, mode)
	res, err := ex.Execute(context.Background(), parser.Parse(query, e.Normalizer()), parser.Params{Alpha: alpha, TopN: topN})
	require.NoError(t, err)
	return res
}

func TestScenarioARanking(t *testing.T) {
	e := buildEngine(t, paddedScenarioA())
	res := run(t, e, ranker.ModeCosine, "cat", 0.05, 5)

	assert.Equal(t, OutcomeMatched, res.Outcome)
	assert.Equal(t, 2, res.TotalHits)
	require.Len(t, res.Results, 2)
	assert.Equal(t, "doc3", res.Results[0].DocID)
	assert.InDelta(t, 2/math.Sqrt(5), res.Results[0].Score, eps)
	assert.Equal(t, "doc1", res.Results[1].DocID)
	assert.InDelta(t, 1/math.Sqrt(2), res.Results[1].Score, eps)
	assert.Equal(t, []string{"cat"}, res.Terms)
}

func TestScenarioALiteralCorpusHasZeroIDF(t *testing.T) {
	e := buildEngine(t, scenarioA)

	// every term occurs in 2 of 3 documents, so ln(3/3) zeroes all weights
	res := run(t, e, ranker.ModeCosine, "cat", 0, 5)
	assert.Equal(t, OutcomeMatched, res.Outcome)
	assert.Equal(t, []ranker.ScoredDoc{{DocID: "doc1", Score: 0}, {DocID: "doc3", Score: 0}}, res.Results)

	res = run(t, e, ranker.ModeCosine, "cat", 0.05, 5)
	assert.Equal(t, OutcomeNoResults, res.Outcome)
	assert.Empty(t, res.Results)
}

func TestScoringModes(t *testing.T) {
	e := buildEngine(t, paddedScenarioA())

	cos := run(t, e, ranker.ModeCosine, "cat dog", 0, 5)
	require.Len(t, cos.Results, 3)
	assert.Equal(t, "doc1", cos.Results[0].DocID)
	assert.InDelta(t, 1.0, cos.Results[0].Score, eps)
	assert.Equal(t, "doc3", cos.Results[1].DocID)
	assert.InDelta(t, 2/math.Sqrt(10), cos.Results[1].Score, eps)
	assert.Equal(t, "doc2", cos.Results[2].DocID)
	assert.InDelta(t, 0.5, cos.Results[2].Score, eps)

	acc := run(t, e, ranker.ModeAccumulate, "cat dog", 0, 5)
	require.Len(t, acc.Results, 3)
	assert.Equal(t, "doc1", acc.Results[0].DocID)
	assert.InDelta(t, 2.0, acc.Results[0].Score, eps)
	assert.InDelta(t, cos.Results[1].Score, acc.Results[1].Score, eps)
}

func TestEmptyQueryHasNoResults(t *testing.T) {
	e := buildEngine(t, paddedScenarioA())
	for _, q := range []string{"", "the", "!!", "unicorn"} {
		res := run(t, e, ranker.ModeCosine, q, 0.05, 5)
		assert.Equal(t, OutcomeNoResults, res.Outcome, q)
		assert.Empty(t, res.Results, q)
		assert.NotNil(t, res.Results, q)
	}
}

func TestTopNZeroReturnsNothing(t *testing.T) {
	e := buildEngine(t, paddedScenarioA())
	res := run(t, e, ranker.ModeCosine, "cat", 0, 0)
	assert.Equal(t, OutcomeMatched, res.Outcome)
	assert.Equal(t, 2, res.TotalHits)
	assert.Empty(t, res.Results)
}

func TestEmptyIndex(t *testing.T) {
	e := buildEngine(t, map[string]string{})
	res := run(t, e, ranker.ModeCosine, "cat", 0, 5)
	assert.Equal(t, OutcomeEmptyIndex, res.Outcome)
}

func TestIndexNotReady(t *testing.T) {
	e := indexer.NewEngine(tokenizer.New(nil, nil), indexer.Options{}, nil)
	_, err := New(e, "").Execute(context.Background(), parser.Parse("cat", e.Normalizer()), parser.Params{TopN: 5})
	assert.True(t, errors.Is(err, apperrors.ErrIndexNotReady))
}

func TestInvalidParams(t *testing.T) {
	e := buildEngine(t, scenarioA)
	ex := New(e, ranker.ModeCosine)
	plan := parser.Parse("cat", e.Normalizer())
	for _, p := range []parser.Params{{TopN: -1}, {Alpha: math.NaN(), TopN: 1}} {
		_, err := ex.Execute(context.Background(), plan, p)
		assert.True(t, errors.Is(err, apperrors.ErrInvalidQueryParameter))
	}
	res, err := ex.Execute(context.Background(), plan, parser.Params{TopN: 5})
	require.NoError(t, err, "a rejected query leaves the executor usable")
	assert.Equal(t, OutcomeMatched, res.Outcome)
}

func TestResultsBoundedByTopNAndAlpha(t *testing.T) {
	e := buildEngine(t, map[string]string{
		"a.txt": "alpha beta gamma",
		"b.txt": "beta gamma delta",
		"c.txt": "gamma delta epsilon",
		"d.txt": "delta epsilon zeta",
		"e.txt": "epsilon zeta eta",
		"f.txt": "zeta eta theta alpha",
	})
	queries := []string{"alpha", "beta gamma", "delta zeta eta", "alpha alpha theta", "epsilon"}
	for _, mode := range []ranker.Mode{ranker.ModeCosine, ranker.ModeAccumulate} {
		for _, q := range queries {
			for _, alpha := range []float64{0, 0.05, 0.3, 0.9} {
				for topN := 0; topN <= 4; topN++ {
					res := run(t, e, mode, q, alpha, topN)
					assert.LessOrEqual(t, len(res.Results), topN)
					for i, d := range res.Results {
						assert.GreaterOrEqual(t, d.Score, alpha)
						if i > 0 {
							assert.GreaterOrEqual(t, res.Results[i-1].Score, d.Score)
						}
					}
				}
			}
		}
	}
}

func TestConcurrentQueries(t *testing.T) {
	e := buildEngine(t, paddedScenarioA())
	ex := New(e, ranker.ModeCosine)
	want := run(t, e, ranker.ModeCosine, "cat bird", 0, 5)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := ex.Execute(context.Background(), parser.Parse("cat bird", e.Normalizer()), parser.Params{TopN: 5})
			assert.NoError(t, err)
			assert.Equal(t, want.Results, res.Results)
		}()
	}
	wg.Wait()
}
