package parser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/vector-space-search/pkg/errors"
)

func TestParse(t *testing.T) {
	n := tokenizer.New(tokenizer.NewStopWords("the"), tokenizer.SnowballStemmer{})

	plan := Parse("The cats chased the cat and DOGS", n)
	assert.Equal(t, []string{"and", "cat", "chase", "dog"}, plan.Terms)
	assert.Equal(t, map[string]int{"cat": 2, "chase": 1, "and": 1, "dog": 1}, plan.Vector)
	assert.Equal(t, "and:1,cat:2,chase:1,dog:1", plan.Key())
}

func TestParseEmpty(t *testing.T) {
	n := tokenizer.New(tokenizer.NewStopWords("the"), nil)
	for _, q := range []string{"", "   ", "the", "?!"} {
		plan := Parse(q, n)
		assert.Empty(t, plan.Terms, q)
		assert.Empty(t, plan.Vector, q)
		assert.Equal(t, "", plan.Key())
	}
}

func TestParseParams(t *testing.T) {
	defaults := Params{Alpha: 0.05, TopN: 5}

	p, err := ParseParams("", "", defaults, 100)
	require.NoError(t, err)
	assert.Equal(t, defaults, p)

	p, err = ParseParams(" 3 ", "0.2", defaults, 100)
	require.NoError(t, err)
	assert.Equal(t, Params{Alpha: 0.2, TopN: 3}, p)

	p, err = ParseParams("0", "-1", defaults, 100)
	require.NoError(t, err)
	assert.Equal(t, Params{Alpha: -1, TopN: 0}, p)

	p, err = ParseParams("500", "", defaults, 100)
	require.NoError(t, err)
	assert.Equal(t, 100, p.TopN)
}

func TestParseParamsInvalid(t *testing.T) {
	defaults := Params{Alpha: 0.05, TopN: 5}
	for _, tc := range []struct{ topN, alpha string }{
		{"five", ""},
		{"2.5", ""},
		{"-1", ""},
		{"", "abc"},
		{"", "NaN"},
		{"", "inf"},
	} {
		_, err := ParseParams(tc.topN, tc.alpha, defaults, 0)
		require.Error(t, err, tc)
		assert.True(t, errors.Is(err, apperrors.ErrInvalidQueryParameter), tc)
	}
}
