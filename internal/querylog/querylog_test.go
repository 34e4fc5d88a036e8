package querylog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/analytics"
)

var (
	_ Log = (*Ring)(nil)
	_ Log = (*PGStore)(nil)
)

func queries(events []analytics.SearchEvent) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.Query
	}
	return out
}

func TestRingNewestFirst(t *testing.T) {
	ctx := context.Background()
	r := NewRing(3)

	got, err := r.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, got)

	for _, q := range []string{"a", "b"} {
		require.NoError(t, r.Record(ctx, analytics.SearchEvent{Query: q}))
	}
	got, _ = r.Recent(ctx, 10)
	assert.Equal(t, []string{"b", "a"}, queries(got))

	for _, q := range []string{"c", "d", "e"} {
		require.NoError(t, r.Record(ctx, analytics.SearchEvent{Query: q}))
	}
	got, _ = r.Recent(ctx, 10)
	assert.Equal(t, []string{"e", "d", "c"}, queries(got))

	got, _ = r.Recent(ctx, 2)
	assert.Equal(t, []string{"e", "d"}, queries(got))

	got, _ = r.Recent(ctx, 0)
	assert.Len(t, got, 3)
}
