package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 0.05, cfg.Search.Alpha)
	assert.Equal(t, 5, cfg.Search.TopN)
	assert.Equal(t, ScoringCosine, cfg.Search.Scoring)
	assert.Equal(t, []string{".txt"}, cfg.Corpus.Extensions)
	assert.Equal(t, "index.txt", cfg.Indexer.IndexPath)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	data := []byte(`
corpus:
  path: /data/papers
search:
  alpha: 0.2
  topN: 3
  scoring: accumulate
redis:
  cacheTTL: 2m
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	t.Setenv("VS_SEARCH_TOP_N", "7")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/papers", cfg.Corpus.Path)
	assert.Equal(t, 0.2, cfg.Search.Alpha)
	assert.Equal(t, 7, cfg.Search.TopN)
	assert.Equal(t, ScoringAccumulate, cfg.Search.Scoring)
	assert.Equal(t, 2*time.Minute, cfg.Redis.CacheTTL)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"negative topN", "search:\n  topN: -1\n"},
		{"unknown scoring", "search:\n  scoring: bm25\n"},
		{"topN above max", "search:\n  topN: 50\n  maxTopN: 10\n"},
		{"no extensions", "corpus:\n  extensions: []\n"},
		{"negative rate limit", "server:\n  rateLimit: -5\n"},
		{"nan alpha", "search:\n  alpha: .nan\n"},
		{"infinite alpha", "search:\n  alpha: .inf\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "cfg.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
