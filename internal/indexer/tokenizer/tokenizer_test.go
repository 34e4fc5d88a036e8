package tokenizer

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/vector-space-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/vector-space-search/pkg/errors"
)

func TestNormalize(t *testing.T) {
	n := New(NewStopWords("the", "and", "is"), NoopStemmer{})
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"empty", "", []string{}},
		{"punctuation only", "...,;!", []string{}},
		{"lowercase and split", "Cat, DOG; bird!", []string{"cat", "dog", "bird"}},
		{"stop words dropped", "the cat and the dog", []string{"cat", "dog"}},
		{"stop word case folded", "The IS And", []string{}},
		{"digits and underscores", "gpt_4 v2.0", []string{"gpt_4", "v2", "0"}},
		{"hyphen separates", "state-of-the-art", []string{"state", "of", "art"}},
		{"unicode letters", "Café naïve", []string{"café", "naïve"}},
		{"non-decimal numbers", "x²y ½", []string{"x²y", "½"}},
		{"duplicates kept in order", "cat cat dog cat", []string{"cat", "cat", "dog", "cat"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Normalize(tt.text))
		})
	}
}

type upperStemmer struct{}

func (upperStemmer) Stem(token string) string { return strings.ToUpper(token) }
func (upperStemmer) Name() string             { return "upper" }

func TestStopWordsMatchedBeforeStemming(t *testing.T) {
	n := New(NewStopWords("cats"), upperStemmer{})
	assert.Equal(t, []string{"DOGS"}, n.Normalize("cats dogs"))
}

func TestCount(t *testing.T) {
	n := New(nil, nil)
	assert.Equal(t, map[string]int{"cat": 2, "bird": 1}, n.Count("cat cat bird"))
	assert.Empty(t, n.Count(""))
}

func TestSnowballStemmer(t *testing.T) {
	n := New(NewStopWords("the"), SnowballStemmer{})
	assert.Equal(t, []string{"cat", "dog", "run"}, n.Normalize("The cats dogs running"))
}

func TestSuffixStemmer(t *testing.T) {
	s := SuffixStemmer{}
	tests := map[string]string{
		"cats":        "cat",
		"relational":  "relate",
		"studies":     "study",
		"is":          "is",
		"class":       "class",
		"connections": "connection",
	}
	for in, want := range tests {
		assert.Equal(t, want, s.Stem(in), in)
	}
}

func TestNewStemmer(t *testing.T) {
	for _, name := range []string{"snowball", "suffix", "none"} {
		s, err := NewStemmer(name)
		require.NoError(t, err)
		assert.Equal(t, name, s.Name())
	}
	_, err := NewStemmer("lancaster")
	assert.Error(t, err)
}

func TestLoadStopWords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stop.txt")
	require.NoError(t, os.WriteFile(path, []byte("a\n  The \n\nis\r\n"), 0o644))

	sw, err := LoadStopWords(path)
	require.NoError(t, err)
	assert.Len(t, sw, 3)
	assert.True(t, sw.Contains("the"))
	assert.True(t, sw.Contains("is"))
	assert.False(t, sw.Contains(""))
}

func TestLoadStopWordsMissing(t *testing.T) {
	_, err := LoadStopWords(filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrStopWordFileMissing))
}

func TestFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stop.txt")
	require.NoError(t, os.WriteFile(path, []byte("the\nis\n"), 0o644))

	n, err := FromConfig(config.TokenizerConfig{StopWordsPath: path, Stemmer: "snowball"})
	require.NoError(t, err)
	assert.Equal(t, []string{"run", "fast"}, n.Normalize("The running is fast"))
	assert.Equal(t, "snowball", n.StemmerName())

	n, err = FromConfig(config.TokenizerConfig{Stemmer: "none"})
	require.NoError(t, err)
	assert.Equal(t, []string{"the", "running"}, n.Normalize("The running"))

	_, err = FromConfig(config.TokenizerConfig{StopWordsPath: filepath.Join(t.TempDir(), "nope.txt")})
	assert.True(t, errors.Is(err, apperrors.ErrStopWordFileMissing))

	_, err = FromConfig(config.TokenizerConfig{Stemmer: "lancaster"})
	assert.Error(t, err)
}
