// Package tokenizer turns raw text into normalised terms for the search
// engine. It splits on non-word boundaries, lower-cases each run, removes
// stop-words and applies a pluggable stemmer, in that order.
package tokenizer

import (
	"strings"
	"unicode"

	"github.com/Adithya-Monish-Kumar-K/vector-space-search/pkg/config"
)

// Normalizer holds everything needed to turn text into terms. It is
// immutable after construction and safe for concurrent use.
type Normalizer struct {
	stopWords StopWords
	stemmer   Stemmer
}

// New returns a Normalizer. A nil stemmer leaves tokens unstemmed.
func New(stopWords StopWords, stemmer Stemmer) *Normalizer {
	if stopWords == nil {
		stopWords = StopWords{}
	}
	if stemmer == nil {
		stemmer = NoopStemmer{}
	}
	return &Normalizer{stopWords: stopWords, stemmer: stemmer}
}

// Normalize returns the ordered sequence of terms in text. Stop-words are
// matched against the lower-cased, unstemmed token.
func (n *Normalizer) Normalize(text string) []string {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !isWordRune(r)
	})
	terms := make([]string, 0, len(words))
	for _, word := range words {
		word = strings.ToLower(word)
		if n.stopWords.Contains(word) {
			continue
		}
		terms = append(terms, n.stemmer.Stem(word))
	}
	return terms
}

// Count normalises text and returns each term's occurrence count.
func (n *Normalizer) Count(text string) map[string]int {
	counts := make(map[string]int)
	for _, term := range n.Normalize(text) {
		counts[term]++
	}
	return counts
}

// StopWords returns the stop-word set in use.
func (n *Normalizer) StopWords() StopWords {
	return n.stopWords
}

// StemmerName reports which stemmer the normalizer applies.
func (n *Normalizer) StemmerName() string {
	return n.stemmer.Name()
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsMark(r)
}

// FromConfig loads the configured stop-word list and stemmer. An empty
// stop-word path disables stop-word removal; a configured path that does
// not exist is an error.
func FromConfig(cfg config.TokenizerConfig) (*Normalizer, error) {
	stemmer, err := NewStemmer(cfg.Stemmer)
	if err != nil {
		return nil, err
	}
	var stopWords StopWords
	if cfg.StopWordsPath != "" {
		if stopWords, err = LoadStopWords(cfg.StopWordsPath); err != nil {
			return nil, err
		}
	}
	return New(stopWords, stemmer), nil
}
