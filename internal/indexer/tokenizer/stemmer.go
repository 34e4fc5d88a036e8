package tokenizer

import (
	"fmt"
	"strings"

	"github.com/kljensen/snowball/english"
)

// Stemmer reduces a lower-case token to its stem. Implementations must be
// deterministic and safe for concurrent use.
type Stemmer interface {
	Stem(token string) string
	Name() string
}

// NewStemmer returns the stemmer registered under name: "snowball",
// "suffix" or "none".
func NewStemmer(name string) (Stemmer, error) {
	switch name {
	case "snowball", "porter2", "":
		return SnowballStemmer{}, nil
	case "suffix":
		return SuffixStemmer{}, nil
	case "none":
		return NoopStemmer{}, nil
	default:
		return nil, fmt.Errorf("unknown stemmer %q", name)
	}
}

// SnowballStemmer applies the English (Porter2) Snowball algorithm.
type SnowballStemmer struct{}

func (SnowballStemmer) Stem(token string) string {
	stemmed := english.Stem(token, true)
	if stemmed == "" {
		return token
	}
	return stemmed
}

func (SnowballStemmer) Name() string { return "snowball" }

// NoopStemmer returns tokens unchanged.
type NoopStemmer struct{}

func (NoopStemmer) Stem(token string) string { return token }

func (NoopStemmer) Name() string { return "none" }

// SuffixStemmer is a light suffix-stripping stemmer. It is cheaper than
// Snowball and never shortens a word below the rule's minimum length.
type SuffixStemmer struct{}

func (SuffixStemmer) Name() string { return "suffix" }

var suffixRules = []struct {
	suffix      string
	replacement string
	minLen      int
}{
	{"ational", "ate", 2},
	{"tional", "tion", 2},
	{"encies", "ence", 2},
	{"ances", "ance", 2},
	{"ments", "ment", 2},
	{"izing", "ize", 2},
	{"ating", "ate", 2},
	{"iness", "y", 2},
	{"ously", "ous", 2},
	{"ively", "ive", 2},
	{"eness", "ene", 2},
	{"tion", "t", 3},
	{"sion", "s", 3},
	{"ying", "y", 2},
	{"ling", "l", 3},
	{"ies", "y", 2},
	{"ing", "", 3},
	{"ers", "er", 2},
	{"est", "", 3},
	{"ful", "", 3},
	{"ous", "", 3},
	{"ess", "", 3},
	{"ble", "", 3},
	{"ed", "", 3},
	{"er", "", 3},
	{"ly", "", 3},
	{"es", "", 3},
	{"ss", "ss", 2},
	{"s", "", 3},
}

func (SuffixStemmer) Stem(token string) string {
	for _, rule := range suffixRules {
		if strings.HasSuffix(token, rule.suffix) {
			stemmed := token[:len(token)-len(rule.suffix)] + rule.replacement
			if len(stemmed) >= rule.minLen {
				return stemmed
			}
		}
	}
	return token
}
