package tokenizer

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/vector-space-search/pkg/errors"
)

// StopWords is a set of lower-case words dropped during normalisation.
type StopWords map[string]struct{}

// NewStopWords builds a set from the given words.
func NewStopWords(words ...string) StopWords {
	sw := make(StopWords, len(words))
	for _, w := range words {
		sw[strings.ToLower(w)] = struct{}{}
	}
	return sw
}

func (s StopWords) Contains(word string) bool {
	_, ok := s[word]
	return ok
}

// LoadStopWords reads a newline-delimited stop-word file. A file that does
// not exist is reported as ErrStopWordFileMissing.
func LoadStopWords(path string) (StopWords, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrStopWordFileMissing, path)
		}
		return nil, fmt.Errorf("opening stop-word file %s: %w", path, err)
	}
	defer f.Close()
	sw, err := ReadStopWords(f)
	if err != nil {
		return nil, fmt.Errorf("reading stop-word file %s: %w", path, err)
	}
	return sw, nil
}

// ReadStopWords parses one stop-word per line. Surrounding whitespace is
// trimmed and blank lines are ignored.
func ReadStopWords(r io.Reader) (StopWords, error) {
	sw := make(StopWords)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word == "" {
			continue
		}
		sw[strings.ToLower(word)] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return sw, nil
}
