package segment

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/vector-space-search/pkg/errors"
)

func sampleCounts() index.DocumentCounts {
	return index.DocumentCounts{
		"doc1":  {"cat": 1, "dog": 1},
		"doc2":  {"dog": 1, "bird": 1},
		"doc3":  {"cat": 2, "bird": 1},
		"empty": {},
	}
}

const sampleEncoded = `Inverted Index:
bird: doc2, doc3
cat: doc1, doc3
dog: doc1, doc2

Document Word Counts:
doc1: {'cat': 1, 'dog': 1}
doc2: {'bird': 1, 'dog': 1}
doc3: {'bird': 1, 'cat': 2}
empty: {}
`

func TestEncodeExactFormat(t *testing.T) {
	counts := sampleCounts()
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, index.Build(counts), counts))
	assert.Equal(t, sampleEncoded, buf.String())
}

func TestRoundTrip(t *testing.T) {
	counts := sampleCounts()
	idx := index.Build(counts)
	path := filepath.Join(t.TempDir(), "nested", "index.txt")

	written, err := WriteFile(path, idx, counts)
	require.NoError(t, err)
	assert.Equal(t, 3, written.Terms)
	assert.Equal(t, 4, written.Documents)
	assert.Equal(t, int64(len(sampleEncoded)), written.Bytes)

	loaded, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, idx.Snapshot(), loaded.Index.Snapshot())
	assert.Equal(t, counts, loaded.Counts)
	assert.Equal(t, written.Fingerprint, loaded.Stats.Fingerprint)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestDecodePostingsOrderNotSignificant(t *testing.T) {
	input := strings.Replace(sampleEncoded, "cat: doc1, doc3", "cat: doc3, doc1", 1)
	c, err := Decode(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"doc1", "doc3"}, c.Index.Postings("cat").Sorted())
}

func TestDecodeToleratesWhitespaceAndQuotes(t *testing.T) {
	input := "\n  Inverted Index:  \r\n" +
		"cat: a\r\n" +
		"Document Word Counts:\n" +
		`a: {"cat" : 3 ,}` + "\n"
	c, err := Decode(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, index.DocumentCounts{"a": {"cat": 3}}, c.Counts)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		section string
		line    int
	}{
		{"preamble content", "junk\nInverted Index:\n", sectionNone, 1},
		{"postings missing separator", "Inverted Index:\ncat doc1\n", sectionInverted, 2},
		{"postings empty", "Inverted Index:\ncat: \n", sectionInverted, 2},
		{"postings empty id", "Inverted Index:\ncat: a, , b\n", sectionInverted, 2},
		{"duplicate term", "Inverted Index:\ncat: a\ncat: b\n", sectionInverted, 3},
		{"counts missing separator", "Inverted Index:\n\nDocument Word Counts:\ndoc1 {}\n", sectionCounts, 4},
		{"counts not a literal", "Inverted Index:\n\nDocument Word Counts:\ndoc1: __import__('os')\n", sectionCounts, 4},
		{"counts float value", "Inverted Index:\n\nDocument Word Counts:\ndoc1: {'cat': 1.5}\n", sectionCounts, 4},
		{"counts negative", "Inverted Index:\n\nDocument Word Counts:\ndoc1: {'cat': -1}\n", sectionCounts, 4},
		{"counts unterminated", "Inverted Index:\n\nDocument Word Counts:\ndoc1: {'cat': 1\n", sectionCounts, 4},
		{"duplicate document", "Inverted Index:\n\nDocument Word Counts:\nd: {}\nd: {}\n", sectionCounts, 5},
		{"duplicate header", "Inverted Index:\nInverted Index:\n", sectionInverted, 2},
		{"missing counts section", "Inverted Index:\ncat: a\n", sectionInverted, 0},
		{"inconsistent", "Inverted Index:\ncat: a\n\nDocument Word Counts:\na: {'dog': 1}\n", "consistency", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := Decode(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Nil(t, c)
			assert.True(t, errors.Is(err, apperrors.ErrIndexFormat))
			var fe *FormatError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.section, fe.Section)
			assert.Equal(t, tt.line, fe.Line)
		})
	}
}

func TestEncodeRejectsAmbiguousDocIDs(t *testing.T) {
	for _, id := range []string{"a, b", "a: b", "a\nb", " padded"} {
		counts := index.DocumentCounts{id: {"x": 1}}
		err := Encode(&bytes.Buffer{}, index.Build(counts), counts)
		assert.Error(t, err, id)
	}
}

func TestFormatCountsQuoting(t *testing.T) {
	tests := []struct {
		counts index.TermCounts
		want   string
	}{
		{index.TermCounts{}, "{}"},
		{index.TermCounts{"b": 2, "a": 1}, "{'a': 1, 'b': 2}"},
		{index.TermCounts{"it's": 1}, `{"it's": 1}`},
		{index.TermCounts{`say "it's"`: 1}, `{'say "it\'s"': 1}`},
		{index.TermCounts{"tab\there": 1}, `{'tab\there': 1}`},
		{index.TermCounts{"back\\slash": 1}, `{'back\\slash': 1}`},
		{index.TermCounts{"bell\x07": 1}, `{'bell\x07': 1}`},
		{index.TermCounts{"café": 4}, "{'café': 4}"},
	}
	for _, tt := range tests {
		got := formatCounts(tt.counts)
		assert.Equal(t, tt.want, got)
		parsed, err := parseCounts(got)
		require.NoError(t, err, got)
		assert.Equal(t, tt.counts, parsed)
	}
}

func TestParseCountsRejects(t *testing.T) {
	for _, in := range []string{
		"", "{", "}", "{'a'}", "{'a': }", "{'a': 1 'b': 2}", "{a: 1}",
		"{'a': 1} extra", "{'a': 1, 'a': 2}", `{'\q': 1}`, `{'\x4': 1}`,
		"Counter({'a': 1})", "{'a': 0x10}",
	} {
		_, err := parseCounts(in)
		assert.Error(t, err, in)
	}
}
