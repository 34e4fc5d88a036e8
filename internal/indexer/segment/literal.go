package segment

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/vector-space-search/internal/indexer/index"
)

// formatCounts renders term counts as a mapping literal, e.g.
// {'bird': 1, 'cat': 2}. Keys are sorted so output is reproducible.
func formatCounts(counts index.TermCounts) string {
	terms := make([]string, 0, len(counts))
	for term := range counts {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	var b strings.Builder
	b.WriteByte('{')
	for i, term := range terms {
		if i > 0 {
			b.WriteString(", ")
		}
		writeQuoted(&b, term)
		b.WriteString(": ")
		b.WriteString(strconv.Itoa(counts[term]))
	}
	b.WriteByte('}')
	return b.String()
}

// writeQuoted writes s as a quoted string literal. Single quotes are used
// unless s contains a single quote and no double quote.
func writeQuoted(b *strings.Builder, s string) {
	quote := '\''
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		quote = '"'
	}
	b.WriteRune(quote)
	for _, r := range s {
		switch {
		case r == '\\':
			b.WriteString(`\\`)
		case r == quote:
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case !unicode.IsPrint(r):
			switch {
			case r < 0x100:
				fmt.Fprintf(b, `\x%02x`, r)
			case r < 0x10000:
				fmt.Fprintf(b, `\u%04x`, r)
			default:
				fmt.Fprintf(b, `\U%08x`, r)
			}
		default:
			b.WriteRune(r)
		}
	}
	b.WriteRune(quote)
}

// parseCounts parses a mapping literal of quoted string keys and
// non-negative integer values. The grammar is fixed; nothing is evaluated.
//
//	mapping := '{' [ entry { ',' entry } [ ',' ] ] '}'
//	entry   := string ':' integer
func parseCounts(s string) (index.TermCounts, error) {
	p := &literalParser{src: s}
	counts, err := p.mapping()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.eof() {
		return nil, p.errorf("unexpected trailing input")
	}
	return counts, nil
}

type literalParser struct {
	src string
	pos int
}

func (p *literalParser) errorf(format string, args ...any) error {
	return fmt.Errorf("offset %d: %s", p.pos, fmt.Sprintf(format, args...))
}

func (p *literalParser) eof() bool { return p.pos >= len(p.src) }

func (p *literalParser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *literalParser) skipSpace() {
	for !p.eof() {
		switch p.src[p.pos] {
		case ' ', '\t':
			p.pos++
		default:
			return
		}
	}
}

func (p *literalParser) expect(c byte) error {
	p.skipSpace()
	if p.peek() != c {
		if p.eof() {
			return p.errorf("expected %q, got end of input", c)
		}
		return p.errorf("expected %q, got %q", c, p.peek())
	}
	p.pos++
	return nil
}

func (p *literalParser) mapping() (index.TermCounts, error) {
	if err := p.expect('{'); err != nil {
		return nil, err
	}
	counts := make(index.TermCounts)
	for {
		p.skipSpace()
		if p.peek() == '}' {
			p.pos++
			return counts, nil
		}
		key, err := p.str()
		if err != nil {
			return nil, err
		}
		if _, dup := counts[key]; dup {
			return nil, p.errorf("duplicate key %q", key)
		}
		if err := p.expect(':'); err != nil {
			return nil, err
		}
		n, err := p.integer()
		if err != nil {
			return nil, err
		}
		counts[key] = n

		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case '}':
			p.pos++
			return counts, nil
		default:
			if p.eof() {
				return nil, p.errorf("unterminated mapping")
			}
			return nil, p.errorf("expected ',' or '}', got %q", p.peek())
		}
	}
}

func (p *literalParser) integer() (int, error) {
	p.skipSpace()
	start := p.pos
	if c := p.peek(); c == '+' || c == '-' {
		p.pos++
	}
	for !p.eof() && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		p.pos++
	}
	text := p.src[start:p.pos]
	n, err := strconv.Atoi(text)
	if err != nil {
		p.pos = start
		return 0, p.errorf("invalid integer %q", text)
	}
	if n < 0 {
		p.pos = start
		return 0, p.errorf("negative count %d", n)
	}
	return n, nil
}

func (p *literalParser) str() (string, error) {
	p.skipSpace()
	quote := p.peek()
	if quote != '\'' && quote != '"' {
		if p.eof() {
			return "", p.errorf("expected string, got end of input")
		}
		return "", p.errorf("expected string, got %q", quote)
	}
	p.pos++
	var b strings.Builder
	for {
		if p.eof() {
			return "", p.errorf("unterminated string")
		}
		c := p.src[p.pos]
		switch {
		case c == quote:
			p.pos++
			return b.String(), nil
		case c == '\\':
			if err := p.escape(&b); err != nil {
				return "", err
			}
		default:
			r, size := utf8.DecodeRuneInString(p.src[p.pos:])
			b.WriteRune(r)
			p.pos += size
		}
	}
}

func (p *literalParser) escape(b *strings.Builder) error {
	p.pos++
	if p.eof() {
		return p.errorf("unterminated escape")
	}
	c := p.src[p.pos]
	p.pos++
	switch c {
	case '\\', '\'', '"':
		b.WriteByte(c)
	case 'n':
		b.WriteByte('\n')
	case 'r':
		b.WriteByte('\r')
	case 't':
		b.WriteByte('\t')
	case 'x':
		return p.hexRune(b, 2)
	case 'u':
		return p.hexRune(b, 4)
	case 'U':
		return p.hexRune(b, 8)
	default:
		return p.errorf("unknown escape \\%c", c)
	}
	return nil
}

func (p *literalParser) hexRune(b *strings.Builder, digits int) error {
	if p.pos+digits > len(p.src) {
		return p.errorf("short hex escape")
	}
	v, err := strconv.ParseUint(p.src[p.pos:p.pos+digits], 16, 32)
	if err != nil || v > unicode.MaxRune {
		return p.errorf("invalid hex escape %q", p.src[p.pos:p.pos+digits])
	}
	p.pos += digits
	b.WriteRune(rune(v))
	return nil
}
