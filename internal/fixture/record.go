package fixture

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/samcharles93/refgen/internal/scheme"
)

// DefaultMaxTokens bounds the truncated encoding recorded per prompt.
const DefaultMaxTokens = 10

// ErrNoPrefix is returned by Truncate when no prefix of the encoding, not even
// the empty one, decodes to a prefix of the input.
var ErrNoPrefix = errors.New("no token prefix decodes to a prefix of the input")

// Record is one fixture row.
type Record struct {
	Input     string
	Output    []int
	Truncated []int
}

// Row renders the record as CSV fields.
func (r Record) Row() []string {
	return []string{r.Input, FormatTokens(r.Output), FormatTokens(r.Truncated)}
}

// Header is the fixture header row for a given truncation bound.
func Header(maxTokens int) []string {
	return []string{"input", "output", TruncatedColumn(maxTokens)}
}

// TruncatedColumn names the truncated-output column, e.g. "outputMaxTokens10".
func TruncatedColumn(maxTokens int) string {
	return fmt.Sprintf("outputMaxTokens%d", maxTokens)
}

// Build encodes input with s and computes its truncated encoding.
func Build(s scheme.Scheme, input string, maxTokens int) (Record, error) {
	full, err := s.Encode(input)
	if err != nil {
		return Record{}, fmt.Errorf("encode: %w", err)
	}
	truncated, err := Truncate(s, input, full, maxTokens)
	if err != nil {
		return Record{}, err
	}
	return Record{Input: input, Output: full, Truncated: truncated}, nil
}

// Truncate returns the longest prefix of full, at most maxTokens long, whose
// decoding is a prefix of input. Lengths are tried from maxTokens down to 0.
//
// Decoded text that is not valid UTF-8 (a cut through a multi-byte
// character) goes through replaceInvalidUTF8 first, so it only matches if the
// input itself carries replacement characters there.
func Truncate(s scheme.Scheme, input string, full []int, maxTokens int) ([]int, error) {
	for i := min(maxTokens, len(full)); i >= 0; i-- {
		candidate := full[:i:i]
		decoded, err := s.Decode(candidate)
		if err != nil {
			return nil, fmt.Errorf("decode %d tokens: %w", i, err)
		}
		if strings.HasPrefix(input, replaceInvalidUTF8(decoded)) {
			return candidate, nil
		}
	}
	return nil, ErrNoPrefix
}

// replaceInvalidUTF8 substitutes U+FFFD for each maximal subpart of an
// ill-formed sequence, the same output as Python's errors="replace".
// strings.ToValidUTF8 collapses a whole run into one replacement instead.
func replaceInvalidUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 2*utf8.UTFMax)
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r != utf8.RuneError || size > 1 {
			b.WriteString(s[i : i+size])
			i += size
			continue
		}
		b.WriteRune(utf8.RuneError)
		i += maximalSubpart(s[i:])
	}
	return b.String()
}

// maximalSubpart is the length of the invalid sequence starting at s[0]: a
// lead byte plus the continuation bytes that could still have completed it.
func maximalSubpart(s string) int {
	lo, hi := byte(0x80), byte(0xBF)
	var need int
	switch c := s[0]; {
	case c >= 0xC2 && c <= 0xDF:
		need = 1
	case c == 0xE0:
		need, lo = 2, 0xA0
	case c == 0xED:
		need, hi = 2, 0x9F
	case c >= 0xE1 && c <= 0xEF:
		need = 2
	case c == 0xF0:
		need, lo = 3, 0x90
	case c == 0xF4:
		need, hi = 3, 0x8F
	case c >= 0xF1 && c <= 0xF3:
		need = 3
	default:
		return 1
	}
	n := 1
	for ; n <= need && n < len(s); n++ {
		if s[n] < lo || s[n] > hi {
			break
		}
		lo, hi = 0x80, 0xBF
	}
	return n
}
