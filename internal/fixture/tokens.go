package fixture

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatTokens renders ids the way Python prints a list of ints:
// "[1, 2, 3]", or "[]" when empty. Consumers parse this text back.
func FormatTokens(ids []int) string {
	var b strings.Builder
	b.Grow(len(ids)*7 + 2)
	b.WriteByte('[')
	for i, id := range ids {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.Itoa(id))
	}
	b.WriteByte(']')
	return b.String()
}

// ParseTokens is the inverse of FormatTokens. Whitespace around ids is
// ignored.
func ParseTokens(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	inner, ok := strings.CutPrefix(s, "[")
	if ok {
		inner, ok = strings.CutSuffix(inner, "]")
	}
	if !ok {
		return nil, fmt.Errorf("token list %q: missing brackets", s)
	}
	if strings.TrimSpace(inner) == "" {
		return []int{}, nil
	}
	fields := strings.Split(inner, ",")
	ids := make([]int, len(fields))
	for i, f := range fields {
		id, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, fmt.Errorf("token list %q: element %d: %w", s, i, err)
		}
		ids[i] = id
	}
	return ids, nil
}
