package fixture

import (
	"errors"
	"strings"
)

// runeScheme encodes each rune as its code point.
type runeScheme struct{}

func (runeScheme) Encode(text string) ([]int, error) {
	ids := make([]int, 0, len(text))
	for _, r := range text {
		ids = append(ids, int(r))
	}
	return ids, nil
}

func (runeScheme) Decode(ids []int) (string, error) {
	var b strings.Builder
	for _, id := range ids {
		b.WriteRune(rune(id))
	}
	return b.String(), nil
}

// byteScheme encodes each UTF-8 byte as a token, so truncation can split a
// multi-byte character.
type byteScheme struct{}

func (byteScheme) Encode(text string) ([]int, error) {
	ids := make([]int, len(text))
	for i := 0; i < len(text); i++ {
		ids[i] = int(text[i])
	}
	return ids, nil
}

func (byteScheme) Decode(ids []int) (string, error) {
	b := make([]byte, len(ids))
	for i, id := range ids {
		b[i] = byte(id)
	}
	return string(b), nil
}

// vocabScheme greedily matches the longest known piece.
type vocabScheme map[string]int

func (v vocabScheme) Encode(text string) ([]int, error) {
	var ids []int
	for text != "" {
		best := ""
		for piece := range v {
			if len(piece) > len(best) && strings.HasPrefix(text, piece) {
				best = piece
			}
		}
		if best == "" {
			return nil, errors.New("no piece matches " + text)
		}
		ids = append(ids, v[best])
		text = text[len(best):]
	}
	return ids, nil
}

func (v vocabScheme) Decode(ids []int) (string, error) {
	var b strings.Builder
	for _, id := range ids {
		found := false
		for piece, pid := range v {
			if pid == id {
				b.WriteString(piece)
				found = true
				break
			}
		}
		if !found {
			return "", errors.New("unknown id")
		}
	}
	return b.String(), nil
}

// garbageScheme never decodes to a prefix of anything.
type garbageScheme struct{ runeScheme }

func (garbageScheme) Decode([]int) (string, error) { return "\x00garbage", nil }

// failingScheme fails to decode.
type failingScheme struct{ runeScheme }

func (failingScheme) Decode([]int) (string, error) { return "", errors.New("decode failed") }
