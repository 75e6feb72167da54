package fixture

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samcharles93/refgen/internal/scheme"
)

// Uses the offline rank files; every built-in scheme must load without a
// network.
func TestBuildWithBuiltinSchemes(t *testing.T) {
	reg := scheme.NewDefaultRegistry(scheme.RanksOffline)
	prompts := []string{
		"hello world",
		"鼹鼠在地下挖了一条很长很长的隧道，然后睡着了。",
		"Ünïcödé façade naïve 🦫🦫🦫 emoji",
	}
	for _, name := range scheme.Defaults() {
		s, err := reg.Get(name)
		require.NoError(t, err, name)
		for _, prompt := range prompts {
			for _, maxTokens := range []int{1, 3, DefaultMaxTokens} {
				rec, err := Build(s, prompt, maxTokens)
				require.NoError(t, err, "%s %q", name, prompt)
				checkMaximalTruncation(t, s, rec, maxTokens)
			}
		}
	}
}

func checkMaximalTruncation(t *testing.T, s scheme.Scheme, rec Record, maxTokens int) {
	t.Helper()
	n := len(rec.Truncated)
	require.LessOrEqual(t, n, maxTokens)
	require.Equal(t, rec.Output[:n], rec.Truncated)

	decoded, err := s.Decode(rec.Truncated)
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(decoded), "truncated decode is not valid utf-8: %q", decoded)
	assert.True(t, strings.HasPrefix(rec.Input, decoded), "%q is not a prefix of %q", decoded, rec.Input)

	// Every longer cut within the bound must fail the prefix check.
	for i := n + 1; i <= min(maxTokens, len(rec.Output)); i++ {
		longer, err := s.Decode(rec.Output[:i])
		require.NoError(t, err)
		assert.False(t, strings.HasPrefix(rec.Input, replaceInvalidUTF8(longer)),
			"cut of %d tokens also decodes to a prefix of %q", i, rec.Input)
	}
}

func TestBuildCJKFallsBackPastSplitCharacter(t *testing.T) {
	reg := scheme.NewDefaultRegistry(scheme.RanksOffline)
	s, err := reg.Get(scheme.CL100KBase)
	require.NoError(t, err)

	// Rare CJK characters take several byte-level tokens each in cl100k_base,
	// so the shortest cuts end inside a character.
	prompt := "鼹鼠"
	rec, err := Build(s, prompt, 1)
	require.NoError(t, err)
	require.NotEmpty(t, rec.Output)

	first, err := s.Decode(rec.Output[:1])
	require.NoError(t, err)
	if !utf8.ValidString(first) {
		assert.Empty(t, rec.Truncated)
	}
	checkMaximalTruncation(t, s, rec, 1)
}
