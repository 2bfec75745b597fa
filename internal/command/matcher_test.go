package command

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatchExactSynonym(t *testing.T) {
	t.Parallel()

	m := NewMatcher(DefaultTable(), DefaultThreshold)
	got, ok := m.Match("detener")
	require.True(t, ok)
	require.Equal(t, Stop, got.Command)
	require.InDelta(t, 1.0, got.Score, 1e-9)
}

func TestMatchNoCloseSynonym(t *testing.T) {
	t.Parallel()

	m := NewMatcher(DefaultTable(), DefaultThreshold)
	_, ok := m.Match("xyzxyz")
	require.False(t, ok)
}

func TestMatchIgnoresPunctuationAndSpaces(t *testing.T) {
	t.Parallel()

	m := NewMatcher(DefaultTable(), DefaultThreshold)
	got, ok := m.Match("agregar, a favoritos!")
	require.True(t, ok)
	require.Equal(t, AddFavorite, got.Command)
}

func TestMatchToleratesSmallMisspelling(t *testing.T) {
	t.Parallel()

	m := NewMatcher(DefaultTable(), DefaultThreshold)
	got, ok := m.Match("siguente")
	require.True(t, ok)
	require.Equal(t, Next, got.Command)
	require.Greater(t, got.Score, DefaultThreshold)
}

func TestMatchAccentFoldedSynonyms(t *testing.T) {
	t.Parallel()

	m := NewMatcher(DefaultTable(), DefaultThreshold)
	got, ok := m.Match("repetir album")
	require.True(t, ok)
	require.Equal(t, RepeatContext, got.Command)
}

func TestMatchTieGoesToEarlierEntry(t *testing.T) {
	t.Parallel()

	table, err := ParseTable([]byte(`
- command: stop
  key: alto
  synonyms: [alto]
- command: exit
  key: alto
  synonyms: [alto]
`))
	require.NoError(t, err)

	got, ok := NewMatcher(table, DefaultThreshold).Match("alto")
	require.True(t, ok)
	require.Equal(t, Stop, got.Command)
}

func TestMatchScoreAtThresholdIsRejected(t *testing.T) {
	t.Parallel()

	table, err := ParseTable([]byte(`
- command: stop
  key: abcde
  synonyms: [abcde]
`))
	require.NoError(t, err)

	// one substitution over five runes scores exactly 0.8
	got, ok := NewMatcher(table, DefaultThreshold).Match("abcdx")
	require.False(t, ok)
	require.InDelta(t, 0.8, got.Score, 1e-9)
}

func TestMatchEmptyInput(t *testing.T) {
	t.Parallel()

	_, ok := NewMatcher(nil, 0).Match("¿?")
	require.False(t, ok)
}

func TestSimilarity(t *testing.T) {
	t.Parallel()

	require.InDelta(t, 1.0, Similarity("", ""), 1e-9)
	require.InDelta(t, 0.0, Similarity("abc", ""), 1e-9)
	require.InDelta(t, 0.75, Similarity("cafe", "caf"), 1e-9)
	require.InDelta(t, 0.8, Similarity("pausa", "pauso"), 1e-9)
}
