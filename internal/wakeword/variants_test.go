package wakeword

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func esGenerator() *Generator {
	return NewGenerator(DefaultRules().For("es"))
}

func TestGenerateStartsWithLowercasedName(t *testing.T) {
	t.Parallel()

	variants := esGenerator().Generate("Alkaris")
	require.NotEmpty(t, variants)
	require.Equal(t, "alkaris", variants[0])
}

func TestGenerateHasNoDuplicates(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"Alkaris", "Lía", "Jarvis", "Bob", "Quique Ramírez"} {
		variants := esGenerator().Generate(name)
		seen := map[string]bool{}
		for _, v := range variants {
			require.False(t, seen[v], "duplicate %q for %q", v, name)
			require.NotContains(t, v, "  ")
			seen[v] = true
		}
	}
}

func TestGenerateFoldedFormPresentOnlyWhenDifferent(t *testing.T) {
	t.Parallel()

	accented := esGenerator().Generate("Lía")
	require.Equal(t, "lía", accented[0])
	require.Equal(t, "lia", accented[1])

	plain := esGenerator().Generate("Lia")
	require.Equal(t, "lia", plain[0])
	require.NotContains(t, plain, "lía")
}

func TestGenerateIncludesOverridesAndSplits(t *testing.T) {
	t.Parallel()

	variants := esGenerator().Generate("alkaris")
	require.Subset(t, variants, []string{
		"al karis", "al caris", "alcaris", "alkari",
		"alk aris",
		"alquaris",
	})
}

func TestGenerateConfusionReplacesEveryOccurrence(t *testing.T) {
	t.Parallel()

	variants := NewGenerator(Rules{
		Confusions: []Confusion{{Pattern: "k", Replacements: []string{"c"}}},
	}).Generate("kako")
	require.Contains(t, variants, "caco")
	require.NotContains(t, variants, "cako")
}

func TestGenerateVowelEndingRule(t *testing.T) {
	t.Parallel()

	g := NewGenerator(Rules{})

	vowelEnd := g.Generate("ana")
	require.Equal(t, []string{"ana", "an"}, vowelEnd)

	consonantEnd := g.Generate("sol")
	require.Equal(t, []string{"sol", "sola", "sole", "soli", "solo", "solu"}, consonantEnd)
}

func TestGeneratePrefixConfusion(t *testing.T) {
	t.Parallel()

	variants := NewGenerator(Rules{Prefixes: []string{"al"}}).Generate("ana")
	require.Contains(t, variants, "al ana")
	require.Contains(t, variants, "alana")

	withPrefix := NewGenerator(Rules{Prefixes: []string{"al"}}).Generate("alba")
	require.NotContains(t, withPrefix, "al alba")
}

func TestWithPrefixesDoesNotMutateOriginal(t *testing.T) {
	t.Parallel()

	g := NewGenerator(Rules{Prefixes: []string{"al"}})
	other := g.WithPrefixes(nil)

	require.NotContains(t, other.Generate("ana"), "alana")
	require.Contains(t, g.Generate("ana"), "alana")
}

func TestGenerateEmptyName(t *testing.T) {
	t.Parallel()

	require.Empty(t, esGenerator().Generate("   "))
}
