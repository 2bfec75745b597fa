package command

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// DefaultThreshold is the similarity a best match must strictly exceed.
const DefaultThreshold = 0.8

// Match is the best-scoring synonym for a piece of text.
type Match struct {
	Command Command
	Synonym string
	Score   float64
}

// Matcher scores text against every synonym in a table.
type Matcher struct {
	table     *Table
	threshold float64
	stripped  [][]string
}

// NewMatcher builds a matcher. A non-positive threshold uses DefaultThreshold.
func NewMatcher(table *Table, threshold float64) *Matcher {
	if table == nil {
		table = DefaultTable()
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	stripped := make([][]string, len(table.entries))
	for i, e := range table.entries {
		for _, s := range e.Synonyms {
			stripped[i] = append(stripped[i], alphanumeric(s))
		}
	}
	return &Matcher{table: table, threshold: threshold, stripped: stripped}
}

// Table returns the synonym table backing the matcher.
func (m *Matcher) Table() *Table {
	return m.table
}

// Match returns the best command for normalized text. ok is false when the
// best score does not exceed the threshold.
func (m *Matcher) Match(normalized string) (Match, bool) {
	input := alphanumeric(normalized)
	if input == "" {
		return Match{}, false
	}

	var best Match
	for i, e := range m.table.entries {
		for j, s := range m.stripped[i] {
			score := Similarity(input, s)
			if score > best.Score {
				best = Match{Command: e.Command, Synonym: e.Synonyms[j], Score: score}
			}
		}
	}

	if best.Score <= m.threshold {
		return best, false
	}
	return best, true
}

// Similarity is 1 - editDistance/maxLen over runes, in [0, 1].
func Similarity(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := max(la, lb)
	if longest == 0 {
		return 1
	}
	d := levenshtein.ComputeDistance(a, b)
	return 1 - float64(d)/float64(longest)
}

func alphanumeric(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}
