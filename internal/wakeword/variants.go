// Package wakeword generates spelling variants of the assistant name and
// detects them in transcripts.
package wakeword

import (
	"strings"
	"unicode/utf8"

	"github.com/roimerbautista/alkaris/internal/transcript"
)

// Generator expands an assistant name into the spellings a recognizer is
// likely to produce for it.
type Generator struct {
	rules Rules
}

// NewGenerator builds a generator for one locale family's rules.
func NewGenerator(rules Rules) *Generator {
	if rules.Vowels == "" {
		rules.Vowels = "aeiou"
	}
	return &Generator{rules: rules}
}

// WithPrefixes replaces the prefix-confusion list.
func (g *Generator) WithPrefixes(prefixes []string) *Generator {
	clone := *g
	clone.rules.Prefixes = append([]string(nil), prefixes...)
	return &clone
}

// Generate returns the ordered, de-duplicated variant set for name.
// The first entry is always the lowercased name when name is non-empty.
func (g *Generator) Generate(name string) []string {
	lower := strings.ToLower(strings.TrimSpace(name))
	if lower == "" {
		return nil
	}

	variants := []string{lower}
	if folded := strings.ToLower(transcript.Fold(lower)); folded != lower {
		variants = append(variants, folded)
	}

	variants = append(variants, g.rules.Overrides[lower]...)

	if utf8.RuneCountInString(lower) > 3 {
		r := []rune(lower)
		variants = append(variants,
			string(r[:2])+" "+string(r[2:]),
			string(r[:3])+" "+string(r[3:]),
			string(r[:len(r)/2])+" "+string(r[len(r)/2:]),
		)
	}

	base := snapshot(variants)
	for _, v := range base {
		for _, c := range g.rules.Confusions {
			if !strings.Contains(v, c.Pattern) {
				continue
			}
			for _, repl := range c.Replacements {
				variants = append(variants, strings.ReplaceAll(v, c.Pattern, repl))
			}
		}
	}

	base = snapshot(variants)
	for _, v := range base {
		if v == "" {
			continue
		}
		last, size := utf8.DecodeLastRuneInString(v)
		if strings.ContainsRune(g.rules.Vowels, last) {
			variants = append(variants, v[:len(v)-size])
			continue
		}
		for _, vowel := range g.rules.Vowels {
			variants = append(variants, v+string(vowel))
		}
	}

	base = snapshot(variants)
	for _, prefix := range g.rules.Prefixes {
		if prefix == "" {
			continue
		}
		for _, v := range base {
			if strings.HasPrefix(v, prefix) {
				continue
			}
			variants = append(variants, prefix+" "+v, prefix+v)
		}
	}

	return dedupe(variants)
}

func snapshot(in []string) []string {
	return append([]string(nil), in...)
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.Join(strings.Fields(v), " ")
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
