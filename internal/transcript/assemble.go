// Package transcript cleans and normalizes recognized speech text.
package transcript

import "strings"

// Options controls transcript cleanup behavior.
type Options struct {
	CollapseRepeats bool
	Corrections     []Correction
}

// DefaultOptions returns cleanup settings used by the listening pipeline.
func DefaultOptions() Options {
	return Options{
		CollapseRepeats: true,
		Corrections:     DefaultCorrections(),
	}
}

// Clean lowercases raw recognizer output, collapses whitespace and adjacent
// duplicate tokens, then applies known mis-transcription fixes.
func Clean(raw string, opts Options) string {
	text := strings.Join(strings.Fields(strings.ToLower(raw)), " ")
	if text == "" {
		return ""
	}

	if opts.CollapseRepeats {
		text = CollapseRepeats(text)
	}
	return Correct(text, opts.Corrections)
}

// CollapseRepeats keeps one token from every run of identical adjacent tokens.
func CollapseRepeats(text string) string {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return ""
	}

	out := tokens[:1]
	for _, token := range tokens[1:] {
		if token == out[len(out)-1] {
			continue
		}
		out = append(out, token)
	}
	return strings.Join(out, " ")
}
