package transcript

import "strings"

// Correction rewrites a phrase the recognizer is known to split or mishear.
type Correction struct {
	From string
	To   string
}

// DefaultCorrections returns the built-in mis-transcription table.
func DefaultCorrections() []Correction {
	return []Correction{
		{From: "de tener", To: "detener"},
	}
}

// Correct applies every correction in order, replacing all occurrences.
func Correct(text string, corrections []Correction) string {
	for _, c := range corrections {
		if c.From == "" {
			continue
		}
		text = strings.ReplaceAll(text, c.From, c.To)
	}
	return text
}
