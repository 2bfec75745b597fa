package transcript

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold strips combining accent marks: "canción" becomes "cancion" and "ñ"
// becomes "n".
func Fold(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, text)
	if err != nil {
		return text
	}
	return folded
}

// Normalize produces the comparison form used by command matching:
// accent-folded, lowercased and trimmed.
func Normalize(text string) string {
	return strings.TrimSpace(strings.ToLower(Fold(text)))
}
