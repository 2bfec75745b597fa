package wakeword

import "strings"

// greetings are interjections people put in front of the assistant's name.
// They carry no command and are dropped when they directly precede it.
var greetings = map[string]bool{
	"ok": true, "okay": true, "oye": true, "hey": true, "hola": true,
	"eh": true, "ey": true, "hi": true, "hello": true,
}

// Detection is the result of a successful wake-word search.
type Detection struct {
	Variant  string
	Residual string
}

// Detect reports the first variant, in generation order, that appears as a
// substring of text. The residual is text with the first occurrence of the
// variant removed, minus any greetings spoken right before it.
func Detect(text string, variants []string) (Detection, bool) {
	for _, v := range variants {
		if v == "" {
			continue
		}
		idx := strings.Index(text, v)
		if idx < 0 {
			continue
		}

		before := strings.Fields(text[:idx])
		for len(before) > 0 && greetings[before[len(before)-1]] {
			before = before[:len(before)-1]
		}
		words := append(before, strings.Fields(text[idx+len(v):])...)
		return Detection{
			Variant:  v,
			Residual: strings.Join(words, " "),
		}, true
	}
	return Detection{}, false
}
