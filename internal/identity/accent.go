package identity

import (
	"strings"

	"github.com/roimerbautista/alkaris/internal/transcript"
)

var accentLabels = map[string]string{
	"es":    "Español (España)",
	"es-us": "Español (Estados Unidos)",
	"en":    "Inglés (Reino Unido)",
	"en-us": "Inglés (Estados Unidos)",
}

var accentVoices = map[string]string{
	"es":    "es",
	"es-us": "es-419",
	"en":    "en-gb",
	"en-us": "en-us",
}

// AccentVoice returns the synthesizer voice for an accent code. Unknown
// codes fall back to Castilian Spanish.
func AccentVoice(code string) string {
	if voice, ok := accentVoices[code]; ok {
		return voice
	}
	return "es"
}

// SpeechVoice returns the voice replies are spoken in: the selected voice
// id when one is set, otherwise the voice of the current accent.
func (id Identity) SpeechVoice() string {
	if id.VoiceID != "" {
		return id.VoiceID
	}
	return AccentVoice(id.Accent)
}

// AccentLabel returns the spoken label of an accent code.
func AccentLabel(code string) string {
	if label, ok := accentLabels[code]; ok {
		return label
	}
	return code
}

// ResolveAccent maps a spoken answer such as "inglés de estados unidos" to
// an accent code.
func ResolveAccent(spoken string) (string, bool) {
	text := transcript.Normalize(spoken)
	if text == "" {
		return "", false
	}

	american := containsAny(text, "estados unidos", "americano", "latino", "us")
	switch {
	case containsAny(text, "ingles", "english"):
		if american {
			return "en-us", true
		}
		return "en", true
	case containsAny(text, "espanol", "castellano", "spanish", "espana"):
		if american {
			return "es-us", true
		}
		return "es", true
	}

	for _, code := range Accents {
		if text == code {
			return code, true
		}
	}
	return "", false
}

func containsAny(text string, words ...string) bool {
	padded := " " + text + " "
	for _, w := range words {
		if strings.Contains(padded, " "+w+" ") {
			return true
		}
	}
	return false
}
