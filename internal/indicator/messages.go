package indicator

import (
	"os"
	"strings"
)

type locale string

const (
	localeSpanish locale = "es"
	localeEnglish locale = "en"
)

type messages struct {
	listening  string
	processing string
	errorText  string
}

func indicatorMessagesFromEnv() messages {
	return indicatorMessages(resolveLocale(os.Getenv("LANG")))
}

// resolveLocale picks English only for an explicit English LANG.
func resolveLocale(raw string) locale {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if strings.HasPrefix(raw, "en") {
		return localeEnglish
	}
	return localeSpanish
}

func indicatorMessages(tag locale) messages {
	switch tag {
	case localeEnglish:
		return messages{
			listening:  "Listening…",
			processing: "Processing…",
			errorText:  "Something went wrong",
		}
	default:
		return messages{
			listening:  "Escuchando…",
			processing: "Procesando…",
			errorText:  "Ocurrió un error",
		}
	}
}
