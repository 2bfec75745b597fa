package dispatch

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/roimerbautista/alkaris/internal/command"
	"github.com/roimerbautista/alkaris/internal/transcript"
	"github.com/roimerbautista/alkaris/internal/weather"
)

// Class is how a routed command executes relative to the listen loop.
type Class string

const (
	ClassInline     Class = "inline"
	ClassBackground Class = "background"
	ClassTerminal   Class = "terminal"
	ClassDrop       Class = "drop"
)

// Decision is one routed command together with the arguments its handler
// needs.
type Decision struct {
	Command command.Command
	Class   Class
	Duck    bool

	// Text is the command text routing looked at: the matched key phrase,
	// or the normalized utterance when nothing matched.
	Text string
	// Spoken is the utterance after the wake word, as transcribed.
	Spoken string
	// Matched reports whether Text came from the synonym table.
	Matched bool
	// Interactive is set for spoken commands, whose handlers may ask a
	// follow-up question.
	Interactive bool

	Query     string
	City      string
	Aspect    string
	Number    int
	HasNumber bool
}

var (
	vlcControlPhrases = []string{"pausa vlc", "continuar vlc", "vlc pausa", "vlc continuar"}
	silenceWords      = []string{"callate", "silencio", "detente"}
	controlCommands   = map[string]command.Command{
		"detener":    command.Stop,
		"siguiente":  command.Next,
		"anterior":   command.Previous,
		"reproducir": command.Resume,
	}
	gestureCommands = map[string]command.Command{
		"activar gestos":    command.GesturesOn,
		"desactivar gestos": command.GesturesOff,
	}
	modeCommands = map[string]command.Command{
		"activar aleatorio":     command.ShuffleOn,
		"desactivar aleatorio":  command.ShuffleOff,
		"cambiar aleatorio":     command.ToggleShuffle,
		"repetir cancion":       command.RepeatTrack,
		"repetir album":         command.RepeatContext,
		"desactivar repeticion": command.RepeatOff,
		"cambiar repeticion":    command.SetRepeatMode,
	}
	recommendCommands = map[string]command.Command{
		"recomienda canciones": command.RecommendTracks,
		"recomienda artistas":  command.RecommendArtists,
	}
	identityCommands = map[string]command.Command{
		"cambiar acento del asistente": command.ChangeAccent,
		"cambiar voz del asistente":    command.ChangeVoice,
	}

	freeformPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^dime\b`),
		regexp.MustCompile(`^cuentame\b`),
		regexp.MustCompile(`^sabes\b`),
		regexp.MustCompile(`^busca\b`),
		regexp.MustCompile(`^que es\b`),
		regexp.MustCompile(`^como\b`),
		regexp.MustCompile(`^quien\b`),
		regexp.MustCompile(`^que\b`),
		regexp.MustCompile(`^por favor\b`),
		regexp.MustCompile(`^ayuda\b`),
		regexp.MustCompile(`^explica\b`),
		regexp.MustCompile(`^informame\b`),
	}

	noDuck = map[command.Command]struct{}{
		command.VolumeUp: {}, command.VolumeDown: {}, command.VolumeSet: {},
		command.Silence: {}, command.VideoPlay: {}, command.VideoPause: {},
		command.VideoVolume: {}, command.VideoSeek: {}, command.VLCToggle: {},
		command.VLCVolume: {},
	}
)

// Route maps command text to exactly one command. text is the matched key
// phrase when matched is true, otherwise the normalized utterance. spoken is
// the raw residual after the wake word. The first rule that applies wins.
func Route(text string, spoken string, matched bool) Decision {
	text = transcript.Normalize(text)
	spoken = strings.TrimSpace(spoken)
	folded := transcript.Normalize(spoken)

	d := Decision{Text: text, Spoken: spoken, Matched: matched, Interactive: true}
	with := func(c command.Command) Decision {
		d.Command = c
		return classify(d)
	}
	withNumber := func(c command.Command, texts ...string) Decision {
		for _, t := range texts {
			if n, ok := ExtractNumber(t); ok {
				d.Number, d.HasNumber = n, true
				break
			}
		}
		return with(c)
	}

	switch {
	case strings.HasPrefix(text, "reproduce"):
		d.Query = argumentAfter(spoken, "reproduce")
		return with(command.Play)
	case strings.Contains(text, "cuentame un chiste"):
		return with(command.TellJoke)
	case strings.Contains(text, "play video"):
		return with(command.VideoPlay)
	case strings.Contains(text, "reiniciar configuracion"):
		return with(command.ResetConfig)
	case strings.Contains(text, "pausa video"):
		return with(command.VideoPause)
	case strings.HasPrefix(text, "establece volume"):
		return withNumber(command.VideoVolume, text, folded)
	case strings.HasPrefix(text, "segundo"):
		return withNumber(command.VideoSeek, text, folded)
	case strings.HasPrefix(text, "busca en youtube"):
		d.Query = argumentAfter(spoken, "busca en youtube")
		return with(command.SearchYouTube)
	case slices.Contains(vlcControlPhrases, text):
		return with(command.VLCToggle)
	case strings.HasPrefix(text, "vlc volumen"), strings.HasPrefix(text, "volumen vlc"):
		return withNumber(command.VLCVolume, text, folded)
	case strings.HasPrefix(text, "vlc"):
		d.Query = argumentAfter(spoken, "vlc")
		return with(command.VLCPlay)
	case strings.Contains(text, "reproducir favoritos"):
		return with(command.PlayFavorites)
	case slices.Contains(silenceWords, text):
		return with(command.Silence)
	}

	if c, ok := gestureCommands[text]; ok {
		return with(c)
	}
	if c, ok := controlCommands[text]; ok {
		return with(c)
	}

	switch {
	case strings.Contains(text, "agregar a favoritos"):
		return with(command.AddFavorite)
	case strings.Contains(text, "eliminar de favoritos"):
		return with(command.RemoveFavorite)
	}

	if c, ok := modeCommands[text]; ok {
		return with(c)
	}
	if strings.HasPrefix(text, "reproducir album") {
		d.Query = argumentAfter(spoken, "reproducir album")
		return with(command.PlayAlbum)
	}
	if c, ok := recommendCommands[text]; ok {
		return with(c)
	}

	switch {
	case strings.Contains(text, "elegir dispositivo"):
		return with(command.ChooseDevice)
	case strings.Contains(text, "validar cuenta"):
		return with(command.ValidateAccount)
	case strings.Contains(text, "mostrar mis playlist"):
		return with(command.ShowPlaylists)
	case strings.Contains(text, "como se llama esta cancion"):
		return with(command.CurrentTrackName)
	}

	if c, ok := identityCommands[text]; ok {
		return with(c)
	}
	if strings.Contains(folded, "clima") {
		d.City, d.Aspect, _ = weather.ParseQuery(folded)
		return with(command.Weather)
	}
	if city, aspect, ok := weather.ParseAspectQuery(text); ok && weather.IsAspect(aspect) {
		d.City, d.Aspect = city, aspect
		return with(command.Weather)
	}

	switch {
	case strings.Contains(text, "subir volumen"):
		return with(command.VolumeUp)
	case strings.Contains(text, "bajar volumen"):
		return with(command.VolumeDown)
	case strings.Contains(text, "volumen"):
		return withNumber(command.VolumeSet, digitsOnly(text), digitsOnly(folded))
	case strings.Contains(text, "salir"):
		return with(command.Exit)
	case text == "cambiar nombre del asistente":
		return with(command.ChangeAssistantName)
	case text == "que ves en mi pantalla":
		return with(command.DescribeScreen)
	case text == "escucha audio":
		return with(command.AnalyzeAudio)
	case text == "escucha audio y dime que cancion es":
		return with(command.IdentifySongFromAudio)
	}

	if IsFreeformQuery(text) {
		d.Query = spoken
		return with(command.FreeformQuery)
	}
	return with(command.Unknown)
}

// ForCommand builds the decision for a command issued without speech, such
// as a gesture.
func ForCommand(c command.Command) Decision {
	return classify(Decision{Command: c})
}

func classify(d Decision) Decision {
	switch d.Command {
	case command.DescribeScreen, command.AnalyzeAudio, command.IdentifySongFromAudio, command.FreeformQuery:
		d.Class = ClassBackground
	case command.Exit:
		d.Class = ClassTerminal
	case command.Unknown:
		d.Class = ClassDrop
	default:
		d.Class = ClassInline
		_, skip := noDuck[d.Command]
		d.Duck = !skip
	}
	return d
}

// ExtractNumber returns the first all-digit token in text. ok is false when
// there is none, which is distinct from an explicit zero.
func ExtractNumber(text string) (int, bool) {
	for _, word := range strings.Fields(text) {
		if !isDigits(word) {
			continue
		}
		n, err := strconv.Atoi(word)
		if err != nil {
			continue
		}
		return n, true
	}
	return 0, false
}

// IsFreeformQuery reports whether text opens like a question or request
// worth sending to the generative service.
func IsFreeformQuery(text string) bool {
	text = strings.TrimLeftFunc(transcript.Normalize(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, p := range freeformPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// argumentAfter returns what follows prefix in spoken. When spoken does not
// start with prefix the first word is dropped instead.
func argumentAfter(spoken string, prefix string) string {
	words := strings.Fields(spoken)
	n := len(strings.Fields(prefix))
	if len(words) >= n && transcript.Normalize(strings.Join(words[:n], " ")) == prefix {
		return strings.Join(words[n:], " ")
	}
	if len(words) > 1 {
		return strings.Join(words[1:], " ")
	}
	return ""
}

func digitsOnly(text string) string {
	return strings.Map(func(r rune) rune {
		if ('0' <= r && r <= '9') || r == ' ' {
			return r
		}
		return ' '
	}, text)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
