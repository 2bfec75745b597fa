package dispatch

import (
	"context"
	"errors"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roimerbautista/alkaris/internal/genai"
	"github.com/roimerbautista/alkaris/internal/identity"
	"github.com/roimerbautista/alkaris/internal/jokes"
	"github.com/roimerbautista/alkaris/internal/transcript"
	"github.com/roimerbautista/alkaris/internal/weather"
)

func (d *Dispatcher) tellJoke(ctx context.Context, _ Decision) (string, error) {
	if d.deps.Jokes == nil {
		return "", ErrNotConfigured
	}
	joke, err := d.deps.Jokes.Joke(ctx)
	if err != nil {
		d.logger.Warn("fetch joke", "error", err.Error())
		return jokes.Fallback, nil
	}
	return joke, nil
}

func (d *Dispatcher) weather(ctx context.Context, dec Decision) (string, error) {
	if d.deps.Weather == nil {
		return "", ErrNotConfigured
	}
	if strings.TrimSpace(dec.City) == "" {
		return "Por favor, especifica la ciudad para la que deseas conocer el clima.", nil
	}

	report, err := d.deps.Weather.Current(ctx, dec.City)
	if err != nil {
		return "", err
	}
	sentence, err := weather.Sentence(report, dec.City, dec.Aspect)
	if errors.Is(err, weather.ErrUnknownAspect) {
		return "Aspecto del clima no reconocido o no disponible.", nil
	}
	if err != nil {
		return "", err
	}
	return sentence, nil
}

func (d *Dispatcher) changeName(ctx context.Context, _ Decision) (string, error) {
	if d.deps.Identity == nil {
		return "", ErrNotConfigured
	}
	answer, err := d.ask(ctx, "¿Cuál es el nuevo nombre del asistente?")
	if err != nil {
		return "", err
	}
	name := cases.Title(language.Spanish).String(strings.Join(strings.Fields(answer), " "))
	if name == "" {
		return "El nombre del asistente no se ha cambiado porque la entrada estaba vacía.", nil
	}
	if err := d.deps.Identity.SetName(name); err != nil {
		return "", err
	}
	return "Nombre del asistente cambiado a " + name + ".", nil
}

func (d *Dispatcher) changeAccent(ctx context.Context, _ Decision) (string, error) {
	if d.deps.Identity == nil {
		return "", ErrNotConfigured
	}

	labels := make([]string, len(identity.Accents))
	for i, code := range identity.Accents {
		labels[i] = identity.AccentLabel(code)
	}
	answer, err := d.ask(ctx, "Acentos disponibles: "+strings.Join(labels, ", ")+". ¿Cuál prefieres?")
	if err != nil {
		return "", err
	}

	accent, ok := identity.ResolveAccent(answer)
	if !ok {
		return "Selección no válida.", nil
	}
	if err := d.deps.Identity.SetAccent(accent); err != nil {
		return "", err
	}
	return "Acento del asistente cambiado correctamente.", nil
}

// changeVoice stores the spoken voice id with words joined by hyphens, so
// "es la" selects "es-la". "predeterminada" clears the override.
func (d *Dispatcher) changeVoice(ctx context.Context, _ Decision) (string, error) {
	if d.deps.Identity == nil {
		return "", ErrNotConfigured
	}
	answer, err := d.ask(ctx, "Di el identificador de la nueva voz, o predeterminada para usar la voz por defecto.")
	if err != nil {
		return "", err
	}

	words := strings.Fields(transcript.Normalize(answer))
	if len(words) == 0 {
		return "La voz no se ha cambiado porque la entrada estaba vacía.", nil
	}
	voice := strings.Join(words, "-")
	if voice == "predeterminada" {
		voice = ""
	}
	if err := d.deps.Identity.SetVoice(voice); err != nil {
		return "", err
	}
	return "Voz del asistente cambiada.", nil
}

func (d *Dispatcher) resetConfig(_ context.Context, _ Decision) (string, error) {
	if d.deps.Identity == nil {
		return "", ErrNotConfigured
	}
	if err := d.deps.Identity.Reset(); err != nil {
		return "", err
	}
	return "La configuración del asistente ha sido reiniciada a los valores predeterminados.", nil
}

func (d *Dispatcher) silence(_ context.Context, _ Decision) (string, error) {
	d.speaker.Stop()
	return "", nil
}

func (d *Dispatcher) gestures(on bool) handler {
	return func(_ context.Context, _ Decision) (string, error) {
		if d.deps.Gestures == nil {
			return "", ErrNotConfigured
		}
		if on {
			d.deps.Gestures.Enable()
			return "Control gestual activado.", nil
		}
		d.deps.Gestures.Disable()
		return "Control gestual desactivado.", nil
	}
}

func (d *Dispatcher) describeScreen(ctx context.Context, _ Decision) (string, error) {
	if d.deps.AI == nil || d.deps.Snapshots == nil {
		return "", ErrNotConfigured
	}
	path, err := d.deps.Snapshots.Screen(ctx)
	if err != nil {
		d.logger.Warn("capture screen", "error", err.Error())
		return "No pude capturar la pantalla.", nil
	}
	defer d.removeSnapshot(path)

	return d.deps.AI.Generate(ctx, genai.Request{Prompt: genai.ScreenPrompt, ImagePath: path})
}

func (d *Dispatcher) analyzeAudio(ctx context.Context, _ Decision) (string, error) {
	return d.askAboutAudio(ctx, "Analiza este audio", false)
}

func (d *Dispatcher) identifySong(ctx context.Context, _ Decision) (string, error) {
	return d.askAboutAudio(ctx, "¿Qué canción es esta?", true)
}

func (d *Dispatcher) askAboutAudio(ctx context.Context, prompt string, song bool) (string, error) {
	if d.deps.AI == nil || d.deps.Snapshots == nil {
		return "", ErrNotConfigured
	}
	path, err := d.deps.Snapshots.Audio(ctx)
	if err != nil {
		d.logger.Warn("capture audio", "error", err.Error())
		return "No pude capturar el audio.", nil
	}
	defer d.removeSnapshot(path)

	answer, err := d.deps.AI.Generate(ctx, genai.Request{Prompt: prompt, AudioPath: path})
	if err != nil {
		return "", err
	}
	if song {
		if title, ok := genai.SongTitle(answer); ok {
			return "Según lo que escucho, la canción podría ser: " + title, nil
		}
	}
	return answer, nil
}

func (d *Dispatcher) freeform(ctx context.Context, dec Decision) (string, error) {
	if d.deps.AI == nil {
		return "", ErrNotConfigured
	}
	prompt := strings.TrimSpace(dec.Query)
	if prompt == "" {
		prompt = dec.Spoken
	}
	return d.deps.AI.Generate(ctx, genai.Request{Prompt: prompt})
}

func (d *Dispatcher) removeSnapshot(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		d.logger.Warn("remove snapshot", "path", path, "error", err.Error())
	}
}
