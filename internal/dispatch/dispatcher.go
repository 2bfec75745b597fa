// Package dispatch routes recognized utterances to canonical commands and
// executes them inline, in the background, or as the terminal command.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/roimerbautista/alkaris/internal/command"
	"github.com/roimerbautista/alkaris/internal/genai"
	"github.com/roimerbautista/alkaris/internal/identity"
	"github.com/roimerbautista/alkaris/internal/jokes"
	"github.com/roimerbautista/alkaris/internal/media"
	"github.com/roimerbautista/alkaris/internal/pipeline"
	"github.com/roimerbautista/alkaris/internal/transcript"
	"github.com/roimerbautista/alkaris/internal/weather"
)

var (
	// ErrUnexpected wraps a handler panic recovered at the dispatch boundary.
	ErrUnexpected = errors.New("unexpected dispatch failure")
	// ErrNotConfigured indicates the collaborator a command needs is absent.
	ErrNotConfigured = errors.New("collaborator not configured")
)

// Apology is spoken by the loop after an unexpected failure.
const Apology = "Ocurrió un error inesperado. Por favor, intenta nuevamente más tarde."

// Speaker is the shared audio output.
type Speaker interface {
	Say(ctx context.Context, text string) error
	Stop()
}

// Ducker wraps an action with lowered playback volume.
type Ducker interface {
	WithDucking(ctx context.Context, action func(context.Context) error) error
}

// StreamPlayer controls an external video or audio stream player.
type StreamPlayer interface {
	Play(ctx context.Context, target string) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	TogglePause(ctx context.Context) error
	SetVolume(ctx context.Context, percent int) error
	Seek(ctx context.Context, seconds int) error
}

// WeatherService fetches current conditions.
type WeatherService interface {
	Current(ctx context.Context, city string) (weather.Report, error)
}

// JokeService fetches one joke.
type JokeService interface {
	Joke(ctx context.Context) (string, error)
}

// Generator answers generative queries.
type Generator interface {
	Generate(ctx context.Context, req genai.Request) (string, error)
}

// Snapshotter captures temp files for generative queries.
type Snapshotter interface {
	Screen(ctx context.Context) (string, error)
	Audio(ctx context.Context) (string, error)
}

// IdentityStore is the mutable assistant identity.
type IdentityStore interface {
	Snapshot() identity.Identity
	SetName(name string) error
	SetAccent(accent string) error
	SetVoice(voiceID string) error
	Reset() error
}

// Prompter captures one follow-up answer without requiring the wake word.
type Prompter interface {
	Prompt(ctx context.Context) (string, error)
}

// GestureSwitch turns the gesture worker on and off.
type GestureSwitch interface {
	Enable()
	Disable()
}

// Metrics observes routing results.
type Metrics interface {
	ObserveCommand(command string, class string)
	ObserveUnmatched()
}

type noopMetrics struct{}

func (noopMetrics) ObserveCommand(string, string) {}
func (noopMetrics) ObserveUnmatched()             {}

type noopSpeaker struct{}

func (noopSpeaker) Say(context.Context, string) error { return nil }
func (noopSpeaker) Stop()                             {}

type passthroughDucker struct{}

func (passthroughDucker) WithDucking(ctx context.Context, action func(context.Context) error) error {
	return action(ctx)
}

// Deps are the dispatcher's collaborators. Only Media is needed for the
// music commands; any other nil collaborator makes its commands answer
// that the feature is unavailable.
type Deps struct {
	Logger    *slog.Logger
	Matcher   *command.Matcher
	Speaker   Speaker
	Media     media.Backend
	Ducker    Ducker
	Video     StreamPlayer
	Stream    StreamPlayer
	Weather   WeatherService
	Jokes     JokeService
	AI        Generator
	Snapshots Snapshotter
	Identity  IdentityStore
	Prompter  Prompter
	Gestures  GestureSwitch
	Unmatched *UnmatchedLog
	Tasks     *Tasks
	Metrics   Metrics
}

type handler func(ctx context.Context, d Decision) (string, error)

// Dispatcher decides and executes commands.
type Dispatcher struct {
	logger   *slog.Logger
	matcher  *command.Matcher
	speaker  Speaker
	ducker   Ducker
	tasks    *Tasks
	metrics  Metrics
	deps     Deps
	handlers map[command.Command]handler
}

// New constructs a dispatcher with safe fallbacks for optional collaborators.
func New(deps Deps) *Dispatcher {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if deps.Matcher == nil {
		deps.Matcher = command.NewMatcher(nil, 0)
	}
	if deps.Speaker == nil {
		deps.Speaker = noopSpeaker{}
	}
	if deps.Ducker == nil {
		deps.Ducker = passthroughDucker{}
	}
	if deps.Tasks == nil {
		deps.Tasks = NewTasks(deps.Logger, nil)
	}
	if deps.Metrics == nil {
		deps.Metrics = noopMetrics{}
	}

	d := &Dispatcher{
		logger:  deps.Logger,
		matcher: deps.Matcher,
		speaker: deps.Speaker,
		ducker:  deps.Ducker,
		tasks:   deps.Tasks,
		metrics: deps.Metrics,
		deps:    deps,
	}
	d.handlers = d.routes()
	return d
}

// Decide normalizes and matches spoken text, then routes it. Unmatched
// text is appended to the unmatched log.
func (d *Dispatcher) Decide(spoken string) Decision {
	normalized := transcript.Normalize(spoken)
	text := normalized

	m, ok := d.matcher.Match(normalized)
	if ok {
		if key, found := d.matcher.Table().Key(m.Command); found {
			text = key
		}
	} else {
		d.metrics.ObserveUnmatched()
		if d.deps.Unmatched != nil {
			if err := d.deps.Unmatched.AppendLine(normalized); err != nil {
				d.logger.Warn("record unmatched command", "error", err.Error())
			}
		}
	}

	decision := Route(text, spoken, ok)
	d.logger.Info("command routed",
		"command", string(decision.Command),
		"class", string(decision.Class),
		"matched", ok,
		"score", m.Score,
		"text", text,
	)
	return decision
}

// Execute runs a decision. Background work is handed to the task runner and
// Execute returns immediately. A panicking inline handler is reported as
// ErrUnexpected after the volume has been restored.
func (d *Dispatcher) Execute(ctx context.Context, decision Decision) (err error) {
	d.metrics.ObserveCommand(string(decision.Command), string(decision.Class))

	switch decision.Class {
	case ClassDrop:
		d.logger.Debug("dropping unrecognized command", "text", decision.Text)
		return nil
	case ClassTerminal:
		d.say(ctx, "Saliendo de la aplicación")
		return nil
	case ClassBackground:
		d.tasks.Go(ctx, string(decision.Command), func(ctx context.Context) {
			d.run(ctx, decision)
		})
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrUnexpected, decision.Command, r)
		}
	}()

	action := func(ctx context.Context) error {
		d.run(ctx, decision)
		return nil
	}
	if decision.Duck {
		return d.ducker.WithDucking(ctx, action)
	}
	return action(ctx)
}

// Run executes c without an utterance, as gestures do.
func (d *Dispatcher) Run(ctx context.Context, c command.Command) error {
	return d.Execute(ctx, ForCommand(c))
}

// Say speaks text on the shared output, logging failures.
func (d *Dispatcher) Say(ctx context.Context, text string) {
	d.say(ctx, text)
}

// InFlight returns the number of running background tasks.
func (d *Dispatcher) InFlight() int {
	return d.tasks.InFlight()
}

// Wait waits up to timeout for background tasks to finish.
func (d *Dispatcher) Wait(timeout time.Duration) bool {
	return d.tasks.Wait(timeout)
}

func (d *Dispatcher) run(ctx context.Context, decision Decision) {
	h, ok := d.handlers[decision.Command]
	if !ok {
		d.logger.Warn("no handler for command", "command", string(decision.Command))
		return
	}

	reply, err := h(ctx, decision)
	if err != nil {
		d.logger.Warn("command failed", "command", string(decision.Command), "error", err.Error())
		reply = failureReply(decision.Command, err)
	}
	d.say(ctx, reply)
}

func (d *Dispatcher) say(ctx context.Context, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	if err := d.speaker.Say(ctx, text); err != nil {
		d.logger.Warn("speak reply", "error", err.Error())
	}
}

// ask speaks question and captures a single follow-up answer.
func (d *Dispatcher) ask(ctx context.Context, question string) (string, error) {
	if d.deps.Prompter == nil {
		return "", ErrNotConfigured
	}
	d.say(ctx, question)
	answer, err := d.deps.Prompter.Prompt(ctx)
	if err != nil {
		return "", fmt.Errorf("prompt for answer: %w", err)
	}
	return strings.TrimSpace(answer), nil
}

var failureMessages = map[command.Command]string{
	command.Play:                  "Ocurrió un error al buscar la canción.",
	command.TellJoke:              jokes.Fallback,
	command.Weather:               "No se pudo obtener el clima para esa ciudad.",
	command.VolumeUp:              "Ocurrió un error al subir el volumen.",
	command.VolumeDown:            "Ocurrió un error al bajar el volumen.",
	command.VolumeSet:             "Ocurrió un error al ajustar el volumen.",
	command.AddFavorite:           "Ocurrió un error al intentar agregar la canción a favoritos.",
	command.RemoveFavorite:        "Ocurrió un error al eliminar la canción de favoritos.",
	command.PlayFavorites:         "Ocurrió un error al intentar reproducir tus canciones favoritas.",
	command.CurrentTrackName:      "Ocurrió un error al intentar obtener el nombre de la canción actual.",
	command.ShuffleOn:             "Ocurrió un error al configurar el modo aleatorio.",
	command.ShuffleOff:            "Ocurrió un error al configurar el modo aleatorio.",
	command.ToggleShuffle:         "Ocurrió un error al cambiar el modo aleatorio.",
	command.RepeatTrack:           "Ocurrió un error al configurar el modo de repetición.",
	command.RepeatContext:         "Ocurrió un error al configurar el modo de repetición.",
	command.RepeatOff:             "Ocurrió un error al configurar el modo de repetición.",
	command.SetRepeatMode:         "Ocurrió un error al cambiar el modo de repetición.",
	command.PlayAlbum:             "Ocurrió un error al intentar reproducir el álbum.",
	command.ValidateAccount:       "Ocurrió un error al validar la conexión con el reproductor.",
	command.DescribeScreen:        "Hubo un error al procesar tu solicitud.",
	command.AnalyzeAudio:          "Hubo un error al procesar tu solicitud.",
	command.IdentifySongFromAudio: "Hubo un error al procesar tu solicitud.",
	command.FreeformQuery:         "Hubo un error al procesar tu solicitud.",
}

// failureReply turns a handler error into a short spoken message.
func failureReply(c command.Command, err error) string {
	switch {
	case errors.Is(err, media.ErrNoActiveDevice):
		return "No se encontró un dispositivo activo."
	case errors.Is(err, media.ErrUnsupported):
		return "Esta función no está disponible con el reproductor actual."
	case errors.Is(err, media.ErrPlayerNotRunning):
		return "No hay ningún video en reproducción."
	case errors.Is(err, ErrNotConfigured):
		return "Esta función no está configurada."
	case errors.Is(err, pipeline.ErrServiceUnavailable):
		return "El servicio no está disponible en este momento. Inténtalo más tarde."
	}
	if msg, ok := failureMessages[c]; ok {
		return msg
	}
	return "Ocurrió un error al ejecutar el comando."
}
