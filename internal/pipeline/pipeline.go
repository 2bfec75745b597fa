// Package pipeline runs one listen -> denoise -> transcribe -> wake-word cycle.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/roimerbautista/alkaris/internal/audio"
	"github.com/roimerbautista/alkaris/internal/identity"
	"github.com/roimerbautista/alkaris/internal/transcript"
	"github.com/roimerbautista/alkaris/internal/wakeword"
)

var (
	// ErrUnintelligible indicates the service heard audio but produced no text.
	ErrUnintelligible = errors.New("speech not understood")
	// ErrServiceUnavailable indicates the transcription service could not be reached.
	ErrServiceUnavailable = errors.New("transcription service unavailable")
)

// Stage names one step of a listening cycle.
type Stage string

const (
	StageIdle         Stage = "idle"
	StageListening    Stage = "listening"
	StageCaptured     Stage = "captured"
	StageDenoising    Stage = "denoising"
	StageTranscribing Stage = "transcribing"
	StageMatched      Stage = "matched"
	StageNoWakeWord   Stage = "no_wake_word"
	StageFailed       Stage = "failed"
)

// Outcome is the terminal result of one ListenOnce call.
type Outcome struct {
	Stage      Stage
	Recognized bool
	// Command is the text that followed the wake word.
	Command string
	// Transcript is the cleaned transcription the wake word was searched in.
	Transcript string
	Variant    string
	Reason     string
}

// Stream is one open microphone.
type Stream interface {
	Calibrate(ctx context.Context, d time.Duration) error
	Listen(ctx context.Context, timeout time.Duration, phraseLimit time.Duration) (audio.Utterance, error)
	Close() error
}

// Microphone opens scoped capture streams starting from an energy threshold.
type Microphone interface {
	Open(ctx context.Context, threshold float64) (Stream, error)
}

// MicrophoneFunc adapts a function into a Microphone.
type MicrophoneFunc func(ctx context.Context, threshold float64) (Stream, error)

// Open calls f.
func (f MicrophoneFunc) Open(ctx context.Context, threshold float64) (Stream, error) {
	return f(ctx, threshold)
}

// FromAudio adapts the pulse-backed microphone.
func FromAudio(mic audio.Microphone) Microphone {
	return MicrophoneFunc(func(ctx context.Context, threshold float64) (Stream, error) {
		stream, err := mic.Open(ctx, threshold)
		if err != nil {
			return nil, err
		}
		return stream, nil
	})
}

// Denoiser removes background noise from a captured utterance.
type Denoiser interface {
	Reduce(audio.Utterance) (audio.Utterance, error)
}

// Transcriber converts a WAV file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, wavPath string, locale string) (string, error)
}

// Indicator reflects listening state to the user.
type Indicator interface {
	ShowListening(context.Context)
	ShowProcessing(context.Context)
	Hide(context.Context)
}

// Metrics receives per-cycle observations.
type Metrics interface {
	ObserveOutcome(stage string)
	ObserveTranscription(time.Duration)
}

// Identity provides the current assistant identity.
type Identity interface {
	Snapshot() identity.Identity
}

type noopIndicator struct{}

func (noopIndicator) ShowListening(context.Context)  {}
func (noopIndicator) ShowProcessing(context.Context) {}
func (noopIndicator) Hide(context.Context)           {}

type noopMetrics struct{}

func (noopMetrics) ObserveOutcome(string)              {}
func (noopMetrics) ObserveTranscription(time.Duration) {}

// Options controls listening timing and transcript cleanup.
type Options struct {
	Calibration   time.Duration
	ListenTimeout time.Duration
	PhraseLimit   time.Duration
	Locale        string
	TempDir       string
	Cleanup       transcript.Options
	Rules         wakeword.RuleSet
	Prefixes      []string
}

// DefaultOptions returns the listening defaults.
func DefaultOptions() Options {
	return Options{
		Calibration:   800 * time.Millisecond,
		ListenTimeout: 50 * time.Second,
		PhraseLimit:   5 * time.Second,
		Locale:        "es-ES",
		Cleanup:       transcript.DefaultOptions(),
		Rules:         wakeword.DefaultRules(),
		Prefixes:      []string{"al"},
	}
}

// Pipeline owns the capture and recognition collaborators. It is not safe
// for concurrent ListenOnce calls; one owner drives it.
type Pipeline struct {
	logger      *slog.Logger
	mic         Microphone
	denoiser    Denoiser
	transcriber Transcriber
	identity    Identity
	indicator   Indicator
	metrics     Metrics
	opts        Options
}

// New constructs a pipeline with safe defaults for optional collaborators.
func New(
	logger *slog.Logger,
	mic Microphone,
	denoiser Denoiser,
	transcriber Transcriber,
	id Identity,
	indicator Indicator,
	metrics Metrics,
	opts Options,
) *Pipeline {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	if denoiser == nil {
		denoiser = audio.DefaultNoiseGate()
	}
	if indicator == nil {
		indicator = noopIndicator{}
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if opts.Rules == nil {
		opts.Rules = wakeword.DefaultRules()
	}
	if opts.Locale == "" {
		opts.Locale = "es-ES"
	}
	return &Pipeline{
		logger:      logger,
		mic:         mic,
		denoiser:    denoiser,
		transcriber: transcriber,
		identity:    id,
		indicator:   indicator,
		metrics:     metrics,
		opts:        opts,
	}
}

// Variants returns the wake-word variants for the current assistant name.
func (p *Pipeline) Variants() []string {
	id := p.identity.Snapshot()
	return VariantsFor(p.opts.Rules, p.opts.Prefixes, id.Name, id.Accent)
}

// VariantsFor generates wake-word variants for name under the accent's rules.
func VariantsFor(rules wakeword.RuleSet, prefixes []string, name string, accent string) []string {
	gen := wakeword.NewGenerator(rules.For(accent))
	if prefixes != nil {
		gen = gen.WithPrefixes(prefixes)
	}
	return gen.Generate(name)
}

// ListenOnce runs one recognition cycle. Expected empty results (timeout,
// unintelligible speech, denoiser failure, missing wake word) are reported
// through Outcome with a nil error. ErrServiceUnavailable and unexpected
// failures are returned to the caller.
func (p *Pipeline) ListenOnce(ctx context.Context) (Outcome, error) {
	text, outcome, err := p.recognize(ctx)
	if err != nil || outcome.Stage == StageFailed {
		p.metrics.ObserveOutcome(string(outcome.Stage))
		return outcome, err
	}

	variants := p.Variants()
	detection, ok := wakeword.Detect(text, variants)
	if !ok {
		p.logger.Debug("wake word absent", "transcript", text)
		outcome = Outcome{Stage: StageNoWakeWord, Transcript: text}
		p.metrics.ObserveOutcome(string(outcome.Stage))
		return outcome, nil
	}

	p.logger.Info("wake word detected", "variant", detection.Variant, "command", detection.Residual)
	outcome = Outcome{
		Stage:      StageMatched,
		Recognized: true,
		Command:    detection.Residual,
		Transcript: text,
		Variant:    detection.Variant,
	}
	p.metrics.ObserveOutcome(string(outcome.Stage))
	return outcome, nil
}

// Prompt captures and transcribes one reply without requiring the wake
// word. An empty string with a nil error means nothing usable was heard.
func (p *Pipeline) Prompt(ctx context.Context) (string, error) {
	text, outcome, err := p.recognize(ctx)
	if err != nil {
		return "", err
	}
	if outcome.Stage == StageFailed {
		return "", nil
	}
	return text, nil
}

// recognize runs listen, denoise and transcribe. It returns the cleaned
// transcript, or a failed outcome when the cycle ended early.
func (p *Pipeline) recognize(ctx context.Context) (string, Outcome, error) {
	if p.mic == nil || p.transcriber == nil || p.identity == nil {
		return "", Outcome{Stage: StageFailed, Reason: "pipeline not wired"}, errors.New("pipeline collaborators are not configured")
	}

	utterance, outcome, err := p.capture(ctx)
	if err != nil || outcome.Stage == StageFailed {
		return "", outcome, err
	}

	p.indicator.ShowProcessing(ctx)
	defer p.indicator.Hide(ctx)

	denoised, err := p.denoiser.Reduce(utterance)
	if err != nil {
		p.logger.Warn("noise reduction failed", "error", err.Error())
		return "", Outcome{Stage: StageFailed, Reason: "denoise: " + err.Error()}, nil
	}

	raw, err := p.transcribe(ctx, denoised)
	switch {
	case errors.Is(err, ErrUnintelligible):
		p.logger.Debug("speech not understood")
		return "", Outcome{Stage: StageFailed, Reason: "unintelligible"}, nil
	case errors.Is(err, ErrServiceUnavailable):
		return "", Outcome{Stage: StageFailed, Reason: "service unavailable"}, err
	case err != nil:
		return "", Outcome{Stage: StageFailed, Reason: "transcribe"}, fmt.Errorf("transcribe utterance: %w", err)
	}

	text := transcript.Clean(raw, p.opts.Cleanup)
	if text == "" {
		return "", Outcome{Stage: StageFailed, Reason: "empty transcript"}, nil
	}
	p.logger.Debug("transcribed", "text", text)
	return text, Outcome{Stage: StageTranscribing, Transcript: text}, nil
}

// capture opens the microphone for one phrase and always closes it.
func (p *Pipeline) capture(ctx context.Context) (audio.Utterance, Outcome, error) {
	id := p.identity.Snapshot()

	stream, err := p.mic.Open(ctx, id.EnergyThreshold)
	if err != nil {
		return audio.Utterance{}, Outcome{Stage: StageFailed, Reason: "microphone"}, fmt.Errorf("open microphone: %w", err)
	}
	defer func() {
		if cerr := stream.Close(); cerr != nil {
			p.logger.Debug("close microphone", "error", cerr.Error())
		}
	}()

	p.indicator.ShowListening(ctx)
	if p.opts.Calibration > 0 {
		if err := stream.Calibrate(ctx, p.opts.Calibration); err != nil {
			p.indicator.Hide(ctx)
			return audio.Utterance{}, Outcome{Stage: StageFailed, Reason: "calibrate"}, fmt.Errorf("calibrate microphone: %w", err)
		}
	}

	utterance, err := stream.Listen(ctx, p.opts.ListenTimeout, p.opts.PhraseLimit)
	if errors.Is(err, audio.ErrListenTimeout) {
		p.indicator.Hide(ctx)
		p.logger.Debug("listen timed out without speech")
		return audio.Utterance{}, Outcome{Stage: StageFailed, Reason: "timeout"}, nil
	}
	if err != nil {
		p.indicator.Hide(ctx)
		return audio.Utterance{}, Outcome{Stage: StageFailed, Reason: "listen"}, fmt.Errorf("listen: %w", err)
	}
	if utterance.Empty() {
		p.indicator.Hide(ctx)
		return audio.Utterance{}, Outcome{Stage: StageFailed, Reason: "empty capture"}, nil
	}
	return utterance, Outcome{Stage: StageCaptured}, nil
}

// transcribe writes u to a temporary WAV, sends it and removes the file.
func (p *Pipeline) transcribe(ctx context.Context, u audio.Utterance) (string, error) {
	path, err := audio.WriteTempWAV(p.opts.TempDir, "alkaris-*.wav", u)
	if err != nil {
		return "", err
	}
	defer os.Remove(path)

	started := time.Now()
	text, err := p.transcriber.Transcribe(ctx, path, p.opts.Locale)
	p.metrics.ObserveTranscription(time.Since(started))
	return text, err
}
