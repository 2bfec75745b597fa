// Package speech turns text into audible replies. One Speaker serializes
// every reply so concurrent producers never talk over each other.
package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/roimerbautista/alkaris/internal/audio"
)

// ErrEmptyText indicates there was nothing to say.
var ErrEmptyText = errors.New("speech text is empty")

// Synthesizer renders text in a voice.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, voice string) (audio.Utterance, error)
}

// Player plays an utterance until it drains and can cut it off early.
type Player interface {
	Play(ctx context.Context, u audio.Utterance) error
	Stop()
}

// Speaker owns the audio output. Say holds one lock across synthesis,
// playback start and drain.
type Speaker struct {
	synth  Synthesizer
	player Player
	voice  func() string
	logger *slog.Logger

	mu sync.Mutex
}

// NewSpeaker constructs a speaker. voice is consulted on every call so a
// runtime voice change applies to the next reply.
func NewSpeaker(synth Synthesizer, player Player, voice func() string, logger *slog.Logger) *Speaker {
	if voice == nil {
		voice = func() string { return "" }
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Speaker{synth: synth, player: player, voice: voice, logger: logger}
}

// Say speaks text and blocks until playback finishes.
func (s *Speaker) Say(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyText
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info("speaking", "text", text)
	utterance, err := s.synth.Synthesize(ctx, text, s.voice())
	if err != nil {
		return fmt.Errorf("synthesize speech: %w", err)
	}
	if err := s.player.Play(ctx, utterance); err != nil {
		return fmt.Errorf("play speech: %w", err)
	}
	return nil
}

// Stop cuts off the reply currently playing. Queued replies still play.
func (s *Speaker) Stop() {
	s.player.Stop()
}
