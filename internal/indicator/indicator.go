// Package indicator shows the listening state on the desktop and plays
// short audio cues.
package indicator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gen2brain/beeep"

	"github.com/roimerbautista/alkaris/internal/config"
)

// Notifier is the concrete indicator used by the listen loop. Notifications
// go to the freedesktop server over DBus so they can be replaced and
// dismissed; when that fails they fall back to beeep.
type Notifier struct {
	cfg      config.IndicatorConfig
	logger   *slog.Logger
	messages messages

	// Overridable for tests.
	fallback func(title, message, icon string) error
	cue      func(context.Context, cueKind) error

	mu             sync.Mutex
	notificationID uint32
	soundMu        sync.Mutex
	cues           sync.WaitGroup
}

// NewNotifier creates an indicator from config.
func NewNotifier(cfg config.IndicatorConfig, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Notifier{
		cfg:      cfg,
		logger:   logger,
		messages: indicatorMessagesFromEnv(),
		fallback: beeep.Notify,
		cue:      emitCue,
	}
}

// ShowListening signals that a command is being captured.
func (n *Notifier) ShowListening(ctx context.Context) {
	n.playCue(ctx, cueListen)
	if !n.cfg.Enable {
		return
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, 300000, n.messages.listening)
	})
}

// ShowProcessing signals that captured audio is being transcribed.
func (n *Notifier) ShowProcessing(ctx context.Context) {
	if !n.cfg.Enable {
		return
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, 300000, n.messages.processing)
	})
}

// ShowError displays an error message and plays the error cue.
func (n *Notifier) ShowError(ctx context.Context, text string) {
	n.playCue(ctx, cueError)
	if !n.cfg.Enable {
		return
	}
	if text == "" {
		text = n.messages.errorText
	}
	n.run(ctx, func(ctx context.Context) error {
		return n.notify(ctx, 2000, text)
	})
}

// Hide dismisses the active notification.
func (n *Notifier) Hide(ctx context.Context) {
	if !n.cfg.Enable {
		return
	}
	n.run(ctx, n.dismiss)
}

// Wait blocks until queued cues have played.
func (n *Notifier) Wait() {
	n.cues.Wait()
}

func (n *Notifier) appName() string {
	name := strings.TrimSpace(n.cfg.DesktopAppName)
	if name == "" {
		return "alkaris"
	}
	return name
}

// notify replaces the current notification, falling back to beeep when no
// notification server answers.
func (n *Notifier) notify(ctx context.Context, timeoutMS int, text string) error {
	n.mu.Lock()
	replaceID := n.notificationID
	n.mu.Unlock()

	id, err := desktopNotify(ctx, n.appName(), replaceID, text, timeoutMS)
	if err != nil {
		n.log("desktop notify failed; using fallback", err)
		return n.fallback(n.appName(), text, "")
	}

	n.mu.Lock()
	n.notificationID = id
	n.mu.Unlock()
	return nil
}

func (n *Notifier) dismiss(ctx context.Context) error {
	n.mu.Lock()
	id := n.notificationID
	n.notificationID = 0
	n.mu.Unlock()

	if id == 0 {
		return nil
	}
	return desktopDismiss(ctx, id)
}

// run executes an indicator operation with a bounded timeout.
func (n *Notifier) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(ctx, 400*time.Millisecond)
	defer cancel()
	if err := fn(runCtx); err != nil {
		n.log("indicator dispatch failed", err)
	}
}

// playCue serializes cue playback and emits audio asynchronously.
func (n *Notifier) playCue(ctx context.Context, kind cueKind) {
	if !n.cfg.SoundEnable {
		return
	}
	n.cues.Add(1)
	go func() {
		defer n.cues.Done()
		n.soundMu.Lock()
		defer n.soundMu.Unlock()
		if err := n.cue(context.WithoutCancel(ctx), kind); err != nil {
			n.log("indicator audio cue failed", err)
		}
	}()
}

func (n *Notifier) log(message string, err error) {
	if err == nil {
		return
	}
	n.logger.Debug(message, "error", err.Error())
}
