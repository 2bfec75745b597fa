package media

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// DefaultDuckFloor is the volume the player drops to while the assistant talks.
const DefaultDuckFloor = 5

// Ducker lowers player volume around an action and restores it afterwards.
// Overlapping scopes share one duck: the first entrant saves the volume and
// the last one out restores it.
type Ducker struct {
	volume  VolumeControl
	floor   int
	enabled bool
	logger  *slog.Logger

	mu       sync.Mutex
	depth    int
	ducked   bool
	previous int
}

// NewDucker constructs a ducker. A disabled ducker runs actions unchanged.
func NewDucker(volume VolumeControl, floor int, enabled bool, logger *slog.Logger) *Ducker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Ducker{volume: volume, floor: ClampVolume(floor), enabled: enabled, logger: logger}
}

// WithDucking runs action with the volume at the floor. The previous
// volume is restored even when action fails or panics. Ducking problems
// are logged and never prevent the action from running.
func (d *Ducker) WithDucking(ctx context.Context, action func(context.Context) error) error {
	if d == nil || !d.enabled || d.volume == nil {
		return action(ctx)
	}

	d.enter(ctx)
	// Restore even when ctx was cancelled by the action.
	defer d.leave(context.WithoutCancel(ctx))

	return action(ctx)
}

func (d *Ducker) enter(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.depth++
	if d.depth > 1 {
		return
	}

	previous, err := d.volume.Volume(ctx)
	switch {
	case errors.Is(err, ErrNoActiveDevice):
		d.logger.Debug("no active device; running without ducking")
		return
	case err != nil:
		d.logger.Warn("read volume for ducking", "error", err.Error())
		return
	}

	if err := d.volume.SetVolume(ctx, d.floor); err != nil {
		d.logger.Warn("duck volume", "error", err.Error())
		return
	}
	d.ducked = true
	d.previous = previous
}

func (d *Ducker) leave(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.depth--
	if d.depth > 0 || !d.ducked {
		return
	}
	d.ducked = false
	if err := d.volume.SetVolume(ctx, d.previous); err != nil {
		d.logger.Warn("restore volume after ducking", "error", err.Error(), "volume", d.previous)
	}
}
