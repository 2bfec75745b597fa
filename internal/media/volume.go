package media

import (
	"context"
	"fmt"
)

// VolumeStep is the change applied by one volume up or down command.
const VolumeStep = 5

// ClampVolume limits percent to [0, 100].
func ClampVolume(percent int) int {
	return min(max(percent, 0), 100)
}

// StepVolume moves the volume by delta and returns the new level.
func StepVolume(ctx context.Context, vc VolumeControl, delta int) (int, error) {
	current, err := vc.Volume(ctx)
	if err != nil {
		return 0, fmt.Errorf("read volume: %w", err)
	}
	next := ClampVolume(current + delta)
	if err := vc.SetVolume(ctx, next); err != nil {
		return 0, fmt.Errorf("set volume: %w", err)
	}
	return next, nil
}

// SetVolume sets an explicit level clamped to [0, 100] and returns it.
func SetVolume(ctx context.Context, vc VolumeControl, percent int) (int, error) {
	level := ClampVolume(percent)
	if err := vc.SetVolume(ctx, level); err != nil {
		return 0, fmt.Errorf("set volume: %w", err)
	}
	return level, nil
}
