// Package snapshot captures the screen and short audio clips into temp files
// for generative queries. Callers own the returned files.
package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/roimerbautista/alkaris/internal/audio"
	"github.com/roimerbautista/alkaris/internal/config"
)

var (
	ErrNoScreenCommand = errors.New("screen capture command is not configured")
	ErrEmptyCapture    = errors.New("capture produced no data")
)

// Recorder records a fixed span of audio.
type Recorder interface {
	Record(ctx context.Context, d time.Duration) (audio.Utterance, error)
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, d time.Duration) (audio.Utterance, error)

// Record calls f.
func (f RecorderFunc) Record(ctx context.Context, d time.Duration) (audio.Utterance, error) {
	return f(ctx, d)
}

// Capturer writes snapshots under TempDir (os.TempDir when empty).
type Capturer struct {
	ScreenArgv    []string
	AudioDuration time.Duration
	Recorder      Recorder
	TempDir       string
}

// Screen runs the screen command with {output} set to a fresh PNG path.
func (c Capturer) Screen(ctx context.Context) (string, error) {
	if len(c.ScreenArgv) == 0 {
		return "", ErrNoScreenCommand
	}

	f, err := os.CreateTemp(c.TempDir, "alkaris-screen-*.png")
	if err != nil {
		return "", fmt.Errorf("create screen snapshot: %w", err)
	}
	path := f.Name()
	_ = f.Close()

	argv := config.ExpandArgv(c.ScreenArgv, map[string]string{"output": path})
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("%s %v failed: %w (%s)", argv[0], argv[1:], err, strings.TrimSpace(stderr.String()))
	}

	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		_ = os.Remove(path)
		return "", fmt.Errorf("screen snapshot: %w", ErrEmptyCapture)
	}
	return path, nil
}

// Audio records AudioDuration (5s when unset) into a temp WAV.
func (c Capturer) Audio(ctx context.Context) (string, error) {
	if c.Recorder == nil {
		return "", errors.New("audio recorder is not configured")
	}
	d := c.AudioDuration
	if d <= 0 {
		d = 5 * time.Second
	}

	u, err := c.Recorder.Record(ctx, d)
	if err != nil {
		return "", fmt.Errorf("record audio snapshot: %w", err)
	}
	if u.Empty() {
		return "", fmt.Errorf("audio snapshot: %w", ErrEmptyCapture)
	}
	return audio.WriteTempWAV(c.TempDir, "alkaris-audio-*.wav", u)
}
