package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/roimerbautista/alkaris/internal/audio"
	"github.com/roimerbautista/alkaris/internal/config"
)

// CommandSynth runs an external TTS program that reads text on stdin and
// writes a WAV stream to stdout. {voice} in Argv expands to the voice id.
type CommandSynth struct {
	Argv []string
}

// Synthesize runs the TTS command and decodes its output.
func (c CommandSynth) Synthesize(ctx context.Context, text string, voice string) (audio.Utterance, error) {
	argv := config.ExpandArgv(c.Argv, map[string]string{"voice": voice})
	if len(argv) == 0 {
		return audio.Utterance{}, errors.New("tts command argv cannot be empty")
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = strings.NewReader(text)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return audio.Utterance{}, fmt.Errorf("%s %v failed: %w (%s)", argv[0], argv[1:], err, strings.TrimSpace(stderr.String()))
	}

	utterance, err := audio.DecodeWAVBytes(stdout.Bytes())
	if err != nil {
		return audio.Utterance{}, fmt.Errorf("decode %s output: %w", argv[0], err)
	}
	return utterance, nil
}
