package speech

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/roimerbautista/alkaris/internal/audio"
	"github.com/stretchr/testify/require"
)

func TestCommandSynthDecodesStdoutWAV(t *testing.T) {
	dir := t.TempDir()
	fixture := filepath.Join(dir, "fixture.wav")
	f, err := os.Create(fixture)
	require.NoError(t, err)
	require.NoError(t, audio.EncodeWAV(f, audio.Utterance{Samples: []int16{1, -2, 3}, SampleRate: 22050}))
	require.NoError(t, f.Close())

	argsFile := filepath.Join(dir, "args.txt")
	stdinFile := filepath.Join(dir, "stdin.txt")
	writeExecutable(t, filepath.Join(dir, "fake-tts"), "#!/usr/bin/env bash\nprintf '%s\\n' \"$@\" > "+argsFile+"\ncat > "+stdinFile+"\ncat "+fixture+"\n")
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))

	synth := CommandSynth{Argv: []string{"fake-tts", "--stdout", "-v", "{voice}"}}
	u, err := synth.Synthesize(context.Background(), "hola mundo", "es-la")
	require.NoError(t, err)
	require.Equal(t, []int16{1, -2, 3}, u.Samples)
	require.Equal(t, 22050, u.SampleRate)

	args, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	require.Equal(t, []string{"--stdout", "-v", "es-la"}, strings.Fields(string(args)))

	stdin, err := os.ReadFile(stdinFile)
	require.NoError(t, err)
	require.Equal(t, "hola mundo", string(stdin))
}

func TestCommandSynthDropsEmptyVoiceFlag(t *testing.T) {
	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args.txt")
	writeExecutable(t, filepath.Join(dir, "fake-tts"), "#!/usr/bin/env bash\nprintf '%s\\n' \"$@\" > "+argsFile+"\ncat >/dev/null\nexit 0\n")
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))

	_, err := CommandSynth{Argv: []string{"fake-tts", "--stdout", "-v", "{voice}"}}.Synthesize(context.Background(), "hola", "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "decode fake-tts output")

	args, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	require.Equal(t, []string{"--stdout"}, strings.Fields(string(args)))
}

func TestCommandSynthReportsStderr(t *testing.T) {
	dir := t.TempDir()
	writeExecutable(t, filepath.Join(dir, "fake-tts"), "#!/usr/bin/env bash\necho 'voice not found' >&2\nexit 3\n")
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))

	_, err := CommandSynth{Argv: []string{"fake-tts"}}.Synthesize(context.Background(), "hola", "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "voice not found")
}

func TestCommandSynthEmptyArgv(t *testing.T) {
	_, err := CommandSynth{}.Synthesize(context.Background(), "hola", "")
	require.Error(t, err)
}

func writeExecutable(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o755))
}
