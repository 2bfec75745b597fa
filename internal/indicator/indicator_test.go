package indicator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/roimerbautista/alkaris/internal/config"
	"github.com/stretchr/testify/require"
)

func TestNotifierReplacesAndDismissesNotification(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "busctl-args.log")
	t.Setenv("BUSCTL_ARGS_FILE", argsFile)
	installBusctlStub(t, `
printf '%s\n' "$*" >> "${BUSCTL_ARGS_FILE}"
if [[ "${6:-}" == "Notify" ]]; then
  echo 'u 42'
fi
`)

	cfg := config.Default().Indicator
	cfg.Enable = true
	cfg.SoundEnable = false

	n := NewNotifier(cfg, nil)
	n.messages = indicatorMessages(localeSpanish)
	n.ShowListening(context.Background())
	n.ShowProcessing(context.Background())
	n.Hide(context.Background())
	n.Hide(context.Background())

	data, err := os.ReadFile(argsFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	require.Contains(t, lines[0], "Notify susssasa{sv}i alkaris 0  Escuchando…  0 0 300000")
	require.Contains(t, lines[1], "Notify susssasa{sv}i alkaris 42  Procesando…  0 0 300000")
	require.Contains(t, lines[2], "CloseNotification u 42")
}

func TestNotifierFallsBackWhenBusUnavailable(t *testing.T) {
	installBusctlStub(t, `
echo 'no bus' >&2
exit 1
`)

	cfg := config.Default().Indicator
	cfg.Enable = true
	cfg.SoundEnable = false

	var mu sync.Mutex
	var got []string
	n := NewNotifier(cfg, nil)
	n.fallback = func(title, message, _ string) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, title+": "+message)
		return nil
	}
	n.messages = indicatorMessages(localeSpanish)

	n.ShowError(context.Background(), "")
	n.ShowError(context.Background(), "sin conexión")
	n.Hide(context.Background())

	require.Equal(t, []string{"alkaris: Ocurrió un error", "alkaris: sin conexión"}, got)
}

func TestNotifierDisabledSkipsNotifications(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "busctl-args.log")
	t.Setenv("BUSCTL_ARGS_FILE", argsFile)
	installBusctlStub(t, `
printf '%s\n' "$*" >> "${BUSCTL_ARGS_FILE}"
`)

	cfg := config.Default().Indicator
	cfg.Enable = false
	cfg.SoundEnable = false

	n := NewNotifier(cfg, nil)
	n.fallback = func(string, string, string) error { return errors.New("unexpected") }
	n.ShowListening(context.Background())
	n.ShowProcessing(context.Background())
	n.ShowError(context.Background(), "ignored")
	n.Hide(context.Background())

	_, err := os.Stat(argsFile)
	require.True(t, os.IsNotExist(err))
}

func TestNotifierPlaysCuesInOrder(t *testing.T) {
	cfg := config.Default().Indicator
	cfg.Enable = false
	cfg.SoundEnable = true

	var mu sync.Mutex
	var played []cueKind
	n := NewNotifier(cfg, nil)
	n.cue = func(_ context.Context, kind cueKind) error {
		mu.Lock()
		defer mu.Unlock()
		played = append(played, kind)
		return nil
	}

	n.ShowListening(context.Background())
	n.Wait()
	n.ShowError(context.Background(), "")
	n.Wait()

	require.Equal(t, []cueKind{cueListen, cueError}, played)
}

func installBusctlStub(t *testing.T, body string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "busctl")
	script := "#!/usr/bin/env bash\nset -euo pipefail\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))
}
