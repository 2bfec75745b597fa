package doctor

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/roimerbautista/alkaris/internal/config"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestReportOKAndString(t *testing.T) {
	report := Report{Checks: []Check{
		{Name: "one", Pass: true, Message: "good"},
		{Name: "two", Pass: false, Message: "bad"},
	}}

	require.False(t, report.OK())
	text := report.String()
	require.Contains(t, text, "[OK] one: good")
	require.Contains(t, text, "[FAIL] two: bad")
}

func TestReportOKAllPassing(t *testing.T) {
	report := Report{Checks: []Check{{Name: "one", Pass: true}, {Name: "two", Pass: true}}}
	require.True(t, report.OK())
}

func TestCheckEnv(t *testing.T) {
	t.Setenv("TEST_DOCTOR_KEY", "secret")

	check := checkEnv("TEST_DOCTOR_KEY", nonEmpty, "looks good", "unexpected")
	require.True(t, check.Pass)
	require.Equal(t, "looks good", check.Message)

	t.Setenv("TEST_DOCTOR_KEY", "  ")
	check = checkEnv("TEST_DOCTOR_KEY", nonEmpty, "looks good", "unexpected")
	require.False(t, check.Pass)
	require.Equal(t, "unexpected", check.Message)
}

func TestCheckEnvEmptyName(t *testing.T) {
	check := checkEnv("", nonEmpty, "ok", "fail")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "variable name is empty")
}

func TestCheckOptionalEnvPassesWhenMissing(t *testing.T) {
	t.Setenv("TEST_DOCTOR_OPTIONAL", "")

	check := checkOptionalEnv("TEST_DOCTOR_OPTIONAL", "set", "missing")
	require.True(t, check.Pass)
	require.Equal(t, "missing", check.Message)
}

func TestCheckCommandEmpty(t *testing.T) {
	check := checkCommand(nil, "tts_cmd")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "command is empty")
}

func TestCheckBinaryFound(t *testing.T) {
	check := checkBinary("sh", "shell available")
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "shell available")
}

func TestCheckBinaryMissing(t *testing.T) {
	check := checkBinary("definitely-not-a-real-binary", "unused")
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "binary not found")
}

func TestCheckCommandUsesBinaryFromPath(t *testing.T) {
	dir := t.TempDir()
	scriptPath := filepath.Join(dir, "fake-tts")
	require.NoError(t, os.WriteFile(scriptPath, []byte("#!/usr/bin/env bash\nexit 0\n"), 0o755))
	t.Setenv("PATH", dir+":"+os.Getenv("PATH"))

	check := checkCommand([]string{"fake-tts", "--stdout"}, "tts_cmd")
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "tts_cmd command is available")
}

func TestCheckConnectivityReachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Connectivity.ProbeURL = server.URL

	check := checkConnectivity(context.Background(), cfg)
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "reachable via")
}

func TestCheckConnectivityServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Connectivity.ProbeURL = server.URL

	check := checkConnectivity(context.Background(), cfg)
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "503")
}

func TestCheckConnectivityEmptyURL(t *testing.T) {
	cfg := config.Default()
	cfg.Connectivity.ProbeURL = ""

	check := checkConnectivity(context.Background(), cfg)
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "empty")
}

func TestCheckGRPCServing(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server := grpc.NewServer()
	healthpb.RegisterHealthServer(server, health.NewServer())
	go func() { _ = server.Serve(listener) }()
	t.Cleanup(server.Stop)

	cfg := config.Default()
	cfg.Connectivity.GRPCTarget = listener.Addr().String()
	cfg.Connectivity.ProbeTimeoutMS = 2000

	check := checkGRPC(context.Background(), cfg)
	require.True(t, check.Pass, check.Message)
	require.Contains(t, check.Message, "serving at")
}

func TestCheckAudioSelectionFailureWithInvalidPulseServer(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")

	check := checkAudioSelection(context.Background(), config.Default())
	require.False(t, check.Pass)
	require.Equal(t, "audio.device", check.Name)
}

func TestRunChecksConfiguredTools(t *testing.T) {
	binDir := t.TempDir()
	for _, name := range []string{"fake-tts", "fake-grim", "fake-mpv", "playerctl"} {
		require.NoError(t, os.WriteFile(filepath.Join(binDir, name), []byte("#!/usr/bin/env sh\nexit 0\n"), 0o755))
	}
	t.Setenv("PATH", binDir+":"+os.Getenv("PATH"))
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")
	t.Setenv("GEMINI_API_KEY", "gemini")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("WEATHERMAP_API_KEY", "")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Speech.TTSCmd = config.CommandConfig{Raw: "fake-tts", Argv: []string{"fake-tts"}}
	cfg.Snapshot.ScreenCmd = config.CommandConfig{Raw: "fake-grim {output}", Argv: []string{"fake-grim", "{output}"}}
	cfg.Media.VideoCmd = config.CommandConfig{Raw: "fake-mpv", Argv: []string{"fake-mpv"}}
	cfg.Connectivity.ProbeURL = server.URL
	cfg.Connectivity.GRPCTarget = ""

	report := Run(context.Background(), config.Loaded{Path: "/tmp/config.jsonc", Config: cfg, Exists: true})

	byName := map[string]Check{}
	for _, check := range report.Checks {
		byName[check.Name] = check
	}

	require.Equal(t, "loaded \"/tmp/config.jsonc\"", byName["config"].Message)
	require.True(t, byName["GEMINI_API_KEY"].Pass)
	require.False(t, byName["OPENAI_API_KEY"].Pass)
	require.True(t, byName["WEATHERMAP_API_KEY"].Pass)
	require.True(t, byName["fake-tts"].Pass)
	require.True(t, byName["fake-grim"].Pass)
	require.True(t, byName["fake-mpv"].Pass)
	require.True(t, byName["playerctl"].Pass)
	require.True(t, byName["network"].Pass)
	require.False(t, byName["audio.device"].Pass)
	require.NotContains(t, byName, "grpc.health")
	require.False(t, report.OK())
}

func TestRunReportsMissingConfigFile(t *testing.T) {
	check := configCheck(config.Loaded{Path: "/tmp/missing.jsonc", Exists: false})
	require.True(t, check.Pass)
	require.Contains(t, check.Message, "using defaults")

	check = configCheck(config.Loaded{Path: "/tmp/c.jsonc", Exists: true, Warnings: []config.Warning{{Line: 1, Message: "x"}}})
	require.Contains(t, check.Message, "(1 warnings)")
}
