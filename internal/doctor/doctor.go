// Package doctor runs runtime readiness diagnostics for config, keys, tools,
// audio, and network services.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/roimerbautista/alkaris/internal/audio"
	"github.com/roimerbautista/alkaris/internal/config"
	"github.com/roimerbautista/alkaris/internal/connectivity"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, cfg config.Loaded) Report {
	checks := []Check{configCheck(cfg)}

	checks = append(checks, checkEnv(cfg.Config.AI.APIKeyEnv, nonEmpty,
		"AI key is set", "AI key is empty; the assistant cannot start"))
	checks = append(checks, checkEnv(cfg.Config.Transcription.APIKeyEnv, nonEmpty,
		"transcription key is set", "transcription key is empty"))
	checks = append(checks, checkOptionalEnv(cfg.Config.Weather.APIKeyEnv,
		"weather key is set", "weather key is empty; weather commands will report unavailable"))

	checks = append(checks, checkCommand(cfg.Config.Speech.TTSCmd.Argv, "tts_cmd"))
	checks = append(checks, checkCommand(cfg.Config.Snapshot.ScreenCmd.Argv, "screen_cmd"))
	checks = append(checks, checkCommand(cfg.Config.Media.VideoCmd.Argv, "video_cmd"))
	checks = append(checks, checkBinary("playerctl", "music backend"))

	checks = append(checks, checkAudioSelection(ctx, cfg.Config))
	checks = append(checks, checkConnectivity(ctx, cfg.Config))
	if strings.TrimSpace(cfg.Config.Connectivity.GRPCTarget) != "" {
		checks = append(checks, checkGRPC(ctx, cfg.Config))
	}

	return Report{Checks: checks}
}

func configCheck(cfg config.Loaded) Check {
	if !cfg.Exists {
		return Check{Name: "config", Pass: true, Message: fmt.Sprintf("%q not found; using defaults", cfg.Path)}
	}
	message := fmt.Sprintf("loaded %q", cfg.Path)
	if len(cfg.Warnings) > 0 {
		message = fmt.Sprintf("%s (%d warnings)", message, len(cfg.Warnings))
	}
	return Check{Name: "config", Pass: true, Message: message}
}

func nonEmpty(v string) bool { return strings.TrimSpace(v) != "" }

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	if strings.TrimSpace(name) == "" {
		return Check{Name: "env", Pass: false, Message: "variable name is empty"}
	}
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkOptionalEnv reports a missing variable without failing the report.
func checkOptionalEnv(name string, okMsg, missingMsg string) Check {
	check := checkEnv(name, nonEmpty, okMsg, missingMsg)
	check.Pass = true
	return check
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(ctx context.Context, cfg config.Config) Check {
	selection, err := audio.SelectDevice(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkConnectivity runs one reachability probe.
func checkConnectivity(ctx context.Context, cfg config.Config) Check {
	checker := connectivity.Checker{
		ProbeURL: cfg.Connectivity.ProbeURL,
		Timeout:  time.Duration(cfg.Connectivity.ProbeTimeoutMS) * time.Millisecond,
	}
	if err := checker.Check(ctx); err != nil {
		return Check{Name: "network", Pass: false, Message: err.Error()}
	}
	return Check{Name: "network", Pass: true, Message: fmt.Sprintf("reachable via %s", cfg.Connectivity.ProbeURL)}
}

// checkGRPC runs a standard health check against the configured gRPC target.
func checkGRPC(ctx context.Context, cfg config.Config) Check {
	target := cfg.Connectivity.GRPCTarget
	timeout := time.Duration(cfg.Connectivity.ProbeTimeoutMS) * time.Millisecond
	if err := connectivity.ProbeGRPC(ctx, target, timeout); err != nil {
		return Check{Name: "grpc.health", Pass: false, Message: err.Error()}
	}
	return Check{Name: "grpc.health", Pass: true, Message: fmt.Sprintf("serving at %s", target)}
}
