package config

import (
	"fmt"
	"slices"
	"strings"
)

var logLevels = []string{"debug", "info", "warn", "error"}

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if strings.TrimSpace(cfg.Assistant.Name) == "" {
		return nil, fmt.Errorf("assistant.name must not be empty")
	}
	if !slices.Contains(Accents, cfg.Assistant.Accent) {
		return nil, fmt.Errorf("assistant.accent must be one of: %s", strings.Join(Accents, ", "))
	}
	if cfg.Assistant.EnergyThreshold <= 0 {
		return nil, fmt.Errorf("assistant.energy_threshold must be > 0")
	}

	if cfg.Audio.CalibrationMS < 0 {
		return nil, fmt.Errorf("audio.calibration_ms must be >= 0")
	}
	if cfg.Audio.ListenTimeoutMS <= 0 {
		return nil, fmt.Errorf("audio.listen_timeout_ms must be > 0")
	}
	if cfg.Audio.PhraseLimitMS <= 0 {
		return nil, fmt.Errorf("audio.phrase_limit_ms must be > 0")
	}
	if cfg.Audio.PauseMS <= 0 {
		return nil, fmt.Errorf("audio.pause_ms must be > 0")
	}
	if cfg.Audio.PauseMS >= cfg.Audio.PhraseLimitMS {
		warnings = append(warnings, Warning{Message: "audio.pause_ms is not shorter than audio.phrase_limit_ms; phrases always run to the limit"})
	}

	if strings.TrimSpace(cfg.Transcription.Model) == "" {
		return nil, fmt.Errorf("transcription.model must not be empty")
	}
	if strings.TrimSpace(cfg.Transcription.Locale) == "" {
		return nil, fmt.Errorf("transcription.locale must not be empty")
	}
	if strings.TrimSpace(cfg.AI.Model) == "" {
		return nil, fmt.Errorf("ai.model must not be empty")
	}
	if strings.TrimSpace(cfg.AI.APIKeyEnv) == "" {
		return nil, fmt.Errorf("ai.api_key_env must not be empty")
	}
	if cfg.Transcription.TimeoutMS <= 0 || cfg.AI.TimeoutMS <= 0 {
		return nil, fmt.Errorf("transcription.timeout_ms and ai.timeout_ms must be > 0")
	}

	if cfg.Matching.Threshold <= 0 || cfg.Matching.Threshold >= 1 {
		return nil, fmt.Errorf("matching.threshold must be between 0 and 1 (exclusive)")
	}
	if cfg.Matching.Threshold != 0.8 {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("matching.threshold=%.2f differs from the calibrated 0.80", cfg.Matching.Threshold)})
	}

	if cfg.Ducking.FloorPercent < 0 || cfg.Ducking.FloorPercent > 100 {
		return nil, fmt.Errorf("ducking.floor_percent must be within 0..100")
	}

	if len(cfg.Speech.TTSCmd.Argv) == 0 {
		return nil, fmt.Errorf("speech.tts_cmd must not be empty")
	}
	if cfg.Snapshot.AudioSeconds <= 0 {
		return nil, fmt.Errorf("snapshot.audio_seconds must be > 0")
	}
	if len(cfg.Snapshot.ScreenCmd.Argv) == 0 {
		warnings = append(warnings, Warning{Message: "snapshot.screen_cmd is empty; screen description is disabled"})
	}

	if strings.TrimSpace(cfg.Media.Player) == "" {
		return nil, fmt.Errorf("media.player must not be empty")
	}

	if strings.TrimSpace(cfg.Connectivity.ProbeURL) == "" {
		return nil, fmt.Errorf("connectivity.probe_url must not be empty")
	}
	if cfg.Connectivity.ProbeTimeoutMS <= 0 {
		return nil, fmt.Errorf("connectivity.probe_timeout_ms must be > 0")
	}
	if cfg.Connectivity.BackoffMS < 0 {
		return nil, fmt.Errorf("connectivity.backoff_ms must be >= 0")
	}
	if cfg.Connectivity.BreakerFailures <= 0 {
		return nil, fmt.Errorf("connectivity.breaker_failures must be > 0")
	}
	if cfg.Connectivity.BreakerCooldownMS <= 0 {
		return nil, fmt.Errorf("connectivity.breaker_cooldown_ms must be > 0")
	}

	if cfg.Gestures.CooldownMS < 0 {
		return nil, fmt.Errorf("gestures.cooldown_ms must be >= 0")
	}
	if cfg.Gestures.Frames <= 0 || cfg.Gestures.MotionFrames <= 0 {
		return nil, fmt.Errorf("gestures.frames and gestures.motion_frames must be > 0")
	}

	if cfg.Indicator.Enable && strings.TrimSpace(cfg.Indicator.DesktopAppName) == "" {
		return nil, fmt.Errorf("indicator.desktop_app_name must not be empty when indicator.enable=true")
	}

	if !slices.Contains(logLevels, cfg.Log.Level) {
		return nil, fmt.Errorf("log.level must be one of: %s", strings.Join(logLevels, ", "))
	}

	return warnings, nil
}
