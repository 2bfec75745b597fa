package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateDefaults(t *testing.T) {
	warnings, err := Validate(Default())
	require.NoError(t, err)
	require.Empty(t, warnings)
}

func TestValidateRejectsInvalidCoreFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "empty name", mutate: func(c *Config) { c.Assistant.Name = " " }, wantErr: "assistant.name"},
		{name: "unknown accent", mutate: func(c *Config) { c.Assistant.Accent = "fr" }, wantErr: "assistant.accent"},
		{name: "zero energy", mutate: func(c *Config) { c.Assistant.EnergyThreshold = 0 }, wantErr: "energy_threshold"},
		{name: "zero listen timeout", mutate: func(c *Config) { c.Audio.ListenTimeoutMS = 0 }, wantErr: "listen_timeout_ms"},
		{name: "zero phrase limit", mutate: func(c *Config) { c.Audio.PhraseLimitMS = 0 }, wantErr: "phrase_limit_ms"},
		{name: "empty locale", mutate: func(c *Config) { c.Transcription.Locale = "" }, wantErr: "transcription.locale"},
		{name: "empty ai key env", mutate: func(c *Config) { c.AI.APIKeyEnv = "" }, wantErr: "ai.api_key_env"},
		{name: "threshold one", mutate: func(c *Config) { c.Matching.Threshold = 1 }, wantErr: "matching.threshold"},
		{name: "floor above range", mutate: func(c *Config) { c.Ducking.FloorPercent = 101 }, wantErr: "floor_percent"},
		{name: "empty tts argv", mutate: func(c *Config) { c.Speech.TTSCmd.Argv = nil }, wantErr: "speech.tts_cmd"},
		{name: "empty player", mutate: func(c *Config) { c.Media.Player = "" }, wantErr: "media.player"},
		{name: "empty probe url", mutate: func(c *Config) { c.Connectivity.ProbeURL = "" }, wantErr: "probe_url"},
		{name: "zero breaker failures", mutate: func(c *Config) { c.Connectivity.BreakerFailures = 0 }, wantErr: "breaker_failures"},
		{name: "zero gesture frames", mutate: func(c *Config) { c.Gestures.Frames = 0 }, wantErr: "gestures.frames"},
		{name: "empty indicator app", mutate: func(c *Config) { c.Indicator.DesktopAppName = "" }, wantErr: "desktop_app_name"},
		{name: "bad log level", mutate: func(c *Config) { c.Log.Level = "trace" }, wantErr: "log.level"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)

			_, err := Validate(cfg)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestValidateWarnings(t *testing.T) {
	cfg := Default()
	cfg.Audio.PauseMS = cfg.Audio.PhraseLimitMS
	cfg.Snapshot.ScreenCmd = CommandConfig{}

	warnings, err := Validate(cfg)
	require.NoError(t, err)
	require.Len(t, warnings, 2)
	require.Contains(t, warnings[0].Message, "pause_ms")
	require.Contains(t, warnings[1].Message, "screen_cmd")
}
