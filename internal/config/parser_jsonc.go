package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type jsoncConfig struct {
	Assistant     *jsoncAssistant     `json:"assistant"`
	Audio         *jsoncAudio         `json:"audio"`
	Transcription *jsoncTranscription `json:"transcription"`
	AI            *jsoncAI            `json:"ai"`
	Matching      *jsoncMatching      `json:"matching"`
	WakeWord      *jsoncWakeWord      `json:"wakeword"`
	Ducking       *jsoncDucking       `json:"ducking"`
	Speech        *jsoncSpeech        `json:"speech"`
	Snapshot      *jsoncSnapshot      `json:"snapshot"`
	Media         *jsoncMedia         `json:"media"`
	Weather       *jsoncWeather       `json:"weather"`
	Jokes         *jsoncJokes         `json:"jokes"`
	Connectivity  *jsoncConnectivity  `json:"connectivity"`
	Gestures      *jsoncGestures      `json:"gestures"`
	Indicator     *jsoncIndicator     `json:"indicator"`
	Metrics       *jsoncMetrics       `json:"metrics"`
	Log           *jsoncLog           `json:"log"`
}

type jsoncAssistant struct {
	Name            *string  `json:"name"`
	Accent          *string  `json:"accent"`
	EnergyThreshold *float64 `json:"energy_threshold"`
	VoiceID         *string  `json:"voice_id"`
	IdentityPath    *string  `json:"identity_path"`
}

type jsoncAudio struct {
	Input           *string `json:"input"`
	Fallback        *string `json:"fallback"`
	CalibrationMS   *int    `json:"calibration_ms"`
	ListenTimeoutMS *int    `json:"listen_timeout_ms"`
	PhraseLimitMS   *int    `json:"phrase_limit_ms"`
	PauseMS         *int    `json:"pause_ms"`
}

type jsoncTranscription struct {
	BaseURL   *string `json:"base_url"`
	Model     *string `json:"model"`
	Locale    *string `json:"locale"`
	APIKeyEnv *string `json:"api_key_env"`
	TimeoutMS *int    `json:"timeout_ms"`
}

type jsoncAI struct {
	BaseURL   *string `json:"base_url"`
	Model     *string `json:"model"`
	APIKeyEnv *string `json:"api_key_env"`
	TimeoutMS *int    `json:"timeout_ms"`
}

type jsoncMatching struct {
	Threshold    *float64 `json:"threshold"`
	UnmatchedLog *string  `json:"unmatched_log"`
}

type jsoncWakeWord struct {
	RulesFile *string          `json:"rules_file"`
	Prefixes  *jsoncStringList `json:"prefixes"`
}

type jsoncDucking struct {
	Enable       *bool `json:"enable"`
	FloorPercent *int  `json:"floor_percent"`
}

type jsoncSpeech struct {
	TTSCmd *string `json:"tts_cmd"`
}

type jsoncSnapshot struct {
	ScreenCmd    *string `json:"screen_cmd"`
	AudioSeconds *int    `json:"audio_seconds"`
}

type jsoncMedia struct {
	Player    *string `json:"player"`
	VideoCmd  *string `json:"video_cmd"`
	StreamCmd *string `json:"stream_cmd"`
}

type jsoncWeather struct {
	BaseURL   *string `json:"base_url"`
	APIKeyEnv *string `json:"api_key_env"`
}

type jsoncJokes struct {
	URL *string `json:"url"`
}

type jsoncConnectivity struct {
	ProbeURL          *string `json:"probe_url"`
	ProbeTimeoutMS    *int    `json:"probe_timeout_ms"`
	BackoffMS         *int    `json:"backoff_ms"`
	GRPCTarget        *string `json:"grpc_target"`
	BreakerFailures   *int    `json:"breaker_failures"`
	BreakerCooldownMS *int    `json:"breaker_cooldown_ms"`
}

type jsoncGestures struct {
	Enable       *bool `json:"enable"`
	CooldownMS   *int  `json:"cooldown_ms"`
	Frames       *int  `json:"frames"`
	MotionFrames *int  `json:"motion_frames"`
}

type jsoncIndicator struct {
	Enable         *bool   `json:"enable"`
	DesktopAppName *string `json:"desktop_app_name"`
	SoundEnable    *bool   `json:"sound_enable"`
}

type jsoncMetrics struct {
	Listen *string `json:"listen"`
}

type jsoncLog struct {
	Level *string `json:"level"`
}

type jsoncStringList []string

func (l *jsoncStringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		parts := strings.Split(single, ",")
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			out = append(out, part)
		}
		*l = out
		return nil
	}

	return fmt.Errorf("expected string array or comma-delimited string")
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	if err := payload.applyTo(&cfg); err != nil {
		return Config{}, nil, err
	}

	warnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) error {
	if a := payload.Assistant; a != nil {
		setTrimmed(&cfg.Assistant.Name, a.Name)
		if a.Accent != nil {
			cfg.Assistant.Accent = strings.ToLower(strings.TrimSpace(*a.Accent))
		}
		set(&cfg.Assistant.EnergyThreshold, a.EnergyThreshold)
		setTrimmed(&cfg.Assistant.VoiceID, a.VoiceID)
		setTrimmed(&cfg.Assistant.IdentityPath, a.IdentityPath)
	}

	if a := payload.Audio; a != nil {
		set(&cfg.Audio.Input, a.Input)
		set(&cfg.Audio.Fallback, a.Fallback)
		set(&cfg.Audio.CalibrationMS, a.CalibrationMS)
		set(&cfg.Audio.ListenTimeoutMS, a.ListenTimeoutMS)
		set(&cfg.Audio.PhraseLimitMS, a.PhraseLimitMS)
		set(&cfg.Audio.PauseMS, a.PauseMS)
	}

	if t := payload.Transcription; t != nil {
		setTrimmed(&cfg.Transcription.BaseURL, t.BaseURL)
		setTrimmed(&cfg.Transcription.Model, t.Model)
		setTrimmed(&cfg.Transcription.Locale, t.Locale)
		setTrimmed(&cfg.Transcription.APIKeyEnv, t.APIKeyEnv)
		set(&cfg.Transcription.TimeoutMS, t.TimeoutMS)
	}

	if a := payload.AI; a != nil {
		setTrimmed(&cfg.AI.BaseURL, a.BaseURL)
		setTrimmed(&cfg.AI.Model, a.Model)
		setTrimmed(&cfg.AI.APIKeyEnv, a.APIKeyEnv)
		set(&cfg.AI.TimeoutMS, a.TimeoutMS)
	}

	if m := payload.Matching; m != nil {
		set(&cfg.Matching.Threshold, m.Threshold)
		setTrimmed(&cfg.Matching.UnmatchedLog, m.UnmatchedLog)
	}

	if w := payload.WakeWord; w != nil {
		setTrimmed(&cfg.WakeWord.RulesFile, w.RulesFile)
		if w.Prefixes != nil {
			cfg.WakeWord.Prefixes = nil
			for _, prefix := range *w.Prefixes {
				prefix = strings.ToLower(strings.TrimSpace(prefix))
				if prefix == "" {
					continue
				}
				cfg.WakeWord.Prefixes = append(cfg.WakeWord.Prefixes, prefix)
			}
		}
	}

	if d := payload.Ducking; d != nil {
		set(&cfg.Ducking.Enable, d.Enable)
		set(&cfg.Ducking.FloorPercent, d.FloorPercent)
	}

	if s := payload.Speech; s != nil {
		if err := setCommand("speech.tts_cmd", &cfg.Speech.TTSCmd, s.TTSCmd); err != nil {
			return err
		}
	}

	if s := payload.Snapshot; s != nil {
		if err := setCommand("snapshot.screen_cmd", &cfg.Snapshot.ScreenCmd, s.ScreenCmd); err != nil {
			return err
		}
		set(&cfg.Snapshot.AudioSeconds, s.AudioSeconds)
	}

	if m := payload.Media; m != nil {
		setTrimmed(&cfg.Media.Player, m.Player)
		if err := setCommand("media.video_cmd", &cfg.Media.VideoCmd, m.VideoCmd); err != nil {
			return err
		}
		if err := setCommand("media.stream_cmd", &cfg.Media.StreamCmd, m.StreamCmd); err != nil {
			return err
		}
	}

	if w := payload.Weather; w != nil {
		setTrimmed(&cfg.Weather.BaseURL, w.BaseURL)
		setTrimmed(&cfg.Weather.APIKeyEnv, w.APIKeyEnv)
	}

	if j := payload.Jokes; j != nil {
		setTrimmed(&cfg.Jokes.URL, j.URL)
	}

	if c := payload.Connectivity; c != nil {
		setTrimmed(&cfg.Connectivity.ProbeURL, c.ProbeURL)
		set(&cfg.Connectivity.ProbeTimeoutMS, c.ProbeTimeoutMS)
		set(&cfg.Connectivity.BackoffMS, c.BackoffMS)
		setTrimmed(&cfg.Connectivity.GRPCTarget, c.GRPCTarget)
		set(&cfg.Connectivity.BreakerFailures, c.BreakerFailures)
		set(&cfg.Connectivity.BreakerCooldownMS, c.BreakerCooldownMS)
	}

	if g := payload.Gestures; g != nil {
		set(&cfg.Gestures.Enable, g.Enable)
		set(&cfg.Gestures.CooldownMS, g.CooldownMS)
		set(&cfg.Gestures.Frames, g.Frames)
		set(&cfg.Gestures.MotionFrames, g.MotionFrames)
	}

	if i := payload.Indicator; i != nil {
		set(&cfg.Indicator.Enable, i.Enable)
		setTrimmed(&cfg.Indicator.DesktopAppName, i.DesktopAppName)
		set(&cfg.Indicator.SoundEnable, i.SoundEnable)
	}

	if m := payload.Metrics; m != nil {
		setTrimmed(&cfg.Metrics.Listen, m.Listen)
	}

	if l := payload.Log; l != nil && l.Level != nil {
		cfg.Log.Level = strings.ToLower(strings.TrimSpace(*l.Level))
	}

	return nil
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func setTrimmed(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func setCommand(key string, dst *CommandConfig, src *string) error {
	if src == nil {
		return nil
	}
	argv, err := parseArgv(*src)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = CommandConfig{Raw: *src, Argv: argv}
	return nil
}

func normalizeJSONC(content string) (string, error) {
	withoutComments, err := stripJSONCComments(content)
	if err != nil {
		return "", err
	}
	return stripJSONCTrailingCommas(withoutComments), nil
}

func stripJSONCComments(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false
	lineComment := false
	blockComment := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if lineComment {
			if ch == '\n' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			if ch == '\r' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			out.WriteByte(' ')
			continue
		}

		if blockComment {
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				blockComment = false
				out.WriteString("  ")
				i++
				continue
			}
			if ch == '\n' || ch == '\r' || ch == '\t' {
				out.WriteByte(ch)
			} else {
				out.WriteByte(' ')
			}
			continue
		}

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == '/' && i+1 < len(content) {
			next := content[i+1]
			if next == '/' {
				lineComment = true
				out.WriteString("  ")
				i++
				continue
			}
			if next == '*' {
				blockComment = true
				out.WriteString("  ")
				i++
				continue
			}
		}

		out.WriteByte(ch)
	}

	if blockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}

	return out.String(), nil
}

func stripJSONCTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == ',' {
			j := i + 1
			for j < len(content) && isJSONWhitespace(content[j]) {
				j++
			}
			if j < len(content) && (content[j] == '}' || content[j] == ']') {
				continue
			}
		}

		out.WriteByte(ch)
	}

	return out.String()
}

func isJSONWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\n', '\r', '\t':
		return true
	default:
		return false
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
