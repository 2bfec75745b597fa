package config

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeJSONCRemovesCommentsAndTrailingCommas(t *testing.T) {
	input := `
{
  // line comment
  "items": [
    "one", /* block comment */
    "two",
  ],
  "nested": {
    "enabled": true,
  },
}
`

	normalized, err := normalizeJSONC(input)
	require.NoError(t, err)
	require.NotContains(t, normalized, "//")
	require.NotContains(t, normalized, "/*")
	require.NotContains(t, normalized, ",]")
	require.NotContains(t, normalized, ",}")
}

func TestNormalizeJSONCRetainsCommentLikeTextInsideStrings(t *testing.T) {
	input := `{"value":"contains // and /* comment-like */ text",}`
	normalized, err := normalizeJSONC(input)
	require.NoError(t, err)
	require.Contains(t, normalized, "// and /* comment-like */")
}

func TestNormalizeJSONCUnterminatedBlockCommentFails(t *testing.T) {
	_, err := normalizeJSONC("{ /* unterminated ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unterminated block comment")
}

func TestEnsureSingleJSONValueRejectsExtraPayload(t *testing.T) {
	decoder := json.NewDecoder(strings.NewReader(`{"one":1}{"two":2}`))
	var payload map[string]any
	require.NoError(t, decoder.Decode(&payload))

	err := ensureSingleJSONValue(decoder)
	require.Error(t, err)
	require.Contains(t, err.Error(), "multiple JSON values")
}

func TestOffsetToLineCol(t *testing.T) {
	content := "line1\nline2\nline3"
	line, col := offsetToLineCol(content, 1)
	require.Equal(t, 1, line)
	require.Equal(t, 1, col)

	line, col = offsetToLineCol(content, 8) // line2, col2
	require.Equal(t, 2, line)
	require.Equal(t, 2, col)

	line, col = offsetToLineCol(content, 999)
	require.Equal(t, 3, line)
	require.Equal(t, 5, col)
}

func TestJSONCStringListUnmarshal(t *testing.T) {
	var list jsoncStringList
	require.NoError(t, list.UnmarshalJSON([]byte(`["a","b"]`)))
	require.Equal(t, []string{"a", "b"}, []string(list))

	require.NoError(t, list.UnmarshalJSON([]byte(`"a, b, , c"`)))
	require.Equal(t, []string{"a", "b", "c"}, []string(list))

	err := list.UnmarshalJSON([]byte(`123`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "expected string array")
}

func TestParseJSONCRejectsInvalidCommandArgv(t *testing.T) {
	_, _, err := parseJSONC(`{"speech":{"tts_cmd":"unterminated ' quote"}}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid speech.tts_cmd")

	_, _, err = parseJSONC(`{"media":{"video_cmd":"unterminated ' quote"}}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid media.video_cmd")
}

func TestParseJSONCOverlaysSections(t *testing.T) {
	cfg, warnings, err := parseJSONC(`{
  // identity defaults
  "assistant": {"name": "  Nova ", "accent": " EN-US ", "energy_threshold": 3200},
  "audio": {"listen_timeout_ms": 20000, "phrase_limit_ms": 4000},
  "speech": {"tts_cmd": "piper --output_file - --model '{voice}'"},
  "connectivity": {"grpc_target": "127.0.0.1:50051"},
  "log": {"level": "DEBUG"},
}`, Default())
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Equal(t, "Nova", cfg.Assistant.Name)
	require.Equal(t, "en-us", cfg.Assistant.Accent)
	require.Equal(t, 3200.0, cfg.Assistant.EnergyThreshold)
	require.Equal(t, 20000, cfg.Audio.ListenTimeoutMS)
	require.Equal(t, 4000, cfg.Audio.PhraseLimitMS)
	require.Equal(t, 800, cfg.Audio.PauseMS)
	require.Equal(t, []string{"piper", "--output_file", "-", "--model", "{voice}"}, cfg.Speech.TTSCmd.Argv)
	require.Equal(t, "127.0.0.1:50051", cfg.Connectivity.GRPCTarget)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestParseJSONCRejectsUnknownField(t *testing.T) {
	_, _, err := parseJSONC(`{"assistant":{"nickname":"x"}}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown field")
}

func TestParseJSONCRejectsMultipleTopLevelValues(t *testing.T) {
	_, _, err := parseJSONC(`{"ducking":{"enable":false}}{"ducking":{"enable":true}}`, Default())
	require.Error(t, err)
	require.True(
		t,
		strings.Contains(err.Error(), "multiple JSON values") || strings.Contains(err.Error(), "unknown field"),
		"unexpected error: %v",
		err,
	)
}

func TestParseJSONCTypeErrorIncludesLocation(t *testing.T) {
	_, _, err := parseJSONC(`{
  "audio": {"pause_ms": "long"}
}`, Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "line")
	require.Contains(t, err.Error(), "column")
}

func TestParseJSONCWakeWordPrefixesSupportCommaString(t *testing.T) {
	cfg, _, err := parseJSONC(`{
  "wakeword": {"prefixes": "Al, , el"}
}`, Default())
	require.NoError(t, err)
	require.Equal(t, []string{"al", "el"}, cfg.WakeWord.Prefixes)
}

func TestParseJSONCThresholdWarning(t *testing.T) {
	_, warnings, err := parseJSONC(`{"matching":{"threshold":0.7}}`, Default())
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0].Message, "matching.threshold")
}

func TestParseRejectsNonObject(t *testing.T) {
	_, _, err := Parse("name = alkaris", Default())
	require.Error(t, err)
	require.Contains(t, err.Error(), "JSONC object")

	cfg, _, err := Parse("  ", Default())
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}
