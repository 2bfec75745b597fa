// Package config resolves, parses, validates, and defaults alkaris configuration.
package config

// Config is the fully materialized runtime configuration used by alkaris.
type Config struct {
	Assistant     AssistantConfig
	Audio         AudioConfig
	Transcription TranscriptionConfig
	AI            AIConfig
	Matching      MatchingConfig
	WakeWord      WakeWordConfig
	Ducking       DuckingConfig
	Speech        SpeechConfig
	Snapshot      SnapshotConfig
	Media         MediaConfig
	Weather       WeatherConfig
	Jokes         JokesConfig
	Connectivity  ConnectivityConfig
	Gestures      GesturesConfig
	Indicator     IndicatorConfig
	Metrics       MetricsConfig
	Log           LogConfig
}

// AssistantConfig holds identity defaults and where runtime changes persist.
type AssistantConfig struct {
	Name            string
	Accent          string
	EnergyThreshold float64
	VoiceID         string
	IdentityPath    string
}

// AudioConfig controls input selection and listen timing.
type AudioConfig struct {
	Input           string
	Fallback        string
	CalibrationMS   int
	ListenTimeoutMS int
	PhraseLimitMS   int
	PauseMS         int
}

// TranscriptionConfig controls the remote speech-to-text service.
type TranscriptionConfig struct {
	BaseURL   string
	Model     string
	Locale    string
	APIKeyEnv string
	TimeoutMS int
}

// AIConfig controls the generative query service.
type AIConfig struct {
	BaseURL   string
	Model     string
	APIKeyEnv string
	TimeoutMS int
}

// MatchingConfig controls fuzzy command matching.
type MatchingConfig struct {
	Threshold    float64
	UnmatchedLog string
}

// WakeWordConfig controls wake-word variant generation.
type WakeWordConfig struct {
	RulesFile string
	Prefixes  []string
}

// DuckingConfig controls volume ducking around inline commands.
type DuckingConfig struct {
	Enable       bool
	FloorPercent int
}

// SpeechConfig controls speech synthesis.
type SpeechConfig struct {
	TTSCmd CommandConfig
}

// SnapshotConfig controls screen and audio snapshots for AI tasks.
type SnapshotConfig struct {
	ScreenCmd    CommandConfig
	AudioSeconds int
}

// MediaConfig controls the music backend and stream players.
type MediaConfig struct {
	Player     string
	VideoCmd   CommandConfig
	StreamCmd  CommandConfig
	SearchHint string
}

// WeatherConfig controls the weather collaborator.
type WeatherConfig struct {
	BaseURL   string
	APIKeyEnv string
}

// JokesConfig controls the joke collaborator.
type JokesConfig struct {
	URL string
}

// ConnectivityConfig controls the reachability probe and retry policy.
type ConnectivityConfig struct {
	ProbeURL          string
	ProbeTimeoutMS    int
	BackoffMS         int
	GRPCTarget        string
	BreakerFailures   int
	BreakerCooldownMS int
}

// GesturesConfig controls the gesture worker.
type GesturesConfig struct {
	Enable       bool
	CooldownMS   int
	Frames       int
	MotionFrames int
}

// IndicatorConfig controls desktop notification and audio cue behavior.
type IndicatorConfig struct {
	Enable         bool
	DesktopAppName string
	SoundEnable    bool
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Listen string
}

// LogConfig controls log verbosity.
type LogConfig struct {
	Level string
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
