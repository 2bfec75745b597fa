package config

// Accents lists the supported assistant accents in presentation order.
var Accents = []string{"es", "es-us", "en", "en-us"}

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	tts := "espeak-ng --stdout -v {voice}"
	screen := "grim {output}"
	video := "mpv --force-window=yes"
	stream := "mpv --no-video"

	return Config{
		Assistant: AssistantConfig{
			Name:            "Alkaris",
			Accent:          "es",
			EnergyThreshold: 5000,
		},
		Audio: AudioConfig{
			Input:           "default",
			Fallback:        "default",
			CalibrationMS:   800,
			ListenTimeoutMS: 50000,
			PhraseLimitMS:   5000,
			PauseMS:         800,
		},
		Transcription: TranscriptionConfig{
			Model:     "whisper-1",
			Locale:    "es-ES",
			APIKeyEnv: "OPENAI_API_KEY",
			TimeoutMS: 15000,
		},
		AI: AIConfig{
			BaseURL:   "https://generativelanguage.googleapis.com/v1beta/openai/",
			Model:     "gemini-2.0-flash",
			APIKeyEnv: "GEMINI_API_KEY",
			TimeoutMS: 60000,
		},
		Matching: MatchingConfig{
			Threshold: 0.8,
		},
		WakeWord: WakeWordConfig{
			Prefixes: []string{"al"},
		},
		Ducking: DuckingConfig{
			Enable:       true,
			FloorPercent: 5,
		},
		Speech: SpeechConfig{
			TTSCmd: CommandConfig{Raw: tts, Argv: mustParseArgv(tts)},
		},
		Snapshot: SnapshotConfig{
			ScreenCmd:    CommandConfig{Raw: screen, Argv: mustParseArgv(screen)},
			AudioSeconds: 5,
		},
		Media: MediaConfig{
			Player:    "spotify",
			VideoCmd:  CommandConfig{Raw: video, Argv: mustParseArgv(video)},
			StreamCmd: CommandConfig{Raw: stream, Argv: mustParseArgv(stream)},
		},
		Weather: WeatherConfig{
			BaseURL:   "https://api.openweathermap.org/data/2.5/weather",
			APIKeyEnv: "WEATHERMAP_API_KEY",
		},
		Jokes: JokesConfig{
			URL: "https://v2.jokeapi.dev/joke/Any?lang=es",
		},
		Connectivity: ConnectivityConfig{
			ProbeURL:          "http://www.google.com",
			ProbeTimeoutMS:    5000,
			BackoffMS:         5000,
			BreakerFailures:   3,
			BreakerCooldownMS: 30000,
		},
		Gestures: GesturesConfig{
			Enable:       true,
			CooldownMS:   3000,
			Frames:       7,
			MotionFrames: 5,
		},
		Indicator: IndicatorConfig{
			Enable:         true,
			DesktopAppName: "alkaris",
			SoundEnable:    true,
		},
		Log: LogConfig{Level: "info"},
	}
}
