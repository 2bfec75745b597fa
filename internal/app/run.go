package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/roimerbautista/alkaris/internal/audio"
	"github.com/roimerbautista/alkaris/internal/command"
	"github.com/roimerbautista/alkaris/internal/config"
	"github.com/roimerbautista/alkaris/internal/connectivity"
	"github.com/roimerbautista/alkaris/internal/dispatch"
	"github.com/roimerbautista/alkaris/internal/genai"
	"github.com/roimerbautista/alkaris/internal/gesture"
	"github.com/roimerbautista/alkaris/internal/identity"
	"github.com/roimerbautista/alkaris/internal/indicator"
	"github.com/roimerbautista/alkaris/internal/ipc"
	"github.com/roimerbautista/alkaris/internal/jokes"
	"github.com/roimerbautista/alkaris/internal/logging"
	"github.com/roimerbautista/alkaris/internal/media"
	"github.com/roimerbautista/alkaris/internal/metrics"
	"github.com/roimerbautista/alkaris/internal/pipeline"
	"github.com/roimerbautista/alkaris/internal/session"
	"github.com/roimerbautista/alkaris/internal/snapshot"
	"github.com/roimerbautista/alkaris/internal/speech"
	"github.com/roimerbautista/alkaris/internal/transcribe"
	"github.com/roimerbautista/alkaris/internal/wakeword"
	"github.com/roimerbautista/alkaris/internal/weather"
)

// assistant holds every runtime collaborator of one `run`.
type assistant struct {
	controller *session.Controller
	gestures   *gesture.Worker
	notifier   *indicator.Notifier
	metrics    *metrics.Metrics
	video      *media.MPV
	stream     *media.MPV
}

const (
	playerVideo  = "video"
	playerStream = "stream"
)

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

func (r Runner) commandRun(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8, removePlayerSockets)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	a, err := buildAssistant(cfg, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("assistant startup failed", "error", err.Error())
		return 1
	}
	defer a.close()

	serverCtx, serverCancel := context.WithCancel(ctx)
	defer serverCancel()

	var workers sync.WaitGroup
	workers.Add(1)
	go func() {
		defer workers.Done()
		a.gestures.Run(serverCtx)
	}()
	if addr := strings.TrimSpace(cfg.Metrics.Listen); addr != "" {
		workers.Add(1)
		go func() {
			defer workers.Done()
			if err := a.metrics.Serve(serverCtx, addr, logger); err != nil {
				logger.Error("metrics endpoint failed", "error", err.Error())
			}
		}()
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(serverCtx, listener, a.controller)
	}()

	result := a.controller.Run(ctx)
	serverCancel()
	workers.Wait()
	if serverErr := <-serverErrCh; serverErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serverErr)
		return 1
	}

	logSessionResult(logger, result)

	if result.Err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", result.Err)
		return 1
	}
	return 0
}

// buildAssistant wires the runtime. A missing AI key is fatal.
func buildAssistant(cfg config.Config, logger *slog.Logger) (*assistant, error) {
	m := metrics.New()

	store, err := openIdentity(cfg)
	if err != nil {
		return nil, err
	}
	rules, err := loadRules(cfg)
	if err != nil {
		return nil, err
	}

	ai, err := genai.New(genai.Config{
		BaseURL: cfg.AI.BaseURL,
		APIKey:  os.Getenv(cfg.AI.APIKeyEnv),
		Model:   cfg.AI.Model,
		Timeout: ms(cfg.AI.TimeoutMS),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("configure ai (%s): %w", cfg.AI.APIKeyEnv, err)
	}

	transcriber, err := transcribe.New(transcribe.Config{
		BaseURL:         cfg.Transcription.BaseURL,
		APIKey:          os.Getenv(cfg.Transcription.APIKeyEnv),
		Model:           cfg.Transcription.Model,
		Timeout:         ms(cfg.Transcription.TimeoutMS),
		BreakerFailures: cfg.Connectivity.BreakerFailures,
		BreakerCooldown: ms(cfg.Connectivity.BreakerCooldownMS),
		OnBreakerChange: m.ObserveBreaker,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("configure transcription (%s): %w", cfg.Transcription.APIKeyEnv, err)
	}

	notifier := indicator.NewNotifier(cfg.Indicator, logger)
	mic := audio.Microphone{
		Input:    cfg.Audio.Input,
		Fallback: cfg.Audio.Fallback,
		Pause:    ms(cfg.Audio.PauseMS),
		Logger:   logger,
	}

	opts := pipeline.DefaultOptions()
	opts.Calibration = ms(cfg.Audio.CalibrationMS)
	opts.ListenTimeout = ms(cfg.Audio.ListenTimeoutMS)
	opts.PhraseLimit = ms(cfg.Audio.PhraseLimitMS)
	opts.Locale = cfg.Transcription.Locale
	opts.Rules = rules
	opts.Prefixes = cfg.WakeWord.Prefixes
	listener := pipeline.New(logger, pipeline.FromAudio(mic), audio.DefaultNoiseGate(), transcriber, store, notifier, m, opts)

	speaker := speech.NewSpeaker(
		speech.CommandSynth{Argv: cfg.Speech.TTSCmd.Argv},
		&audio.Speakers{},
		replyVoice(store),
		logger,
	)

	backend := media.NewPlayerctl(cfg.Media.Player, cfg.Media.SearchHint)
	video := media.NewMPV(cfg.Media.VideoCmd.Argv, playerVideo)
	video.Logger = logger
	stream := media.NewMPV(cfg.Media.StreamCmd.Argv, playerStream)
	stream.Logger = logger

	unmatched, err := dispatch.NewUnmatchedLog(cfg.Matching.UnmatchedLog)
	if err != nil {
		return nil, err
	}

	var d *dispatch.Dispatcher
	gestures := gesture.NewWorker(gesture.RunnerFunc(func(ctx context.Context, c command.Command) error {
		return d.Run(ctx, c)
	}), gesture.Options{
		Enabled:      cfg.Gestures.Enable,
		Cooldown:     ms(cfg.Gestures.CooldownMS),
		Frames:       cfg.Gestures.Frames,
		MotionFrames: cfg.Gestures.MotionFrames,
		Logger:       logger,
		Metrics:      m,
	})

	deps := dispatch.Deps{
		Logger:   logger,
		Matcher:  command.NewMatcher(command.DefaultTable(), cfg.Matching.Threshold),
		Speaker:  speaker,
		Media:    backend,
		Ducker:   media.NewDucker(backend, cfg.Ducking.FloorPercent, cfg.Ducking.Enable, logger),
		Video:    video,
		Stream:   stream,
		Jokes:    jokes.Client{URL: cfg.Jokes.URL},
		AI:       ai,
		Identity: store,
		Prompter: listener,
		Gestures: gestures,
		Snapshots: snapshot.Capturer{
			ScreenArgv:    cfg.Snapshot.ScreenCmd.Argv,
			AudioDuration: time.Duration(cfg.Snapshot.AudioSeconds) * time.Second,
			Recorder:      micRecorder(mic, store),
		},
		Unmatched: unmatched,
		Tasks:     dispatch.NewTasks(logger, m),
		Metrics:   m,
	}
	if key := os.Getenv(cfg.Weather.APIKeyEnv); strings.TrimSpace(key) != "" {
		deps.Weather = weather.Client{BaseURL: cfg.Weather.BaseURL, APIKey: key}
	} else {
		logger.Warn("weather key not set; weather commands are unavailable", "env", cfg.Weather.APIKeyEnv)
	}
	d = dispatch.New(deps)

	controller := session.NewController(session.Deps{
		Logger:        logger,
		Authenticator: backend,
		Listener:      listener,
		Dispatcher:    d,
		Recoverer: connectivity.Checker{
			ProbeURL:   cfg.Connectivity.ProbeURL,
			GRPCTarget: cfg.Connectivity.GRPCTarget,
			Timeout:    ms(cfg.Connectivity.ProbeTimeoutMS),
			Backoff:    ms(cfg.Connectivity.BackoffMS),
			Logger:     logger,
		},
		Gestures:  gestures,
		Indicator: notifier,
	})

	return &assistant{
		controller: controller,
		gestures:   gestures,
		notifier:   notifier,
		metrics:    m,
		video:      video,
		stream:     stream,
	}, nil
}

// removePlayerSockets clears mpv sockets left behind by a crashed owner.
func removePlayerSockets(context.Context) error {
	var errs []error
	for _, name := range []string{playerVideo, playerStream} {
		if err := os.Remove(media.SocketPath(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *assistant) close() {
	a.video.Stop()
	a.stream.Stop()
	a.notifier.Wait()
}

// micRecorder records snapshots on a second capture stream so the listen
// loop keeps its own.
func micRecorder(mic audio.Microphone, store *identity.Store) snapshot.Recorder {
	return snapshot.RecorderFunc(func(ctx context.Context, d time.Duration) (audio.Utterance, error) {
		stream, err := mic.Open(ctx, store.Snapshot().EnergyThreshold)
		if err != nil {
			return audio.Utterance{}, err
		}
		defer func() { _ = stream.Close() }()
		return stream.Record(ctx, d)
	})
}

// replyVoice reads the voice on every reply so accent and voice changes
// apply to the next one.
func replyVoice(store *identity.Store) func() string {
	return func() string { return store.Snapshot().SpeechVoice() }
}

func openIdentity(cfg config.Config) (*identity.Store, error) {
	path := strings.TrimSpace(cfg.Assistant.IdentityPath)
	if path == "" {
		resolved, err := logging.StatePath("identity.json")
		if err != nil {
			return nil, fmt.Errorf("resolve identity path: %w", err)
		}
		path = resolved
	}
	store, err := identity.Open(path, identity.Identity{
		Name:            cfg.Assistant.Name,
		Accent:          cfg.Assistant.Accent,
		EnergyThreshold: cfg.Assistant.EnergyThreshold,
		VoiceID:         cfg.Assistant.VoiceID,
	})
	if err != nil {
		return nil, fmt.Errorf("open identity: %w", err)
	}
	return store, nil
}

func loadRules(cfg config.Config) (wakeword.RuleSet, error) {
	path := strings.TrimSpace(cfg.WakeWord.RulesFile)
	if path == "" {
		return wakeword.DefaultRules(), nil
	}
	rules, err := wakeword.LoadRulesFile(path)
	if err != nil {
		return nil, fmt.Errorf("load wake-word rules: %w", err)
	}
	return rules, nil
}

func logSessionResult(logger *slog.Logger, result session.Result) {
	if logger == nil {
		return
	}
	fields := []any{
		"state", result.State,
		"started_at", result.StartedAt.Format(time.RFC3339Nano),
		"finished_at", result.FinishedAt.Format(time.RFC3339Nano),
		"duration_ms", result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
		"cycles", result.Cycles,
		"commands", result.Commands,
	}

	if result.Err != nil {
		if errors.Is(result.Err, session.ErrAuthentication) {
			fields = append(fields, "stage", "authentication")
		}
		logger.Error("assistant stopped with error", append(fields, "error", result.Err.Error())...)
		return
	}
	logger.Info("assistant stopped", fields...)
}
