// Package app wires the command line to the assistant runtime.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/roimerbautista/alkaris/internal/audio"
	"github.com/roimerbautista/alkaris/internal/cli"
	"github.com/roimerbautista/alkaris/internal/command"
	"github.com/roimerbautista/alkaris/internal/config"
	"github.com/roimerbautista/alkaris/internal/dispatch"
	"github.com/roimerbautista/alkaris/internal/doctor"
	"github.com/roimerbautista/alkaris/internal/ipc"
	"github.com/roimerbautista/alkaris/internal/logging"
	"github.com/roimerbautista/alkaris/internal/pipeline"
	"github.com/roimerbautista/alkaris/internal/transcript"
	"github.com/roimerbautista/alkaris/internal/version"
)

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText(version.Name))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText(version.Name))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	if err := loadEnv(parsed.EnvFile); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	logOpts := logging.Options{Level: cfgLoaded.Config.Log.Level}
	if parsed.Verbose {
		logOpts.Level = "debug"
		logOpts.Console = r.Stderr
	}
	logRuntime, err := logging.New(logOpts)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandVariants:
		return r.commandVariants(cfgLoaded.Config, parsed.Text())
	case cli.CommandMatch:
		return r.commandMatch(cfgLoaded.Config, parsed.Text(), logger)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandStop:
		return r.forwardOrFail(ctx, ipc.Request{Command: ipc.CommandStop})
	case cli.CommandGesture:
		return r.forwardOrFail(ctx, ipc.Request{Command: ipc.CommandGesture, Arg: parsed.Text()})
	case cli.CommandRun:
		return r.commandRun(ctx, cfgLoaded.Config, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

// loadEnv reads secrets from a dotenv file. An explicit file must exist;
// the implicit ./.env is optional.
func loadEnv(path string) error {
	if strings.TrimSpace(path) != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load env file %q: %w", path, err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		availability := "yes"
		if !device.Available {
			availability = "no"
		}
		muted := "no"
		if device.Muted {
			muted = "yes"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			availability,
			muted,
		)
	}

	return 0
}

// commandVariants prints the wake-word variants for name, or for the
// persisted assistant name when name is empty.
func (r Runner) commandVariants(cfg config.Config, name string) int {
	rules, err := loadRules(cfg)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	store, err := openIdentity(cfg)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	current := store.Snapshot()
	if name == "" {
		name = current.Name
	}

	for _, variant := range pipeline.VariantsFor(rules, cfg.WakeWord.Prefixes, name, current.Accent) {
		fmt.Fprintln(r.Stdout, variant)
	}
	return 0
}

// commandMatch shows how a spoken command would be matched and routed.
func (r Runner) commandMatch(cfg config.Config, text string, logger *slog.Logger) int {
	matcher := command.NewMatcher(command.DefaultTable(), cfg.Matching.Threshold)
	d := dispatch.New(dispatch.Deps{Logger: logger, Matcher: matcher})

	m, ok := matcher.Match(transcript.Normalize(text))
	decision := d.Decide(text)

	if !ok {
		fmt.Fprintf(r.Stdout, "no command matched %q (best score %.2f)\n", transcript.Normalize(text), m.Score)
	} else {
		fmt.Fprintf(r.Stdout, "synonym=%q score=%.2f\n", m.Synonym, m.Score)
	}
	fmt.Fprintf(r.Stdout, "command=%s class=%s", decision.Command, decision.Class)
	if decision.Query != "" {
		fmt.Fprintf(r.Stdout, " query=%q", decision.Query)
	}
	if decision.City != "" {
		fmt.Fprintf(r.Stdout, " city=%q aspect=%q", decision.City, decision.Aspect)
	}
	if decision.HasNumber {
		fmt.Fprintf(r.Stdout, " number=%d", decision.Number)
	}
	fmt.Fprintln(r.Stdout)
	return 0
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "stopped")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.Request{Command: ipc.CommandStatus})
	if handled {
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		if resp.State == "" {
			resp.State = "running"
		}
		if resp.Tasks > 0 {
			fmt.Fprintf(r.Stdout, "%s (%d background tasks)\n", resp.State, resp.Tasks)
			return 0
		}
		fmt.Fprintln(r.Stdout, resp.State)
		return 0
	}

	fmt.Fprintln(r.Stdout, "stopped")
	return 0
}

func (r Runner) forwardOrFail(ctx context.Context, req ipc.Request) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, req)
	if !handled {
		fmt.Fprintf(r.Stderr, "error: no running %s assistant\n", version.Name)
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
	return 0
}

func tryForward(ctx context.Context, socketPath string, req ipc.Request) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, req, 220*time.Millisecond)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if ipc.Unreachable(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", req.Command, err)
}
