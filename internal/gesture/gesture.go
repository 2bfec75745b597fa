// Package gesture turns hand gesture frames reported by an external
// detector into playback commands.
package gesture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/roimerbautista/alkaris/internal/command"
)

// Gesture names as reported by the detector.
const (
	PalmForward   = "mano_frente"
	FingerOnLips  = "dedo_labios"
	SwipeRight    = "mov_derecha"
	SwipeLeft     = "mov_izquierda"
	PinchUp       = "es_pellizco_y_deslizamiento_arriba"
	PinchDown     = "es_pellizco_y_deslizamiento_abajo"
	ClosedFist    = "puño_cerrado"
	defaultBuffer = 64
)

// ErrUnknownGesture indicates a frame named a gesture with no action.
var ErrUnknownGesture = errors.New("unknown gesture")

var actions = map[string]command.Command{
	PalmForward:  command.Stop,
	FingerOnLips: command.Stop,
	SwipeRight:   command.Next,
	SwipeLeft:    command.Previous,
	PinchUp:      command.VolumeUp,
	PinchDown:    command.VolumeDown,
	ClosedFist:   command.Resume,
}

// Names returns the recognized gesture names in sorted order.
func Names() []string {
	names := make([]string, 0, len(actions))
	for name := range actions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the command bound to a gesture.
func Lookup(name string) (command.Command, error) {
	c, ok := actions[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownGesture, name)
	}
	return c, nil
}

// Result is what happened to one observed frame.
type Result string

const (
	ResultDisabled Result = "disabled"
	ResultUnknown  Result = "unknown"
	ResultBusy     Result = "busy"
	ResultCounting Result = "counting"
	ResultCooldown Result = "cooldown"
	ResultFired    Result = "fired"
	ResultReset    Result = "reset"
)

// Runner executes a command on behalf of a gesture.
type Runner interface {
	Run(ctx context.Context, c command.Command) error
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, c command.Command) error

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, c command.Command) error {
	return f(ctx, c)
}

// Metrics observes frame results.
type Metrics interface {
	ObserveGesture(gesture string, result string)
}

type noopMetrics struct{}

func (noopMetrics) ObserveGesture(string, string) {}

// Options configures a Worker. Zero values take the defaults.
type Options struct {
	Enabled      bool
	Cooldown     time.Duration
	Frames       int
	MotionFrames int
	Logger       *slog.Logger
	Metrics      Metrics
	Now          func() time.Time
}

// Worker confirms a gesture after it is seen on enough consecutive frames,
// then runs its command. One action runs at a time and a global cooldown
// separates actions.
type Worker struct {
	runner       Runner
	cooldown     time.Duration
	frames       int
	motionFrames int
	logger       *slog.Logger
	metrics      Metrics
	now          func() time.Time

	queue chan string

	mu        sync.Mutex
	enabled   bool
	current   string
	count     int
	lastFired time.Time
	busy      bool
	actions   sync.WaitGroup
}

// NewWorker constructs a worker that runs confirmed gestures through runner.
func NewWorker(runner Runner, opts Options) *Worker {
	if opts.Cooldown <= 0 {
		opts.Cooldown = 3 * time.Second
	}
	if opts.Frames <= 0 {
		opts.Frames = 7
	}
	if opts.MotionFrames <= 0 {
		opts.MotionFrames = 5
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Metrics == nil {
		opts.Metrics = noopMetrics{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Worker{
		runner:       runner,
		cooldown:     opts.Cooldown,
		frames:       opts.Frames,
		motionFrames: opts.MotionFrames,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
		now:          opts.Now,
		queue:        make(chan string, defaultBuffer),
		enabled:      opts.Enabled,
	}
}

// Enable starts acting on frames.
func (w *Worker) Enable() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.enabled = true
	w.logger.Info("gesture control enabled")
}

// Disable ignores frames until Enable is called and clears the counter.
func (w *Worker) Disable() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.enabled = false
	w.current, w.count = "", 0
	w.logger.Info("gesture control disabled")
}

// Enabled reports whether frames are acted on.
func (w *Worker) Enabled() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enabled
}

// Observe queues one frame. An empty name is a frame with no gesture and
// resets the counter. It reports false when the queue is full and the frame
// was dropped.
func (w *Worker) Observe(name string) bool {
	select {
	case w.queue <- name:
		return true
	default:
		return false
	}
}

// Run consumes queued frames until ctx is done, then waits for the action
// in flight.
func (w *Worker) Run(ctx context.Context) {
	defer w.actions.Wait()
	for {
		select {
		case <-ctx.Done():
			return
		case name := <-w.queue:
			w.handle(ctx, name)
		}
	}
}

func (w *Worker) handle(ctx context.Context, name string) Result {
	result, c := w.step(name)
	if name != "" {
		w.metrics.ObserveGesture(name, string(result))
	}
	if result != ResultFired {
		return result
	}

	w.logger.Info("gesture confirmed", "gesture", name, "command", string(c))
	w.actions.Add(1)
	go func() {
		defer w.actions.Done()
		defer w.finish()
		if err := w.runner.Run(ctx, c); err != nil {
			w.logger.Warn("gesture action failed", "gesture", name, "error", err.Error())
		}
	}()
	return result
}

// step advances the consistency counter for one frame.
func (w *Worker) step(name string) (Result, command.Command) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.enabled {
		return ResultDisabled, ""
	}
	if w.busy {
		return ResultBusy, ""
	}
	c, ok := actions[name]
	if !ok {
		w.current, w.count = "", 0
		if name == "" {
			return ResultReset, ""
		}
		return ResultUnknown, ""
	}

	if name == w.current {
		w.count++
	} else {
		w.current, w.count = name, 1
	}
	if w.count < w.required(name) {
		return ResultCounting, ""
	}

	now := w.now()
	if !w.lastFired.IsZero() && now.Sub(w.lastFired) <= w.cooldown {
		return ResultCooldown, ""
	}
	w.lastFired = now
	w.current, w.count = "", 0
	w.busy = true
	return ResultFired, c
}

func (w *Worker) required(name string) int {
	if name == SwipeRight || name == SwipeLeft {
		return w.motionFrames
	}
	return w.frames
}

func (w *Worker) finish() {
	w.mu.Lock()
	w.busy = false
	w.mu.Unlock()
}
