// Package session owns the assistant loop: authenticate, listen for the
// wake word, dispatch, and serve control requests.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/roimerbautista/alkaris/internal/dispatch"
	"github.com/roimerbautista/alkaris/internal/fsm"
	"github.com/roimerbautista/alkaris/internal/gesture"
	"github.com/roimerbautista/alkaris/internal/ipc"
	"github.com/roimerbautista/alkaris/internal/pipeline"
)

// OutageNotice is spoken once when transcription becomes unreachable.
const OutageNotice = "No puedo conectar con el servicio de reconocimiento de voz. Lo intentaré de nuevo en unos segundos."

var (
	// ErrAuthentication indicates the media backend rejected startup
	// authentication. It is fatal.
	ErrAuthentication = errors.New("media authentication failed")
	// ErrAlreadyRan indicates Run was called on a terminated controller.
	ErrAlreadyRan = errors.New("session already terminated")
)

// Authenticator validates the media backend once at startup.
type Authenticator interface {
	Authenticate(ctx context.Context) error
}

// Listener runs one recognition cycle.
type Listener interface {
	ListenOnce(ctx context.Context) (pipeline.Outcome, error)
}

// Dispatcher decides and executes recognized commands.
type Dispatcher interface {
	Decide(spoken string) dispatch.Decision
	Execute(ctx context.Context, decision dispatch.Decision) error
	Say(ctx context.Context, text string)
	InFlight() int
	Wait(timeout time.Duration) bool
}

// Recoverer paces retries after a remote service failed.
type Recoverer interface {
	Recover(ctx context.Context) error
	Wait(ctx context.Context) error
}

// Gestures receives frames forwarded over the control socket.
type Gestures interface {
	Observe(name string) bool
	Enabled() bool
}

// Indicator reports loop failures to the user.
type Indicator interface {
	ShowError(ctx context.Context, text string)
}

type noopAuthenticator struct{}

func (noopAuthenticator) Authenticate(context.Context) error { return nil }

type noopIndicator struct{}

func (noopIndicator) ShowError(context.Context, string) {}

// flatRecoverer waits a fixed delay when no connectivity checker is wired.
type flatRecoverer struct{ delay time.Duration }

func (r flatRecoverer) Recover(ctx context.Context) error { return r.Wait(ctx) }

func (r flatRecoverer) Wait(ctx context.Context) error {
	timer := time.NewTimer(r.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Deps are the controller's collaborators. Listener and Dispatcher are
// required.
type Deps struct {
	Logger        *slog.Logger
	Authenticator Authenticator
	Listener      Listener
	Dispatcher    Dispatcher
	Recoverer     Recoverer
	Gestures      Gestures
	Indicator     Indicator
	// ShutdownWait bounds how long Run waits for background tasks.
	ShutdownWait time.Duration
}

// Result summarizes one Run.
type Result struct {
	State      fsm.State
	Err        error
	Cycles     int
	Commands   int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Controller orchestrates the loop state transitions and side effects.
type Controller struct {
	logger     *slog.Logger
	auth       Authenticator
	listener   Listener
	dispatcher Dispatcher
	recoverer  Recoverer
	gestures   Gestures
	indicator  Indicator
	wait       time.Duration

	mu     sync.RWMutex
	state  fsm.State
	cancel context.CancelFunc

	// outage is set while transcription stays unreachable. Loop goroutine only.
	outage bool
}

// NewController constructs a controller with safe default fallbacks.
func NewController(deps Deps) *Controller {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if deps.Authenticator == nil {
		deps.Authenticator = noopAuthenticator{}
	}
	if deps.Recoverer == nil {
		deps.Recoverer = flatRecoverer{delay: 5 * time.Second}
	}
	if deps.Indicator == nil {
		deps.Indicator = noopIndicator{}
	}
	if deps.ShutdownWait <= 0 {
		deps.ShutdownWait = 10 * time.Second
	}

	return &Controller{
		logger:     deps.Logger,
		auth:       deps.Authenticator,
		listener:   deps.Listener,
		dispatcher: deps.Dispatcher,
		recoverer:  deps.Recoverer,
		gestures:   deps.Gestures,
		indicator:  deps.Indicator,
		wait:       deps.ShutdownWait,
		state:      fsm.StateAuthenticating,
	}
}

// State returns the current FSM state snapshot.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// transition applies one FSM event to the controller state.
func (c *Controller) transition(event fsm.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := fsm.Transition(c.state, event)
	if err != nil {
		return err
	}
	if next != c.state {
		c.logger.Debug("state transition", "from", string(c.state), "event", string(event), "to", string(next))
	}
	c.state = next
	return nil
}

// Run authenticates and then listens until the exit command, a stop
// request, or ctx cancellation. Authentication failure is returned without
// entering the loop.
func (c *Controller) Run(ctx context.Context) Result {
	result := Result{StartedAt: time.Now()}
	finish := func(err error) Result {
		_ = c.transition(fsm.EventTerminate)
		result.State = c.State()
		result.Err = err
		result.FinishedAt = time.Now()
		return result
	}

	if c.State() != fsm.StateAuthenticating {
		result.State = c.State()
		result.Err = ErrAlreadyRan
		result.FinishedAt = time.Now()
		return result
	}
	if c.listener == nil || c.dispatcher == nil {
		return finish(errors.New("session listener and dispatcher are required"))
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	if err := c.auth.Authenticate(runCtx); err != nil {
		return finish(fmt.Errorf("%w: %v", ErrAuthentication, err))
	}
	if err := c.transition(fsm.EventAuthenticated); err != nil {
		return finish(err)
	}
	c.logger.Info("assistant ready")

	for runCtx.Err() == nil {
		result.Cycles++
		dispatched, terminal := c.cycle(runCtx)
		if dispatched {
			result.Commands++
		}
		if terminal {
			break
		}
	}
	c.drain()
	return finish(nil)
}

// cycle runs one listen and dispatch round. Panics are recovered here so
// one bad cycle never ends the loop.
func (c *Controller) cycle(ctx context.Context) (dispatched bool, terminal bool) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("listen cycle panicked", "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			c.resetToWaiting()
			c.apologize(ctx)
		}
	}()

	outcome, err := c.listener.ListenOnce(ctx)
	if ctx.Err() != nil {
		return false, false
	}
	switch {
	case errors.Is(err, pipeline.ErrServiceUnavailable):
		c.logger.Warn("transcription unavailable; checking connectivity", "error", err.Error())
		if !c.outage {
			c.outage = true
			c.dispatcher.Say(ctx, OutageNotice)
		}
		_ = c.recoverer.Recover(ctx)
		return false, false
	case err != nil:
		c.logger.Error("listen cycle failed", "error", err.Error())
		c.indicator.ShowError(ctx, "")
		_ = c.recoverer.Wait(ctx)
		return false, false
	}
	c.outage = false
	if !outcome.Recognized {
		return false, false
	}

	if err := c.transition(fsm.EventWake); err != nil {
		c.logger.Warn("wake transition rejected", "error", err.Error())
		return false, false
	}

	decision := c.dispatcher.Decide(outcome.Command)
	switch decision.Class {
	case dispatch.ClassDrop:
		_ = c.transition(fsm.EventDrop)
		return false, false
	case dispatch.ClassTerminal:
		c.execute(ctx, decision)
		return true, true
	case dispatch.ClassBackground:
		_ = c.transition(fsm.EventDispatchBackground)
	default:
		_ = c.transition(fsm.EventDispatchInline)
	}

	c.execute(ctx, decision)
	_ = c.transition(fsm.EventComplete)
	return true, false
}

func (c *Controller) execute(ctx context.Context, decision dispatch.Decision) {
	err := c.dispatcher.Execute(ctx, decision)
	switch {
	case err == nil:
	case errors.Is(err, dispatch.ErrUnexpected):
		c.logger.Error("command failed unexpectedly", "command", string(decision.Command), "error", err.Error())
		c.apologize(ctx)
	default:
		c.logger.Warn("command failed", "command", string(decision.Command), "error", err.Error())
	}
}

func (c *Controller) apologize(ctx context.Context) {
	c.indicator.ShowError(ctx, "")
	c.dispatcher.Say(ctx, dispatch.Apology)
}

// resetToWaiting returns a mid-cycle state to waiting after a recovered
// panic.
func (c *Controller) resetToWaiting() {
	switch c.State() {
	case fsm.StateMatching:
		_ = c.transition(fsm.EventDrop)
	case fsm.StateExecutingInline, fsm.StateExecutingBackground:
		_ = c.transition(fsm.EventComplete)
	}
}

// drain waits a bounded time for background tasks.
func (c *Controller) drain() {
	if n := c.dispatcher.InFlight(); n > 0 {
		c.logger.Info("waiting for background tasks", "tasks", n)
	}
	if !c.dispatcher.Wait(c.wait) {
		c.logger.Warn("background tasks still running at shutdown", "tasks", c.dispatcher.InFlight())
	}
}

// Stop ends the loop after the current cycle. An in-flight listen is
// cancelled.
func (c *Controller) Stop() bool {
	c.mu.RLock()
	cancel := c.cancel
	c.mu.RUnlock()
	if cancel == nil {
		return false
	}
	cancel()
	return true
}

// Handle serves control socket requests for the running assistant.
func (c *Controller) Handle(_ context.Context, req ipc.Request) ipc.Response {
	state := string(c.State())
	switch req.Command {
	case ipc.CommandStatus:
		tasks := 0
		if c.dispatcher != nil {
			tasks = c.dispatcher.InFlight()
		}
		return ipc.Response{OK: true, State: state, Message: "status", Tasks: tasks}
	case ipc.CommandStop:
		if c.State() == fsm.StateTerminated {
			return ipc.Response{OK: false, State: state, Error: "assistant already stopped"}
		}
		if !c.Stop() {
			return ipc.Response{OK: false, State: state, Error: "assistant not running"}
		}
		return ipc.Response{OK: true, State: state, Message: "stop requested"}
	case ipc.CommandGesture:
		return c.observeGesture(req.Arg)
	default:
		return ipc.Response{OK: false, State: state, Error: fmt.Sprintf("unknown command: %s", req.Command)}
	}
}

func (c *Controller) observeGesture(name string) ipc.Response {
	state := string(c.State())
	if c.gestures == nil {
		return ipc.Response{OK: false, State: state, Error: "gesture control not configured"}
	}
	if name != "" {
		if _, err := gesture.Lookup(name); err != nil {
			return ipc.Response{OK: false, State: state, Error: err.Error()}
		}
	}
	if !c.gestures.Enabled() {
		return ipc.Response{OK: false, State: state, Error: "gesture control disabled"}
	}
	if !c.gestures.Observe(name) {
		return ipc.Response{OK: false, State: state, Error: "gesture queue full"}
	}
	return ipc.Response{OK: true, State: state, Message: "gesture observed"}
}
