package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/roimerbautista/alkaris/internal/command"
	"github.com/roimerbautista/alkaris/internal/dispatch"
	"github.com/roimerbautista/alkaris/internal/fsm"
	"github.com/roimerbautista/alkaris/internal/pipeline"
)

type listenStep struct {
	outcome pipeline.Outcome
	err     error
	panic   bool
}

func heard(command string) listenStep {
	return listenStep{outcome: pipeline.Outcome{Stage: pipeline.StageMatched, Recognized: true, Command: command}}
}

func silence() listenStep {
	return listenStep{outcome: pipeline.Outcome{Stage: pipeline.StageNoWakeWord}}
}

// scriptedListener replays steps, then blocks until the loop is cancelled.
type scriptedListener struct {
	mu    sync.Mutex
	steps []listenStep
	calls atomic.Int32
}

func (l *scriptedListener) ListenOnce(ctx context.Context) (pipeline.Outcome, error) {
	l.calls.Add(1)
	l.mu.Lock()
	if len(l.steps) == 0 {
		l.mu.Unlock()
		<-ctx.Done()
		return pipeline.Outcome{Stage: pipeline.StageFailed}, ctx.Err()
	}
	step := l.steps[0]
	l.steps = l.steps[1:]
	l.mu.Unlock()

	if step.panic {
		panic("microphone exploded")
	}
	return step.outcome, step.err
}

type fakeDispatcher struct {
	mu       sync.Mutex
	executed []command.Command
	said     []string
	failWith map[command.Command]error
	waited   atomic.Int32
	inFlight int
}

func (d *fakeDispatcher) Decide(spoken string) dispatch.Decision {
	return dispatch.Route(spoken, spoken, false)
}

func (d *fakeDispatcher) Execute(_ context.Context, decision dispatch.Decision) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.executed = append(d.executed, decision.Command)
	return d.failWith[decision.Command]
}

func (d *fakeDispatcher) Say(_ context.Context, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.said = append(d.said, text)
}

func (d *fakeDispatcher) InFlight() int { return d.inFlight }

func (d *fakeDispatcher) Wait(time.Duration) bool {
	d.waited.Add(1)
	return true
}

func (d *fakeDispatcher) commands() []command.Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]command.Command(nil), d.executed...)
}

func (d *fakeDispatcher) lines() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.said...)
}

type countingRecoverer struct {
	recovers atomic.Int32
	waits    atomic.Int32
}

func (r *countingRecoverer) Recover(context.Context) error {
	r.recovers.Add(1)
	return nil
}

func (r *countingRecoverer) Wait(context.Context) error {
	r.waits.Add(1)
	return nil
}

type fakeAuthenticator struct {
	err   error
	calls atomic.Int32
}

func (a *fakeAuthenticator) Authenticate(context.Context) error {
	a.calls.Add(1)
	return a.err
}

type fakeGestures struct {
	enabled  bool
	full     bool
	observed []string
}

func (g *fakeGestures) Observe(name string) bool {
	if g.full {
		return false
	}
	g.observed = append(g.observed, name)
	return true
}

func (g *fakeGestures) Enabled() bool { return g.enabled }

type fakeIndicator struct {
	errors atomic.Int32
}

func (f *fakeIndicator) ShowError(context.Context, string) { f.errors.Add(1) }

func waitForState(t *testing.T, ctrl *Controller, desired fsm.State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if ctrl.State() == desired {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %s (current=%s)", desired, ctrl.State())
}
