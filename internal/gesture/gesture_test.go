package gesture

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/roimerbautista/alkaris/internal/command"
	"github.com/stretchr/testify/require"
)

type recordingRunner struct {
	mu       sync.Mutex
	commands []command.Command
	block    chan struct{}
	ran      chan command.Command
}

func newRecordingRunner() *recordingRunner {
	return &recordingRunner{ran: make(chan command.Command, 16)}
}

func (r *recordingRunner) Run(_ context.Context, c command.Command) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	r.commands = append(r.commands, c)
	r.mu.Unlock()
	r.ran <- c
	return nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingMetrics struct {
	mu      sync.Mutex
	results map[string]int
}

func (m *recordingMetrics) ObserveGesture(gesture string, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.results == nil {
		m.results = map[string]int{}
	}
	m.results[gesture+"/"+result]++
}

func feed(w *Worker, name string, n int) Result {
	var last Result
	for range n {
		last = w.handle(context.Background(), name)
	}
	return last
}

func waitRan(t *testing.T, r *recordingRunner) command.Command {
	t.Helper()
	select {
	case c := <-r.ran:
		return c
	case <-time.After(time.Second):
		t.Fatal("gesture action did not run")
		return ""
	}
}

func newTestWorker(runner Runner, clock *fakeClock, metrics Metrics) *Worker {
	return NewWorker(runner, Options{Enabled: true, Now: clock.Now, Metrics: metrics})
}

func TestStaticGestureNeedsSevenFrames(t *testing.T) {
	runner := newRecordingRunner()
	clock := &fakeClock{now: time.Unix(1000, 0)}
	metrics := &recordingMetrics{}
	w := newTestWorker(runner, clock, metrics)

	require.Equal(t, ResultCounting, feed(w, ClosedFist, 6))
	require.Equal(t, ResultFired, w.handle(context.Background(), ClosedFist))
	require.Equal(t, command.Resume, waitRan(t, runner))

	require.Equal(t, 6, metrics.results[ClosedFist+"/counting"])
	require.Equal(t, 1, metrics.results[ClosedFist+"/fired"])
}

func TestMotionGestureNeedsFiveFrames(t *testing.T) {
	runner := newRecordingRunner()
	clock := &fakeClock{now: time.Unix(1000, 0)}
	w := newTestWorker(runner, clock, nil)

	require.Equal(t, ResultCounting, feed(w, SwipeRight, 4))
	require.Equal(t, ResultFired, w.handle(context.Background(), SwipeRight))
	require.Equal(t, command.Next, waitRan(t, runner))
}

func TestInterruptedSequenceRestartsCount(t *testing.T) {
	runner := newRecordingRunner()
	clock := &fakeClock{now: time.Unix(1000, 0)}
	w := newTestWorker(runner, clock, nil)

	feed(w, SwipeLeft, 4)
	require.Equal(t, ResultReset, w.handle(context.Background(), ""))
	require.Equal(t, ResultCounting, feed(w, SwipeLeft, 4))
	feed(w, PinchUp, 1)
	require.Equal(t, ResultCounting, feed(w, SwipeLeft, 4))
	require.Equal(t, ResultFired, w.handle(context.Background(), SwipeLeft))
	require.Equal(t, command.Previous, waitRan(t, runner))
}

func TestGlobalCooldown(t *testing.T) {
	runner := newRecordingRunner()
	clock := &fakeClock{now: time.Unix(1000, 0)}
	w := newTestWorker(runner, clock, nil)

	require.Equal(t, ResultFired, feed(w, SwipeRight, 5))
	waitRan(t, runner)
	require.Eventually(t, func() bool {
		w.mu.Lock()
		defer w.mu.Unlock()
		return !w.busy
	}, time.Second, 5*time.Millisecond)

	clock.Advance(2 * time.Second)
	require.Equal(t, ResultCooldown, feed(w, PinchDown, 7))

	clock.Advance(1500 * time.Millisecond)
	require.Equal(t, ResultFired, w.handle(context.Background(), PinchDown))
	require.Equal(t, command.VolumeDown, waitRan(t, runner))
}

func TestFramesIgnoredWhileActionRuns(t *testing.T) {
	runner := newRecordingRunner()
	runner.block = make(chan struct{})
	clock := &fakeClock{now: time.Unix(1000, 0)}
	w := newTestWorker(runner, clock, nil)

	require.Equal(t, ResultFired, feed(w, PalmForward, 7))
	clock.Advance(10 * time.Second)
	require.Equal(t, ResultBusy, feed(w, FingerOnLips, 10))

	close(runner.block)
	require.Equal(t, command.Stop, waitRan(t, runner))
}

func TestDisabledWorkerIgnoresFrames(t *testing.T) {
	runner := newRecordingRunner()
	clock := &fakeClock{now: time.Unix(1000, 0)}
	w := NewWorker(runner, Options{Now: clock.Now})

	require.False(t, w.Enabled())
	require.Equal(t, ResultDisabled, feed(w, ClosedFist, 10))

	w.Enable()
	require.True(t, w.Enabled())
	feed(w, ClosedFist, 6)
	w.Disable()
	w.Enable()
	require.Equal(t, ResultCounting, w.handle(context.Background(), ClosedFist))
}

func TestUnknownGestureResetsCounter(t *testing.T) {
	w := newTestWorker(newRecordingRunner(), &fakeClock{now: time.Unix(1000, 0)}, nil)

	feed(w, ClosedFist, 6)
	require.Equal(t, ResultUnknown, w.handle(context.Background(), "pulgar_arriba"))
	require.Equal(t, ResultCounting, w.handle(context.Background(), ClosedFist))
}

func TestRunConsumesObservedFrames(t *testing.T) {
	runner := newRecordingRunner()
	w := NewWorker(runner, Options{Enabled: true})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	for range 5 {
		require.True(t, w.Observe(SwipeRight))
	}
	require.Equal(t, command.Next, waitRan(t, runner))

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestLookup(t *testing.T) {
	c, err := Lookup(PinchUp)
	require.NoError(t, err)
	require.Equal(t, command.VolumeUp, c)

	_, err = Lookup("saludo")
	require.True(t, errors.Is(err, ErrUnknownGesture))

	require.Len(t, Names(), 7)
	require.Contains(t, Names(), ClosedFist)
}
