package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// TaskMetrics observes background task lifecycles.
type TaskMetrics interface {
	TaskStarted()
	TaskFinished(time.Duration)
}

type noopTaskMetrics struct{}

func (noopTaskMetrics) TaskStarted()               {}
func (noopTaskMetrics) TaskFinished(time.Duration) {}

// Tasks runs one goroutine per background invocation. The listen loop never
// waits on them; Wait is for shutdown only.
type Tasks struct {
	logger  *slog.Logger
	metrics TaskMetrics

	wg       sync.WaitGroup
	inFlight atomic.Int64
}

// NewTasks constructs a task runner.
func NewTasks(logger *slog.Logger, metrics TaskMetrics) *Tasks {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if metrics == nil {
		metrics = noopTaskMetrics{}
	}
	return &Tasks{logger: logger, metrics: metrics}
}

// Go starts fn in its own goroutine and returns the task id. A panic in fn
// is recovered and logged. fn keeps ctx values but not its cancellation:
// a started task runs to completion and shutdown bounds it through Wait.
func (t *Tasks) Go(ctx context.Context, name string, fn func(context.Context)) string {
	ctx = context.WithoutCancel(ctx)
	id := uuid.NewString()
	logger := t.logger.With("task_id", id, "task", name)

	t.wg.Add(1)
	t.inFlight.Add(1)
	t.metrics.TaskStarted()

	go func() {
		started := time.Now()
		defer func() {
			if r := recover(); r != nil {
				logger.Error("background task panicked", "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			}
			elapsed := time.Since(started)
			t.inFlight.Add(-1)
			t.metrics.TaskFinished(elapsed)
			logger.Debug("background task finished", "elapsed_ms", elapsed.Milliseconds())
			t.wg.Done()
		}()

		logger.Debug("background task started")
		fn(ctx)
	}()
	return id
}

// InFlight returns the number of running tasks.
func (t *Tasks) InFlight() int {
	return int(t.inFlight.Load())
}

// Wait blocks until every task finishes or timeout elapses. It reports
// whether all tasks finished.
func (t *Tasks) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
