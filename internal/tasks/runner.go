// Package tasks supervises background goroutines so that fire-and-forget
// work is never truly forgotten. Every task runs on the runner's context,
// logs its own failure, and is waited on during shutdown.
package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Runner owns a set of background tasks. Tasks are started with Go and
// drained with Shutdown; after Shutdown returns no task is left running
// unobserved.
type Runner struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	active atomic.Int64
	logger *slog.Logger
}

// NewRunner creates a runner whose tasks live until Shutdown is called.
func NewRunner(logger *slog.Logger) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		ctx:    ctx,
		cancel: cancel,
		logger: logger,
	}
}

// Go runs fn in a background goroutine on the runner's context. A failure
// is logged with the task name, never returned; callers that need the
// result should not be using a background task.
func (r *Runner) Go(name string, fn func(ctx context.Context) error) {
	r.wg.Add(1)
	r.active.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.active.Add(-1)

		if err := fn(r.ctx); err != nil {
			r.logger.Error("background task failed", "task", name, "error", err)
			return
		}
		r.logger.Debug("background task finished", "task", name)
	}()
}

// Active returns the number of tasks currently in flight.
func (r *Runner) Active() int {
	return int(r.active.Load())
}

// Shutdown waits for in-flight tasks to finish. If ctx expires first the
// runner's context is cancelled so stragglers stop at their next blocking
// call, and an error reports how many were abandoned.
func (r *Runner) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.cancel()
		return nil
	case <-ctx.Done():
		n := r.active.Load()
		r.cancel()
		return fmt.Errorf("shutdown deadline exceeded with %d task(s) still running", n)
	}
}
