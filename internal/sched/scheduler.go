package sched

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nmxmxh/asi-supervisor/internal/asierr"
	"github.com/nmxmxh/asi-supervisor/internal/config"
)

// Scheduler dispatches a fixed set of Tasks, one goroutine per task,
// each driven by its own time.Ticker (§4.1). errgroup.Group supplies
// the bounded cooperative-cancellation semantics: the group's context
// is canceled on Shutdown or on any task returning a fatal error, and
// Wait blocks until every task goroutine has observed cancellation and
// returned.
type Scheduler struct {
	log   *zap.Logger
	tasks []Task

	overrun OverrunObserver
	onErr   ErrObserver

	g      *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc

	started atomic.Bool
}

// New constructs a Scheduler over tasks, logging through log. overrun
// and onErr may be nil.
func New(log *zap.Logger, tasks []Task, overrun OverrunObserver, onErr ErrObserver) *Scheduler {
	return &Scheduler{log: log, tasks: tasks, overrun: overrun, onErr: onErr}
}

// StartTasks initializes wake primitives and spawns every task with
// best-effort real-time priority (§4.1 start_tasks). Returns
// asierr.ErrInvalidArgument if called with no tasks, matching the
// "status code distinguishing resource, permission, and
// invalid-argument errors" contract; resource/permission failures
// during SCHED_FIFO acquisition are logged, not fatal (best-effort).
func (s *Scheduler) StartTasks(parent context.Context) error {
	if len(s.tasks) == 0 {
		return asierr.ErrInvalidArgument
	}
	if !s.started.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: scheduler already started", asierr.ErrInvalidArgument)
	}

	ctx, cancel := context.WithCancel(parent)
	g, gctx := errgroup.WithContext(ctx)
	s.ctx, s.cancel, s.g = ctx, cancel, g

	for _, task := range s.tasks {
		task := task
		g.Go(func() error {
			// Pin the goroutine to its own OS thread so the priority
			// applies to this task only; the thread exits with it.
			runtime.LockOSThread()
			if err := setRealtimePriority(task.Priority()); err != nil {
				s.log.Debug("realtime priority unavailable, continuing best-effort",
					zap.String("task", task.Name()), zap.Error(err))
			}
			return s.runLoop(gctx, task)
		})
	}
	return nil
}

// runLoop is one task's dispatch loop: wait for the next tick or
// cancellation, run the task body, measure overrun against budget.
func (s *Scheduler) runLoop(ctx context.Context, task Task) error {
	ticker := time.NewTicker(task.Period())
	defer ticker.Stop()

	budget := time.Duration(float64(task.Period()) * config.OverrunFactor)
	var tick uint64

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			tick++
			start := time.Now()
			err := task.Run(ctx, tick)
			elapsed := time.Since(start)

			if elapsed > budget && s.overrun != nil {
				s.overrun(task.Name(), elapsed, budget)
			}
			if err != nil && s.onErr != nil {
				s.onErr(task.Name(), err)
			}
		}
	}
}

// Shutdown signals cancellation to every task and waits for each to
// quiesce (§4.1 shutdown). It does not itself persist state or close
// sockets — those are the worker's responsibility once every task loop
// has returned.
func (s *Scheduler) Shutdown() error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	return s.g.Wait()
}
