// Package sched implements the periodic scheduler and supervisor
// operations of spec.md §4.1: fixed-period task dispatch with overrun
// detection, best-effort SCHED_FIFO priority, and coalescing wake
// semantics built directly on time.Ticker (§9 "task wake via semaphore
// + timer callback -> periodic tick channel or equivalent" — a
// time.Ticker's channel already drops a tick it has no room to deliver,
// which is exactly the "body drains pending posts so a backlog cannot
// cause back-to-back runs" requirement of §5).
package sched

import (
	"context"
	"time"
)

// Task is one of the eight periodic bodies (§2). Run executes a single
// tick; tick is the task's own tick counter, not the shared CCU cycle
// counter (CCU publishes that separately into shared.State).
type Task interface {
	Name() string
	Period() time.Duration
	Priority() int
	Run(ctx context.Context, tick uint64) error
}

// OverrunObserver is notified whenever a task's tick exceeds its budget
// (period * config.OverrunFactor, §4.1).
type OverrunObserver func(task string, elapsed, budget time.Duration)

// ErrObserver is notified whenever a task's Run returns a non-nil
// error; the scheduler does not stop the task loop on error (§4.1
// "does not skip subsequent ticks").
type ErrObserver func(task string, err error)
