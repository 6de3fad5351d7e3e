// Package shared owns the one cross-task state region every periodic
// task reads or mutates (spec.md §3, §5): queues, trackers, vehicle
// status, restart/overrun counters, and the lifecycle flags that gate
// STM's transitions. Each substructure guards itself with its own lock;
// State itself adds no additional locking beyond what its fields
// already provide, matching the private-then-common lock ordering of
// §5 ("a task may lock its private mutex and the common mutex; order
// is private -> common").
package shared

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/nmxmxh/asi-supervisor/internal/config"
	"github.com/nmxmxh/asi-supervisor/internal/fault"
	"github.com/nmxmxh/asi-supervisor/internal/model"
	"github.com/nmxmxh/asi-supervisor/internal/ratelimit"
	"github.com/nmxmxh/asi-supervisor/internal/ring"
	"github.com/nmxmxh/asi-supervisor/internal/statemachine"
	"github.com/nmxmxh/asi-supervisor/internal/tracker"
)

// Flags are the boolean lifecycle gates STM/ARA/supervisor consult
// (§3: InitComplete, StartupTestsComplete, ShutdownRequested).
type Flags struct {
	initComplete         atomic.Bool
	startupTestsComplete atomic.Bool
	shutdownRequested    atomic.Bool
}

func (f *Flags) SetInitComplete()         { f.initComplete.Store(true) }
func (f *Flags) InitComplete() bool       { return f.initComplete.Load() }
func (f *Flags) SetStartupTestsComplete() { f.startupTestsComplete.Store(true) }
func (f *Flags) StartupTestsComplete() bool {
	return f.startupTestsComplete.Load()
}
func (f *Flags) RequestShutdown() { f.shutdownRequested.Store(true) }
func (f *Flags) ShutdownRequested() bool {
	return f.shutdownRequested.Load()
}

// TaskCounters tracks one task's abnormal-exit/restart and overrun
// bookkeeping for the supervisor's monitor() operation (§4.1).
type TaskCounters struct {
	Restarts atomic.Int32
	Overruns atomic.Int64
}

// State is the common region shared by all eight periodic tasks.
type State struct {
	Cycle atomic.Uint64 // advanced only by CCU (§2 "cadence source for all timeouts")

	Flags Flags
	STM   *statemachine.STM
	Shadow *statemachine.ShadowMonitor

	Vehicle VehicleStatus

	ApprovedQueue  *ring.Queue[model.ProcessMsg]
	IntegrityQueue *ring.Queue[model.ProcessMsg]
	SafeStateQueue *ring.Queue[model.ProcessMsg]

	// NotificationQueue carries the per-(msg_id, seq) action notifications
	// ARA/ICM-TX/CRV raise (§7 "three notifications ever leave the
	// system") to ICM-TX for transmission. §3 names only the three
	// action/integrity/safe-state queues explicitly; this one is the
	// outbound path for the notification half of §7's contract, kept
	// separate from ApprovedQueue so §8's "approved queue unchanged on
	// rejection" invariant holds literally even though a notification
	// still leaves the system.
	NotificationQueue *ring.Queue[model.ProcessMsg]

	Faults *fault.Manager

	Integrity   *tracker.IntegrityTracker
	Timing      *tracker.TimingTracker
	Rolling     *tracker.RollingCounters
	Sequences   *tracker.SequenceNumbers
	Calibration *tracker.CalibrationTracker

	RateLimiters *ratelimit.Registry

	mu       sync.Mutex
	counters map[string]*TaskCounters
}

// New constructs a State with every substructure initialized to its
// zero/empty form, ready for the worker's eight tasks.
func New(faults *fault.Manager) *State {
	return &State{
		STM:    statemachine.New(),
		Shadow: statemachine.NewShadowMonitor(),

		ApprovedQueue:     ring.NewQueue[model.ProcessMsg](config.QueueCapacity),
		IntegrityQueue:    ring.NewQueue[model.ProcessMsg](config.QueueCapacity),
		SafeStateQueue:    ring.NewQueue[model.ProcessMsg](config.QueueCapacity),
		NotificationQueue: ring.NewQueue[model.ProcessMsg](config.QueueCapacity),

		Faults: faults,

		Integrity:   tracker.NewIntegrityTracker(),
		Timing:      tracker.NewTimingTracker(),
		Rolling:     tracker.NewRollingCounters(),
		Sequences:   tracker.NewSequenceNumbers(),
		Calibration: tracker.NewCalibrationTracker(),

		RateLimiters: ratelimit.NewRegistry(),

		counters: make(map[string]*TaskCounters),
	}
}

// Snapshot takes the point-in-time system snapshot attached to every
// fault event (§3): current vehicle reading, ASI state, and wall
// clock. Callers outside the eight task bodies (the scheduler's
// overrun observer, in particular) have no per-task cache of their own
// to read instead.
func (s *State) Snapshot() fault.SystemSnapshot {
	sample := s.Vehicle.Sample(s.Cycle.Load())
	return fault.SystemSnapshot{
		VehicleSpeed: sample.Speed,
		Gear:         sample.Park,
		AsiState:     s.STM.Current(),
		Timestamp:    time.Now().UnixNano(),
	}
}

// TaskCounters returns (creating on first use) the restart/overrun
// counters for a named task, for the supervisor's monitor() operation.
func (s *State) TaskCounters(task string) *TaskCounters {
	s.mu.Lock()
	defer s.mu.Unlock()
	tc, ok := s.counters[task]
	if !ok {
		tc = &TaskCounters{}
		s.counters[task] = tc
	}
	return tc
}

// EnterSafeState drives every queue/tracker into the state §4.4
// requires on Safe-State entry: integrity and approved queues cleared,
// exactly one Safe-State status notification enqueued on SafeStateQueue.
func (s *State) EnterSafeState(ssNotification model.ProcessMsg) {
	s.STM.EnterSafeState()
	s.ApprovedQueue.Clear()
	s.IntegrityQueue.Clear()
	s.Integrity.Clear()
	s.SafeStateQueue.Push(ssNotification)
}
