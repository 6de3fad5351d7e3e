package fault

import (
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/nmxmxh/asi-supervisor/internal/model"
)

// NotificationHook is invoked by Manager.Tick for every dequeued event (§4.5,
// §9 "function-pointer hooks -> tagged variants": the hook itself is
// just a plain func here, but the event id it's keyed by is the tagged
// variant that replaces the original's void(*)(void) callback).
type NotificationHook func(id EventID, snap SystemSnapshot)

// Manager is the fault manager (FM) task body: drains the event queue,
// logs each event with its attached snapshot. CriticalFaultFlag is set
// by Raise the instant a Critical event is enqueued (§4.5, §7).
type Manager struct {
	queue       *EventQueue
	log         *zap.Logger
	hook        NotificationHook
	criticalSet atomic.Bool
}

// NewManager constructs a fault manager over queue, logging through log
// and invoking hook (if non-nil) for every dequeued event.
func NewManager(queue *EventQueue, log *zap.Logger, hook NotificationHook) *Manager {
	return &Manager{queue: queue, log: log, hook: hook}
}

// Raise enqueues id with a snapshot captured now, setting
// CriticalFaultFlag immediately if id is Critical — the flag must be
// visible to STM without waiting for FM's own tick (§4.5 "Critical
// events set the global CriticalFaultFlag atomically").
func (m *Manager) Raise(id EventID, snap SystemSnapshot) EnqueueOutcome {
	outcome, _ := m.queue.Enqueue(id, snap)
	if IsCritical(id) {
		m.criticalSet.Store(true)
	}
	return outcome
}

// CriticalFaultFlag reports whether any Critical event has ever been
// raised in this run. Never cleared (§3 "once set, never cleared
// within a run").
func (m *Manager) CriticalFaultFlag() bool {
	return m.criticalSet.Load()
}

// Tick processes exactly one event from the head of the queue: logs it
// with its snapshot, invokes the notification hook, then discards it.
// Processing is idempotent — calling Tick with the same head event-id
// re-entered within one cycle is safe (§4.5 "Processing is idempotent").
func (m *Manager) Tick() (EventID, bool) {
	ev, ok := m.queue.Dequeue()
	if !ok {
		return EventNone, false
	}

	sev, _ := Severity(ev.ID)
	m.log.Info("fault event",
		zap.Stringer("event", ev.ID),
		zap.Stringer("severity", sev),
		zap.Float32("vehicle_speed", ev.Snapshot.VehicleSpeed),
		zap.Stringer("gear", ev.Snapshot.Gear),
		zap.Stringer("asi_state", ev.Snapshot.AsiState),
		zap.Int64("timestamp", ev.Snapshot.Timestamp),
	)

	if m.hook != nil {
		m.hook(ev.ID, ev.Snapshot)
	}
	return ev.ID, true
}

// Len reports the number of events still queued.
func (m *Manager) Len() int {
	return m.queue.Len()
}
