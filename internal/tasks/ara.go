package tasks

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/nmxmxh/asi-supervisor/internal/config"
	"github.com/nmxmxh/asi-supervisor/internal/fault"
	"github.com/nmxmxh/asi-supervisor/internal/model"
	"github.com/nmxmxh/asi-supervisor/internal/shared"
	"github.com/nmxmxh/asi-supervisor/internal/tracker"
)

// ARA is the Action Request Approver (§4.3): action-list lookup, range
// check, precondition check, and the approved-deadline check that gates
// every entry onto the approved-action queue.
type ARA struct {
	State *shared.State

	// sample and effectivePark are ARA's own private per-tick cache of
	// the vehicle-status sampling step (§4.3 "Vehicle-status sampling.
	// Separately (same tick)..."), consulted by the precondition check
	// on the same tick it was taken.
	sample        shared.Sample
	effectivePark bool
}

func (t *ARA) Name() string          { return "ARA" }
func (t *ARA) Period() time.Duration { return config.PeriodARA }
func (t *ARA) Priority() int         { return config.PriorityARA }

func (t *ARA) Run(ctx context.Context, tick uint64) error {
	s := t.State
	t.sampleVehicleStatus()

	if s.STM.Current() == model.StateNormalOp {
		if msg, ok := s.IntegrityQueue.Pop(); ok {
			t.approve(msg)
		}
	}

	// Runs after approve(), which already resolves the timing entry for
	// any request handled this tick — so this only ever catches requests
	// that were never dequeued at all (§4.3 "process timeout").
	t.sweepTimingExpired()
	return nil
}

func (t *ARA) snapshot() fault.SystemSnapshot {
	return fault.SystemSnapshot{
		VehicleSpeed: t.sample.Speed,
		Gear:         t.sample.Park,
		AsiState:     t.State.STM.Current(),
		Timestamp:    time.Now().UnixNano(),
	}
}

// sampleVehicleStatus reads park+speed with freshness and resolves
// them to the single effectivePark bool the precondition check
// consults (§4.3): an outdated reading, or a Park reading whose speed
// exceeds the margin, is treated as NotPark for this tick.
func (t *ARA) sampleVehicleStatus() {
	s := t.State
	t.sample = s.Vehicle.Sample(s.Cycle.Load())

	switch {
	case t.sample.ParkFresh == model.Outdated || t.sample.SpeedFresh == model.Outdated:
		s.Faults.Raise(fault.EventVehicleStatusError, t.snapshot())
		t.effectivePark = false
	case t.sample.Park == model.Park && absFloat32(t.sample.Speed) > config.VehicleSpeedErrorMargin:
		s.Faults.Raise(fault.EventVehicleStatusMismatch, t.snapshot())
		t.effectivePark = false
	default:
		t.effectivePark = t.sample.Park == model.Park
	}
}

// sweepTimingExpired raises EVENT_ACTION_REQUEST_PROCESS_TIMEOUT for any
// action request whose processing deadline passed without ever
// reaching approve() — e.g. STM left NormalOp while it was still
// queued (§4.3 "process timeout"). The in-line overdue check inside
// approve() only catches a request still pending when it's dequeued;
// this sweep reclaims the rest so the timing tracker never holds a
// request past its deadline indefinitely.
func (t *ARA) sweepTimingExpired() {
	s := t.State
	cycle := s.Cycle.Load()
	for _, rec := range s.Timing.Expired(cycle) {
		s.Faults.Raise(fault.EventActionRequestProcessTimeout, t.snapshot())
		pushNotification(s, model.ProcessMsg{MsgID: rec.Key.MsgID, Seq: rec.Key.Seq}, model.NotifyTimeoutLimit)
	}
}

func (t *ARA) approve(msg model.ProcessMsg) {
	s := t.State
	key := tracker.Key{MsgID: msg.MsgID, Seq: msg.Seq}
	snap := t.snapshot()

	action, ok := model.ActionByID(msg.MsgID)
	if !ok {
		s.Faults.Raise(fault.EventActionListError, snap)
		pushNotification(s, msg, model.NotifyInvalidActionReq)
		s.Timing.Resolve(key)
		return
	}

	if !payloadInRange(action, msg) {
		s.Faults.Raise(fault.EventActionReqRangeCheckError, snap)
		pushNotification(s, msg, model.NotifyInvalidActionReq)
		s.Timing.Resolve(key)
		return
	}

	if action.Precond == model.PrecondPark && !t.effectivePark {
		s.Faults.Raise(fault.EventActionReqPrecondListError, snap)
		pushNotification(s, msg, model.NotifyPreconditionFail)
		s.Timing.Resolve(key)
		return
	}

	timing, found := s.Timing.Peek(key)
	overdue := !found // an already-evicted entry has no guaranteed slot left; treat as overdue
	if found {
		overdue = s.Cycle.Load() > timing.DeadlineCycle
	}
	if overdue {
		s.Faults.Raise(fault.EventActionRequestProcessTimeout, snap)
		pushNotification(s, msg, model.NotifyTimeoutLimit)
		s.Timing.Resolve(key)
		return
	}

	if !s.ApprovedQueue.Push(msg) {
		s.Faults.Raise(fault.EventInfoMsgLoss, snap)
		s.Timing.Resolve(key)
		return
	}
	s.Timing.Resolve(key)
	pushNotification(s, msg, model.NotifyApproved)
}

// payloadInRange decodes msg's payload by its declared length (§4.3: 1,
// 2, 4, or 8 bytes, little-endian for multi-byte scalars) and range
// -checks it against action. For the 8-byte path every byte must lie in
// range (§9 Open Question, resolved as "all bytes must be in range").
func payloadInRange(action model.ActionEntry, msg model.ProcessMsg) bool {
	switch msg.Length {
	case 1:
		return scalarInRange(uint32(msg.Payload[0]), action)
	case 2:
		return scalarInRange(uint32(binary.LittleEndian.Uint16(msg.Payload[:2])), action)
	case 4:
		return scalarInRange(binary.LittleEndian.Uint32(msg.Payload[:4]), action)
	case 8:
		for _, b := range msg.Payload {
			if !scalarInRange(uint32(b), action) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func scalarInRange(v uint32, action model.ActionEntry) bool {
	return v >= action.RangeLo && v <= action.RangeHi
}

func absFloat32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
