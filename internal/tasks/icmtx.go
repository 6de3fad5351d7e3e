package tasks

import (
	"context"
	"time"

	"github.com/nmxmxh/asi-supervisor/internal/config"
	"github.com/nmxmxh/asi-supervisor/internal/fault"
	"github.com/nmxmxh/asi-supervisor/internal/model"
	"github.com/nmxmxh/asi-supervisor/internal/netlink"
	"github.com/nmxmxh/asi-supervisor/internal/shared"
	"github.com/nmxmxh/asi-supervisor/internal/tracker"
	"github.com/nmxmxh/asi-supervisor/internal/wire"
)

// actionRoleByID inverts the action-kind slice of model.MessageDictionary
// so ICM-TX can rate-limit and rolling/sequence-stamp an approved action
// by its own outbound role rather than the generic RoleActionRequest
// ARA's integrity queue carried it under (§4.7).
var actionRoleByID = func() map[uint16]model.MessageRole {
	m := make(map[uint16]model.MessageRole, len(model.MessageDictionary))
	for _, e := range model.MessageDictionary {
		if e.Kind == model.KindAction && e.MessageID != model.UnassignedMessageID {
			m[e.MessageID] = e.Role
		}
	}
	return m
}()

// ICMTX drains the approved, safe-state, and notification queues,
// assembles outbound TLV frames, and rate-limits/transmits them (§4.7).
// Approved actions are forwarded to CM, the vehicle-facing control
// module; notifications and the safe-state status travel back to VAM,
// the requester that needs to know the outcome.
type ICMTX struct {
	State *shared.State
	VAM   *netlink.Endpoint
	CM    *netlink.Endpoint

	// txRoll is ICM-TX's private per-role outbound rolling counter (§3
	// RollingCounter[role].tx) — only this task ever writes it.
	txRoll map[model.MessageRole]uint16
}

func (t *ICMTX) Name() string          { return "ICM-TX" }
func (t *ICMTX) Period() time.Duration { return config.PeriodICMTX }
func (t *ICMTX) Priority() int         { return config.PriorityICMTX }

func (t *ICMTX) Run(ctx context.Context, tick uint64) error {
	if t.txRoll == nil {
		t.txRoll = make(map[model.MessageRole]uint16)
	}
	t.drainApproved()
	t.drainSafeState()
	t.drainNotifications()
	return nil
}

func (t *ICMTX) snapshot() fault.SystemSnapshot {
	s := t.State
	sample := s.Vehicle.Sample(s.Cycle.Load())
	return fault.SystemSnapshot{
		VehicleSpeed: sample.Speed,
		Gear:         sample.Park,
		AsiState:     s.STM.Current(),
		Timestamp:    time.Now().UnixNano(),
	}
}

func (t *ICMTX) nextRollingCount(role model.MessageRole) uint16 {
	n := t.txRoll[role]
	t.txRoll[role] = n + 1
	return n
}

func (t *ICMTX) buildFrame(role model.MessageRole, msg model.ProcessMsg) [wire.FrameSize]byte {
	f := wire.Frame{
		Type:         msg.Type,
		Length:       msg.Length,
		RollingCount: t.nextRollingCount(role),
		TimestampMS:  uint32(time.Now().UnixMilli()),
		Sequence:     t.State.Sequences.Next(role),
		MessageID:    msg.MsgID,
		Value:        msg.Payload,
	}
	return wire.Encode(f)
}

func (t *ICMTX) send(ep *netlink.Endpoint, frame [wire.FrameSize]byte) error {
	_, err := ep.Write(frame[:])
	return err
}

func (t *ICMTX) drainApproved() {
	s := t.State
	msg, ok := s.ApprovedQueue.Pop()
	if !ok {
		return
	}

	role, known := actionRoleByID[msg.MsgID]
	if !known {
		role = model.RoleActionRequest
	}

	if !s.RateLimiters.Allow(role) {
		pushNotification(s, msg, model.NotifyRateLimiterDrop)
		return
	}

	frame := t.buildFrame(role, msg)
	if err := t.send(t.CM, frame); err != nil {
		s.Faults.Raise(fault.EventCommLoss, t.snapshot())
		pushNotification(s, msg, model.NotifyTransmissionFailed)
		return
	}

	if msg.MsgID == torqueCalibActionID {
		key := tracker.Key{MsgID: msg.MsgID, Seq: msg.Seq}
		s.Calibration.TrackCopy(key, msg.Payload, s.Cycle.Load()+config.CalReadbackResponseTimeLimitCy)
	}
}

func (t *ICMTX) drainSafeState() {
	s := t.State
	msg, ok := s.SafeStateQueue.Pop()
	if !ok {
		return
	}
	frame := t.buildFrame(model.RoleSafeStateStatus, msg)
	if err := t.send(t.VAM, frame); err != nil {
		s.Faults.Raise(fault.EventCommLoss, t.snapshot())
	}
}

func (t *ICMTX) drainNotifications() {
	s := t.State
	msg, ok := s.NotificationQueue.Pop()
	if !ok {
		return
	}
	if !s.RateLimiters.Allow(model.RoleNotificationOut) {
		return // dropping a notification about a dropped notification would loop forever
	}
	frame := t.buildFrame(model.RoleNotificationOut, msg)
	if err := t.send(t.VAM, frame); err != nil {
		s.Faults.Raise(fault.EventCommLoss, t.snapshot())
	}
}
