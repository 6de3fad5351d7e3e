package tasks

import (
	"context"
	"testing"

	"github.com/nmxmxh/asi-supervisor/internal/fault"
	"github.com/nmxmxh/asi-supervisor/internal/model"
	"github.com/nmxmxh/asi-supervisor/internal/shared"
	"github.com/nmxmxh/asi-supervisor/internal/tracker"
)

func newNormalOpState(t *testing.T) *shared.State {
	t.Helper()
	s := shared.New(fault.NewManager(fault.NewEventQueue(8), testLogger(t), nil))
	s.STM.Transition(model.StateStartupTest)
	s.STM.Transition(model.StateNormalOp)
	return s
}

func hvacFanMsg(value uint8) model.ProcessMsg {
	return model.ProcessMsg{
		Type:    uint16(model.TypeAction),
		Length:  1,
		MsgID:   0x0000, // hvac_fan, range 0..4, no precondition
		Seq:     1,
		Payload: [8]byte{value},
	}
}

func TestARAApprovesInRangeActionWithinDeadline(t *testing.T) {
	s := newNormalOpState(t)
	msg := hvacFanMsg(2)
	key := tracker.Key{MsgID: msg.MsgID, Seq: msg.Seq}
	s.Timing.Track(key, s.Cycle.Load()+10)
	s.IntegrityQueue.Push(msg)

	ara := &ARA{State: s}
	if err := ara.Run(context.Background(), 1); err != nil {
		t.Fatalf("Run: %v", err)
	}

	approved, ok := s.ApprovedQueue.Pop()
	if !ok || approved.MsgID != msg.MsgID {
		t.Fatalf("ApprovedQueue after approval = %+v, %v; want msg, true", approved, ok)
	}
	note, ok := s.NotificationQueue.Pop()
	if !ok || model.NotificationKind(note.Payload[0]) != model.NotifyApproved {
		t.Fatalf("NotificationQueue = %+v, %v; want NotifyApproved", note, ok)
	}
}

func TestARARejectsOutOfRangePayload(t *testing.T) {
	s := newNormalOpState(t)
	msg := hvacFanMsg(9) // out of [0,4]
	key := tracker.Key{MsgID: msg.MsgID, Seq: msg.Seq}
	s.Timing.Track(key, s.Cycle.Load()+10)
	s.IntegrityQueue.Push(msg)

	ara := &ARA{State: s}
	ara.Run(context.Background(), 1)

	if _, ok := s.ApprovedQueue.Pop(); ok {
		t.Fatalf("ApprovedQueue: expected empty after out-of-range rejection")
	}
	note, ok := s.NotificationQueue.Pop()
	if !ok || model.NotificationKind(note.Payload[0]) != model.NotifyInvalidActionReq {
		t.Fatalf("NotificationQueue = %+v, %v; want NotifyInvalidActionReq", note, ok)
	}
}

func TestARARejectsUnknownActionID(t *testing.T) {
	s := newNormalOpState(t)
	msg := model.ProcessMsg{Type: uint16(model.TypeAction), Length: 1, MsgID: 0xBEEF, Seq: 1, Payload: [8]byte{1}}
	key := tracker.Key{MsgID: msg.MsgID, Seq: msg.Seq}
	s.Timing.Track(key, s.Cycle.Load()+10)
	s.IntegrityQueue.Push(msg)

	ara := &ARA{State: s}
	ara.Run(context.Background(), 1)

	note, ok := s.NotificationQueue.Pop()
	if !ok || model.NotificationKind(note.Payload[0]) != model.NotifyInvalidActionReq {
		t.Fatalf("NotificationQueue = %+v, %v; want NotifyInvalidActionReq", note, ok)
	}
}

func TestARARejectsParkPreconditionWhenNotParked(t *testing.T) {
	s := newNormalOpState(t)
	s.Vehicle.UpdatePark(s.Cycle.Load(), model.Drive)
	s.Vehicle.UpdateSpeed(s.Cycle.Load(), 0)

	msg := model.ProcessMsg{Type: uint16(model.TypeAction), Length: 1, MsgID: 0x0007, Seq: 1, Payload: [8]byte{1}} // door_lock, PrecondPark
	key := tracker.Key{MsgID: msg.MsgID, Seq: msg.Seq}
	s.Timing.Track(key, s.Cycle.Load()+10)
	s.IntegrityQueue.Push(msg)

	ara := &ARA{State: s}
	ara.Run(context.Background(), 1)

	note, ok := s.NotificationQueue.Pop()
	if !ok || model.NotificationKind(note.Payload[0]) != model.NotifyPreconditionFail {
		t.Fatalf("NotificationQueue = %+v, %v; want NotifyPreconditionFail", note, ok)
	}
}

func TestARATimesOutPastDeadline(t *testing.T) {
	s := newNormalOpState(t)
	msg := hvacFanMsg(1)
	key := tracker.Key{MsgID: msg.MsgID, Seq: msg.Seq}
	s.Timing.Track(key, s.Cycle.Load()) // deadline already passed once cycle advances
	s.Cycle.Add(5)
	s.IntegrityQueue.Push(msg)

	ara := &ARA{State: s}
	ara.Run(context.Background(), 1)

	note, ok := s.NotificationQueue.Pop()
	if !ok || model.NotificationKind(note.Payload[0]) != model.NotifyTimeoutLimit {
		t.Fatalf("NotificationQueue = %+v, %v; want NotifyTimeoutLimit", note, ok)
	}
}

func TestARADoesNotApproveOutsideNormalOp(t *testing.T) {
	s := shared.New(fault.NewManager(fault.NewEventQueue(8), testLogger(t), nil))
	msg := hvacFanMsg(1)
	s.IntegrityQueue.Push(msg)

	ara := &ARA{State: s}
	ara.Run(context.Background(), 1)

	if s.IntegrityQueue.Len() != 1 {
		t.Fatalf("IntegrityQueue.Len() = %d; want 1 (untouched outside NormalOp)", s.IntegrityQueue.Len())
	}
}

func TestARASweepsTimingEntryStrandedOutsideNormalOp(t *testing.T) {
	s := shared.New(fault.NewManager(fault.NewEventQueue(8), testLogger(t), nil))
	msg := hvacFanMsg(1)
	key := tracker.Key{MsgID: msg.MsgID, Seq: msg.Seq}
	s.Timing.Track(key, s.Cycle.Load())
	s.Cycle.Add(5)
	s.IntegrityQueue.Push(msg) // never dequeued: STM isn't NormalOp

	ara := &ARA{State: s}
	ara.Run(context.Background(), 1)

	if s.Timing.Len() != 0 {
		t.Fatalf("Timing.Len() = %d, want 0 (expired entry swept)", s.Timing.Len())
	}
	note, ok := s.NotificationQueue.Pop()
	if !ok || model.NotificationKind(note.Payload[0]) != model.NotifyTimeoutLimit {
		t.Fatalf("NotificationQueue = %+v, %v; want NotifyTimeoutLimit", note, ok)
	}
}
