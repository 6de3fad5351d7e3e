package tasks

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/nmxmxh/asi-supervisor/internal/fault"
	"github.com/nmxmxh/asi-supervisor/internal/model"
	"github.com/nmxmxh/asi-supervisor/internal/netlink"
	"github.com/nmxmxh/asi-supervisor/internal/ratelimit"
	"github.com/nmxmxh/asi-supervisor/internal/shared"
	"github.com/nmxmxh/asi-supervisor/internal/wire"
)

type icmtxTestHarness struct {
	ep     *netlink.Endpoint
	server net.Conn
	ln     net.Listener
}

func newICMTXHarness(t *testing.T) *icmtxTestHarness {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	connCh := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			connCh <- conn
		}
	}()

	ep := netlink.NewEndpoint(ln.Addr().String())
	if err := ep.Connect(context.Background()); err != nil {
		ln.Close()
		t.Fatalf("Connect: %v", err)
	}

	select {
	case server := <-connCh:
		return &icmtxTestHarness{ep: ep, server: server, ln: ln}
	case <-time.After(2 * time.Second):
		t.Fatal("server side never accepted")
		return nil
	}
}

func (h *icmtxTestHarness) close() {
	h.ep.Close()
	h.server.Close()
	h.ln.Close()
}

func (h *icmtxTestHarness) readFrame(t *testing.T) wire.Frame {
	t.Helper()
	h.server.SetReadDeadline(time.Now().Add(2 * time.Second))
	var raw [wire.FrameSize]byte
	if _, err := io.ReadFull(h.server, raw[:]); err != nil {
		t.Fatalf("server read: %v", err)
	}
	f, err := wire.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return f
}

func TestICMTXSendsApprovedActionToCM(t *testing.T) {
	cm := newICMTXHarness(t)
	defer cm.close()
	vam := newICMTXHarness(t)
	defer vam.close()

	s := shared.New(fault.NewManager(fault.NewEventQueue(8), testLogger(t), nil))
	s.RateLimiters.Configure(model.RoleHVACFan, ratelimit.Rule{AllowedMessages: 10, Window: time.Second})
	msg := model.ProcessMsg{Type: uint16(model.TypeAction), Length: 1, MsgID: 0x0000, Seq: 5, Payload: [8]byte{2}}
	s.ApprovedQueue.Push(msg)

	icmtx := &ICMTX{State: s, VAM: vam.ep, CM: cm.ep}
	if err := icmtx.Run(context.Background(), 1); err != nil {
		t.Fatalf("Run: %v", err)
	}

	f := cm.readFrame(t)
	if f.MessageID != 0x0000 || f.Value[0] != 2 {
		t.Fatalf("frame received by CM = %+v; want the approved action", f)
	}
}

func TestICMTXDropsActionWhenRateLimited(t *testing.T) {
	cm := newICMTXHarness(t)
	defer cm.close()
	vam := newICMTXHarness(t)
	defer vam.close()

	s := shared.New(fault.NewManager(fault.NewEventQueue(8), testLogger(t), nil))
	s.RateLimiters.Configure(model.RoleHVACFan, ratelimit.Rule{AllowedMessages: 1, Window: time.Hour})
	msg := model.ProcessMsg{Type: uint16(model.TypeAction), Length: 1, MsgID: 0x0000, Seq: 1, Payload: [8]byte{1}}
	s.ApprovedQueue.Push(msg)

	icmtx := &ICMTX{State: s, VAM: vam.ep, CM: cm.ep}
	icmtx.Run(context.Background(), 1) // consumes the single token

	msg2 := model.ProcessMsg{Type: uint16(model.TypeAction), Length: 1, MsgID: 0x0000, Seq: 2, Payload: [8]byte{1}}
	s.ApprovedQueue.Push(msg2)
	icmtx.Run(context.Background(), 2)

	note, ok := s.NotificationQueue.Pop()
	if !ok || model.NotificationKind(note.Payload[0]) != model.NotifyRateLimiterDrop {
		t.Fatalf("NotificationQueue = %+v, %v; want NotifyRateLimiterDrop", note, ok)
	}
}

func TestICMTXTracksCalibrationCopyOnSend(t *testing.T) {
	cm := newICMTXHarness(t)
	defer cm.close()
	vam := newICMTXHarness(t)
	defer vam.close()

	s := shared.New(fault.NewManager(fault.NewEventQueue(8), testLogger(t), nil))
	s.RateLimiters.Configure(model.RoleTorqueCalib, ratelimit.Rule{AllowedMessages: 10, Window: time.Second})
	msg := model.ProcessMsg{Type: uint16(model.TypeAction), Length: 1, MsgID: torqueCalibActionID, Seq: 1, Payload: [8]byte{0x42}}
	s.ApprovedQueue.Push(msg)

	icmtx := &ICMTX{State: s, VAM: vam.ep, CM: cm.ep}
	icmtx.Run(context.Background(), 1)
	cm.readFrame(t)

	if s.Calibration.Len() != 1 {
		t.Fatalf("Calibration.Len() = %d; want 1 after a torque-calibration send", s.Calibration.Len())
	}
}

func TestICMTXSendsSafeStateStatusToVAM(t *testing.T) {
	cm := newICMTXHarness(t)
	defer cm.close()
	vam := newICMTXHarness(t)
	defer vam.close()

	s := shared.New(fault.NewManager(fault.NewEventQueue(8), testLogger(t), nil))
	ss := model.ProcessMsg{Type: uint16(model.TypeNotification), Length: 1, Payload: [8]byte{byte(model.StateSafeState)}}
	s.SafeStateQueue.Push(ss)

	icmtx := &ICMTX{State: s, VAM: vam.ep, CM: cm.ep}
	icmtx.Run(context.Background(), 1)

	f := vam.readFrame(t)
	if f.Value[0] != byte(model.StateSafeState) {
		t.Fatalf("frame received by VAM = %+v; want SafeState payload", f)
	}
}
