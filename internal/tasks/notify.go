package tasks

import (
	"time"

	"github.com/nmxmxh/asi-supervisor/internal/fault"
	"github.com/nmxmxh/asi-supervisor/internal/model"
	"github.com/nmxmxh/asi-supervisor/internal/shared"
)

// pushNotification builds one of the user-visible action notifications
// (§7 "three notifications ever leave the system") addressed to
// subject's (msg_id, seq) and enqueues it for ICM-TX to drain. A full
// notification queue is itself reported as EventInfoMsgLoss rather than
// silently dropped (§3 "drop newest + notify").
func pushNotification(s *shared.State, subject model.ProcessMsg, kind model.NotificationKind) {
	note := model.ProcessMsg{
		Type:    uint16(model.TypeNotification),
		Length:  1,
		MsgID:   subject.MsgID,
		Seq:     subject.Seq,
		Payload: [8]byte{byte(kind)},
	}
	if !s.NotificationQueue.Push(note) {
		s.Faults.Raise(fault.EventInfoMsgLoss, fault.SystemSnapshot{
			AsiState:  s.STM.Current(),
			Timestamp: time.Now().UnixNano(),
		})
	}
}
