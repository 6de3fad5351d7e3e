package tasks

import (
	"context"
	"time"

	"github.com/nmxmxh/asi-supervisor/internal/config"
	"github.com/nmxmxh/asi-supervisor/internal/fault"
	"github.com/nmxmxh/asi-supervisor/internal/model"
	"github.com/nmxmxh/asi-supervisor/internal/shared"
)

// STM drives the global state machine (§4.4): Initial -> StartupTest on
// first tick once init is complete, StartupTest -> NormalOp once both
// vehicle-status fields are Fresh and startup self-tests have
// completed, and any state -> SafeState the instant CriticalFaultFlag
// is set or shutdown has been requested.
type STM struct {
	State *shared.State
}

func (t *STM) Name() string          { return "STM" }
func (t *STM) Period() time.Duration { return config.PeriodSTM }
func (t *STM) Priority() int         { return config.PrioritySTM }

func (t *STM) Run(ctx context.Context, tick uint64) error {
	s := t.State

	if s.Faults.CriticalFaultFlag() || s.Flags.ShutdownRequested() {
		if s.STM.Current() != model.StateSafeState {
			s.EnterSafeState(safeStateNotification())
			s.Shadow.Observe(model.StateSafeState)
		}
		return nil
	}

	switch s.STM.Current() {
	case model.StateInitial:
		if s.Flags.InitComplete() {
			if s.STM.Transition(model.StateStartupTest) {
				s.Shadow.Observe(model.StateStartupTest)
				t.announce(model.StateStartupTest)
			}
		}
	case model.StateStartupTest:
		sample := s.Vehicle.Sample(s.Cycle.Load())
		if sample.ParkFresh == model.Fresh && sample.SpeedFresh == model.Fresh && s.Flags.StartupTestsComplete() {
			if s.STM.Transition(model.StateNormalOp) {
				s.Shadow.Observe(model.StateNormalOp)
				s.Faults.Raise(fault.EventStartupTestResult, fault.SystemSnapshot{AsiState: model.StateNormalOp})
				t.announce(model.StateNormalOp)
			}
		}
	}
	return nil
}

// announce enqueues the ASI status notification §7 requires "carrying
// the current state" on every legal transition. Safe-State's own
// dedicated status notification (EnterSafeState -> SafeStateQueue) is
// separate and unaffected by this.
func (t *STM) announce(state model.AsiState) {
	entry, _ := model.MessageByRole(model.RoleNotificationOut)
	note := model.ProcessMsg{
		Type:    uint16(model.TypeNotification),
		Length:  1,
		MsgID:   entry.MessageID,
		Payload: [8]byte{byte(state)},
	}
	pushNotification(t.State, note, model.NotifyASIStatus)
}

// safeStateNotification builds the single SS status notification
// required on Safe-State entry (§4.4, §7 "payload byte equals the
// Safe-State value").
func safeStateNotification() model.ProcessMsg {
	entry, _ := model.MessageByRole(model.RoleSafeStateStatus)
	return model.ProcessMsg{
		Type:   uint16(model.TypeNotification),
		Length: 1,
		MsgID:  entry.MessageID,
		Payload: [8]byte{byte(model.StateSafeState)},
	}
}
