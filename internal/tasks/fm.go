package tasks

import (
	"context"
	"time"

	"github.com/nmxmxh/asi-supervisor/internal/config"
	"github.com/nmxmxh/asi-supervisor/internal/fault"
	"github.com/nmxmxh/asi-supervisor/internal/model"
	"github.com/nmxmxh/asi-supervisor/internal/shared"
)

// FM drains one event from the shared fault manager's queue per tick,
// logs it with its attached snapshot, and pattern-matches the handful
// of event-ids that carry a user-visible notification of their own
// (§4.5, §9 "function-pointer notification hooks -> tagged variants":
// the switch below is the tagged-variant dispatch, replacing FM's
// original void(*)(void) hook).
type FM struct {
	State *shared.State
}

func (t *FM) Name() string          { return "FM" }
func (t *FM) Period() time.Duration { return config.PeriodFM }
func (t *FM) Priority() int         { return config.PriorityFM }

func (t *FM) Run(ctx context.Context, tick uint64) error {
	t.sweepIntegrityExpired()

	id, ok := t.State.Faults.Tick()
	if !ok {
		return nil
	}
	if id == fault.EventStartupTestResult {
		pushNotification(t.State, model.ProcessMsg{}, model.NotifyStartupTest)
	}
	return nil
}

// sweepIntegrityExpired removes every integrity-tracker entry past its
// response window and raises EVENT_MSG_TIMEOUT for each (§4.2 error
// policy: "Integrity tracker entries past their response window...
// emit EVENT_MSG_TIMEOUT... and are removed"). FM runs at the CCU
// period, so a window never goes more than one cycle unswept.
func (t *FM) sweepIntegrityExpired() {
	s := t.State
	cycle := s.Cycle.Load()
	for range s.Integrity.Expired(cycle) {
		s.Faults.Raise(fault.EventMsgTimeout, fault.SystemSnapshot{
			AsiState:  s.STM.Current(),
			Timestamp: time.Now().UnixNano(),
		})
	}
}
