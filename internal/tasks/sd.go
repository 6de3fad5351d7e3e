package tasks

import (
	"context"
	"time"

	"github.com/nmxmxh/asi-supervisor/internal/config"
	"github.com/nmxmxh/asi-supervisor/internal/fault"
	"github.com/nmxmxh/asi-supervisor/internal/model"
	"github.com/nmxmxh/asi-supervisor/internal/netlink"
	"github.com/nmxmxh/asi-supervisor/internal/shared"
)

// SD is the self-diagnostics / state-monitor task: it cross-checks
// STM's transitions against its own independently-maintained shadow
// state and health-checks both TCP endpoints (§4.4, §4.8, §6).
type SD struct {
	State *shared.State
	VAM   *netlink.Endpoint
	CM    *netlink.Endpoint
}

func (t *SD) Name() string          { return "SD" }
func (t *SD) Period() time.Duration { return config.PeriodSD }
func (t *SD) Priority() int         { return config.PrioritySD }

func (t *SD) Run(ctx context.Context, tick uint64) error {
	s := t.State
	current := s.STM.Current()
	snap := fault.SystemSnapshot{AsiState: current}

	if !s.Shadow.CrossCheck(current) {
		s.Faults.Raise(fault.EventSMTransitionError, snap)
		if current != model.StateSafeState {
			s.EnterSafeState(safeStateNotification())
			s.Shadow.Observe(model.StateSafeState)
		}
	}

	if s.Faults.CriticalFaultFlag() && current != model.StateSafeState {
		s.Faults.Raise(fault.EventSMTransitionError, snap)
	}

	// Gated on the global CCU cycle count, not SD's own per-period tick:
	// §6 "every 25 cycles" means 25 CCU cycles, and SD runs at a coarser
	// 200ms period than CCU's 25ms (§2).
	if s.Cycle.Load()%config.HealthCheckIntervalCycles == 0 {
		if err := t.VAM.Ping(); err != nil {
			s.Faults.Raise(fault.EventCommLoss, snap)
		}
		if err := t.CM.Ping(); err != nil {
			s.Faults.Raise(fault.EventCommLoss, snap)
		}
	}
	return nil
}
