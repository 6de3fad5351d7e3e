// Package tasks implements the eight periodic task bodies of spec.md
// §2/§4, each satisfying internal/sched.Task.
package tasks

import (
	"context"
	"time"

	"github.com/nmxmxh/asi-supervisor/internal/config"
	"github.com/nmxmxh/asi-supervisor/internal/shared"
)

// CCU advances the global cycle counter that every other task's
// cycle-based timeout (integrity, timing, calibration) is measured
// against (§2 "CCU is the cadence source for all timeouts expressed in
// cycles").
type CCU struct {
	State *shared.State
}

func (t *CCU) Name() string          { return "CCU" }
func (t *CCU) Period() time.Duration { return config.PeriodCCU }
func (t *CCU) Priority() int         { return config.PriorityCCU }

func (t *CCU) Run(ctx context.Context, tick uint64) error {
	t.State.Cycle.Add(1)
	return nil
}
