package tasks

import (
	"context"
	"time"

	"github.com/nmxmxh/asi-supervisor/internal/config"
	"github.com/nmxmxh/asi-supervisor/internal/fault"
	"github.com/nmxmxh/asi-supervisor/internal/model"
	"github.com/nmxmxh/asi-supervisor/internal/shared"
)

// CRV is the Calibration Readback Verifier (§4.6): walks outstanding
// calibration copies in reverse insertion order, matching each against
// CM's readback echo or timing it out.
type CRV struct {
	State *shared.State
}

func (t *CRV) Name() string          { return "CRV" }
func (t *CRV) Period() time.Duration { return config.PeriodCRV }
func (t *CRV) Priority() int         { return config.PriorityCRV }

func (t *CRV) snapshot() fault.SystemSnapshot {
	s := t.State
	sample := s.Vehicle.Sample(s.Cycle.Load())
	return fault.SystemSnapshot{
		VehicleSpeed: sample.Speed,
		Gear:         sample.Park,
		AsiState:     s.STM.Current(),
		Timestamp:    time.Now().UnixNano(),
	}
}

func (t *CRV) Run(ctx context.Context, tick uint64) error {
	s := t.State
	results, timedOut := s.Calibration.Drive(s.Cycle.Load())

	for _, r := range results {
		subject := model.ProcessMsg{
			Type:    uint16(model.TypeCalReadback),
			Length:  8,
			MsgID:   r.Copy.Key.MsgID,
			Seq:     r.Copy.Key.Seq,
			Payload: r.Copy.Payload,
		}
		if r.Matched {
			pushNotification(s, subject, model.NotifyApproved)
		} else {
			s.Faults.Raise(fault.EventCalReadbackError, t.snapshot())
			pushNotification(s, subject, model.NotifyMismatch)
		}
	}

	for range timedOut {
		s.Faults.Raise(fault.EventCalReadbackTimeout, t.snapshot())
	}
	return nil
}
