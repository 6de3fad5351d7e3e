package fault

import "github.com/nmxmxh/asi-supervisor/internal/model"

// SystemSnapshot is captured at event-emission time and attached to the
// event for logging (§3).
type SystemSnapshot struct {
	VehicleSpeed float32
	Gear         model.PRNDL
	AsiState     model.AsiState
	Timestamp    int64 // unix nanos, wall clock
}
