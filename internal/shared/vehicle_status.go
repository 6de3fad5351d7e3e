package shared

import (
	"sync"

	"github.com/nmxmxh/asi-supervisor/internal/config"
	"github.com/nmxmxh/asi-supervisor/internal/model"
)

// VehicleStatus is the shared park/speed sample reported by CM, with
// independent freshness decay per field (§3). Updated only by ICM-RX;
// read by ARA and STM.
type VehicleStatus struct {
	mu sync.Mutex

	park       model.PRNDL
	parkAt     uint64
	parkFresh  model.Freshness
	speed      float32
	speedAt    uint64
	speedFresh model.Freshness
}

// UpdatePark records a fresh park reading observed at cycle.
func (v *VehicleStatus) UpdatePark(cycle uint64, p model.PRNDL) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.park = p
	v.parkAt = cycle
	v.parkFresh = model.Fresh
}

// UpdateSpeed records a fresh speed reading observed at cycle.
func (v *VehicleStatus) UpdateSpeed(cycle uint64, speed float32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.speed = speed
	v.speedAt = cycle
	v.speedFresh = model.Fresh
}

// raw returns the unprocessed fields with no freshness decay applied,
// for persistence snapshotting (§6) — decay is a function of the
// current cycle at read time, so a snapshot stores the inputs to that
// computation, not a pre-decayed result.
func (v *VehicleStatus) raw() (park model.PRNDL, parkAt uint64, parkFresh model.Freshness, speed float32, speedAt uint64, speedFresh model.Freshness) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.park, v.parkAt, v.parkFresh, v.speed, v.speedAt, v.speedFresh
}

// restore forces the fields directly, bypassing Update*'s
// freshness=Fresh stamping. Used only when reloading a persisted
// snapshot after a soft restart (§6).
func (v *VehicleStatus) restore(park model.PRNDL, parkAt uint64, parkFresh model.Freshness, speed float32, speedAt uint64, speedFresh model.Freshness) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.park, v.parkAt, v.parkFresh = park, parkAt, parkFresh
	v.speed, v.speedAt, v.speedFresh = speed, speedAt, speedFresh
}

// Sample is a point-in-time read of vehicle status, decaying freshness
// against the supplied current cycle (§3).
type Sample struct {
	Park       model.PRNDL
	ParkFresh  model.Freshness
	Speed      float32
	SpeedFresh model.Freshness
}

// Sample returns the current park/speed reading, applying the
// freshness-decay window (§3, config.VehicleStatusFreshnessWindowCycles)
// before returning.
func (v *VehicleStatus) Sample(currentCycle uint64) Sample {
	v.mu.Lock()
	defer v.mu.Unlock()

	parkFresh := v.parkFresh
	if currentCycle-v.parkAt > config.VehicleStatusFreshnessWindowCycles {
		parkFresh = model.Outdated
	}
	speedFresh := v.speedFresh
	if currentCycle-v.speedAt > config.VehicleStatusFreshnessWindowCycles {
		speedFresh = model.Outdated
	}
	return Sample{
		Park:       v.park,
		ParkFresh:  parkFresh,
		Speed:      v.speed,
		SpeedFresh: speedFresh,
	}
}
