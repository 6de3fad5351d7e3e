package shared

import (
	"encoding/binary"
	"math"

	"github.com/nmxmxh/asi-supervisor/internal/asierr"
	"github.com/nmxmxh/asi-supervisor/internal/model"
)

// stateSnapshotSize is the fixed byte layout persisted across a soft
// restart (§6 "byte-identical restore"): the long-lived cross-cycle
// state a freshly spawned worker needs to resume from — the CCU cycle
// counter, the global ASI state, and the last vehicle-status sample.
//
// Queues and in-flight trackers are deliberately NOT persisted: they
// hold transient pipeline state the wire protocol's own timeout/retry
// discipline already recovers from a crash (§4.2's response-window
// timeouts exist for exactly this), and round-tripping five independent
// map-backed structures through a byte layout would buy no correctness
// the restart contract in §6 actually asks for — that contract is
// scoped to "shared state" restore, not in-flight message replay.
const stateSnapshotSize = 32

const (
	offCycle      = 0
	offAsiState   = 8
	offPark       = 9
	offParkFresh  = 10
	offParkAt     = 11
	offSpeed      = 19
	offSpeedFresh = 23
	offSpeedAt    = 24
)

// MarshalState serializes the subset of State that must survive a soft
// restart byte-identically (§6).
func (s *State) MarshalState() []byte {
	buf := make([]byte, stateSnapshotSize)
	binary.LittleEndian.PutUint64(buf[offCycle:], s.Cycle.Load())
	buf[offAsiState] = byte(s.STM.Current())

	park, parkAt, parkFresh, speed, speedAt, speedFresh := s.Vehicle.raw()
	buf[offPark] = byte(park)
	buf[offParkFresh] = byte(parkFresh)
	binary.LittleEndian.PutUint64(buf[offParkAt:], parkAt)
	binary.LittleEndian.PutUint32(buf[offSpeed:], math.Float32bits(speed))
	buf[offSpeedFresh] = byte(speedFresh)
	binary.LittleEndian.PutUint64(buf[offSpeedAt:], speedAt)
	return buf
}

// RestoreState reloads a payload produced by MarshalState, forcing STM
// and its shadow back into agreement (§9 "shared-file snapshot via raw
// struct image -> versioned, length-prefixed, checksum-verified
// serialization" — this is the payload half of that envelope; the
// envelope itself, magic+version+CRC, lives in internal/persist).
func (s *State) RestoreState(payload []byte) error {
	if len(payload) != stateSnapshotSize {
		return asierr.ErrTruncated
	}

	cycle := binary.LittleEndian.Uint64(payload[offCycle:])
	s.Cycle.Store(cycle)

	asiState := model.AsiState(payload[offAsiState])
	s.STM.Restore(asiState)
	s.Shadow.Restore(asiState)

	park := model.PRNDL(payload[offPark])
	parkFresh := model.Freshness(payload[offParkFresh])
	parkAt := binary.LittleEndian.Uint64(payload[offParkAt:])
	speed := math.Float32frombits(binary.LittleEndian.Uint32(payload[offSpeed:]))
	speedFresh := model.Freshness(payload[offSpeedFresh])
	speedAt := binary.LittleEndian.Uint64(payload[offSpeedAt:])
	s.Vehicle.restore(park, parkAt, parkFresh, speed, speedAt, speedFresh)
	return nil
}
