package tracker

import "sync"

// CalibrationCopy is the torque-calibration payload ICM-TX sent out,
// retained until the matching readback arrives or the window expires
// (§4.6).
type CalibrationCopy struct {
	Key           Key
	Payload       [8]byte
	DeadlineCycle uint64
}

// MatchResult reports the outcome of comparing one copy against its
// readback, for CRV's per-tick drive (§4.6).
type MatchResult struct {
	Copy     CalibrationCopy
	Readback [8]byte
	Matched  bool
}

// CalibrationTracker holds two independent rings keyed by
// (msg_id, seq): copies written by ICM-TX when a calibration action is
// approved and sent, and readbacks written by ICM-RX as CM readback
// frames arrive (§4.2 item 5, §4.6). Both replace the original's
// circular-buffer-plus-scan with a direct map (§9); CRV alone performs
// the match/remove, walking copies in reverse insertion order.
type CalibrationTracker struct {
	mu           sync.Mutex
	copyOrder    []Key
	copies       map[Key]CalibrationCopy
	readbacks    map[Key][8]byte
}

// NewCalibrationTracker constructs an empty calibration tracker.
func NewCalibrationTracker() *CalibrationTracker {
	return &CalibrationTracker{
		copies:    make(map[Key]CalibrationCopy),
		readbacks: make(map[Key][8]byte),
	}
}

// TrackCopy records a calibration copy sent under key, with a readback
// deadline expressed in absolute CCU cycles (written by ICM-TX when the
// action is approved and transmitted).
func (c *CalibrationTracker) TrackCopy(key Key, payload [8]byte, deadlineCycle uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.copies[key]; !exists {
		c.copyOrder = append(c.copyOrder, key)
	}
	c.copies[key] = CalibrationCopy{Key: key, Payload: payload, DeadlineCycle: deadlineCycle}
}

// UpsertReadback records a readback payload for key (written by ICM-RX
// on CM readback frames, §4.2 item 5 "upsert into readback ring").
func (c *CalibrationTracker) UpsertReadback(key Key, payload [8]byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readbacks[key] = payload
}

// Drive performs CRV's per-tick walk (§4.6): copies are visited in
// reverse insertion order; a copy with a matching readback is resolved
// (removed from both rings) and reported as a MatchResult; a copy past
// its readback deadline with no readback yet is removed and reported
// via timedOut. Copies with neither a readback nor an expired deadline
// remain tracked for the next tick.
func (c *CalibrationTracker) Drive(currentCycle uint64) (results []MatchResult, timedOut []CalibrationCopy) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var remaining []Key
	for i := len(c.copyOrder) - 1; i >= 0; i-- {
		key := c.copyOrder[i]
		copyRec, ok := c.copies[key]
		if !ok {
			continue
		}
		if readback, found := c.readbacks[key]; found {
			results = append(results, MatchResult{Copy: copyRec, Readback: readback, Matched: copyRec.Payload == readback})
			delete(c.copies, key)
			delete(c.readbacks, key)
			continue
		}
		if currentCycle >= copyRec.DeadlineCycle {
			timedOut = append(timedOut, copyRec)
			delete(c.copies, key)
			continue
		}
		remaining = append([]Key{key}, remaining...)
	}
	c.copyOrder = remaining
	return results, timedOut
}

// Len reports the number of outstanding calibration copies.
func (c *CalibrationTracker) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.copyOrder)
}
