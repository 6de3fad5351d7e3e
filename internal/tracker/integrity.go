package tracker

import "sync"

// IntegrityRecord tracks one outstanding message awaiting ack or
// calibration readback (§3). ResponseDeadlineCycle is the absolute CCU
// cycle count at/after which the record is overdue.
type IntegrityRecord struct {
	Key                   Key
	ResponseDeadlineCycle uint64
	Role                  uint8
	ClearCondition        uint8
	Type                  uint16
}

// IntegrityTracker is a map of outstanding IntegrityRecords keyed by
// (msg_id, seq) for O(1) lookup (§9 design note).
type IntegrityTracker struct {
	mu      sync.Mutex
	records map[Key]IntegrityRecord
}

// NewIntegrityTracker constructs an empty tracker.
func NewIntegrityTracker() *IntegrityTracker {
	return &IntegrityTracker{records: make(map[Key]IntegrityRecord)}
}

// Track creates a pending entry for key, overdue at deadlineCycle.
func (t *IntegrityTracker) Track(key Key, deadlineCycle uint64, role uint8, clearCondition uint8, msgType uint16) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records[key] = IntegrityRecord{
		Key:                   key,
		ResponseDeadlineCycle: deadlineCycle,
		Role:                  role,
		ClearCondition:        clearCondition,
		Type:                  msgType,
	}
}

// Resolve removes and returns the record for key on success (ack/readback
// received), reporting whether one existed.
func (t *IntegrityTracker) Resolve(key Key) (IntegrityRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records[key]
	if ok {
		delete(t.records, key)
	}
	return rec, ok
}

// Expired removes and returns every record whose deadline is at or
// before currentCycle (§4.2 "past their response window").
func (t *IntegrityTracker) Expired(currentCycle uint64) []IntegrityRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []IntegrityRecord
	for k, rec := range t.records {
		if currentCycle >= rec.ResponseDeadlineCycle {
			out = append(out, rec)
			delete(t.records, k)
		}
	}
	return out
}

// Clear removes every tracked record (Safe-State entry, §4.4).
func (t *IntegrityTracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = make(map[Key]IntegrityRecord)
}

// Len reports the number of outstanding records.
func (t *IntegrityTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}
