package tracker

import (
	"sync"

	"github.com/nmxmxh/asi-supervisor/internal/model"
)

// ConsecutiveViolationLimit is the number of consecutive rolling-count
// mismatches that escalates a role to EventRollCount (§4.2 "three
// consecutive violations").
const ConsecutiveViolationLimit = 3

// RollingCounters tracks, per message role, the last accepted rolling
// count (rx side of §3's `RollingCounter[role]. (rx: u16, tx: u16)`)
// and how many consecutive mismatches have been observed. Roles are
// used only as map keys, never combined arithmetically, avoiding the
// enum-arithmetic indexing bug the design notes warn against (§9).
type RollingCounters struct {
	mu       sync.Mutex
	last     map[model.MessageRole]uint16
	consec   map[model.MessageRole]int
	haveLast map[model.MessageRole]bool
}

// NewRollingCounters constructs an empty rolling-counter registry.
func NewRollingCounters() *RollingCounters {
	return &RollingCounters{
		last:     make(map[model.MessageRole]uint16),
		consec:   make(map[model.MessageRole]int),
		haveLast: make(map[model.MessageRole]bool),
	}
}

// Observe records the rolling count received for role and reports
// whether it continued the expected monotone-modulo sequence, plus
// whether the consecutive-violation limit was just reached (escalate).
func (r *RollingCounters) Observe(role model.MessageRole, count uint16) (ok bool, escalate bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, had := r.last[role]
	r.last[role] = count
	r.haveLast[role] = true

	if !had {
		r.consec[role] = 0
		return true, false
	}

	if count == prev+1 {
		r.consec[role] = 0
		return true, false
	}

	r.consec[role]++
	if r.consec[role] >= ConsecutiveViolationLimit {
		r.consec[role] = 0
		return false, true
	}
	return false, false
}

// Reset clears tracked state for role (ICM-RX calls it once a role hits
// the consecutive-CRC-error limit).
func (r *RollingCounters) Reset(role model.MessageRole) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.last, role)
	delete(r.consec, role)
	delete(r.haveLast, role)
}

// ResetAll clears every tracked role.
func (r *RollingCounters) ResetAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = make(map[model.MessageRole]uint16)
	r.consec = make(map[model.MessageRole]int)
	r.haveLast = make(map[model.MessageRole]bool)
}
