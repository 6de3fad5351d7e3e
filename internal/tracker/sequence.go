package tracker

import (
	"sync"

	"github.com/nmxmxh/asi-supervisor/internal/model"
)

// SequenceNumbers tracks, per role, the sender-assigned sequence number
// last observed and the supervisor's own outgoing sequence number,
// detecting gaps (loss) without requiring the counter to ever wrap back
// to a sentinel value (§3 "monotone modulo", §9 replacing the integer
// sentinel pattern with an explicit ok/gap result).
type SequenceNumbers struct {
	mu       sync.Mutex
	lastSeen map[model.MessageRole]uint16
	seen     map[model.MessageRole]bool
	asiNext  map[model.MessageRole]uint16
}

// NewSequenceNumbers constructs an empty sequence-number registry.
func NewSequenceNumbers() *SequenceNumbers {
	return &SequenceNumbers{
		lastSeen: make(map[model.MessageRole]uint16),
		seen:     make(map[model.MessageRole]bool),
		asiNext:  make(map[model.MessageRole]uint16),
	}
}

// ObserveResult reports the outcome of Observe: whether seq continued
// the expected sequence, and how many messages (if any) were lost.
type ObserveResult struct {
	InOrder bool
	Lost    uint16
}

// Observe records an inbound sequence number for role and reports
// whether any messages were lost since the last observation. The first
// observation for a role is always in-order (no prior baseline).
func (s *SequenceNumbers) Observe(role model.MessageRole, seq uint16) ObserveResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, had := s.lastSeen[role]
	s.lastSeen[role] = seq
	s.seen[role] = true

	if !had {
		return ObserveResult{InOrder: true}
	}
	expected := prev + 1
	if seq == expected {
		return ObserveResult{InOrder: true}
	}
	gap := seq - expected // wraps correctly for uint16 modulo arithmetic
	return ObserveResult{InOrder: false, Lost: gap}
}

// Next returns the next outgoing sequence number for role and advances
// the counter (monotone modulo uint16, §3).
func (s *SequenceNumbers) Next(role model.MessageRole) uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.asiNext[role]
	s.asiNext[role] = n + 1
	return n
}

// Reset clears tracked state for role.
func (s *SequenceNumbers) Reset(role model.MessageRole) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lastSeen, role)
	delete(s.seen, role)
	delete(s.asiNext, role)
}

// ResetAll clears every tracked role.
func (s *SequenceNumbers) ResetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = make(map[model.MessageRole]uint16)
	s.seen = make(map[model.MessageRole]bool)
	s.asiNext = make(map[model.MessageRole]uint16)
}
