// Package statemachine implements the global ASI state machine (STM,
// spec.md §4.4) and the cross-check shadow state independently
// maintained by the self-diagnostics task (SD, §4.8). SafeState is
// absorbing: once entered, only a fresh process start leaves it.
package statemachine

import (
	"sync"

	"github.com/nmxmxh/asi-supervisor/internal/model"
)

// transitions enumerates every legal edge. Anything not listed here is
// rejected by Transition (§4.4 "invalid transitions are rejected, not
// silently clamped").
var transitions = map[model.AsiState]map[model.AsiState]bool{
	model.StateInitial: {
		model.StateStartupTest: true,
		model.StateSafeState:   true,
	},
	model.StateStartupTest: {
		model.StateNormalOp:  true,
		model.StateSafeState: true,
	},
	model.StateNormalOp: {
		model.StateSafeState: true,
	},
	model.StateSafeState: {}, // absorbing
}

// STM holds the single global ASI state and applies the transition
// table under a mutex, since the STM task requests transitions while
// other tasks (ARA, SD, ICM-TX) read the state concurrently (§4.4).
type STM struct {
	mu    sync.Mutex
	state model.AsiState
}

// New constructs an STM starting in StateInitial (§4.4).
func New() *STM {
	return &STM{state: model.StateInitial}
}

// Current returns the current state.
func (s *STM) Current() model.AsiState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Transition attempts to move to next, reporting whether the edge was
// legal. An illegal request leaves state unchanged and returns false;
// Transition itself raises no fault event.
func (s *STM) Transition(next model.AsiState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == model.StateSafeState {
		return next == model.StateSafeState
	}
	if !transitions[s.state][next] {
		return false
	}
	s.state = next
	return true
}

// Restore forces state directly without validating it against the
// transition table, used only when reloading a persisted snapshot after
// a soft restart (§6) — the table governs live transitions, not
// recovery of a state that was already legally reached before the crash.
func (s *STM) Restore(state model.AsiState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// EnterSafeState forces the absorbing state unconditionally — the one
// edge that is always legal regardless of current state (§4.4 "any
// state may transition directly to SafeState").
func (s *STM) EnterSafeState() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = model.StateSafeState
}
