package statemachine

import (
	"sync"

	"github.com/nmxmxh/asi-supervisor/internal/model"
)

// ShadowMonitor is SD's independently-maintained copy of the global
// state, updated only by observing the same transition events STM
// applies, never by reading STM directly — the point is to catch STM
// corruption or a missed transition, which reading STM's own state
// could never detect (§4.8 "independent cross-check").
type ShadowMonitor struct {
	mu    sync.Mutex
	state model.AsiState
}

// NewShadowMonitor constructs a shadow monitor starting in StateInitial,
// matching STM's own starting state.
func NewShadowMonitor() *ShadowMonitor {
	return &ShadowMonitor{state: model.StateInitial}
}

// Observe records that STM's transition to next succeeded, advancing
// the shadow copy in lockstep.
func (m *ShadowMonitor) Observe(next model.AsiState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = next
}

// CrossCheck compares the shadow copy against authoritative, reporting
// a mismatch (§4.8; SD raises EventSMTransitionError on a mismatch: the
// two must always agree outside of the single tick it takes Observe to
// catch up).
func (m *ShadowMonitor) CrossCheck(authoritative model.AsiState) (match bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == authoritative
}

// Restore forces the shadow's view directly, used only when reloading a
// persisted snapshot after a soft restart (§6) — paired with STM.Restore
// so the two start back in agreement instead of CrossCheck tripping on
// the very first tick after recovery.
func (m *ShadowMonitor) Restore(state model.AsiState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
}

// State returns the shadow's current view, for logging.
func (m *ShadowMonitor) State() model.AsiState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}
