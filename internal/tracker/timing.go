package tracker

import (
	"sync"

	"github.com/nmxmxh/asi-supervisor/internal/config"
)

// ActionRequestTiming records when an accepted action request must finish
// processing (§3, §4.3).
type ActionRequestTiming struct {
	Key           Key
	DeadlineCycle uint64
}

// TimingTracker is the bounded FIFO of outstanding action-request
// deadlines. Bounded at config.MaxPendingActionRequests; the oldest
// entry is evicted on overflow rather than rejecting the newest (§3
// "oldest evicted on overflow").
type TimingTracker struct {
	mu      sync.Mutex
	order   []Key
	entries map[Key]ActionRequestTiming
}

// NewTimingTracker constructs an empty timing tracker.
func NewTimingTracker() *TimingTracker {
	return &TimingTracker{entries: make(map[Key]ActionRequestTiming)}
}

// Track records a new deadline for key, evicting the oldest outstanding
// entry if the tracker is already at config.MaxPendingActionRequests.
// Returns the evicted key, if any.
func (t *TimingTracker) Track(key Key, deadlineCycle uint64) (evicted Key, didEvict bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.entries[key]; !exists {
		if len(t.order) >= config.MaxPendingActionRequests {
			evicted = t.order[0]
			t.order = t.order[1:]
			delete(t.entries, evicted)
			didEvict = true
		}
		t.order = append(t.order, key)
	}
	t.entries[key] = ActionRequestTiming{Key: key, DeadlineCycle: deadlineCycle}
	return evicted, didEvict
}

// Peek returns the tracked deadline for key without removing it, so a
// caller can decide timeout-vs-approve before committing to Resolve
// (§4.3 "Fetch started_at_monotonic from the timing tracker").
func (t *TimingTracker) Peek(key Key) (ActionRequestTiming, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.entries[key]
	return rec, ok
}

// Resolve removes the entry for key (action completed), reporting
// whether it was present.
func (t *TimingTracker) Resolve(key Key) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[key]; !ok {
		return false
	}
	delete(t.entries, key)
	for i, k := range t.order {
		if k == key {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return true
}

// Expired removes and returns every entry whose deadline is at or
// before currentCycle (§4.3 "process timeout").
func (t *TimingTracker) Expired(currentCycle uint64) []ActionRequestTiming {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []ActionRequestTiming
	remaining := t.order[:0]
	for _, k := range t.order {
		rec := t.entries[k]
		if currentCycle >= rec.DeadlineCycle {
			out = append(out, rec)
			delete(t.entries, k)
			continue
		}
		remaining = append(remaining, k)
	}
	t.order = remaining
	return out
}

// Len reports the number of outstanding action requests.
func (t *TimingTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.order)
}
