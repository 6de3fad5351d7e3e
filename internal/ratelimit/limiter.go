// Package ratelimit implements ICM-TX's per-role token-bucket rate
// limiter (spec.md §4.7) on top of golang.org/x/time/rate.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/nmxmxh/asi-supervisor/internal/model"
)

// Rule configures one role's bucket: allowed_messages per time_window.
type Rule struct {
	AllowedMessages int
	Window          time.Duration
}

// Registry holds one token bucket per role, each sized from its Rule
// (§4.7 "(allowed_messages, time_window_ms, message_count,
// window_start_monotonic)"). golang.org/x/time/rate's Limiter already
// owns the token-bucket bookkeeping the original hand-rolled fields
// describe; the registry just keys one per role.
type Registry struct {
	mu       sync.Mutex
	limiters map[model.MessageRole]*rate.Limiter
	rules    map[model.MessageRole]Rule
}

// NewRegistry builds an empty registry. Call Configure per role before
// Allow is first called for it; an unconfigured role is always allowed.
func NewRegistry() *Registry {
	return &Registry{
		limiters: make(map[model.MessageRole]*rate.Limiter),
		rules:    make(map[model.MessageRole]Rule),
	}
}

// Configure sets or replaces the rule for role.
func (r *Registry) Configure(role model.MessageRole, rule Rule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[role] = rule
	every := rule.Window / time.Duration(rule.AllowedMessages)
	r.limiters[role] = rate.NewLimiter(rate.Every(every), rule.AllowedMessages)
}

// Allow reports whether a message for role may be emitted now,
// consuming one token if so (§4.7 "overflow causes the message to be
// dropped with a RateLimiterDrop notification").
func (r *Registry) Allow(role model.MessageRole) bool {
	r.mu.Lock()
	lim, ok := r.limiters[role]
	r.mu.Unlock()
	if !ok {
		return true
	}
	return lim.Allow()
}
