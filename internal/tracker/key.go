// Package tracker implements the integrity, timing, rolling-counter,
// sequence-number, and calibration trackers of §3/§4.2/§4.3/§4.6. Every
// tracker keyed by (msg_id, seq) uses a direct map for O(1) lookup
// rather than a linear find-by-predicate scan — the design note in
// spec.md §9 calls out exactly this as the intended replacement for the
// original's "circular buffer + find-by-predicate."
package tracker

// Key identifies an outstanding message by (msg_id, seq) (§3).
type Key struct {
	MsgID uint16
	Seq   uint16
}
