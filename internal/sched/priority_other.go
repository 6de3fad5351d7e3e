//go:build !linux

package sched

import "errors"

// setRealtimePriority is a no-op stub on platforms without SCHED_FIFO
// support; the scheduler runs at the default Go scheduler priority.
func setRealtimePriority(priority int) error {
	return errors.New("realtime scheduling unsupported on this platform")
}
