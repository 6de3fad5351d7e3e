//go:build linux

package sched

import "golang.org/x/sys/unix"

// setRealtimePriority makes a best-effort attempt to put the calling
// thread under SCHED_FIFO at the given priority (§4.1 "spawns tasks
// with real-time FIFO scheduling where supported"). Failure is
// expected and non-fatal when the process lacks CAP_SYS_NICE; callers
// ignore the error beyond logging it once.
func setRealtimePriority(priority int) error {
	return unix.SchedSetscheduler(0, unix.SCHED_FIFO, &unix.SchedParam{Priority: int32(priority)})
}
