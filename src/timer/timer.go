// Package timer defines the scheduling abstraction used by the reminder core.
//
// Every callback registered through a Scheduler runs on the owner's event loop,
// one at a time, so callbacks never need their own locking.
package timer

import "time"

// Handle cancels a scheduled callback. Stop reports whether the callback was
// still pending (one-shot) or running (periodic) when it was stopped.
type Handle interface {
	Stop() bool
}

// Scheduler schedules callbacks.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Handle
	Every(d time.Duration, fn func()) Handle
}

// StopAll stops every non-nil handle and returns how many were still active.
func StopAll(handles ...Handle) int {
	n := 0
	for _, h := range handles {
		if h != nil && h.Stop() {
			n++
		}
	}
	return n
}
