// Package session provides the cancellation token for one tracking run.
package session

import (
	"time"

	"github.com/google/uuid"

	"blink-reminder/src/timer"
)

// Strategy selects how reminders are driven during a session.
type Strategy int

const (
	StrategyTimer Strategy = iota
	StrategyCamera
	StrategyMGD
)

func (s Strategy) String() string {
	switch s {
	case StrategyTimer:
		return "timer"
	case StrategyCamera:
		return "camera"
	case StrategyMGD:
		return "camera-mgd"
	default:
		return "unknown"
	}
}

// UsesCamera reports whether the strategy needs the detector.
func (s Strategy) UsesCamera() bool { return s == StrategyCamera || s == StrategyMGD }

// Session owns every timer handle created for one tracking run. Once
// cancelled, its callbacks become no-ops even if they were already queued.
type Session struct {
	ID       string
	Strategy Strategy
	Interval time.Duration
	Started  time.Time

	sched     timer.Scheduler
	handles   map[timer.Handle]struct{}
	cancelled bool
}

// New creates a live session.
func New(sched timer.Scheduler, strategy Strategy, interval time.Duration) *Session {
	return &Session{
		ID:       uuid.NewString(),
		Strategy: strategy,
		Interval: interval,
		Started:  sched.Now(),
		sched:    sched,
		handles:  make(map[timer.Handle]struct{}),
	}
}

// Alive reports whether the session has not been cancelled.
func (s *Session) Alive() bool { return s != nil && !s.cancelled }

// After runs fn once after d, unless the session is cancelled first.
func (s *Session) After(d time.Duration, fn func()) timer.Handle {
	if !s.Alive() {
		return nil
	}
	var h timer.Handle
	h = s.sched.AfterFunc(d, func() {
		delete(s.handles, h)
		if !s.Alive() {
			return
		}
		fn()
	})
	s.handles[h] = struct{}{}
	return h
}

// Every runs fn every d. A tick that arrives after cancellation stops its own
// interval and does nothing.
func (s *Session) Every(d time.Duration, fn func()) timer.Handle {
	if !s.Alive() {
		return nil
	}
	var h timer.Handle
	h = s.sched.Every(d, func() {
		if !s.Alive() {
			h.Stop()
			return
		}
		fn()
	})
	s.handles[h] = struct{}{}
	return h
}

// Release stops h and forgets it.
func (s *Session) Release(h timer.Handle) {
	if h == nil {
		return
	}
	h.Stop()
	delete(s.handles, h)
}

// Handles returns the number of timers the session still tracks.
func (s *Session) Handles() int { return len(s.handles) }

// Cancel marks the session dead and stops every handle it owns. It returns
// the number of handles that were still active.
func (s *Session) Cancel() int {
	if s == nil || s.cancelled {
		return 0
	}
	s.cancelled = true
	n := 0
	for h := range s.handles {
		if h.Stop() {
			n++
		}
	}
	clear(s.handles)
	return n
}
