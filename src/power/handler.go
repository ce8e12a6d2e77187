// Package power pauses reminders across system sleep and rebuilds them on
// wake.
package power

import (
	"log/slog"
	"time"

	"blink-reminder/src/reminder"
	"blink-reminder/src/timer"
)

// GuardWindow is how long after a resume duplicate resume notifications are
// ignored and a user action overrides the automatic resume.
const GuardWindow = 3 * time.Second

// Tracker is the part of reminder.Tracker the handler needs.
type Tracker interface {
	Tracking() bool
	Snapshot() reminder.Snapshot
	StopSilently()
	Resume(reminder.Snapshot)
}

// Handler runs on the event loop.
type Handler struct {
	sched   timer.Scheduler
	tracker Tracker
	saved   *reminder.Snapshot
	guard   timer.Handle
}

func NewHandler(sched timer.Scheduler, tracker Tracker) *Handler {
	return &Handler{sched: sched, tracker: tracker}
}

// Suspend saves the tracking state and stops all reminder activity quietly.
// A repeated suspend keeps the state saved by the first one.
func (h *Handler) Suspend() {
	h.cancelGuard()
	if !h.tracker.Tracking() {
		slog.Info("power: suspend while idle", "saved", h.saved != nil)
		return
	}
	snap := h.tracker.Snapshot()
	h.saved = &snap
	h.tracker.StopSilently()
	slog.Info("power: suspended tracking", "interval_ms", snap.IntervalMs, "camera", snap.CameraEnabled, "mgd", snap.MgdMode)
}

// Resume rebuilds the saved session and opens the guard window.
func (h *Handler) Resume() {
	if h.guard != nil {
		slog.Debug("power: duplicate resume ignored")
		return
	}
	if h.saved == nil {
		return
	}
	snap := *h.saved
	h.saved = nil

	h.guard = h.sched.AfterFunc(GuardWindow, func() {
		h.guard = nil
		slog.Debug("power: resume guard expired")
	})
	slog.Info("power: resuming tracking", "strategy", snap.Strategy(), "interval_ms", snap.IntervalMs)
	h.tracker.Resume(snap)
}

// UserAction is called for every explicit start or stop. The user's choice
// wins over any pending or in-flight automatic resume.
func (h *Handler) UserAction() {
	if h.guard != nil {
		slog.Info("power: user action overrides automatic resume")
	}
	h.cancelGuard()
	h.saved = nil
}

// Resuming reports whether the guard window is open.
func (h *Handler) Resuming() bool { return h.guard != nil }

// Pending reports whether a suspended session is waiting for resume.
func (h *Handler) Pending() bool { return h.saved != nil }

func (h *Handler) cancelGuard() {
	if h.guard != nil {
		h.guard.Stop()
		h.guard = nil
	}
}
