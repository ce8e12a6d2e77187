// Package reminder decides when blink and exercise reminders appear. It owns
// the tracking session and drives the camera supervisor and popup manager.
package reminder

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"blink-reminder/src/detector"
	"blink-reminder/src/messages"
	"blink-reminder/src/popup"
	"blink-reminder/src/prefs"
	"blink-reminder/src/session"
	"blink-reminder/src/timer"
)

const (
	PopupDuration = popup.ReminderDismiss
	MonitorPeriod = time.Second
	ReadinessPoll = 100 * time.Millisecond
	SnoozeDelay   = 5 * time.Minute
)

// Popups is the subset of popup.Manager the tracker drives.
type Popups interface {
	ShowReminder(dismissAfter time.Duration) popup.ID
	ShowStarting() popup.ID
	ShowStopped() popup.ID
	ShowExercise() popup.ID
	Close(id popup.ID) bool
	CloseReminder()
	CloseExercise()
	Open(cat popup.Category) bool
}

// Camera is the subset of detector.Supervisor the tracker drives.
type Camera interface {
	EnsureRunning() error
	StartCapture() bool
	StopCapture()
	Ready() bool
	// Visualizing reports whether the camera window needs frames.
	Visualizing() bool
	ResetRetries()
	Stop()
}

// Prefs reads and persists preferences.
type Prefs interface {
	Get() prefs.Preferences
	Update(func(*prefs.Preferences)) error
}

type Options struct {
	Scheduler timer.Scheduler
	Popups    Popups
	Camera    Camera
	Prefs     Prefs
	Emit      func(messages.Event)
}

// Snapshot is the tracking state saved across a suspend.
type Snapshot struct {
	Tracking      bool
	CameraEnabled bool
	MgdMode       bool
	IntervalMs    int
}

// Strategy returns the session strategy the snapshot resumes into.
func (s Snapshot) Strategy() session.Strategy {
	return strategyFor(s.CameraEnabled, s.MgdMode)
}

// Tracker runs on the event loop and is not safe for concurrent use.
type Tracker struct {
	sched  timer.Scheduler
	popups Popups
	camera Camera
	prefs  Prefs
	emit   func(messages.Event)

	session      *session.Session
	lastBlink    time.Time
	lastReminder time.Time
	blinkPopup   popup.ID

	exercise exerciseMonitor
}

type exerciseMonitor struct {
	enabled  bool
	interval time.Duration
	baseline time.Time
	due      timer.Handle
	snooze   timer.Handle
}

func New(opts Options) *Tracker {
	emit := opts.Emit
	if emit == nil {
		emit = func(messages.Event) {}
	}
	return &Tracker{
		sched:  opts.Scheduler,
		popups: opts.Popups,
		camera: opts.Camera,
		prefs:  opts.Prefs,
		emit:   emit,
	}
}

func strategyFor(camera, mgd bool) session.Strategy {
	switch {
	case camera && mgd:
		return session.StrategyMGD
	case camera:
		return session.StrategyCamera
	default:
		return session.StrategyTimer
	}
}

// Tracking reports whether a live session exists.
func (t *Tracker) Tracking() bool { return t.session.Alive() }

// Session returns the live session, or nil.
func (t *Tracker) Session() *session.Session {
	if !t.session.Alive() {
		return nil
	}
	return t.session
}

// CameraActive reports whether the live session wants the camera.
func (t *Tracker) CameraActive() bool {
	return t.session.Alive() && t.session.Strategy.UsesCamera()
}

// Start replaces any running session with a fresh one using the strategy
// selected by the preferences. A non-positive intervalMs uses the preference.
// It is the explicit start, so it also re-arms camera auto-retry.
func (t *Tracker) Start(intervalMs int) {
	p := t.prefs.Get()
	t.start(intervalMs, strategyFor(p.CameraEnabled, p.MgdMode), startExplicit)
}

type startMode int

const (
	startExplicit startMode = iota
	// startRestart rebuilds a session after a settings change.
	startRestart
	// startResume rebuilds a session after wake, without the starting popup.
	startResume
)

func (t *Tracker) start(intervalMs int, strategy session.Strategy, mode startMode) {
	t.teardown()

	if intervalMs <= 0 {
		intervalMs = t.prefs.Get().ReminderIntervalMs
	}
	s := session.New(t.sched, strategy, time.Duration(intervalMs)*time.Millisecond)
	t.session = s
	t.lastBlink = t.sched.Now()
	t.lastReminder = time.Time{}
	t.setTracking(true)
	slog.Info("reminder: tracking started", "session", s.ID, "strategy", strategy, "interval", s.Interval, "mode", mode)

	if strategy.UsesCamera() {
		t.startCamera(s, mode)
		return
	}
	t.startCadence(s)
}

// Stop ends tracking and shows the stopped confirmation. Exercise reminders
// keep running.
func (t *Tracker) Stop() {
	was := t.session.Alive()
	t.StopSilently()
	if was {
		t.popups.ShowStopped()
	}
}

// StopSilently ends tracking without the confirmation popup.
func (t *Tracker) StopSilently() {
	t.teardown()
	t.cancelSnooze()
	t.setTracking(false)
}

// Shutdown stops every timer the tracker owns.
func (t *Tracker) Shutdown() {
	t.teardown()
	t.cancelSnooze()
	timer.StopAll(t.exercise.due)
	t.exercise.due = nil
}

func (t *Tracker) teardown() {
	s := t.session
	if s == nil {
		return
	}
	t.session = nil
	n := s.Cancel()
	if s.Strategy.UsesCamera() && !t.camera.Visualizing() {
		t.camera.StopCapture()
	}
	t.popups.CloseReminder()
	t.blinkPopup = 0
	slog.Debug("reminder: session cancelled", "session", s.ID, "timers", n)
}

func (t *Tracker) setTracking(on bool) {
	if t.prefs.Get().IsTracking != on {
		if err := t.prefs.Update(func(p *prefs.Preferences) { p.IsTracking = on }); err != nil {
			slog.Warn("reminder: persist tracking flag failed", "error", err)
		}
	}
	strategy := ""
	if on && t.session != nil {
		strategy = t.session.Strategy.String()
	}
	t.emit(messages.TrackingChanged{Tracking: on, Strategy: strategy})
}

// startCadence shows a reminder now and then every interval plus the popup
// duration, each one auto-dismissed.
func (t *Tracker) startCadence(s *session.Session) {
	t.showTimed()
	s.Every(s.Interval+PopupDuration, t.showTimed)
}

func (t *Tracker) showTimed() {
	t.lastReminder = t.sched.Now()
	t.popups.ShowReminder(PopupDuration)
}

func (t *Tracker) startCamera(s *session.Session, mode startMode) {
	if mode != startResume {
		t.popups.ShowStarting()
	}
	if mode == startExplicit {
		t.camera.ResetRetries()
	}

	requested := false
	if err := t.camera.EnsureRunning(); err != nil {
		if !errors.Is(err, detector.ErrStopping) {
			t.abort(s, err)
			return
		}
	} else {
		requested = t.camera.StartCapture()
	}

	var poll timer.Handle
	poll = s.Every(ReadinessPoll, func() {
		if !t.camera.Ready() {
			if !requested {
				err := t.camera.EnsureRunning()
				switch {
				case err == nil:
					requested = t.camera.StartCapture()
				case !errors.Is(err, detector.ErrStopping):
					t.abort(s, err)
				}
			}
			return
		}

		s.Release(poll)
		t.popups.CloseReminder()
		t.lastBlink = t.sched.Now()
		slog.Info("reminder: camera ready", "session", s.ID, "strategy", s.Strategy)
		if s.Strategy == session.StrategyMGD {
			t.startCadence(s)
			return
		}
		t.startMonitor(s)
	})
}

// abort ends a camera session that could not get a detector at all.
func (t *Tracker) abort(s *session.Session, err error) {
	slog.Error("reminder: camera tracking aborted", "session", s.ID, "error", err)
	if t.session == s {
		t.session = nil
	}
	s.Cancel()
	t.popups.CloseReminder()
	t.setTracking(false)
	t.emit(messages.CameraError{
		Message:  fmt.Sprintf("Could not start the blink detector: %v", err),
		Terminal: true,
	})
}

// startMonitor checks every second whether the user went a whole interval
// without blinking or being reminded.
func (t *Tracker) startMonitor(s *session.Session) {
	s.Every(MonitorPeriod, func() {
		if t.popups.Open(popup.CategoryReminder) {
			return
		}
		now := t.sched.Now()
		last := t.lastBlink
		if t.lastReminder.After(last) {
			last = t.lastReminder
		}
		if now.Sub(last) < s.Interval {
			return
		}

		t.lastReminder = now
		id := t.popups.ShowReminder(0)
		t.blinkPopup = id
		s.After(PopupDuration, func() { t.closeBlinkPopup(id) })
	})
}

func (t *Tracker) closeBlinkPopup(id popup.ID) {
	if id == 0 {
		return
	}
	t.popups.Close(id)
	if t.blinkPopup == id {
		t.blinkPopup = 0
	}
}

// HandleBlink records a detected blink. In camera-normal mode it also closes
// the reminder on screen.
func (t *Tracker) HandleBlink(at time.Time) {
	t.lastBlink = at
	s := t.session
	if !s.Alive() || s.Strategy != session.StrategyCamera {
		return
	}
	t.closeBlinkPopup(t.blinkPopup)
}

// SetCameraEnabled persists the camera preference and restarts a running
// session with the matching strategy. Disabling also stops the detector.
func (t *Tracker) SetCameraEnabled(enabled bool) {
	if err := t.prefs.Update(func(p *prefs.Preferences) { p.CameraEnabled = enabled }); err != nil {
		slog.Warn("reminder: persist camera preference failed", "error", err)
		return
	}
	t.restartIfTracking()
	if !enabled {
		t.camera.Stop()
	}
}

// SetMgdMode persists MGD mode and restarts a running session.
func (t *Tracker) SetMgdMode(enabled bool) {
	if err := t.prefs.Update(func(p *prefs.Preferences) { p.MgdMode = enabled }); err != nil {
		slog.Warn("reminder: persist mgd preference failed", "error", err)
		return
	}
	t.restartIfTracking()
}

// SetInterval persists a new reminder interval and restarts a running session.
func (t *Tracker) SetInterval(intervalMs int) error {
	if err := t.prefs.Update(func(p *prefs.Preferences) { p.ReminderIntervalMs = intervalMs }); err != nil {
		return err
	}
	t.restartIfTracking()
	return nil
}

func (t *Tracker) restartIfTracking() {
	if !t.Tracking() {
		return
	}
	p := t.prefs.Get()
	t.start(p.ReminderIntervalMs, strategyFor(p.CameraEnabled, p.MgdMode), startRestart)
}

// Snapshot captures what Resume needs to rebuild the current session.
func (t *Tracker) Snapshot() Snapshot {
	p := t.prefs.Get()
	snap := Snapshot{
		Tracking:      t.Tracking(),
		CameraEnabled: p.CameraEnabled,
		MgdMode:       p.MgdMode,
		IntervalMs:    p.ReminderIntervalMs,
	}
	if s := t.Session(); s != nil {
		snap.IntervalMs = int(s.Interval / time.Millisecond)
		snap.CameraEnabled = s.Strategy.UsesCamera()
		snap.MgdMode = s.Strategy == session.StrategyMGD
	}
	return snap
}

// Resume rebuilds a session from a snapshot without the starting popup.
func (t *Tracker) Resume(snap Snapshot) {
	if !snap.Tracking {
		return
	}
	t.start(snap.IntervalMs, snap.Strategy(), startResume)
}
