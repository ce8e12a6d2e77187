// Package app is the orchestration context. It owns the preferences, the
// tracker, the detector supervisor, the popup manager and the power handler,
// and turns UI commands into calls on them. Everything here runs on the
// event loop.
package app

import (
	"encoding/json"
	"log/slog"
	"time"

	"blink-reminder/src/detector"
	"blink-reminder/src/messages"
	"blink-reminder/src/popup"
	"blink-reminder/src/power"
	"blink-reminder/src/prefs"
	"blink-reminder/src/reminder"
	"blink-reminder/src/timer"
)

// Shortcuts registers the global tracking shortcut.
type Shortcuts interface {
	Register(accel string, fire func()) error
	Unregister()
}

type Options struct {
	Scheduler timer.Scheduler
	// Post delivers a closure to the event loop from another goroutine.
	Post      func(func()) bool
	Store     *prefs.Store
	Renderer  popup.Renderer
	Launcher  detector.Launcher
	Shortcuts Shortcuts
	Publish   func(messages.Event)
	// Quit starts application shutdown.
	Quit func(reason string)
}

type App struct {
	sched     timer.Scheduler
	post      func(func()) bool
	store     *prefs.Store
	shortcuts Shortcuts
	publish   func(messages.Event)
	quit      func(string)

	popups  *popup.Manager
	camera  *detector.Supervisor
	tracker *reminder.Tracker
	power   *power.Handler

	cameraWindow bool
	shortcut     string
}

func New(opts Options) *App {
	a := &App{
		sched:     opts.Scheduler,
		post:      opts.Post,
		store:     opts.Store,
		shortcuts: opts.Shortcuts,
		publish:   opts.Publish,
		quit:      opts.Quit,
	}
	if a.publish == nil {
		a.publish = func(messages.Event) {}
	}
	if a.post == nil {
		a.post = func(fn func()) bool { fn(); return true }
	}
	if a.quit == nil {
		a.quit = func(string) {}
	}

	a.popups = popup.NewManager(a.sched, opts.Renderer, a.appearance)
	a.camera = detector.New(detector.Options{
		Scheduler: a.sched,
		Launcher:  opts.Launcher,
		Hooks: detector.Hooks{
			OnBlink:       a.onBlink,
			OnCameraError: a.onCameraError,
			OnFaceData:    a.onFaceData,
			OnVideo:       a.onVideo,
		},
		Active: func() bool { return a.tracker.CameraActive() && a.store.Get().CameraEnabled },
	})
	a.tracker = reminder.New(reminder.Options{
		Scheduler: a.sched,
		Popups:    a.popups,
		Camera:    a.camera,
		Prefs:     a.store,
		Emit:      a.publish,
	})
	a.power = power.NewHandler(a.sched, a.tracker)
	return a
}

func (a *App) appearance() popup.Appearance {
	ap := popup.AppearanceFrom(a.store.Get())
	ap.CameraMode = a.tracker.CameraActive()
	return ap
}

// Startup applies the stored preferences: shortcut, exercises, detector
// pre-warm and the tracking state from the last run.
func (a *App) Startup() {
	p := a.store.Get()
	a.registerShortcut(p.KeyboardShortcut)
	a.tracker.RefreshExercises()

	if p.CameraEnabled {
		if err := a.camera.EnsureRunning(); err != nil {
			slog.Warn("app: detector pre-warm failed", "error", err)
		}
	}
	if p.IsTracking {
		a.tracker.Start(p.ReminderIntervalMs)
	}
	a.refreshPopups()
	a.publishPrefs()
	slog.Info("app: started", "tracking", a.tracker.Tracking(), "camera", p.CameraEnabled, "exercises", p.EyeExercisesEnabled)
}

// Handle dispatches one UI command.
func (a *App) Handle(cmd messages.Command) {
	slog.Debug("app: command", "type", cmd.Type())
	switch c := cmd.(type) {
	case messages.StartTracking:
		a.power.UserAction()
		a.tracker.Start(0)
	case messages.StopTracking:
		a.power.UserAction()
		a.tracker.Stop()
	case messages.ToggleTracking:
		a.power.UserAction()
		if a.tracker.Tracking() {
			a.tracker.Stop()
		} else {
			a.tracker.Start(0)
		}
	case messages.SetPreference:
		a.setPreference(c.Key, c.Value)
	case messages.ShowCameraWindow:
		a.openCameraWindow()
	case messages.CloseCameraWindow:
		a.closeCameraWindow()
	case messages.ShowPopupEditor:
		p := a.store.Get()
		a.publish(messages.PopupEditor{Size: p.PopupSize, Position: p.PopupPosition})
	case messages.SavePopupEditor:
		a.savePopupLayout(c.Size, c.Position)
	case messages.SkipExercise:
		a.tracker.SkipExercise()
	case messages.SnoozeExercise:
		a.tracker.SnoozeExercise()
	case messages.ResetPreferences:
		a.reset()
	case messages.Quit:
		a.quit(c.Reason)
	default:
		slog.Warn("app: unknown command", "type", cmd.Type())
	}
}

func (a *App) setPreference(key string, value any) {
	next, err := a.store.Preview(key, value)
	if err != nil {
		slog.Warn("app: rejected preference", "key", key, "error", err)
		a.publishPrefs()
		return
	}

	switch key {
	case prefs.KeyCameraEnabled:
		a.tracker.SetCameraEnabled(next.CameraEnabled)
	case prefs.KeyMgdMode:
		a.tracker.SetMgdMode(next.MgdMode)
	case prefs.KeyReminderIntervalMs:
		err = a.tracker.SetInterval(next.ReminderIntervalMs)
	case prefs.KeyEyeExercisesEnabled, prefs.KeyExerciseIntervalMin:
		err = a.tracker.SetExercises(next.EyeExercisesEnabled, next.ExerciseIntervalMin)
	case prefs.KeyIsTracking:
		a.power.UserAction()
		if next.IsTracking {
			a.tracker.Start(0)
		} else {
			a.tracker.Stop()
		}
	case prefs.KeyKeyboardShortcut:
		if a.registerShortcut(next.KeyboardShortcut) {
			_, err = a.store.Set(key, value)
		}
	default:
		if _, err = a.store.Set(key, value); err == nil {
			a.refreshPopups()
		}
	}
	if err != nil {
		slog.Warn("app: apply preference failed", "key", key, "error", err)
	}
	a.publishPrefs()
}

func (a *App) savePopupLayout(size prefs.Size, pos *prefs.Point) {
	err := a.store.Update(func(p *prefs.Preferences) {
		p.PopupSize = size
		p.PopupPosition = pos
	})
	if err != nil {
		slog.Warn("app: rejected popup layout", "size", size, "error", err)
	} else {
		a.refreshPopups()
	}
	a.publish(messages.WindowClosed{Window: messages.WindowPopupEditor})
	a.publishPrefs()
}

// reset stops tracking, wipes the stored preferences and re-applies the
// defaults to every component.
func (a *App) reset() {
	a.power.UserAction()
	a.tracker.Stop()
	if err := a.store.Reset(); err != nil {
		slog.Warn("app: reset preferences", "error", err)
	}

	p := a.store.Get()
	a.tracker.RefreshExercises()
	if !p.CameraEnabled {
		a.camera.Stop()
	}
	a.registerShortcut(p.KeyboardShortcut)
	a.refreshPopups()
	a.publish(messages.TrackingChanged{Tracking: false})
	a.publishPrefs()
	slog.Info("app: preferences reset")
}

// registerShortcut binds accel to a tracking toggle. On failure the previous
// binding stays and a ShortcutError is published.
func (a *App) registerShortcut(accel string) bool {
	if a.shortcuts == nil {
		return true
	}
	err := a.shortcuts.Register(accel, func() {
		a.post(func() { a.Handle(messages.ToggleTracking{}) })
	})
	if err != nil {
		slog.Warn("app: shortcut registration failed", "shortcut", accel, "error", err)
		a.publish(messages.ShortcutError{Shortcut: accel, Message: err.Error()})
		return false
	}
	a.shortcut = accel
	return true
}

func (a *App) openCameraWindow() {
	if err := a.camera.EnsureRunning(); err != nil {
		slog.Warn("app: camera window without detector", "error", err)
		a.publish(messages.CameraError{Message: err.Error()})
	} else if !a.camera.Ready() {
		a.camera.StartCapture()
	}
	a.cameraWindow = true
	a.camera.SetVisualization(true)
	a.publish(messages.CameraWindow{})
}

func (a *App) closeCameraWindow() {
	if !a.cameraWindow {
		return
	}
	a.cameraWindow = false
	a.camera.SetVisualization(false)
	if !a.tracker.CameraActive() {
		a.camera.StopCapture()
	}
	a.publish(messages.WindowClosed{Window: messages.WindowCamera})
}

func (a *App) onBlink(at time.Time, b detector.Blink) {
	a.tracker.HandleBlink(at)
	a.publish(messages.BlinkDetected{At: at, EAR: b.EAR, Baseline: b.Baseline, DropPercentage: b.DropPercentage})
}

func (a *App) onCameraError(msg string, terminal bool) {
	a.publish(messages.CameraError{Message: msg, Terminal: terminal})
}

func (a *App) onFaceData(raw json.RawMessage) {
	if a.cameraWindow {
		a.publish(messages.FaceData{Raw: raw})
	}
}

func (a *App) onVideo(frame string) {
	if a.cameraWindow {
		a.publish(messages.VideoFrame{Base64: frame})
	}
}

// refreshPopups applies the current look to open popups and tells the UI.
func (a *App) refreshPopups() {
	ap := a.appearance()
	a.popups.Refresh(ap)
	a.publish(messages.PopupContent{Message: ap.Message, Colors: ap.Colors, DarkMode: ap.DarkMode, CameraMode: ap.CameraMode})
}

func (a *App) publishPrefs() {
	a.publish(messages.PreferencesSnapshot{Prefs: a.store.Get()})
}

// PowerEvent feeds a suspend or resume notification to the power handler.
func (a *App) PowerEvent(ev power.Event) {
	switch ev {
	case power.EventSuspend:
		a.power.Suspend()
	case power.EventResume:
		a.power.Resume()
	}
}

// Prepare stops every timer and window the core owns and hands over the
// detector process for termination. It returns nil when no detector runs.
func (a *App) Prepare() detector.Proc {
	a.tracker.Shutdown()
	a.popups.CloseAll()
	if a.shortcuts != nil {
		a.shortcuts.Unregister()
	}
	a.cameraWindow = false
	a.publish(messages.Quitting{})
	return a.camera.Detach()
}

// Status is a point-in-time summary for the control endpoint.
type Status struct {
	Tracking  bool   `json:"tracking"`
	Strategy  string `json:"strategy,omitempty"`
	Detector  string `json:"detector"`
	Retries   int    `json:"retries"`
	Exercises bool   `json:"exercises"`
	Shortcut  string `json:"shortcut,omitempty"`
	// Queued and Dropped describe the UI event channel. The app does not own
	// it, so the resident fills them in.
	Queued  map[string]int `json:"queued,omitempty"`
	Dropped int            `json:"dropped_events,omitempty"`
}

func (a *App) Status() Status {
	st := Status{
		Tracking:  a.tracker.Tracking(),
		Detector:  a.camera.State().String(),
		Retries:   a.camera.Retries(),
		Exercises: a.tracker.ExercisesEnabled(),
		Shortcut:  a.shortcut,
	}
	if s := a.tracker.Session(); s != nil {
		st.Strategy = s.Strategy.String()
	}
	return st
}
