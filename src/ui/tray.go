package ui

import (
	"fyne.io/fyne/v2"

	"blink-reminder/src/messages"
	"blink-reminder/src/prefs"
)

// tray is the system tray menu. It mirrors the latest preference snapshot.
type tray struct {
	menu      *fyne.Menu
	toggle    *fyne.MenuItem
	camera    *fyne.MenuItem
	mgd       *fyne.MenuItem
	exercises *fyne.MenuItem
	dark      *fyne.MenuItem
	sound     *fyne.MenuItem
	skip      *fyne.MenuItem
	snooze    *fyne.MenuItem
	prefs     prefs.Preferences
	tracking  bool
}

func newTray(send func(messages.Command)) *tray {
	t := &tray{prefs: prefs.Defaults()}
	set := func(key string, get func(prefs.Preferences) bool) func() {
		return func() { send(messages.SetPreference{Key: key, Value: !get(t.prefs)}) }
	}

	t.toggle = fyne.NewMenuItem("Start tracking", func() { send(messages.ToggleTracking{}) })
	t.camera = fyne.NewMenuItem("Camera blink detection", set(prefs.KeyCameraEnabled, func(p prefs.Preferences) bool { return p.CameraEnabled }))
	t.mgd = fyne.NewMenuItem("Fixed cadence with camera (MGD)", set(prefs.KeyMgdMode, func(p prefs.Preferences) bool { return p.MgdMode }))
	t.exercises = fyne.NewMenuItem("Eye exercises", set(prefs.KeyEyeExercisesEnabled, func(p prefs.Preferences) bool { return p.EyeExercisesEnabled }))
	t.dark = fyne.NewMenuItem("Dark popups", set(prefs.KeyDarkMode, func(p prefs.Preferences) bool { return p.DarkMode }))
	t.sound = fyne.NewMenuItem("Sound", set(prefs.KeySoundEnabled, func(p prefs.Preferences) bool { return p.SoundEnabled }))
	t.skip = fyne.NewMenuItem("Skip exercise", func() { send(messages.SkipExercise{}) })
	t.snooze = fyne.NewMenuItem("Snooze exercise", func() { send(messages.SnoozeExercise{}) })

	t.menu = fyne.NewMenu("Blink Reminder",
		t.toggle,
		fyne.NewMenuItemSeparator(),
		t.camera,
		t.mgd,
		fyne.NewMenuItem("Show camera", func() { send(messages.ShowCameraWindow{}) }),
		fyne.NewMenuItemSeparator(),
		t.exercises,
		t.skip,
		t.snooze,
		fyne.NewMenuItemSeparator(),
		t.dark,
		t.sound,
		fyne.NewMenuItem("Popup layout...", func() { send(messages.ShowPopupEditor{}) }),
		fyne.NewMenuItem("Reset preferences", func() { send(messages.ResetPreferences{}) }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", func() { send(messages.Quit{Reason: "tray"}) }),
	)
	t.sync()
	return t
}

func (t *tray) setPrefs(p prefs.Preferences) {
	t.prefs = p
	t.sync()
}

func (t *tray) setTracking(on bool) {
	t.tracking = on
	t.sync()
}

func (t *tray) sync() {
	if t.tracking {
		t.toggle.Label = "Stop tracking"
	} else {
		t.toggle.Label = "Start tracking"
	}
	t.camera.Checked = t.prefs.CameraEnabled
	t.mgd.Checked = t.prefs.MgdMode
	t.mgd.Disabled = !t.prefs.CameraEnabled
	t.exercises.Checked = t.prefs.EyeExercisesEnabled
	t.skip.Disabled = !t.prefs.EyeExercisesEnabled
	t.snooze.Disabled = !t.prefs.EyeExercisesEnabled
	t.dark.Checked = t.prefs.DarkMode
	t.sound.Checked = t.prefs.SoundEnabled
	t.menu.Refresh()
}
