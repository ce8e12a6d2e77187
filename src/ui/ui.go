// Package ui is the fyne front end: tray menu, reminder popups, the camera
// window and the popup editor. It talks to the core only through commands
// and the router's event channel.
package ui

import (
	"log/slog"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"

	"blink-reminder/src/messages"
	"blink-reminder/src/notification"
	"blink-reminder/src/popup"
)

const appID = "io.github.blinkreminder"

type UI struct {
	app    fyne.App
	send   func(messages.Command)
	tray   *tray
	render *renderer
	camera *cameraWindow
	editor fyne.Window
	// content is the latest popup look, used by the editor preview.
	content messages.PopupContent
}

// New creates the fyne application. send delivers a command to the core and
// must not block for long.
func New(send func(messages.Command)) *UI {
	a := app.NewWithID(appID)
	u := &UI{
		app:    a,
		send:   send,
		render: &renderer{app: a, send: send},
	}
	u.tray = newTray(send)
	if d, ok := a.(desktop.App); ok {
		d.SetSystemTrayMenu(u.tray.menu)
		d.SetSystemTrayIcon(theme.VisibilityIcon())
	} else {
		slog.Warn("ui: system tray not supported by this driver")
	}
	return u
}

// Renderer returns the popup renderer backed by fyne windows.
func (u *UI) Renderer() popup.Renderer { return u.render }

// Run consumes events and blocks in the fyne main loop until Quit. It must be
// called from the main goroutine.
func (u *UI) Run(events <-chan messages.Event) {
	go func() {
		for ev := range events {
			ev := ev
			fyne.Do(func() { u.handle(ev) })
		}
	}()
	u.app.Run()
}

// Quit closes every window and leaves the main loop.
func (u *UI) Quit() {
	fyne.Do(func() {
		for _, w := range u.app.Driver().AllWindows() {
			w.Close()
		}
		u.app.Quit()
	})
}

func (u *UI) handle(ev messages.Event) {
	switch e := ev.(type) {
	case messages.TrackingChanged:
		u.tray.setTracking(e.Tracking)
	case messages.PreferencesSnapshot:
		u.tray.setPrefs(e.Prefs)
	case messages.CameraError:
		if e.Terminal {
			notification.ShowError("Blink Reminder camera error", e.Message)
		} else {
			slog.Info("ui: camera error", "message", e.Message)
		}
	case messages.ShortcutError:
		notification.Notify("Blink Reminder", "Could not register shortcut "+e.Shortcut+": "+e.Message)
	case messages.CameraWindow:
		u.cameraWindow().show()
	case messages.VideoFrame:
		if u.camera != nil {
			if err := u.camera.showFrame(e.Base64); err != nil {
				slog.Debug("ui: bad video frame", "error", err)
			}
		}
	case messages.FaceData:
		if u.camera != nil {
			u.camera.showFace(e.Raw)
		}
	case messages.BlinkDetected:
		if u.camera != nil {
			u.camera.blink()
		}
	case messages.PopupEditor:
		if u.editor != nil {
			u.editor.Close()
		}
		u.editor = showEditor(u.app, e, u.content, u.send)
	case messages.WindowClosed:
		switch e.Window {
		case messages.WindowCamera:
			if u.camera != nil {
				u.camera.hide()
			}
		case messages.WindowPopupEditor:
			if u.editor != nil {
				u.editor.Close()
				u.editor = nil
			}
		}
	case messages.Quitting:
		if u.camera != nil {
			u.camera.hide()
		}
	case messages.PopupContent:
		u.content = e
	}
}

func (u *UI) cameraWindow() *cameraWindow {
	if u.camera == nil {
		u.camera = newCameraWindow(u.app, u.send)
	}
	return u.camera
}
