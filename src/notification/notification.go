// Package notification shows native dialogs and desktop notifications for
// errors the user has to see.
package notification

import (
	"log/slog"

	"github.com/ncruces/zenity"
)

// ShowBlockingError shows a modal error dialog and waits for it to be
// dismissed. It falls back to logging when no dialog backend exists.
func ShowBlockingError(title, message string) {
	slog.Error(title, "message", message)
	if !zenity.IsAvailable() {
		return
	}
	if err := zenity.Error(message, zenity.Title(title), zenity.ErrorIcon); err != nil && err != zenity.ErrCanceled {
		slog.Warn("notification: error dialog failed", "error", err)
	}
}

// ShowError shows an error dialog without blocking the caller.
func ShowError(title, message string) {
	go ShowBlockingError(title, message)
}

// Notify posts a desktop notification.
func Notify(title, message string) {
	go func() {
		if err := zenity.Notify(message, zenity.Title(title), zenity.InfoIcon); err != nil {
			slog.Debug("notification: notify failed", "title", title, "error", err)
		}
	}()
}
