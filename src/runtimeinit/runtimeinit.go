// Package runtimeinit loads configuration, logging and preferences in the
// order every entry point needs them.
package runtimeinit

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"blink-reminder/src/config"
	"blink-reminder/src/logutil"
	"blink-reminder/src/notification"
	"blink-reminder/src/prefs"
)

type Options struct {
	LoadOptions config.LoadOptions
	// ResetPrefs deletes the stored preferences before loading them.
	ResetPrefs bool
	// ShowBlockingErrors shows a dialog for fatal startup errors.
	ShowBlockingErrors bool
}

type Runtime struct {
	Config *config.Config
	Prefs  *prefs.Store
	logs   io.Closer
}

func Bootstrap(opts Options) (*Runtime, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		err = fmt.Errorf("failed to load configuration: %w", err)
		if opts.ShowBlockingErrors {
			notification.ShowBlockingError("Blink Reminder", err.Error())
		}
		return nil, err
	}

	logs, err := logutil.Setup(cfg.EnableFileLogging, cfg.DataDir, cfg.LogLevel)
	if err != nil {
		slog.Warn("file logging unavailable, using stderr", "error", err)
	}

	path := filepath.Join(cfg.DataDir, prefs.FileName)
	store, err := prefs.Open(path)
	if err != nil {
		slog.Warn("preferences unreadable, using defaults", "path", path, "error", err)
	}
	if opts.ResetPrefs {
		if err := store.Reset(); err != nil {
			slog.Warn("preferences reset failed", "error", err)
		} else {
			slog.Info("preferences reset to defaults", "path", path)
		}
	}

	if _, err := os.Stat(cfg.DetectorPath); err != nil {
		slog.Warn("detector binary not found; camera mode will fail to start", "path", cfg.DetectorPath)
	}

	slog.Info("runtime ready",
		"data_dir", cfg.DataDir,
		"detector", cfg.DetectorPath,
		"control_port", cfg.ControlPort,
		"log_level", cfg.LogLevel)
	return &Runtime{Config: cfg, Prefs: store, logs: logs}, nil
}

// Close flushes and closes the log file.
func (r *Runtime) Close() {
	if r.logs != nil {
		_ = r.logs.Close()
	}
}
