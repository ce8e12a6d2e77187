//go:build windows

package main

import (
	"log/slog"

	"golang.org/x/sys/windows"
)

// enableDPIAwareness sets per-monitor DPI awareness so popups are not scaled
// blurry on high-DPI displays.
func enableDPIAwareness() {
	const processPerMonitorDPIAware = 2
	setProcessDpiAwareness := windows.NewLazySystemDLL("Shcore.dll").NewProc("SetProcessDpiAwareness")
	if err := setProcessDpiAwareness.Find(); err == nil {
		ret, _, _ := setProcessDpiAwareness.Call(uintptr(processPerMonitorDPIAware))
		if ret != 0 {
			slog.Debug("dpi: per-monitor awareness failed", "code", ret)
		}
		return
	}

	setProcessDPIAware := windows.NewLazySystemDLL("user32.dll").NewProc("SetProcessDPIAware")
	if err := setProcessDPIAware.Find(); err == nil {
		_, _, _ = setProcessDPIAware.Call()
		return
	}
	slog.Debug("dpi: no DPI awareness API available")
}
