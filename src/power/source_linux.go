//go:build linux

package power

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"
)

const (
	logindPath      = "/org/freedesktop/login1"
	logindInterface = "org.freedesktop.login1.Manager"
	prepareForSleep = "PrepareForSleep"
)

func platformWatchers() []Watcher {
	return []Watcher{logindWatcher{}}
}

// logindWatcher listens for systemd-logind's PrepareForSleep signal, sent
// with true before sleep and false after wake.
type logindWatcher struct{}

func (logindWatcher) Name() string { return "logind" }

func (logindWatcher) Watch(ctx context.Context, emit func(Event)) error {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return fmt.Errorf("connect system bus: %w", err)
	}
	defer conn.Close()

	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(logindPath),
		dbus.WithMatchInterface(logindInterface),
		dbus.WithMatchMember(prepareForSleep),
	); err != nil {
		return fmt.Errorf("subscribe %s: %w", prepareForSleep, err)
	}

	signals := make(chan *dbus.Signal, 8)
	conn.Signal(signals)
	defer conn.RemoveSignal(signals)
	slog.Debug("power: listening for logind sleep signals")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig, ok := <-signals:
			if !ok {
				return fmt.Errorf("system bus connection closed")
			}
			if ev, ok := decodeSleepSignal(sig); ok {
				emit(ev)
			}
		}
	}
}

func decodeSleepSignal(sig *dbus.Signal) (Event, bool) {
	if sig == nil || sig.Name != logindInterface+"."+prepareForSleep || len(sig.Body) == 0 {
		return 0, false
	}
	sleeping, ok := sig.Body[0].(bool)
	if !ok {
		return 0, false
	}
	if sleeping {
		return EventSuspend, true
	}
	return EventResume, true
}
