package power

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Event is a power-state transition reported by a Watcher.
type Event int

const (
	EventSuspend Event = iota
	EventResume
)

func (e Event) String() string {
	switch e {
	case EventSuspend:
		return "suspend"
	case EventResume:
		return "resume"
	default:
		return "unknown"
	}
}

// Watcher reports suspend and resume transitions until ctx is done. emit may
// be called from any goroutine.
type Watcher interface {
	Name() string
	Watch(ctx context.Context, emit func(Event)) error
}

// Watchers returns the platform watcher, when there is one, followed by a
// clock-jump watcher that only runs while no platform watcher does.
func Watchers() []Watcher {
	ws := platformWatchers()
	return append(ws, NewClockWatcher(5*time.Second, 30*time.Second))
}

// fallback is implemented by watchers that stand in for the others. They
// start when no other watcher was given or once every other watcher failed.
type fallback interface {
	Fallback() bool
}

func isFallback(w Watcher) bool {
	f, ok := w.(fallback)
	return ok && f.Fallback()
}

// Run starts the watchers and blocks until ctx is done. A watcher that fails
// is logged and left stopped. Two watchers never report the same sleep.
func Run(ctx context.Context, emit func(Event), watchers ...Watcher) {
	var primary, backup []Watcher
	for _, w := range watchers {
		if isFallback(w) {
			backup = append(backup, w)
		} else {
			primary = append(primary, w)
		}
	}
	if len(primary) == 0 {
		primary, backup = backup, nil
	}

	var wg sync.WaitGroup
	failed := make(chan struct{}, len(primary))
	start := func(w Watcher, onFail func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := w.Watch(ctx, emit)
			if ctx.Err() != nil {
				return
			}
			if err != nil && !errors.Is(err, context.Canceled) {
				slog.Warn("power: watcher stopped", "watcher", w.Name(), "error", err)
			}
			if onFail != nil {
				onFail()
			}
		}()
	}
	for _, w := range primary {
		start(w, func() { failed <- struct{}{} })
	}

	if len(backup) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range primary {
				select {
				case <-ctx.Done():
					return
				case <-failed:
				}
			}
			for _, w := range backup {
				slog.Info("power: falling back", "watcher", w.Name())
				start(w, nil)
			}
		}()
	}
	wg.Wait()
}

// ClockWatcher detects sleep by the wall clock jumping between ticks. Tickers
// are driven by the monotonic clock, which does not advance while the machine
// sleeps, so the first tick after wake sees a large wall-clock gap.
type ClockWatcher struct {
	interval  time.Duration
	threshold time.Duration
	now       func() time.Time
}

func NewClockWatcher(interval, threshold time.Duration) *ClockWatcher {
	return &ClockWatcher{interval: interval, threshold: threshold, now: time.Now}
}

func (w *ClockWatcher) Name() string { return "clock" }

func (w *ClockWatcher) Fallback() bool { return true }

func (w *ClockWatcher) Watch(ctx context.Context, emit func(Event)) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	prev := w.now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			cur := w.now()
			if w.slept(prev, cur) {
				slog.Info("power: wall clock jump detected", "gap", cur.Round(0).Sub(prev.Round(0)))
				emit(EventSuspend)
				emit(EventResume)
			}
			prev = cur
		}
	}
}

func (w *ClockWatcher) slept(prev, cur time.Time) bool {
	return cur.Round(0).Sub(prev.Round(0)) > w.interval+w.threshold
}
