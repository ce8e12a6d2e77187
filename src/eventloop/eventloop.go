// Package eventloop runs the reminder core on a single goroutine.
//
// Timers, process readers, the D-Bus listener, the hotkey listener, UI callbacks
// and the control server never touch core state directly: they Post a closure
// and the loop runs it to completion before picking up the next one.
package eventloop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"blink-reminder/src/timer"
)

// ErrClosed is returned when work is submitted to a loop that has stopped.
var ErrClosed = errors.New("eventloop: closed")

const defaultQueue = 256

// Loop is the single-threaded coordinator.
type Loop struct {
	tasks   chan func()
	done    chan struct{}
	once    sync.Once
	onPanic func(recovered any)
	running atomic.Bool
}

// New creates a loop. onPanic is invoked (on a fresh goroutine) when a posted
// closure panics; the loop itself keeps running.
func New(onPanic func(recovered any)) *Loop {
	return &Loop{
		tasks:   make(chan func(), defaultQueue),
		done:    make(chan struct{}),
		onPanic: onPanic,
	}
}

// Run processes posted closures until ctx is cancelled or Close is called.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return fmt.Errorf("eventloop: already running")
	}
	defer l.running.Store(false)

	for {
		select {
		case <-ctx.Done():
			l.Close()
			return ctx.Err()
		case <-l.done:
			return nil
		case fn := <-l.tasks:
			l.dispatch(fn)
		}
	}
}

func (l *Loop) dispatch(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("eventloop: recovered panic", "panic", r, "stack", string(debug.Stack()))
			if l.onPanic != nil {
				go l.onPanic(r)
			}
		}
	}()
	fn()
}

// Post queues fn for execution on the loop. It blocks while the queue is full
// and returns false once the loop is closed. Post must not be called from the
// loop goroutine itself with a full queue.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.tasks <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Do runs fn on the loop and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrClosed
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("eventloop: waiting for task: %w", ctx.Err())
	case <-l.done:
		return ErrClosed
	}
}

// Close stops the loop. Pending closures are discarded.
func (l *Loop) Close() {
	l.once.Do(func() { close(l.done) })
}

// Done is closed when the loop stops.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Now implements timer.Scheduler.
func (l *Loop) Now() time.Time { return time.Now() }

// AfterFunc implements timer.Scheduler: fn runs on the loop after d.
func (l *Loop) AfterFunc(d time.Duration, fn func()) timer.Handle {
	h := &oneShot{}
	h.active.Store(true)
	h.t = time.AfterFunc(d, func() {
		l.Post(func() {
			if h.active.CompareAndSwap(true, false) {
				fn()
			}
		})
	})
	return h
}

// Every implements timer.Scheduler: fn runs on the loop every d. Ticks that
// arrive while the loop is busy are coalesced by the underlying ticker.
func (l *Loop) Every(d time.Duration, fn func()) timer.Handle {
	if d <= 0 {
		d = time.Millisecond
	}
	h := &periodic{stop: make(chan struct{})}
	h.active.Store(true)
	go func() {
		ticker := time.NewTicker(d)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.Post(func() {
					if h.active.Load() {
						fn()
					}
				})
			case <-h.stop:
				return
			case <-l.done:
				return
			}
		}
	}()
	return h
}

type oneShot struct {
	t      *time.Timer
	active atomic.Bool
}

func (h *oneShot) Stop() bool {
	h.t.Stop()
	return h.active.CompareAndSwap(true, false)
}

type periodic struct {
	stop   chan struct{}
	active atomic.Bool
}

func (h *periodic) Stop() bool {
	if h.active.CompareAndSwap(true, false) {
		close(h.stop)
		return true
	}
	return false
}
