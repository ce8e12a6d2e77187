package timer

import (
	"sync"
	"time"
)

// Fake is a manually advanced clock. Callbacks run synchronously on the
// goroutine that calls Advance, in due-time order; callbacks due at the same
// instant run in registration order.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	seq     uint64
	entries []*fakeEntry
}

type fakeEntry struct {
	fake   *Fake
	at     time.Time
	period time.Duration
	fn     func()
	seq    uint64
	done   bool
}

// NewFake returns a Fake clock starting at start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) AfterFunc(d time.Duration, fn func()) Handle {
	return f.add(d, 0, fn)
}

func (f *Fake) Every(d time.Duration, fn func()) Handle {
	if d <= 0 {
		d = time.Millisecond
	}
	return f.add(d, d, fn)
}

func (f *Fake) add(d, period time.Duration, fn func()) *fakeEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d < 0 {
		d = 0
	}
	f.seq++
	e := &fakeEntry{fake: f, at: f.now.Add(d), period: period, fn: fn, seq: f.seq}
	f.entries = append(f.entries, e)
	return e
}

func (e *fakeEntry) Stop() bool {
	e.fake.mu.Lock()
	defer e.fake.mu.Unlock()
	if e.done {
		return false
	}
	e.done = true
	e.fake.prune()
	return true
}

// prune drops finished entries. Callers hold mu.
func (f *Fake) prune() {
	live := f.entries[:0]
	for _, e := range f.entries {
		if !e.done {
			live = append(live, e)
		}
	}
	for i := len(live); i < len(f.entries); i++ {
		f.entries[i] = nil
	}
	f.entries = live
}

// Advance moves the clock forward by d, running every callback that becomes
// due. Callbacks may schedule or stop other callbacks.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	f.mu.Unlock()

	for {
		f.mu.Lock()
		next := f.nextDue(target)
		if next == nil {
			f.now = target
			f.mu.Unlock()
			return
		}
		f.now = next.at
		if next.period > 0 {
			next.at = next.at.Add(next.period)
		} else {
			next.done = true
			f.prune()
		}
		fn := next.fn
		f.mu.Unlock()

		fn()
	}
}

func (f *Fake) nextDue(target time.Time) *fakeEntry {
	var next *fakeEntry
	for _, e := range f.entries {
		if e.done || e.at.After(target) {
			continue
		}
		if next == nil || e.at.Before(next.at) || (e.at.Equal(next.at) && e.seq < next.seq) {
			next = e
		}
	}
	return next
}

// Pending returns the number of scheduled callbacks that have not fired
// (one-shot) or have not been stopped (periodic).
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.entries {
		if !e.done {
			n++
		}
	}
	return n
}
