package timer

import (
	"testing"
	"time"
)

func TestFakeAfterFuncRunsOnceInOrder(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	var got []string
	f.AfterFunc(2*time.Second, func() { got = append(got, "b") })
	f.AfterFunc(time.Second, func() { got = append(got, "a") })
	f.AfterFunc(2*time.Second, func() { got = append(got, "c") })

	f.Advance(1500 * time.Millisecond)
	if len(got) != 1 || got[0] != "a" {
		t.Fatalf("Expected only 'a' to have fired, got %v", got)
	}

	f.Advance(time.Second)
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected got[%d] to be '%s', got '%s'", i, want[i], got[i])
		}
	}
	if f.Pending() != 0 {
		t.Errorf("Expected no pending callbacks, got %d", f.Pending())
	}
}

func TestFakeEveryAndStop(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	ticks := 0
	h := f.Every(time.Second, func() { ticks++ })

	f.Advance(3500 * time.Millisecond)
	if ticks != 3 {
		t.Fatalf("Expected 3 ticks, got %d", ticks)
	}
	if !h.Stop() {
		t.Error("Expected Stop to report an active ticker")
	}
	if h.Stop() {
		t.Error("Expected second Stop to report false")
	}
	f.Advance(10 * time.Second)
	if ticks != 3 {
		t.Errorf("Expected ticks to stay at 3 after Stop, got %d", ticks)
	}
}

func TestFakeCallbackSchedulesAndStops(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	var later Handle
	fired := false
	f.AfterFunc(time.Second, func() {
		later.Stop()
		f.AfterFunc(time.Second, func() { fired = true })
	})
	later = f.AfterFunc(1500*time.Millisecond, func() { t.Error("stopped callback fired") })

	f.Advance(5 * time.Second)
	if !fired {
		t.Error("Expected callback scheduled from a callback to fire")
	}
	if got := f.Now(); !got.Equal(time.Unix(5, 0)) {
		t.Errorf("Expected clock at 5s, got %v", got)
	}
}

func TestFakeStopAfterFire(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	h := f.AfterFunc(time.Second, func() {})
	f.Advance(time.Second)
	if h.Stop() {
		t.Error("Expected Stop after firing to return false")
	}
	if n := StopAll(h, nil); n != 0 {
		t.Errorf("Expected StopAll to count 0 active handles, got %d", n)
	}
}
