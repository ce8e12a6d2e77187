package eventloop

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func startLoop(t *testing.T, onPanic func(any)) *Loop {
	t.Helper()
	l := New(onPanic)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = l.Run(ctx) }()
	t.Cleanup(cancel)
	return l
}

func TestPostRunsInOrder(t *testing.T) {
	l := startLoop(t, nil)
	var got []int
	for i := 0; i < 10; i++ {
		i := i
		l.Post(func() { got = append(got, i) })
	}
	if err := l.Do(context.Background(), func() {}); err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("Expected closures in post order, got %v", got)
		}
	}
	if len(got) != 10 {
		t.Errorf("Expected 10 closures to run, got %d", len(got))
	}
}

func TestAfterFuncStopPreventsRun(t *testing.T) {
	l := startLoop(t, nil)
	var fired atomic.Bool
	h := l.AfterFunc(50*time.Millisecond, func() { fired.Store(true) })
	if !h.Stop() {
		t.Error("Expected Stop to report a pending timer")
	}
	time.Sleep(100 * time.Millisecond)
	if fired.Load() {
		t.Error("Expected stopped timer not to fire")
	}
}

func TestAfterFuncRunsOnLoop(t *testing.T) {
	l := startLoop(t, nil)
	done := make(chan struct{})
	l.AfterFunc(10*time.Millisecond, func() { close(done) })
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}
}

func TestEveryStops(t *testing.T) {
	l := startLoop(t, nil)
	var ticks atomic.Int32
	h := l.Every(10*time.Millisecond, func() { ticks.Add(1) })
	time.Sleep(80 * time.Millisecond)
	h.Stop()
	_ = l.Do(context.Background(), func() {})
	after := ticks.Load()
	if after == 0 {
		t.Fatal("Expected at least one tick")
	}
	time.Sleep(50 * time.Millisecond)
	_ = l.Do(context.Background(), func() {})
	if ticks.Load() != after {
		t.Errorf("Expected no ticks after Stop, went from %d to %d", after, ticks.Load())
	}
}

func TestPanicIsRecovered(t *testing.T) {
	recovered := make(chan any, 1)
	l := startLoop(t, func(r any) { recovered <- r })
	l.Post(func() { panic("boom") })

	select {
	case r := <-recovered:
		if r != "boom" {
			t.Errorf("Expected recovered value 'boom', got %v", r)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("panic hook not called")
	}
	if err := l.Do(context.Background(), func() {}); err != nil {
		t.Errorf("Expected loop to keep running after panic, got %v", err)
	}
}

func TestPostAfterClose(t *testing.T) {
	l := New(nil)
	l.Close()
	if l.Post(func() {}) {
		t.Error("Expected Post to fail on a closed loop")
	}
	if err := l.Do(context.Background(), func() {}); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}
