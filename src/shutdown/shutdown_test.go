package shutdown

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGracefulShutdown(t *testing.T) {
	var prepared, closed, killed atomic.Int32
	c := New(Options{
		Prepare: func(context.Context) error { prepared.Add(1); return nil },
		Steps: []Step{
			{Name: "windows", Run: func(context.Context) error { closed.Add(1); return nil }},
			{Name: "children", Run: func(context.Context) error { closed.Add(1); return nil }},
		},
		Escalate: func(context.Context) error { killed.Add(1); return nil },
	})

	if got := c.Shutdown("test"); got != Exited {
		t.Fatalf("Expected state '%s', got '%s'", Exited, got)
	}
	if prepared.Load() != 1 || closed.Load() != 2 {
		t.Errorf("Expected 1 prepare and 2 steps, got %d and %d", prepared.Load(), closed.Load())
	}
	if killed.Load() != 0 {
		t.Errorf("Expected no escalation, got %d", killed.Load())
	}
	if c.Reason() != "test" {
		t.Errorf("Expected reason 'test', got '%s'", c.Reason())
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	var prepared atomic.Int32
	c := New(Options{
		Prepare: func(context.Context) error {
			prepared.Add(1)
			time.Sleep(20 * time.Millisecond)
			return nil
		},
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Trigger("signal")
			c.Shutdown("tray")
		}()
	}
	wg.Wait()
	<-c.Done()

	if prepared.Load() != 1 {
		t.Errorf("Expected prepare to run once, got %d", prepared.Load())
	}
	if c.State() != Exited {
		t.Errorf("Expected state '%s', got '%s'", Exited, c.State())
	}
	if c.Trigger("again") {
		t.Error("Expected Trigger after shutdown to report false")
	}
}

func TestTimeoutEscalates(t *testing.T) {
	var killed atomic.Int32
	block := make(chan struct{})
	defer close(block)

	c := New(Options{
		Timeout: 50 * time.Millisecond,
		Steps: []Step{{Name: "stuck", Run: func(context.Context) error {
			<-block
			return nil
		}}},
		Escalate: func(context.Context) error { killed.Add(1); return nil },
	})

	start := time.Now()
	if got := c.Shutdown("test"); got != Escalated {
		t.Fatalf("Expected state '%s', got '%s'", Escalated, got)
	}
	if time.Since(start) > 2*time.Second {
		t.Errorf("Expected shutdown to honour its timeout, took %v", time.Since(start))
	}
	if killed.Load() != 1 {
		t.Errorf("Expected 1 escalation, got %d", killed.Load())
	}
}

func TestStepErrorEscalates(t *testing.T) {
	var killed atomic.Int32
	c := New(Options{
		Steps:    []Step{{Name: "children", Run: func(context.Context) error { return errors.New("still alive") }}},
		Escalate: func(context.Context) error { killed.Add(1); return nil },
	})

	if got := c.Shutdown("test"); got != Escalated {
		t.Errorf("Expected state '%s', got '%s'", Escalated, got)
	}
	if killed.Load() != 1 {
		t.Errorf("Expected 1 escalation, got %d", killed.Load())
	}
}

func TestStateStrings(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{Running, "running"},
		{ShuttingDown, "shutting-down"},
		{Exited, "exited"},
		{Escalated, "escalated"},
		{State(42), "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.state.String(); got != tt.want {
				t.Errorf("Expected '%s', got '%s'", tt.want, got)
			}
		})
	}
}
