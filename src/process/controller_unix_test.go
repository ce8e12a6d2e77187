//go:build !windows

package process

import (
	"context"
	"testing"
	"time"
)

func TestTerminateEscalatesToKill(t *testing.T) {
	rec := newRecorder()
	child, err := Start(helperSpec("stubborn"), rec.callbacks(), nil)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	expectLine(t, rec.stdout, "stubborn")

	start := time.Now()
	if err := child.Terminate(200 * time.Millisecond); err != nil {
		t.Fatalf("Terminate failed: %v", err)
	}
	if !child.Exited() {
		t.Fatal("Expected stubborn child to be killed")
	}
	if elapsed := time.Since(start); elapsed < 200*time.Millisecond {
		t.Errorf("Expected Terminate to wait for the grace period, took %v", elapsed)
	}
}

func TestKillByNameIgnoresUnknownNames(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	n, err := NewController().KillByName(ctx, "no-such-process-blink-xyz")
	if err != nil {
		t.Fatalf("KillByName failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Expected 0 kills, got %d", n)
	}
}
