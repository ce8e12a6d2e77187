package router

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"blink-reminder/src/messages"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	r := NewRouter()
	defer r.Shutdown()

	a, err := r.Subscribe("tray", 4)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	b, _ := r.Subscribe("camera", 4)

	r.Publish(messages.TrackingChanged{Tracking: true, Strategy: "timer"})

	for name, ch := range map[string]<-chan messages.Event{"tray": a, "camera": b} {
		ev, err := WaitForEvent(ch, messages.TypeTrackingChanged, time.Second)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if tc := ev.(messages.TrackingChanged); !tc.Tracking {
			t.Errorf("%s: Expected Tracking to be true", name)
		}
	}
}

func TestPublishNeverBlocks(t *testing.T) {
	r := NewRouter()
	defer r.Shutdown()

	ch, _ := r.Subscribe("slow", 1)
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			r.Publish(messages.VideoFrame{Base64: "x"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
	if got := r.Dropped("slow"); got != 9 {
		t.Errorf("Expected 9 dropped events, got %d", got)
	}
	if got := DrainChannel(ch); got != 1 {
		t.Errorf("Expected 1 queued event, got %d", got)
	}
}

func TestDuplicateSubscribe(t *testing.T) {
	r := NewRouter()
	defer r.Shutdown()
	if _, err := r.Subscribe("ui", 1); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Subscribe("ui", 1); err == nil {
		t.Error("Expected duplicate subscription to fail")
	}
	r.Unsubscribe("ui")
	if _, err := r.Subscribe("ui", 1); err != nil {
		t.Errorf("Expected resubscribe after Unsubscribe to work, got %v", err)
	}
}

func TestShutdownClosesChannels(t *testing.T) {
	r := NewRouter()
	ch, _ := r.Subscribe("ui", 1)
	r.Shutdown()
	if _, ok := <-ch; ok {
		t.Error("Expected channel closed after Shutdown")
	}
	r.Publish(messages.Quitting{})
	if _, err := r.Subscribe("late", 1); err == nil {
		t.Error("Expected Subscribe after Shutdown to fail")
	}
}

func TestStatsCountsQueuedEvents(t *testing.T) {
	r := NewRouter()
	defer r.Shutdown()
	r.Subscribe("ui", 4)
	r.Subscribe("idle", 4)

	r.Publish(messages.BlinkDetected{})
	r.Publish(messages.BlinkDetected{})

	stats := r.Stats()
	if stats["ui"] != 2 || stats["idle"] != 2 {
		t.Errorf("Expected 2 queued events per subscriber, got %v", stats)
	}
}

func TestMessageLogging(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer slog.SetDefault(prev)

	r := NewRouter()
	defer r.Shutdown()
	r.Subscribe("ui", 4)

	r.Publish(messages.BlinkDetected{})
	if strings.Contains(buf.String(), "router: publish") {
		t.Fatalf("Expected no publish log while disabled, got '%s'", buf.String())
	}

	r.SetMessageLogging(true)
	r.Publish(messages.BlinkDetected{})
	if !strings.Contains(buf.String(), "type="+messages.TypeBlinkDetected) {
		t.Errorf("Expected publish log with event type, got '%s'", buf.String())
	}
}
