package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"blink-reminder/src/detector"
)

func parsed(t *testing.T, out *bytes.Buffer) []detector.Event {
	t.Helper()
	var evs []detector.Event
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line == "" {
			continue
		}
		ev, err := detector.ParseLine([]byte(line))
		if err != nil {
			t.Fatalf("Line %q does not parse: %v", line, err)
		}
		evs = append(evs, ev)
	}
	out.Reset()
	return evs
}

func TestStartAndStopCamera(t *testing.T) {
	var out bytes.Buffer
	f := newFake(fakeOptions{blinkEvery: time.Second}, &out)
	now := time.Now()

	f.handle([]byte(`{"start_camera":true}`), now)
	evs := parsed(t, &out)
	if len(evs) != 2 || evs[0].Text != detector.StatusCameraOpened || evs[1].Text != detector.StatusCameraStarted {
		t.Fatalf("Expected camera opened and started, got %+v", evs)
	}

	f.handle([]byte(`{"stop_camera":true}`), now)
	evs = parsed(t, &out)
	if len(evs) != 2 || evs[0].Text != detector.StatusCameraReleased {
		t.Fatalf("Expected camera released, got %+v", evs)
	}

	f.handle([]byte(`{"stop_camera":true}`), now)
	if out.Len() != 0 {
		t.Errorf("Expected no output for a second stop, got '%s'", out.String())
	}
}

func TestBlinkCadence(t *testing.T) {
	var out bytes.Buffer
	f := newFake(fakeOptions{blinkEvery: time.Second}, &out)
	now := time.Now()

	f.frame(now)
	if out.Len() != 0 {
		t.Fatal("Expected no frames with the camera closed")
	}

	f.handle([]byte(`{"start_camera":true}`), now)
	parsed(t, &out)

	f.frame(now.Add(500 * time.Millisecond))
	if out.Len() != 0 {
		t.Fatalf("Expected no blink before the interval, got '%s'", out.String())
	}
	f.frame(now.Add(time.Second))
	evs := parsed(t, &out)
	if len(evs) != 1 || evs[0].Kind != detector.KindBlink {
		t.Fatalf("Expected one blink, got %+v", evs)
	}
	if evs[0].Blink.DropPercentage != 40 {
		t.Errorf("Expected drop percentage 40, got %v", evs[0].Blink.DropPercentage)
	}
}

func TestVideoFrames(t *testing.T) {
	var out bytes.Buffer
	f := newFake(fakeOptions{}, &out)
	now := time.Now()
	f.handle([]byte(`{"start_camera":true}`), now)
	f.handle([]byte(`{"request_video":true}`), now)
	parsed(t, &out)

	f.frame(now)
	evs := parsed(t, &out)
	if len(evs) != 2 || evs[0].Kind != detector.KindFaceData || evs[1].Kind != detector.KindVideo {
		t.Fatalf("Expected face data then video, got %+v", evs)
	}
	if !strings.HasPrefix(evs[1].Video, "data:image/jpeg;base64,") {
		t.Errorf("Expected a JPEG data URL, got '%.40s'", evs[1].Video)
	}
}

func TestCaptureSettingsAndErrors(t *testing.T) {
	var out bytes.Buffer
	f := newFake(fakeOptions{cameraErr: "Could not open camera"}, &out)
	now := time.Now()

	f.handle([]byte(`{"target_fps":5}`), now)
	if f.interval() != 200*time.Millisecond {
		t.Errorf("Expected 200ms frame interval, got %v", f.interval())
	}
	f.handle([]byte(`{"start_camera":true}`), now)
	f.handle([]byte(`not json`), now)
	evs := parsed(t, &out)
	if len(evs) != 3 || evs[1].Kind != detector.KindError || evs[1].Text != "Could not open camera" || evs[2].Kind != detector.KindError {
		t.Fatalf("Unexpected events %+v", evs)
	}
}

func TestServeBootsAndExitsOnEOF(t *testing.T) {
	in, w := io.Pipe()
	var out syncBuffer
	done := make(chan error, 1)
	go func() {
		done <- serve(context.Background(), fakeOptions{loadDelay: 10 * time.Millisecond}, in, &out)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(out.String(), detector.StatusModelsLoaded) {
		if time.Now().After(deadline) {
			t.Fatalf("Expected models loaded, got '%s'", out.String())
		}
		time.Sleep(5 * time.Millisecond)
	}
	w.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Expected clean exit, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not return after stdin closed")
	}
	if !strings.HasPrefix(out.String(), `{"status":"`+detector.StatusStandby) {
		t.Errorf("Expected standby first, got '%s'", out.String())
	}
}

func TestServeFailAfter(t *testing.T) {
	in, _ := io.Pipe()
	err := serve(context.Background(), fakeOptions{loadDelay: time.Hour, failAfter: 10 * time.Millisecond}, in, io.Discard)
	if err == nil {
		t.Error("Expected simulated crash error")
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
