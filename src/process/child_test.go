package process

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"testing"
	"time"
)

const helperEnv = "BLINK_WANT_HELPER_PROCESS"

// TestHelperProcess is not a real test; it is re-executed as the child.
func TestHelperProcess(t *testing.T) {
	if os.Getenv(helperEnv) != "1" {
		return
	}
	mode := os.Args[len(os.Args)-1]
	fmt.Fprintln(os.Stderr, "[INFO] helper ready")

	if mode == "stubborn" {
		signal.Ignore(syscall.SIGTERM)
		fmt.Println("stubborn")
		for {
			time.Sleep(time.Hour)
		}
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "exit" {
			os.Exit(3)
		}
		fmt.Println("echo:" + line)
	}
	os.Exit(0)
}

func helperSpec(mode string) Spec {
	return Spec{
		Name: "helper",
		Path: os.Args[0],
		Args: []string{"-test.run=TestHelperProcess", "--", mode},
		Env:  []string{helperEnv + "=1"},
	}
}

type recorder struct {
	stdout chan string
	stderr chan string
	exit   chan error
}

func newRecorder() *recorder {
	return &recorder{
		stdout: make(chan string, 16),
		stderr: make(chan string, 16),
		exit:   make(chan error, 1),
	}
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnStdout: func(line []byte) { r.stdout <- string(line) },
		OnStderr: func(line string) { r.stderr <- line },
		OnExit:   func(err error) { r.exit <- err },
	}
}

func expectLine(t *testing.T, ch <-chan string, want string) {
	t.Helper()
	select {
	case got := <-ch:
		if got != want {
			t.Fatalf("Expected line '%s', got '%s'", want, got)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for '%s'", want)
	}
}

func TestChildEchoAndExitCode(t *testing.T) {
	rec := newRecorder()
	child, err := Start(helperSpec("echo"), rec.callbacks(), nil)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if child.Pid() <= 0 {
		t.Errorf("Expected a pid, got %d", child.Pid())
	}

	expectLine(t, rec.stderr, "[INFO] helper ready")
	if err := child.WriteLine([]byte(`{"start_camera":true}`)); err != nil {
		t.Fatalf("WriteLine failed: %v", err)
	}
	expectLine(t, rec.stdout, `echo:{"start_camera":true}`)

	if err := child.WriteLine([]byte("exit")); err != nil {
		t.Fatalf("WriteLine failed: %v", err)
	}
	select {
	case err := <-rec.exit:
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) || exitErr.ExitCode() != 3 {
			t.Errorf("Expected exit code 3, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("exit callback not called")
	}
	if !child.Exited() {
		t.Error("Expected Exited to be true after the exit callback")
	}
	if err := child.WriteLine([]byte("late")); err == nil {
		t.Error("Expected WriteLine after exit to fail")
	}
}

func TestChildTerminateClosesStdin(t *testing.T) {
	rec := newRecorder()
	child, err := Start(helperSpec("echo"), rec.callbacks(), nil)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	expectLine(t, rec.stderr, "[INFO] helper ready")

	if err := child.Terminate(2 * time.Second); err != nil {
		t.Fatalf("Terminate failed: %v", err)
	}
	select {
	case <-child.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("child still running after Terminate")
	}
	if !errors.Is(child.WriteLine([]byte("x")), ErrStdinClosed) {
		t.Error("Expected ErrStdinClosed after Terminate")
	}
}

func TestStartMissingBinary(t *testing.T) {
	_, err := Start(Spec{Path: "/nonexistent/blink_detector"}, Callbacks{}, nil)
	if err == nil {
		t.Fatal("Expected Start to fail for a missing binary")
	}
	if !strings.Contains(err.Error(), "failed to start") {
		t.Errorf("Expected wrapped start error, got %v", err)
	}
	if _, err := Start(Spec{}, Callbacks{}, nil); err == nil {
		t.Error("Expected Start to reject an empty path")
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"blink_detector", "blink_detector"},
		{"/opt/app/blink_detector", "blink_detector"},
		{`C:\Program Files\Blink\blink_detector.exe`, "blink_detector"},
		{"Blink_Detector.EXE", "blink_detector"},
		{"  ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := normalizeName(tt.in); got != tt.want {
				t.Errorf("Expected normalizeName(%q) to be '%s', got '%s'", tt.in, tt.want, got)
			}
		})
	}
}
