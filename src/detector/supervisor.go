// Package detector supervises the external blink detector process: its
// lifecycle, the camera handshake, bounded camera retries and the
// demultiplexing of its line protocol.
package detector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"blink-reminder/src/process"
	"blink-reminder/src/timer"
)

const (
	MaxRetries = 20
	RetryDelay = 3 * time.Second
	StopGrace  = process.DefaultGrace
)

var (
	ErrNotRunning = errors.New("detector: not running")
	ErrStopping   = errors.New("detector: previous process still stopping")

	retryablePattern = regexp.MustCompile(`(?i)camera|permission|access`)
)

// Proc is a launched detector process.
type Proc interface {
	WriteLine(b []byte) error
	Pid() int
	Terminate(grace time.Duration) error
}

// Launcher starts detector processes. The callbacks it is given must be
// invoked on the supervisor's event loop.
type Launcher interface {
	Launch(cb process.Callbacks) (Proc, error)
}

// Hooks receive demultiplexed detector events. Every field is optional.
type Hooks struct {
	OnBlink       func(at time.Time, b Blink)
	OnCameraError func(msg string, terminal bool)
	OnFaceData    func(raw json.RawMessage)
	OnVideo       func(frame string)
	OnStateChange func(State)
}

// Options configures a Supervisor.
type Options struct {
	Scheduler timer.Scheduler
	Launcher  Launcher
	Hooks     Hooks
	// Active reports whether tracking with the camera is wanted right now.
	// Camera errors are only retried while it returns true.
	Active func() bool
}

// Supervisor owns the single detector process. It is driven from the event
// loop and is not safe for concurrent use.
type Supervisor struct {
	sched    timer.Scheduler
	launcher Launcher
	hooks    Hooks
	active   func() bool

	child       Proc
	gen         uint64
	state       State
	ready       bool
	stopping    bool
	visualizing bool

	retries    int
	exhausted  bool
	retryTimer timer.Handle
	lastBlink  time.Time
}

func New(opts Options) *Supervisor {
	active := opts.Active
	if active == nil {
		active = func() bool { return false }
	}
	return &Supervisor{
		sched:    opts.Scheduler,
		launcher: opts.Launcher,
		hooks:    opts.Hooks,
		active:   active,
	}
}

func (s *Supervisor) State() State { return s.state }

// Ready reports whether the camera is open and delivering frames.
func (s *Supervisor) Ready() bool { return s.ready && s.child != nil }

// Retries returns the current retry count.
func (s *Supervisor) Retries() int { return s.retries }

// LastBlink returns the time of the most recent blink.
func (s *Supervisor) LastBlink() time.Time { return s.lastBlink }

// Pid returns the live process ID, or 0.
func (s *Supervisor) Pid() int {
	if s.child == nil {
		return 0
	}
	return s.child.Pid()
}

// EnsureRunning launches the detector unless a live handle exists. While the
// previous handle is still stopping it returns ErrStopping.
func (s *Supervisor) EnsureRunning() error {
	if s.child != nil {
		if s.stopping {
			return ErrStopping
		}
		return nil
	}

	s.gen++
	gen := s.gen
	child, err := s.launcher.Launch(process.Callbacks{
		OnStdout: func(line []byte) { s.handleLine(gen, line) },
		OnStderr: logStderr,
		OnExit:   func(err error) { s.handleExit(gen, err) },
	})
	if err != nil {
		return fmt.Errorf("launch detector: %w", err)
	}

	s.child = child
	s.stopping = false
	s.ready = false
	s.setState(StateStarting)
	return nil
}

// StartCapture asks the detector to open the camera. It returns false when no
// usable process exists or the write fails.
func (s *Supervisor) StartCapture() bool {
	if err := s.write(Command{StartCamera: true}); err != nil {
		slog.Warn("detector: start capture failed", "error", err)
		return false
	}
	return true
}

// StopCapture releases the camera and cancels any pending retry. The process
// stays warm.
func (s *Supervisor) StopCapture() {
	s.cancelRetry()
	s.ready = false
	if s.state == StateCameraOpen || s.state == StateCameraError {
		s.setState(StateModelsLoaded)
	}
	if err := s.write(Command{StopCamera: true}); err != nil && !errors.Is(err, ErrNotRunning) {
		slog.Warn("detector: stop capture failed", "error", err)
	}
}

// RequestVideo asks the detector to stream frames.
func (s *Supervisor) RequestVideo() bool {
	if err := s.write(Command{RequestVideo: true}); err != nil {
		slog.Debug("detector: request video failed", "error", err)
		return false
	}
	return true
}

// Visualizing reports whether the camera window is receiving frames.
func (s *Supervisor) Visualizing() bool { return s.visualizing }

// SetVisualization controls whether face data and video frames are forwarded.
func (s *Supervisor) SetVisualization(open bool) {
	s.visualizing = open
	if open {
		s.RequestVideo()
	}
}

// ResetRetries clears the retry counter and re-arms automatic retries.
func (s *Supervisor) ResetRetries() {
	s.retries = 0
	s.exhausted = false
}

// Stop terminates the detector process in the background. Until its exit is
// observed EnsureRunning reports ErrStopping.
func (s *Supervisor) Stop() {
	s.cancelRetry()
	s.ready = false
	if s.child == nil || s.stopping {
		return
	}
	s.stopping = true
	s.setState(StateStopping)
	child := s.child
	go func() {
		if err := child.Terminate(StopGrace); err != nil {
			slog.Warn("detector: terminate failed", "pid", child.Pid(), "error", err)
		}
	}()
}

// Detach hands the live process to the caller for a blocking shutdown and
// marks it stopping. It returns nil when nothing is running.
func (s *Supervisor) Detach() Proc {
	s.cancelRetry()
	s.ready = false
	if s.child == nil {
		return nil
	}
	s.stopping = true
	s.setState(StateStopping)
	return s.child
}

func (s *Supervisor) write(cmd Command) error {
	if s.child == nil || s.stopping {
		return ErrNotRunning
	}
	b, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("encode command: %w", err)
	}
	return s.child.WriteLine(b)
}

func (s *Supervisor) handleLine(gen uint64, line []byte) {
	if gen != s.gen {
		return
	}
	ev, err := ParseLine(line)
	if err != nil {
		slog.Debug("detector: ignoring line", "error", err, "line", truncate(string(line), 200))
		return
	}

	switch ev.Kind {
	case KindDebug:
		slog.Debug("detector", "debug", ev.Text)
	case KindStatus:
		s.handleStatus(ev.Text)
	case KindError:
		s.handleError(ev.Text)
	case KindBlink:
		s.lastBlink = s.sched.Now()
		if s.hooks.OnBlink != nil {
			s.hooks.OnBlink(s.lastBlink, ev.Blink)
		}
	case KindFaceData:
		if s.visualizing && s.hooks.OnFaceData != nil {
			s.hooks.OnFaceData(ev.FaceData)
		}
	case KindVideo:
		if s.visualizing && s.hooks.OnVideo != nil {
			s.hooks.OnVideo(ev.Video)
		}
	}
}

func (s *Supervisor) handleStatus(status string) {
	slog.Info("detector status", "status", status)
	switch status {
	case StatusModelsLoaded:
		s.setState(StateModelsLoaded)
		s.writeCaptureConfig()
	case StatusCameraOpened:
		s.ready = true
		s.ResetRetries()
		s.cancelRetry()
		s.setState(StateCameraOpen)
		if s.visualizing {
			s.RequestVideo()
		}
	case StatusCameraReleased, StatusCameraStopped:
		s.ready = false
		if s.state == StateCameraOpen {
			s.setState(StateModelsLoaded)
		}
	}
}

func (s *Supervisor) writeCaptureConfig() {
	for _, cmd := range []Command{
		{TargetFPS: TargetFPS},
		{ProcessingResolution: []int{ProcessingWidth, ProcessingHeight}},
	} {
		if err := s.write(cmd); err != nil {
			slog.Warn("detector: capture config write failed", "error", err)
			return
		}
	}
}

func (s *Supervisor) handleError(msg string) {
	slog.Warn("detector error", "error", msg)
	s.ready = false
	if s.child != nil && !s.stopping {
		s.setState(StateCameraError)
	}
	s.fail(msg, retryablePattern.MatchString(msg))
}

func (s *Supervisor) handleExit(gen uint64, err error) {
	if gen != s.gen {
		return
	}
	intentional := s.stopping
	s.child = nil
	s.stopping = false
	s.ready = false
	s.setState(StateExited)
	if intentional {
		return
	}

	slog.Warn("detector exited unexpectedly", "error", err)
	s.fail("Camera detector stopped unexpectedly", true)
}

// fail reports a camera problem and, when retryable, schedules a bounded
// retry. Nothing happens unless camera tracking is wanted.
func (s *Supervisor) fail(msg string, retryable bool) {
	if !s.active() {
		return
	}
	if !retryable {
		s.emitError(msg, false)
		return
	}
	if s.exhausted {
		return
	}
	if s.retries >= MaxRetries {
		s.exhausted = true
		s.cancelRetry()
		slog.Error("detector: giving up on camera", "retries", s.retries, "last_error", msg)
		s.emitError(fmt.Sprintf("Camera unavailable after %d retries: %s", MaxRetries, msg), true)
		return
	}

	s.retries++
	s.emitError(msg, false)
	s.cancelRetry()
	s.retryTimer = s.sched.AfterFunc(RetryDelay, s.retry)
	slog.Info("detector: camera retry scheduled", "attempt", s.retries, "max", MaxRetries, "delay", RetryDelay)
}

func (s *Supervisor) retry() {
	s.retryTimer = nil
	if !s.active() {
		return
	}
	if err := s.EnsureRunning(); err != nil {
		if errors.Is(err, ErrStopping) {
			s.retryTimer = s.sched.AfterFunc(RetryDelay, s.retry)
			return
		}
		slog.Error("detector: relaunch failed", "error", err)
		s.exhausted = true
		s.emitError(fmt.Sprintf("Could not restart the blink detector: %v", err), true)
		return
	}
	s.StartCapture()
}

func (s *Supervisor) cancelRetry() {
	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}
}

func (s *Supervisor) emitError(msg string, terminal bool) {
	if s.hooks.OnCameraError != nil {
		s.hooks.OnCameraError(msg, terminal)
	}
}

func (s *Supervisor) setState(st State) {
	if s.state == st {
		return
	}
	slog.Debug("detector state", "from", s.state, "to", st)
	s.state = st
	if s.hooks.OnStateChange != nil {
		s.hooks.OnStateChange(st)
	}
}

func logStderr(line string) {
	level, msg := stderrLevel(line)
	if msg == "" {
		return
	}
	slog.Log(context.Background(), level, "detector stderr", "line", msg)
}

var stderrPrefixes = []struct {
	prefix string
	level  slog.Level
}{
	{"[ERROR]", slog.LevelError},
	{"[CRITICAL]", slog.LevelError},
	{"[WARNING]", slog.LevelWarn},
	{"[WARN]", slog.LevelWarn},
	{"[INFO]", slog.LevelInfo},
	{"[DEBUG]", slog.LevelDebug},
}

// stderrLevel maps a raw diagnostic line to a log level.
func stderrLevel(line string) (slog.Level, string) {
	trimmed := strings.TrimSpace(line)
	upper := strings.ToUpper(trimmed)
	for _, p := range stderrPrefixes {
		if strings.HasPrefix(upper, p.prefix) {
			return p.level, strings.TrimSpace(trimmed[len(p.prefix):])
		}
	}
	if strings.HasPrefix(trimmed, "Traceback") || strings.Contains(trimmed, "Error:") {
		return slog.LevelError, trimmed
	}
	return slog.LevelInfo, trimmed
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
