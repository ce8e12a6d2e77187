// Package process launches and supervises child processes that speak a
// line-oriented protocol on stdio.
package process

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultWriteTimeout bounds a single stdin write to a hung child.
	DefaultWriteTimeout = 2 * time.Second
	// DefaultGrace is how long Terminate waits between the polite request and
	// the forced kill.
	DefaultGrace = time.Second

	maxLineBytes = 8 << 20
)

var (
	ErrStdinClosed  = errors.New("process: stdin closed")
	ErrWriteTimeout = errors.New("process: stdin write timeout")
	ErrExited       = errors.New("process: exited")
)

// Spec describes how to launch a child.
type Spec struct {
	Name string
	Path string
	Args []string
	Dir  string
	// Env is appended to the parent's environment.
	Env []string
}

// Callbacks receive the child's output. They run on the reader goroutines, so
// implementations hand the data to their own event loop.
type Callbacks struct {
	OnStdout func(line []byte)
	OnStderr func(line string)
	OnExit   func(err error)
}

// Child is a running process with piped stdio.
type Child struct {
	name  string
	cmd   *exec.Cmd
	stdin io.WriteCloser
	ctrl  Controller

	writeMu      sync.Mutex
	writeTimeout time.Duration
	stdinClosed  atomic.Bool

	readers  sync.WaitGroup
	waitDone chan struct{}
}

// Start launches spec. The stdout, stderr and exit callbacks are wired before
// the process starts; OnExit is called exactly once, after both output
// streams are drained.
func Start(spec Spec, cb Callbacks, ctrl Controller) (*Child, error) {
	if spec.Path == "" {
		return nil, fmt.Errorf("process: empty path")
	}
	if ctrl == nil {
		ctrl = NewController()
	}
	name := spec.Name
	if name == "" {
		name = spec.Path
	}

	cmd := exec.Command(spec.Path, spec.Args...)
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	configureCommand(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", name, err)
	}

	c := &Child{
		name:         name,
		cmd:          cmd,
		stdin:        stdin,
		ctrl:         ctrl,
		writeTimeout: DefaultWriteTimeout,
		waitDone:     make(chan struct{}),
	}

	slog.Info("process spawned", "name", name, "pid", cmd.Process.Pid)

	c.readers.Add(2)
	go c.readStdout(stdout, cb.OnStdout)
	go c.readStderr(stderr, cb.OnStderr)
	go c.waitProcess(cb.OnExit)

	return c, nil
}

// Pid returns the operating system process ID.
func (c *Child) Pid() int { return c.cmd.Process.Pid }

// Done is closed once the process has exited and been reaped.
func (c *Child) Done() <-chan struct{} { return c.waitDone }

// Exited reports whether the process has been reaped.
func (c *Child) Exited() bool {
	select {
	case <-c.waitDone:
		return true
	default:
		return false
	}
}

// WriteLine writes b followed by a newline to the child's stdin.
func (c *Child) WriteLine(b []byte) error {
	if c.stdinClosed.Load() {
		return ErrStdinClosed
	}
	if c.Exited() {
		return ErrExited
	}

	buf := make([]byte, 0, len(b)+1)
	buf = append(buf, b...)
	buf = append(buf, '\n')

	writeErr := make(chan error, 1)
	go func() {
		c.writeMu.Lock()
		defer c.writeMu.Unlock()
		_, err := c.stdin.Write(buf)
		writeErr <- err
	}()

	select {
	case err := <-writeErr:
		if err != nil {
			return fmt.Errorf("write to %s: %w", c.name, err)
		}
		return nil
	case <-time.After(c.writeTimeout):
		return ErrWriteTimeout
	case <-c.waitDone:
		return ErrExited
	}
}

// CloseStdin signals end of input to the child.
func (c *Child) CloseStdin() error {
	if !c.stdinClosed.CompareAndSwap(false, true) {
		return nil
	}
	return c.stdin.Close()
}

// Terminate closes stdin, asks the process to exit and kills it if it is
// still running after grace. It blocks until the process is gone or the
// forced kill has been given another grace period.
func (c *Child) Terminate(grace time.Duration) error {
	if c.Exited() {
		return nil
	}
	if grace <= 0 {
		grace = DefaultGrace
	}
	_ = c.CloseStdin()
	if err := c.ctrl.Terminate(c.cmd.Process, c.waitDone, grace); err != nil {
		return fmt.Errorf("terminate %s: %w", c.name, err)
	}
	return nil
}

func (c *Child) readStdout(r io.Reader, onLine func([]byte)) {
	defer c.readers.Done()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		if onLine == nil {
			continue
		}
		line := scanner.Bytes()
		cp := make([]byte, len(line))
		copy(cp, line)
		onLine(cp)
	}
	if err := scanner.Err(); err != nil {
		slog.Error("process stdout reader stopped", "name", c.name, "error", err)
		// Keep draining so the child never blocks on a full pipe.
		_, _ = io.Copy(io.Discard, r)
	}
}

func (c *Child) readStderr(r io.Reader, onLine func(string)) {
	defer c.readers.Done()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		if onLine != nil {
			onLine(scanner.Text())
		}
	}
	if err := scanner.Err(); err != nil {
		_, _ = io.Copy(io.Discard, r)
	}
}

// waitProcess reaps the child once both pipes hit EOF, so no zombie is left
// and Wait is never called before the reads complete.
func (c *Child) waitProcess(onExit func(error)) {
	c.readers.Wait()
	err := c.cmd.Wait()
	close(c.waitDone)

	if err != nil {
		slog.Info("process exited", "name", c.name, "pid", c.cmd.Process.Pid, "error", err)
	} else {
		slog.Info("process exited", "name", c.name, "pid", c.cmd.Process.Pid)
	}
	if onExit != nil {
		onExit(err)
	}
}
