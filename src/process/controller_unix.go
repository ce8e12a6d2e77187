//go:build !windows

package process

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// configureCommand puts the child in its own process group so the whole tree
// can be signalled.
func configureCommand(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func (controller) Terminate(p *os.Process, exited <-chan struct{}, grace time.Duration) error {
	select {
	case <-exited:
		return nil
	default:
	}

	if err := signalGroup(p.Pid, unix.SIGTERM); err != nil {
		return fmt.Errorf("SIGTERM pid %d: %w", p.Pid, err)
	}
	select {
	case <-exited:
		return nil
	case <-time.After(grace):
	}

	slog.Warn("process did not exit after SIGTERM, killing", "pid", p.Pid, "grace", grace)
	if err := signalGroup(p.Pid, unix.SIGKILL); err != nil {
		return fmt.Errorf("SIGKILL pid %d: %w", p.Pid, err)
	}
	select {
	case <-exited:
		return nil
	case <-time.After(grace):
		return fmt.Errorf("pid %d still running after SIGKILL", p.Pid)
	}
}

func signalGroup(pid int, sig unix.Signal) error {
	err := unix.Kill(-pid, sig)
	if err != nil && !errors.Is(err, unix.ESRCH) {
		err = unix.Kill(pid, sig)
	}
	if errors.Is(err, unix.ESRCH) {
		return nil
	}
	return err
}
