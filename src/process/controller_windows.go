//go:build windows

package process

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sys/windows"
)

// configureCommand keeps the child from opening a console window.
func configureCommand(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: windows.CREATE_NO_WINDOW,
	}
}

func (controller) Terminate(p *os.Process, exited <-chan struct{}, grace time.Duration) error {
	select {
	case <-exited:
		return nil
	default:
	}

	// taskkill without /F posts WM_CLOSE to the tree, the closest thing to SIGTERM.
	polite := exec.Command("taskkill", "/PID", strconv.Itoa(p.Pid), "/T")
	configureCommand(polite)
	if err := polite.Run(); err != nil {
		slog.Debug("taskkill request failed", "pid", p.Pid, "error", err)
	}
	select {
	case <-exited:
		return nil
	case <-time.After(grace):
	}

	slog.Warn("process did not exit after close request, terminating", "pid", p.Pid, "grace", grace)
	h, err := windows.OpenProcess(windows.PROCESS_TERMINATE, false, uint32(p.Pid))
	if err != nil {
		return fmt.Errorf("open pid %d: %w", p.Pid, err)
	}
	defer windows.CloseHandle(h)
	if err := windows.TerminateProcess(h, 1); err != nil {
		return fmt.Errorf("TerminateProcess pid %d: %w", p.Pid, err)
	}
	select {
	case <-exited:
		return nil
	case <-time.After(grace):
		return fmt.Errorf("pid %d still running after TerminateProcess", p.Pid)
	}
}
