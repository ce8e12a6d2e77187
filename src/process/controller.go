package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	ps "github.com/shirou/gopsutil/v4/process"
)

// Controller terminates processes. The platform implementation is returned by
// NewController.
type Controller interface {
	// Terminate asks p to exit, waits up to grace for exited to close and then
	// kills it.
	Terminate(p *os.Process, exited <-chan struct{}, grace time.Duration) error
	// KillByName force-kills every process whose executable name matches one
	// of names, excluding the current process. It returns the kill count.
	KillByName(ctx context.Context, names ...string) (int, error)
}

type controller struct{}

// NewController returns the controller for the running platform.
func NewController() Controller { return controller{} }

func (controller) KillByName(ctx context.Context, names ...string) (int, error) {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		if n = normalizeName(n); n != "" {
			want[n] = true
		}
	}
	if len(want) == 0 {
		return 0, nil
	}

	procs, err := ps.ProcessesWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("list processes: %w", err)
	}

	self := int32(os.Getpid())
	killed := 0
	var errs []error
	for _, p := range procs {
		if p.Pid == self || !matchesName(ctx, p, want) {
			continue
		}
		if err := p.KillWithContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("kill pid %d: %w", p.Pid, err))
			continue
		}
		killed++
	}
	return killed, errors.Join(errs...)
}

func matchesName(ctx context.Context, p *ps.Process, want map[string]bool) bool {
	if name, err := p.NameWithContext(ctx); err == nil && want[normalizeName(name)] {
		return true
	}
	if exe, err := p.ExeWithContext(ctx); err == nil && want[normalizeName(exe)] {
		return true
	}
	return false
}

func normalizeName(n string) string {
	n = strings.TrimSpace(n)
	if n == "" {
		return ""
	}
	n = filepath.Base(strings.ReplaceAll(n, `\`, "/"))
	return strings.ToLower(strings.TrimSuffix(strings.TrimSuffix(n, ".exe"), ".EXE"))
}
