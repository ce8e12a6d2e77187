// Package shutdown coordinates a single graceful exit with a forced fallback.
package shutdown

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultTimeout  = 5 * time.Second
	escalateTimeout = 3 * time.Second
)

type State int32

const (
	Running State = iota
	ShuttingDown
	Exited
	Escalated
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case ShuttingDown:
		return "shutting-down"
	case Exited:
		return "exited"
	case Escalated:
		return "escalated"
	default:
		return "unknown"
	}
}

// Step is one teardown action run concurrently with the others.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

type Options struct {
	// Timeout bounds the graceful phase. Zero means DefaultTimeout.
	Timeout time.Duration
	// Prepare runs before the teardown steps, typically posted to the event
	// loop to cancel every timer.
	Prepare func(ctx context.Context) error
	Steps   []Step
	// Escalate force-kills whatever survived the graceful phase.
	Escalate func(ctx context.Context) error
}

type Coordinator struct {
	opts   Options
	state  atomic.Int32
	reason atomic.Value
	done   chan struct{}
}

func New(opts Options) *Coordinator {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Coordinator{opts: opts, done: make(chan struct{})}
}

func (c *Coordinator) State() State { return State(c.state.Load()) }

// Done is closed once shutdown has finished, gracefully or not.
func (c *Coordinator) Done() <-chan struct{} { return c.done }

// Reason returns the trigger that won.
func (c *Coordinator) Reason() string {
	r, _ := c.reason.Load().(string)
	return r
}

// Trigger starts shutdown in the background. It reports false when a
// shutdown was already under way.
func (c *Coordinator) Trigger(reason string) bool {
	if !c.begin(reason) {
		return false
	}
	go c.run()
	return true
}

// Shutdown runs shutdown on the calling goroutine and returns the final
// state. Later callers wait for the first one to finish.
func (c *Coordinator) Shutdown(reason string) State {
	if !c.begin(reason) {
		<-c.done
		return c.State()
	}
	c.run()
	return c.State()
}

func (c *Coordinator) begin(reason string) bool {
	if !c.state.CompareAndSwap(int32(Running), int32(ShuttingDown)) {
		slog.Debug("shutdown: already in progress", "reason", reason, "first", c.Reason())
		return false
	}
	c.reason.Store(reason)
	slog.Info("shutdown: starting", "reason", reason, "timeout", c.opts.Timeout)
	return true
}

func (c *Coordinator) run() {
	defer close(c.done)

	ctx, cancel := context.WithTimeout(context.Background(), c.opts.Timeout)
	defer cancel()

	started := time.Now()
	err := c.graceful(ctx)
	if err == nil {
		c.state.Store(int32(Exited))
		slog.Info("shutdown: graceful exit", "took", time.Since(started))
		return
	}

	slog.Warn("shutdown: graceful phase failed, escalating", "error", err)
	c.state.Store(int32(Escalated))
	if c.opts.Escalate == nil {
		return
	}
	ectx, ecancel := context.WithTimeout(context.Background(), escalateTimeout)
	defer ecancel()
	if err := c.opts.Escalate(ectx); err != nil {
		slog.Error("shutdown: escalation failed", "error", err)
	}
}

// graceful returns as soon as ctx expires even when a step is stuck.
func (c *Coordinator) graceful(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() { errc <- c.steps(ctx) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return fmt.Errorf("graceful shutdown: %w", ctx.Err())
	}
}

func (c *Coordinator) steps(ctx context.Context) error {
	if c.opts.Prepare != nil {
		if err := c.opts.Prepare(ctx); err != nil {
			return fmt.Errorf("prepare: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, step := range c.opts.Steps {
		step := step
		g.Go(func() error {
			if err := step.Run(gctx); err != nil {
				return fmt.Errorf("%s: %w", step.Name, err)
			}
			slog.Debug("shutdown: step done", "step", step.Name)
			return nil
		})
	}
	return g.Wait()
}
