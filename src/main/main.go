package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"blink-reminder/src/app"
	"blink-reminder/src/config"
	"blink-reminder/src/detector"
	"blink-reminder/src/eventloop"
	"blink-reminder/src/hotkey"
	"blink-reminder/src/messages"
	"blink-reminder/src/power"
	"blink-reminder/src/process"
	"blink-reminder/src/router"
	"blink-reminder/src/runtimeinit"
	"blink-reminder/src/shutdown"
	"blink-reminder/src/singleinstance"
	"blink-reminder/src/ui"
)

type mainOptions struct {
	detectorPath string
	dataDir      string
	verbose      bool
	resetPrefs   bool
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return runWithArgs(normalizeLegacyArgs(os.Args))
}

func runWithArgs(args []string) error {
	if len(args) == 0 {
		args = []string{"blink-reminder"}
	}
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *mainOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "blink-reminder",
		Short:         "Reminds you to blink and rest your eyes",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResident(*opts)
		},
	}
	cmd.Flags().StringVar(&opts.detectorPath, "detector", "", "Path to the blink detector executable")
	cmd.Flags().StringVar(&opts.dataDir, "data-dir", "", "Directory for preferences, logs and the instance lock")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Debug logging")
	cmd.Flags().BoolVar(&opts.resetPrefs, "reset-prefs", false, "Restore default preferences before starting")
	return cmd
}

// normalizeLegacyArgs maps single-dash long flags to their cobra form.
func normalizeLegacyArgs(args []string) []string {
	if len(args) == 0 {
		return args
	}
	normalized := make([]string, len(args))
	copy(normalized, args)

	long := []string{"detector", "data-dir", "verbose", "reset-prefs"}
	for i := 1; i < len(normalized); i++ {
		arg := normalized[i]
		for _, name := range long {
			if arg == "-"+name || strings.HasPrefix(arg, "-"+name+"=") {
				normalized[i] = "-" + arg
				break
			}
		}
	}
	return normalized
}

func runResident(opts mainOptions) error {
	enableDPIAwareness()
	runtime.LockOSThread()

	rt, err := runtimeinit.Bootstrap(runtimeinit.Options{
		LoadOptions: config.LoadOptions{
			DetectorPathOverride: opts.detectorPath,
			DataDirOverride:      opts.dataDir,
			Verbose:              opts.verbose,
		},
		ResetPrefs:         opts.resetPrefs,
		ShowBlockingErrors: true,
	})
	if err != nil {
		return err
	}
	defer rt.Close()
	cfg := rt.Config

	lock, err := singleinstance.Acquire(cfg.DataDir)
	if errors.Is(err, singleinstance.ErrAlreadyRunning) {
		return forwardToResident(singleinstance.NewClient(cfg.ControlPort), singleinstance.VerbToggle)
	}
	if err != nil {
		return err
	}
	defer lock.Release()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		coord    *shutdown.Coordinator
		panicked atomic.Bool
	)
	loop := eventloop.New(func(recovered any) {
		panicked.Store(true)
		coord.Trigger("panic")
	})
	go func() {
		if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Warn("event loop stopped", "error", err)
		}
	}()

	events := router.NewRouter()
	events.SetMessageLogging(strings.EqualFold(cfg.LogLevel, "debug"))
	uiEvents, err := events.Subscribe(uiSubscriber, 64)
	if err != nil {
		return err
	}

	var core *app.App
	send := func(c messages.Command) {
		loop.Post(func() { core.Handle(c) })
	}
	front := ui.New(send)
	keys := hotkey.New()
	ctrl := process.NewController()

	core = app.New(app.Options{
		Scheduler: loop,
		Post:      loop.Post,
		Store:     rt.Prefs,
		Renderer:  front.Renderer(),
		Launcher: detector.ExecLauncher{
			Spec: process.Spec{
				Name: cfg.DetectorProcessName(),
				Path: cfg.DetectorPath,
				Args: cfg.DetectorArgs,
				Dir:  filepath.Dir(cfg.DetectorPath),
			},
			Controller: ctrl,
			Post:       loop.Post,
		},
		Shortcuts: keys,
		Publish:   events.Publish,
		Quit:      func(reason string) { coord.Trigger(reason) },
	})

	control := singleinstance.NewServer(cfg.ControlPort)
	if err := control.Start(ctx); err != nil {
		slog.Warn("control endpoint unavailable", "error", err)
	}

	var detectorProc detector.Proc
	coord = shutdown.New(shutdown.Options{
		Timeout: cfg.ShutdownTimeout,
		Prepare: func(ctx context.Context) error {
			return loop.Do(ctx, func() { detectorProc = core.Prepare() })
		},
		Steps: []shutdown.Step{
			{Name: "ui", Run: func(context.Context) error { front.Quit(); return nil }},
			{Name: "detector", Run: func(context.Context) error {
				if detectorProc == nil {
					return nil
				}
				return detectorProc.Terminate(process.DefaultGrace)
			}},
			{Name: "hotkey", Run: func(context.Context) error { keys.Close(); return nil }},
			{Name: "control", Run: func(context.Context) error { return control.Close() }},
		},
		Escalate: func(ctx context.Context) error {
			n, err := ctrl.KillByName(ctx, cfg.DetectorProcessName())
			slog.Warn("shutdown: killed by name", "name", cfg.DetectorProcessName(), "count", n)
			front.Quit()
			return err
		},
	})

	sigCtx, stopSignals := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stopSignals()
	go func() {
		<-sigCtx.Done()
		if ctx.Err() == nil {
			coord.Trigger("signal")
		}
	}()

	go power.Run(ctx, func(ev power.Event) {
		loop.Post(func() { core.PowerEvent(ev) })
	}, power.Watchers()...)
	go serveControl(ctx, control, loop.Do, residentStatus{controlTarget: core, events: events})

	uiDone := make(chan struct{})
	go exitWatchdog(coord.Done(), uiDone, uiExitGrace, func() int {
		if panicked.Load() || coord.State() == shutdown.Escalated {
			return 1
		}
		return 0
	}, os.Exit)

	loop.Post(core.Startup)
	front.Run(uiEvents)
	close(uiDone)

	coord.Shutdown("ui closed")
	cancel()
	loop.Close()
	events.Shutdown()

	switch {
	case panicked.Load():
		return fmt.Errorf("recovered panic in event loop; shut down after %s", coord.Reason())
	case coord.State() == shutdown.Escalated:
		return fmt.Errorf("shutdown escalated (reason: %s)", coord.Reason())
	}
	slog.Info("bye", "reason", coord.Reason())
	return nil
}

const uiExitGrace = 2 * time.Second

// exitWatchdog forces the process out when the fyne loop is still running
// grace after shutdown finished, e.g. on a dead display. Closing uiDone
// disarms it.
func exitWatchdog(shutdownDone, uiDone <-chan struct{}, grace time.Duration, code func() int, exit func(int)) {
	select {
	case <-uiDone:
		return
	case <-shutdownDone:
	}
	t := time.NewTimer(grace)
	defer t.Stop()
	select {
	case <-uiDone:
		return
	case <-t.C:
	}
	c := code()
	slog.Error("ui did not exit after shutdown, forcing exit", "code", c)
	exit(c)
}

// forwardToResident hands this launch over to the running instance.
func forwardToResident(client singleinstance.Client, verb string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	reply, err := client.Send(ctx, verb)
	if err != nil {
		return fmt.Errorf("another instance holds the lock but did not answer: %w", err)
	}
	slog.Info("forwarded to resident", "verb", verb, "reply", reply)
	return nil
}

// controlTarget is what control requests act on.
type controlTarget interface {
	Handle(messages.Command)
	Status() app.Status
}

const uiSubscriber = "ui"

// residentStatus adds the UI event channel's health to the core status.
type residentStatus struct {
	controlTarget
	events *router.Router
}

func (r residentStatus) Status() app.Status {
	st := r.controlTarget.Status()
	st.Queued = r.events.Stats()
	st.Dropped = r.events.Dropped(uiSubscriber)
	return st
}

// runOnLoop runs fn on the event loop and waits for it.
type runOnLoop func(ctx context.Context, fn func()) error

func serveControl(ctx context.Context, srv singleinstance.Server, do runOnLoop, target controlTarget) {
	for {
		conn, err := srv.Next(ctx)
		if err != nil {
			return
		}
		reply, err := answer(ctx, conn.Request().Verb, do, target)
		if err != nil {
			_ = conn.RespondError(err.Error())
		} else {
			_ = conn.RespondSuccess(reply)
		}
		_ = conn.Close()
	}
}

func commandForVerb(verb string) (messages.Command, bool) {
	switch verb {
	case singleinstance.VerbStart:
		return messages.StartTracking{}, true
	case singleinstance.VerbStop:
		return messages.StopTracking{}, true
	case singleinstance.VerbToggle:
		return messages.ToggleTracking{}, true
	case singleinstance.VerbQuit:
		return messages.Quit{Reason: "control"}, true
	}
	return nil, false
}

// answer executes one control verb and returns the reply body. Every verb
// except QUIT replies with the resulting status as JSON.
func answer(ctx context.Context, verb string, do runOnLoop, target controlTarget) (string, error) {
	cmd, isCommand := commandForVerb(verb)
	if !isCommand && verb != singleinstance.VerbStatus {
		return "", fmt.Errorf("unknown request %q", verb)
	}

	var st app.Status
	err := do(ctx, func() {
		if isCommand {
			target.Handle(cmd)
		}
		st = target.Status()
	})
	if err != nil {
		return "", err
	}
	if verb == singleinstance.VerbQuit {
		return "bye", nil
	}
	b, err := json.Marshal(st)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
