package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"blink-reminder/src/config"
	"blink-reminder/src/singleinstance"
)

type stressOptions struct {
	n        int
	port     int
	deadline time.Duration
}

type result struct {
	ok, missing, failed int32
	elapsed             time.Duration
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	opts := &stressOptions{}
	cmd := newRootCmd(opts, os.Stdout)
	return cmd.Execute()
}

func newRootCmd(opts *stressOptions, out io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stress-toggle",
		Short:         "Hammer a resident instance with start/stop/toggle requests",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := stress(*opts, singleinstance.NewClient(opts.port))
			fmt.Fprintf(out, "sent=%d ok=%d no-resident=%d err=%d elapsed=%s\n", opts.n, r.ok, r.missing, r.failed, r.elapsed)
			return finalCheck(*opts, singleinstance.NewClient(opts.port), out)
		},
	}

	cmd.Flags().IntVar(&opts.n, "n", 50, "number of concurrent requests")
	cmd.Flags().IntVar(&opts.port, "port", config.DefaultControlPort, "control port of the resident instance")
	cmd.Flags().DurationVar(&opts.deadline, "deadline", 5*time.Second, "per-request timeout")

	return cmd
}

// verbFor spreads requests over the three tracking verbs.
func verbFor(i int) string {
	switch i % 3 {
	case 0:
		return singleinstance.VerbStart
	case 1:
		return singleinstance.VerbToggle
	default:
		return singleinstance.VerbStop
	}
}

func stress(opts stressOptions, client singleinstance.Client) result {
	var (
		wg sync.WaitGroup
		r  result
	)
	start := time.Now()
	for i := 0; i < opts.n; i++ {
		wg.Add(1)
		go func(verb string) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), opts.deadline)
			defer cancel()
			_, err := client.Send(ctx, verb)
			switch {
			case err == nil:
				atomic.AddInt32(&r.ok, 1)
			case errors.Is(err, singleinstance.ErrNoResident):
				atomic.AddInt32(&r.missing, 1)
			default:
				atomic.AddInt32(&r.failed, 1)
			}
		}(verbFor(i))
	}
	wg.Wait()
	r.elapsed = time.Since(start)
	return r
}

// finalCheck confirms the resident still answers after the burst.
func finalCheck(opts stressOptions, client singleinstance.Client, out io.Writer) error {
	ctx, cancel := context.WithTimeout(context.Background(), opts.deadline)
	defer cancel()
	reply, err := client.Send(ctx, singleinstance.VerbStatus)
	if err != nil {
		return fmt.Errorf("resident unresponsive after stress: %w", err)
	}
	fmt.Fprintf(out, "status=%s\n", reply)
	return nil
}
