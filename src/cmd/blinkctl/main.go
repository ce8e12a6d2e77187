package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"blink-reminder/src/app"
	"blink-reminder/src/config"
	"blink-reminder/src/singleinstance"
)

type ctlOptions struct {
	port    int
	timeout time.Duration
	json    bool
}

type dialFunc func(port int) singleinstance.Client

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	opts := &ctlOptions{}
	cmd := newRootCmd(opts, singleinstance.NewClient, os.Stdout)
	cmd.SetArgs(os.Args[1:])
	return cmd.Execute()
}

func newRootCmd(opts *ctlOptions, dial dialFunc, out io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "blinkctl",
		Short:         "Control a running blink-reminder",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().IntVar(&opts.port, "port", config.DefaultControlPort, "Control port of the resident instance")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 3*time.Second, "Request timeout")
	cmd.PersistentFlags().BoolVar(&opts.json, "json", false, "Print the raw JSON reply")

	verbs := []struct {
		verb  string
		short string
	}{
		{singleinstance.VerbStart, "Start blink reminders"},
		{singleinstance.VerbStop, "Stop blink reminders"},
		{singleinstance.VerbToggle, "Toggle blink reminders"},
		{singleinstance.VerbStatus, "Show tracking status"},
		{singleinstance.VerbQuit, "Quit the resident instance"},
	}
	for _, v := range verbs {
		verb := v.verb
		cmd.AddCommand(&cobra.Command{
			Use:   strings.ToLower(verb),
			Short: v.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return send(*opts, dial, verb, out)
			},
		})
	}
	return cmd
}

func send(opts ctlOptions, dial dialFunc, verb string, out io.Writer) error {
	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	reply, err := dial(opts.port).Send(ctx, verb)
	if err != nil {
		return err
	}
	if opts.json || verb == singleinstance.VerbQuit {
		fmt.Fprintln(out, reply)
		return nil
	}

	var st app.Status
	if err := json.Unmarshal([]byte(reply), &st); err != nil {
		fmt.Fprintln(out, reply)
		return nil
	}
	fmt.Fprint(out, formatStatus(st))
	return nil
}

func formatStatus(st app.Status) string {
	var b strings.Builder
	if st.Tracking {
		fmt.Fprintf(&b, "tracking:  on (%s)\n", st.Strategy)
	} else {
		b.WriteString("tracking:  off\n")
	}
	fmt.Fprintf(&b, "detector:  %s", st.Detector)
	if st.Retries > 0 {
		fmt.Fprintf(&b, " (retries %d)", st.Retries)
	}
	b.WriteString("\n")
	exercises := "off"
	if st.Exercises {
		exercises = "on"
	}
	fmt.Fprintf(&b, "exercises: %s\n", exercises)
	if st.Shortcut != "" {
		fmt.Fprintf(&b, "shortcut:  %s\n", st.Shortcut)
	}
	return b.String()
}
