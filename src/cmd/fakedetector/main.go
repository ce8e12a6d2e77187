// Command fakedetector speaks the blink detector's stdio protocol without a
// camera. It is used for manual runs and supervisor testing.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"blink-reminder/src/detector"
)

type fakeOptions struct {
	blinkEvery time.Duration
	loadDelay  time.Duration
	failAfter  time.Duration
	cameraErr  string
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	opts := &fakeOptions{}
	cmd := newRootCmd(opts)
	return cmd.Execute()
}

func newRootCmd(opts *fakeOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "fakedetector",
		Short:         "Scripted blink detector speaking line-JSON on stdio",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, *opts, os.Stdin, os.Stdout)
		},
	}

	cmd.Flags().DurationVar(&opts.blinkEvery, "blink-every", 4*time.Second, "interval between reported blinks (0 disables)")
	cmd.Flags().DurationVar(&opts.loadDelay, "load-delay", 500*time.Millisecond, "delay before models are reported loaded")
	cmd.Flags().DurationVar(&opts.failAfter, "fail-after", 0, "exit with status 1 after this long (0 disables)")
	cmd.Flags().StringVar(&opts.cameraErr, "camera-error", "", "report this error instead of opening the camera")

	return cmd
}

// fake is the detector state machine. It writes one JSON object per line.
type fake struct {
	opts fakeOptions

	mu        sync.Mutex
	out       io.Writer
	camera    bool
	video     bool
	fps       int
	blinks    int
	lastBlink time.Time
}

func newFake(opts fakeOptions, out io.Writer) *fake {
	return &fake{opts: opts, out: out, fps: detector.TargetFPS}
}

func (f *fake) emit(v map[string]any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	f.out.Write(append(b, '\n'))
}

func (f *fake) status(s string) { f.emit(map[string]any{"status": s}) }

func (f *fake) boot() { f.status(detector.StatusStandby) }

func (f *fake) loaded() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status(detector.StatusModelsLoaded)
}

// handle applies one stdin command.
func (f *fake) handle(line []byte, now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var cmd detector.Command
	if err := json.Unmarshal(line, &cmd); err != nil {
		f.emit(map[string]any{"error": fmt.Sprintf("Invalid command: %v", err)})
		return
	}
	switch {
	case cmd.StartCamera:
		if f.opts.cameraErr != "" {
			f.emit(map[string]any{"error": f.opts.cameraErr})
			return
		}
		f.camera = true
		f.lastBlink = now
		f.status(detector.StatusCameraOpened)
		f.status(detector.StatusCameraStarted)
	case cmd.StopCamera:
		if f.camera {
			f.camera = false
			f.video = false
			f.status(detector.StatusCameraReleased)
			f.status(detector.StatusCameraStopped)
		}
	case cmd.RequestVideo:
		f.video = true
	case cmd.TargetFPS > 0:
		f.fps = cmd.TargetFPS
		f.emit(map[string]any{"debug": fmt.Sprintf("target fps set to %d", cmd.TargetFPS)})
	case len(cmd.ProcessingResolution) == 2:
		f.emit(map[string]any{"debug": fmt.Sprintf("processing resolution %dx%d", cmd.ProcessingResolution[0], cmd.ProcessingResolution[1])})
	}
}

// frame reports what a camera frame at now would produce.
func (f *fake) frame(now time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.camera {
		return
	}

	if f.opts.blinkEvery > 0 && now.Sub(f.lastBlink) >= f.opts.blinkEvery {
		f.lastBlink = now
		f.blinks++
		f.emit(map[string]any{
			"blink":           true,
			"ear":             0.18,
			"baseline":        0.3,
			"drop_percentage": 40.0,
			"duration":        0.12,
			"time":            float64(now.UnixMilli()) / 1000,
		})
	}

	if f.video {
		f.emit(map[string]any{"faceData": map[string]any{
			"faceDetected": true,
			"ear":          0.3,
			"blinkCount":   f.blinks,
		}})
		if frame, err := placeholderFrame(); err == nil {
			f.emit(map[string]any{"videoStream": frame})
		}
	}
}

func (f *fake) interval() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fps <= 0 {
		return time.Second
	}
	return time.Second / time.Duration(f.fps)
}

// placeholderFrame returns a small grey JPEG as a data URL.
func placeholderFrame() (string, error) {
	img := image.NewGray(image.Rect(0, 0, detector.ProcessingWidth/4, detector.ProcessingHeight/4))
	for i := range img.Pix {
		img.Pix[i] = 96
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 50}); err != nil {
		return "", err
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func serve(ctx context.Context, opts fakeOptions, in io.Reader, out io.Writer) error {
	f := newFake(opts, out)
	f.boot()

	lines := make(chan []byte)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			lines <- append([]byte(nil), sc.Bytes()...)
		}
	}()

	var fail <-chan time.Time
	if opts.failAfter > 0 {
		fail = time.After(opts.failAfter)
	}
	load := time.After(opts.loadDelay)
	tick := time.NewTimer(f.interval())
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-fail:
			return fmt.Errorf("simulated crash after %s", opts.failAfter)
		case <-load:
			f.loaded()
		case line, ok := <-lines:
			if !ok {
				// Parent closed stdin.
				return nil
			}
			f.handle(line, time.Now())
		case now := <-tick.C:
			f.frame(now)
			tick.Reset(f.interval())
		}
	}
}
