package detector

import (
	"blink-reminder/src/process"
)

// ExecLauncher starts the detector binary and re-delivers its callbacks
// through Post, normally eventloop.Loop.Post.
type ExecLauncher struct {
	Spec       process.Spec
	Controller process.Controller
	Post       func(func()) bool
}

func (l ExecLauncher) Launch(cb process.Callbacks) (Proc, error) {
	post := l.Post
	wrapped := process.Callbacks{
		OnStdout: func(line []byte) {
			if cb.OnStdout != nil {
				post(func() { cb.OnStdout(line) })
			}
		},
		OnStderr: func(line string) {
			if cb.OnStderr != nil {
				post(func() { cb.OnStderr(line) })
			}
		},
		OnExit: func(err error) {
			if cb.OnExit != nil {
				post(func() { cb.OnExit(err) })
			}
		},
	}

	child, err := process.Start(l.Spec, wrapped, l.Controller)
	if err != nil {
		return nil, err
	}
	return child, nil
}
