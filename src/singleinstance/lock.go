package singleinstance

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const lockName = "blink-reminder.lock"

var ErrAlreadyRunning = errors.New("singleinstance: another instance holds the lock")

// Lock is the resident's claim on the data directory.
type Lock struct {
	fl *flock.Flock
}

// Acquire takes the instance lock in dir without waiting.
func Acquire(dir string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	fl := flock.New(filepath.Join(dir, lockName))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", fl.Path(), err)
	}
	if !ok {
		return nil, ErrAlreadyRunning
	}
	return &Lock{fl: fl}, nil
}

func (l *Lock) Path() string { return l.fl.Path() }

func (l *Lock) Release() error {
	return l.fl.Unlock()
}
