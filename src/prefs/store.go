package prefs

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the preference file inside the data directory.
const FileName = "prefs.yaml"

// Store keeps the current preferences in memory and mirrors every change to
// disk. It is owned by the event loop and is not safe for concurrent use.
type Store struct {
	path    string
	current Preferences
}

// Open loads the preference file at path. A missing file yields defaults. An
// unreadable or corrupt file also yields defaults, together with the error so
// the caller can report it.
func Open(path string) (*Store, error) {
	s := &Store{path: path, current: Defaults()}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return s, fmt.Errorf("read preferences %s: %w", path, err)
	}

	loaded := Defaults()
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return s, fmt.Errorf("parse preferences %s: %w", path, err)
	}
	loaded.Normalize()
	s.current = loaded
	return s, nil
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

// Get returns a copy of the current preferences.
func (s *Store) Get() Preferences {
	p := s.current
	if p.PopupPosition != nil {
		pos := *p.PopupPosition
		p.PopupPosition = &pos
	}
	return p
}

// Update applies fn to a copy, validates it and persists it. On error the
// in-memory preferences are left unchanged.
func (s *Store) Update(fn func(*Preferences)) error {
	next := s.Get()
	fn(&next)
	if err := next.Validate(); err != nil {
		return err
	}
	if err := s.save(next); err != nil {
		// Keep running with the new value; the next successful save catches up.
		slog.Warn("prefs: persist failed", "path", s.path, "error", err)
	}
	s.current = next
	return nil
}

// Set updates a single field by key. Values may arrive as decoded JSON
// (float64, map[string]any) or as typed Go values.
func (s *Store) Set(key string, value any) (Preferences, error) {
	next, err := s.Preview(key, value)
	if err != nil {
		return s.Get(), err
	}
	if err := s.Update(func(p *Preferences) { *p = next }); err != nil {
		return s.Get(), fmt.Errorf("set %s: %w", key, err)
	}
	return s.Get(), nil
}

// Preview returns the preferences Set would store, without storing them.
func (s *Store) Preview(key string, value any) (Preferences, error) {
	next := s.Get()
	if err := apply(&next, key, value); err != nil {
		return next, err
	}
	if err := next.Validate(); err != nil {
		return next, fmt.Errorf("set %s: %w", key, err)
	}
	return next, nil
}

// Reset deletes the preference file and restores the defaults.
func (s *Store) Reset() error {
	s.current = Defaults()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove preferences %s: %w", s.path, err)
	}
	return nil
}

func (s *Store) save(p Preferences) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".prefs-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}
