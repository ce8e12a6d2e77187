// Package hotkey listens for one system-wide key combination. The binding can
// be replaced at any time; the underlying gohook listener starts once.
package hotkey

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"

	gohook "github.com/robotn/gohook"
)

var ErrNoKeys = errors.New("hotkey: no keys in accelerator")

type key struct {
	name     string
	keycodes []uint16
	rawcodes []uint16
}

func (k key) matches(ev gohook.Event) bool {
	for _, c := range k.keycodes {
		if ev.Keycode == c {
			return true
		}
	}
	if runtime.GOOS != "windows" {
		return false
	}
	for _, c := range k.rawcodes {
		if ev.Rawcode == c {
			return true
		}
	}
	return false
}

type binding struct {
	accel   string
	keys    []key
	pressed []bool
	fire    func()
}

// Listener owns the process-wide keyboard hook.
type Listener struct {
	mu      sync.Mutex
	current *binding
	started bool
	start   func() chan gohook.Event
	end     func()
}

func New() *Listener {
	return &Listener{start: gohook.Start, end: gohook.End}
}

// Register replaces any previous binding with accel. fire is called from the
// hook goroutine and must not block.
func (l *Listener) Register(accel string, fire func()) error {
	keys, err := Parse(accel)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.current = &binding{accel: accel, keys: keys, pressed: make([]bool, len(keys)), fire: fire}
	if !l.started {
		ch := l.start()
		if ch == nil {
			l.current = nil
			return fmt.Errorf("hotkey: keyboard hook unavailable")
		}
		l.started = true
		go l.pump(ch)
	}
	slog.Info("hotkey: registered", "accelerator", accel)
	return nil
}

// Unregister drops the binding but keeps the hook running for a later
// Register.
func (l *Listener) Unregister() {
	l.mu.Lock()
	l.current = nil
	l.mu.Unlock()
}

// Close stops the hook. The Listener cannot be reused.
func (l *Listener) Close() {
	l.mu.Lock()
	started := l.started
	l.current = nil
	l.started = false
	l.mu.Unlock()
	if started {
		l.end()
	}
}

func (l *Listener) pump(events chan gohook.Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("hotkey: listener panic", "panic", r)
		}
	}()
	for ev := range events {
		l.handle(ev)
	}
	slog.Debug("hotkey: event channel closed")
}

func (l *Listener) handle(ev gohook.Event) {
	var down bool
	switch ev.Kind {
	case gohook.KeyDown, gohook.KeyHold:
		down = true
	case gohook.KeyUp:
	default:
		return
	}

	l.mu.Lock()
	b := l.current
	if b == nil {
		l.mu.Unlock()
		return
	}
	hit := false
	for i, k := range b.keys {
		if k.matches(ev) {
			b.pressed[i] = down
			hit = true
		}
	}
	if !hit || !down {
		l.mu.Unlock()
		return
	}
	for _, p := range b.pressed {
		if !p {
			l.mu.Unlock()
			return
		}
	}
	for i := range b.pressed {
		b.pressed[i] = false
	}
	fire := b.fire
	l.mu.Unlock()

	slog.Debug("hotkey: combination pressed", "accelerator", b.accel)
	if fire != nil {
		fire()
	}
}

// Parse resolves an accelerator such as "CommandOrControl+Alt+B".
func Parse(accel string) ([]key, error) {
	names := parseAccelerator(accel)
	if len(names) == 0 {
		return nil, ErrNoKeys
	}
	keys := make([]key, 0, len(names))
	for _, name := range names {
		k := key{name: name, keycodes: keycodes(name), rawcodes: keyNameToRawcodes(name)}
		if len(k.keycodes) == 0 && len(k.rawcodes) == 0 {
			return nil, fmt.Errorf("hotkey: unknown key %q in %q", name, accel)
		}
		keys = append(keys, k)
	}
	return keys, nil
}

func parseAccelerator(accel string) []string {
	var names []string
	for _, part := range strings.Split(strings.ToLower(accel), "+") {
		part = strings.TrimSpace(part)
		switch part {
		case "":
			continue
		case "commandorcontrol", "cmdorctrl":
			if runtime.GOOS == "darwin" {
				names = append(names, "cmd")
			} else {
				names = append(names, "ctrl")
			}
		case "control", "ctrl":
			names = append(names, "ctrl")
		case "alt", "option":
			names = append(names, "alt")
		case "shift":
			names = append(names, "shift")
		case "win", "cmd", "command", "super", "meta":
			names = append(names, "cmd")
		case "return":
			names = append(names, "enter")
		case "escape":
			names = append(names, "esc")
		default:
			names = append(names, part)
		}
	}
	return names
}

func keycodes(name string) []uint16 {
	var codes []uint16
	if c, ok := gohook.Keycode[name]; ok {
		codes = append(codes, c)
	}
	switch name {
	case "ctrl", "alt", "shift", "cmd":
		if c, ok := gohook.Keycode["r"+name]; ok {
			codes = append(codes, c)
		}
	}
	return codes
}

// keyNameToRawcodes maps a key name to Windows virtual key codes.
func keyNameToRawcodes(name string) []uint16 {
	switch name {
	case "ctrl":
		return []uint16{162, 163}
	case "alt":
		return []uint16{164, 165}
	case "shift":
		return []uint16{160, 161}
	case "cmd":
		return []uint16{91, 92}
	case "space":
		return []uint16{32}
	case "enter":
		return []uint16{13}
	case "esc":
		return []uint16{27}
	case "tab":
		return []uint16{9}
	case "backspace":
		return []uint16{8}
	case "delete", "del":
		return []uint16{46}
	case "insert", "ins":
		return []uint16{45}
	case "home":
		return []uint16{36}
	case "end":
		return []uint16{35}
	case "pageup", "pgup":
		return []uint16{33}
	case "pagedown", "pgdn":
		return []uint16{34}
	case "left":
		return []uint16{37}
	case "up":
		return []uint16{38}
	case "right":
		return []uint16{39}
	case "down":
		return []uint16{40}
	}

	if len(name) == 1 {
		c := name[0]
		switch {
		case c >= 'a' && c <= 'z':
			return []uint16{uint16('A' + c - 'a')}
		case c >= '0' && c <= '9':
			return []uint16{uint16(c)}
		}
	}
	var n int
	if _, err := fmt.Sscanf(name, "f%d", &n); err == nil && n >= 1 && n <= 24 && name == fmt.Sprintf("f%d", n) {
		return []uint16{uint16(111 + n)}
	}
	return nil
}
