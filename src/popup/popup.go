// Package popup manages the lifecycle of transient reminder surfaces: one per
// category, auto-dismissed, with stale dismiss timers unable to close a newer
// popup.
package popup

import (
	"log/slog"
	"time"

	"blink-reminder/src/prefs"
	"blink-reminder/src/timer"
)

const (
	ReminderDismiss = 2500 * time.Millisecond
	ExerciseDismiss = 30 * time.Second

	StartingMessage = "Starting camera..."
	StoppedMessage  = "Reminders stopped"
	ExerciseMessage = "Time for an eye exercise: look at something 20 feet away for 20 seconds"
)

// Category groups popups that replace each other.
type Category int

const (
	CategoryReminder Category = iota
	CategoryExercise
	numCategories
)

func (c Category) String() string {
	switch c {
	case CategoryReminder:
		return "reminder"
	case CategoryExercise:
		return "exercise"
	default:
		return "unknown"
	}
}

// Kind is what a popup shows.
type Kind int

const (
	KindBlink Kind = iota
	KindStarting
	KindStopped
	KindExercise
)

func (k Kind) String() string {
	switch k {
	case KindBlink:
		return "blink"
	case KindStarting:
		return "starting"
	case KindStopped:
		return "stopped"
	case KindExercise:
		return "exercise"
	default:
		return "unknown"
	}
}

// Category returns the singleton slot the kind occupies.
func (k Kind) Category() Category {
	if k == KindExercise {
		return CategoryExercise
	}
	return CategoryReminder
}

// ID identifies one shown popup. IDs are never reused.
type ID uint64

// Appearance is read from the preferences when a popup is created.
type Appearance struct {
	Message    string
	Position   *prefs.Point
	Size       prefs.Size
	Colors     prefs.Colors
	DarkMode   bool
	CameraMode bool
	Sound      bool
}

// AppearanceFrom builds an Appearance from preferences.
func AppearanceFrom(p prefs.Preferences) Appearance {
	return Appearance{
		Message:    p.PopupMessage,
		Position:   p.PopupPosition,
		Size:       p.PopupSize,
		Colors:     p.PopupColors,
		DarkMode:   p.DarkMode,
		CameraMode: p.CameraEnabled,
		Sound:      p.SoundEnabled,
	}
}

// Request describes a surface to render.
type Request struct {
	ID         ID
	Kind       Kind
	Message    string
	Appearance Appearance
	FullScreen bool
}

// Surface is an open popup window.
type Surface interface {
	Update(Request)
	Close()
}

// Renderer creates surfaces. Implementations must not block the caller.
type Renderer interface {
	Open(Request) (Surface, error)
}

type slot struct {
	id      ID
	kind    Kind
	req     Request
	surface Surface
	dismiss timer.Handle
}

// Manager owns every open popup. It runs on the event loop.
type Manager struct {
	sched      timer.Scheduler
	renderer   Renderer
	appearance func() Appearance
	lastID     ID
	slots      [numCategories]*slot
}

func NewManager(sched timer.Scheduler, renderer Renderer, appearance func() Appearance) *Manager {
	if appearance == nil {
		appearance = func() Appearance { return AppearanceFrom(prefs.Defaults()) }
	}
	return &Manager{sched: sched, renderer: renderer, appearance: appearance}
}

// ShowReminder shows the blink reminder. A zero dismissAfter leaves closing to
// the caller.
func (m *Manager) ShowReminder(dismissAfter time.Duration) ID {
	return m.show(KindBlink, dismissAfter)
}

func (m *Manager) ShowStarting() ID { return m.show(KindStarting, ReminderDismiss) }

func (m *Manager) ShowStopped() ID { return m.show(KindStopped, ReminderDismiss) }

func (m *Manager) ShowExercise() ID { return m.show(KindExercise, ExerciseDismiss) }

func (m *Manager) show(kind Kind, dismissAfter time.Duration) ID {
	cat := kind.Category()
	m.closeSlot(cat)

	m.lastID++
	id := m.lastID
	req := Request{
		ID:         id,
		Kind:       kind,
		Message:    messageFor(kind, m.appearance().Message),
		Appearance: m.appearance(),
		FullScreen: kind == KindExercise,
	}
	surface, err := m.renderer.Open(req)
	if err != nil {
		slog.Warn("popup: open failed", "kind", kind, "error", err)
		return 0
	}

	s := &slot{id: id, kind: kind, req: req, surface: surface}
	if dismissAfter > 0 {
		s.dismiss = m.sched.AfterFunc(dismissAfter, func() { m.Close(id) })
	}
	m.slots[cat] = s
	slog.Debug("popup: shown", "kind", kind, "id", id)
	return id
}

func messageFor(kind Kind, blink string) string {
	switch kind {
	case KindStarting:
		return StartingMessage
	case KindStopped:
		return StoppedMessage
	case KindExercise:
		return ExerciseMessage
	default:
		return blink
	}
}

// Close closes the popup with the given id if it is still the current one in
// its category.
func (m *Manager) Close(id ID) bool {
	if id == 0 {
		return false
	}
	for cat, s := range m.slots {
		if s != nil && s.id == id {
			m.closeSlot(Category(cat))
			return true
		}
	}
	return false
}

func (m *Manager) CloseReminder() { m.closeSlot(CategoryReminder) }

func (m *Manager) CloseExercise() { m.closeSlot(CategoryExercise) }

func (m *Manager) CloseAll() {
	for cat := range m.slots {
		m.closeSlot(Category(cat))
	}
}

func (m *Manager) closeSlot(cat Category) {
	s := m.slots[cat]
	if s == nil {
		return
	}
	m.slots[cat] = nil
	if s.dismiss != nil {
		s.dismiss.Stop()
	}
	s.surface.Close()
	slog.Debug("popup: closed", "kind", s.kind, "id", s.id)
}

// Current returns the popup open in cat.
func (m *Manager) Current(cat Category) (ID, Kind, bool) {
	s := m.slots[cat]
	if s == nil {
		return 0, 0, false
	}
	return s.id, s.kind, true
}

// Open reports whether cat has an open popup.
func (m *Manager) Open(cat Category) bool { return m.slots[cat] != nil }

// Refresh applies a new appearance to every open popup.
func (m *Manager) Refresh(a Appearance) {
	for _, s := range m.slots {
		if s == nil {
			continue
		}
		s.req.Appearance = a
		s.req.Message = messageFor(s.kind, a.Message)
		s.surface.Update(s.req)
	}
}
