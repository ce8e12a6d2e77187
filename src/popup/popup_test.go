package popup

import (
	"errors"
	"testing"
	"time"

	"blink-reminder/src/prefs"
	"blink-reminder/src/timer"
)

type fakeSurface struct {
	r      *fakeRenderer
	req    Request
	closed bool
}

func (s *fakeSurface) Update(req Request) { s.req = req }

func (s *fakeSurface) Close() {
	if !s.closed {
		s.closed = true
		s.r.open--
	}
}

type fakeRenderer struct {
	opened   []*fakeSurface
	open     int
	maxOpen  int
	failNext bool
}

func (r *fakeRenderer) Open(req Request) (Surface, error) {
	if r.failNext {
		r.failNext = false
		return nil, errors.New("no display")
	}
	s := &fakeSurface{r: r, req: req}
	r.opened = append(r.opened, s)
	r.open++
	if r.open > r.maxOpen {
		r.maxOpen = r.open
	}
	return s, nil
}

func newManager() (*Manager, *fakeRenderer, *timer.Fake) {
	clock := timer.NewFake(time.Unix(0, 0))
	r := &fakeRenderer{}
	return NewManager(clock, r, nil), r, clock
}

func TestAtMostOnePopupPerCategory(t *testing.T) {
	m, r, _ := newManager()

	m.ShowStarting()
	m.ShowReminder(ReminderDismiss)
	m.ShowReminder(0)
	m.ShowStopped()
	m.ShowExercise()
	m.ShowExercise()

	if r.open != 2 {
		t.Errorf("Expected one reminder and one exercise popup, got %d open", r.open)
	}
	if r.maxOpen != 2 {
		t.Errorf("Expected never more than 2 surfaces open, peak was %d", r.maxOpen)
	}
	if _, kind, ok := m.Current(CategoryReminder); !ok || kind != KindStopped {
		t.Errorf("Expected stopped popup current, got %v (open=%v)", kind, ok)
	}
}

func TestAutoDismiss(t *testing.T) {
	m, r, clock := newManager()
	m.ShowReminder(ReminderDismiss)
	m.ShowExercise()

	clock.Advance(ReminderDismiss)
	if m.Open(CategoryReminder) {
		t.Error("Expected reminder dismissed after 2.5s")
	}
	if !m.Open(CategoryExercise) {
		t.Error("Expected exercise popup still open")
	}
	clock.Advance(ExerciseDismiss)
	if r.open != 0 {
		t.Errorf("Expected all popups dismissed, %d open", r.open)
	}
}

func TestStaleDismissKeepsNewerPopup(t *testing.T) {
	m, _, clock := newManager()
	first := m.ShowReminder(0)
	clock.AfterFunc(ReminderDismiss, func() { m.Close(first) })

	clock.Advance(time.Second)
	second := m.ShowReminder(0)
	clock.Advance(2 * time.Second)

	if id, _, ok := m.Current(CategoryReminder); !ok || id != second {
		t.Errorf("Expected popup %d to survive the stale close, got %d (open=%v)", second, id, ok)
	}
	if m.Close(first) {
		t.Error("Expected closing a replaced popup to report false")
	}
}

func TestReplacedPopupTimerCancelled(t *testing.T) {
	m, _, clock := newManager()
	m.ShowReminder(ReminderDismiss)
	m.ShowReminder(0)
	if clock.Pending() != 0 {
		t.Errorf("Expected replaced popup's dismiss timer stopped, %d pending", clock.Pending())
	}
}

func TestRefreshUpdatesOpenPopup(t *testing.T) {
	m, r, _ := newManager()
	m.ShowReminder(0)
	m.ShowStarting()
	m.ShowReminder(0)

	a := AppearanceFrom(defaultsWithMessage("Look away"))
	m.Refresh(a)
	cur := r.opened[len(r.opened)-1]
	if cur.req.Message != "Look away" {
		t.Errorf("Expected refreshed message, got '%s'", cur.req.Message)
	}
}

func TestMessagesAndFullScreen(t *testing.T) {
	m, r, _ := newManager()
	m.ShowStarting()
	m.ShowExercise()
	tests := []struct {
		idx  int
		msg  string
		full bool
	}{
		{0, StartingMessage, false},
		{1, ExerciseMessage, true},
	}
	for _, tt := range tests {
		req := r.opened[tt.idx].req
		if req.Message != tt.msg || req.FullScreen != tt.full {
			t.Errorf("Expected (%s, %v), got (%s, %v)", tt.msg, tt.full, req.Message, req.FullScreen)
		}
	}
}

func TestRendererFailure(t *testing.T) {
	m, r, clock := newManager()
	r.failNext = true
	if id := m.ShowReminder(ReminderDismiss); id != 0 {
		t.Errorf("Expected zero id on failure, got %d", id)
	}
	if m.Open(CategoryReminder) || clock.Pending() != 0 {
		t.Error("Expected nothing tracked after a failed open")
	}
}

func TestCloseAll(t *testing.T) {
	m, r, _ := newManager()
	m.ShowStopped()
	m.ShowExercise()
	m.CloseAll()
	if r.open != 0 {
		t.Errorf("Expected all surfaces closed, %d open", r.open)
	}
}

func defaultsWithMessage(msg string) prefs.Preferences {
	p := prefs.Defaults()
	p.PopupMessage = msg
	return p
}
