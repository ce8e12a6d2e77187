package prefs

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOpenMissingFileUsesDefaults(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	got := s.Get()
	want := Defaults()
	if got.ReminderIntervalMs != want.ReminderIntervalMs || got.PopupMessage != want.PopupMessage {
		t.Errorf("Expected defaults, got %+v", got)
	}
	if got.PopupPosition != nil {
		t.Errorf("Expected automatic popup position, got %+v", got.PopupPosition)
	}
	if got.KeyboardShortcut != "CommandOrControl+Alt+B" {
		t.Errorf("Expected default shortcut, got '%s'", got.KeyboardShortcut)
	}
}

func TestSetPersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	s, _ := Open(path)

	if _, err := s.Set(KeyReminderIntervalMs, float64(5000)); err != nil {
		t.Fatalf("Set interval failed: %v", err)
	}
	if _, err := s.Set(KeyPopupPosition, map[string]any{"x": 10.0, "y": 20.0}); err != nil {
		t.Fatalf("Set position failed: %v", err)
	}
	if _, err := s.Set(KeyPopupColors, map[string]any{"background": "#112233"}); err != nil {
		t.Fatalf("Set colors failed: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	got := reopened.Get()
	if got.ReminderIntervalMs != 5000 {
		t.Errorf("Expected interval 5000, got %d", got.ReminderIntervalMs)
	}
	if got.PopupPosition == nil || *got.PopupPosition != (Point{X: 10, Y: 20}) {
		t.Errorf("Expected position {10 20}, got %+v", got.PopupPosition)
	}
	if got.PopupColors.Background != "#112233" || got.PopupColors.Text != "#000000" {
		t.Errorf("Expected merged colors, got %+v", got.PopupColors)
	}
}

func TestSetRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
	}{
		{"unknown key", "volume", 3},
		{"wrong type", KeyCameraEnabled, 12.5},
		{"interval too small", KeyReminderIntervalMs, 10},
		{"bad color", KeyPopupColors, map[string]any{"text": "red"}},
		{"transparency out of range", KeyPopupColors, map[string]any{"transparencyRatio": 1.5}},
		{"fractional interval", KeyExerciseIntervalMin, 2.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := Open(filepath.Join(t.TempDir(), FileName))
			before := s.Get()
			if _, err := s.Set(tt.key, tt.value); err == nil {
				t.Fatal("Expected an error")
			}
			after := s.Get()
			if after.ReminderIntervalMs != before.ReminderIntervalMs ||
				after.CameraEnabled != before.CameraEnabled ||
				after.PopupColors != before.PopupColors ||
				after.ExerciseIntervalMin != before.ExerciseIntervalMin {
				t.Errorf("Expected preferences unchanged, got %+v", after)
			}
			if _, err := os.Stat(s.Path()); !os.IsNotExist(err) {
				t.Errorf("Expected no file written, stat err=%v", err)
			}
		})
	}
}

func TestResetRestoresDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	s, _ := Open(path)
	s.Set(KeyDarkMode, true)
	s.Set(KeyPopupMessage, "Look away")

	if err := s.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Expected preference file removed, stat err=%v", err)
	}
	got := s.Get()
	if got.DarkMode || got.PopupMessage != "Blink!" {
		t.Errorf("Expected defaults after reset, got %+v", got)
	}
}

func TestOpenCorruptFileFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte("darkMode: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := Open(path)
	if err == nil {
		t.Error("Expected a parse error")
	}
	if s == nil || s.Get().ReminderIntervalMs != 3000 {
		t.Error("Expected a usable store with defaults")
	}
}

func TestNormalizeFillsMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	content := "darkMode: true\npopupColors:\n  background: nope\n  transparencyRatio: 3\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	got := s.Get()
	if !got.DarkMode {
		t.Error("Expected darkMode loaded from file")
	}
	if got.PopupColors.Background != "#FFFFFF" {
		t.Errorf("Expected invalid background replaced, got '%s'", got.PopupColors.Background)
	}
	if got.PopupColors.TransparencyRatio != 1 {
		t.Errorf("Expected transparency clamped to 1, got %v", got.PopupColors.TransparencyRatio)
	}
	if got.ReminderIntervalMs != 3000 {
		t.Errorf("Expected default interval, got %d", got.ReminderIntervalMs)
	}
}
