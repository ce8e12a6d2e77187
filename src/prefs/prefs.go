// Package prefs holds the user preferences and their durable YAML store.
package prefs

import (
	"fmt"
	"regexp"
)

// Preference keys, as used by UI commands and the preference file.
const (
	KeyDarkMode            = "darkMode"
	KeyReminderIntervalMs  = "reminderIntervalMs"
	KeyCameraEnabled       = "cameraEnabled"
	KeyEyeExercisesEnabled = "eyeExercisesEnabled"
	KeyExerciseIntervalMin = "exerciseIntervalMin"
	KeyPopupPosition       = "popupPosition"
	KeyPopupSize           = "popupSize"
	KeyPopupColors         = "popupColors"
	KeyPopupMessage        = "popupMessage"
	KeyIsTracking          = "isTracking"
	KeyKeyboardShortcut    = "keyboardShortcut"
	KeyMgdMode             = "mgdMode"
	KeySoundEnabled        = "soundEnabled"
)

const (
	minReminderIntervalMs = 1000
	minPopupSide          = 40
)

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Point is a screen position in pixels.
type Point struct {
	X int `yaml:"x" json:"x"`
	Y int `yaml:"y" json:"y"`
}

// Size is a popup size in pixels.
type Size struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// Colors configures the reminder popup.
type Colors struct {
	Background        string  `yaml:"background" json:"background"`
	Text              string  `yaml:"text" json:"text"`
	TransparencyRatio float64 `yaml:"transparencyRatio" json:"transparencyRatio"`
}

// Preferences is the complete settings record.
type Preferences struct {
	DarkMode            bool   `yaml:"darkMode" json:"darkMode"`
	ReminderIntervalMs  int    `yaml:"reminderIntervalMs" json:"reminderIntervalMs"`
	CameraEnabled       bool   `yaml:"cameraEnabled" json:"cameraEnabled"`
	EyeExercisesEnabled bool   `yaml:"eyeExercisesEnabled" json:"eyeExercisesEnabled"`
	ExerciseIntervalMin int    `yaml:"exerciseIntervalMin" json:"exerciseIntervalMin"`
	PopupPosition       *Point `yaml:"popupPosition,omitempty" json:"popupPosition,omitempty"`
	PopupSize           Size   `yaml:"popupSize" json:"popupSize"`
	PopupColors         Colors `yaml:"popupColors" json:"popupColors"`
	PopupMessage        string `yaml:"popupMessage" json:"popupMessage"`
	IsTracking          bool   `yaml:"isTracking" json:"isTracking"`
	KeyboardShortcut    string `yaml:"keyboardShortcut" json:"keyboardShortcut"`
	MgdMode             bool   `yaml:"mgdMode" json:"mgdMode"`
	SoundEnabled        bool   `yaml:"soundEnabled" json:"soundEnabled"`
}

// Defaults returns the factory settings.
func Defaults() Preferences {
	return Preferences{
		ReminderIntervalMs:  3000,
		ExerciseIntervalMin: 20,
		PopupSize:           Size{Width: 220, Height: 90},
		PopupColors: Colors{
			Background:        "#FFFFFF",
			Text:              "#000000",
			TransparencyRatio: 0.8,
		},
		PopupMessage:     "Blink!",
		KeyboardShortcut: "CommandOrControl+Alt+B",
	}
}

// Normalize fills zero values from the defaults and clamps out-of-range
// fields. It is applied to everything loaded from disk.
func (p *Preferences) Normalize() {
	d := Defaults()
	if p.ReminderIntervalMs <= 0 {
		p.ReminderIntervalMs = d.ReminderIntervalMs
	} else if p.ReminderIntervalMs < minReminderIntervalMs {
		p.ReminderIntervalMs = minReminderIntervalMs
	}
	if p.ExerciseIntervalMin <= 0 {
		p.ExerciseIntervalMin = d.ExerciseIntervalMin
	}
	if p.PopupSize.Width < minPopupSide || p.PopupSize.Height < minPopupSide {
		p.PopupSize = d.PopupSize
	}
	if !hexColor.MatchString(p.PopupColors.Background) {
		p.PopupColors.Background = d.PopupColors.Background
	}
	if !hexColor.MatchString(p.PopupColors.Text) {
		p.PopupColors.Text = d.PopupColors.Text
	}
	p.PopupColors.TransparencyRatio = clamp01(p.PopupColors.TransparencyRatio)
	if p.PopupMessage == "" {
		p.PopupMessage = d.PopupMessage
	}
	if p.KeyboardShortcut == "" {
		p.KeyboardShortcut = d.KeyboardShortcut
	}
}

// Validate rejects values a UI command may not set.
func (p Preferences) Validate() error {
	if p.ReminderIntervalMs < minReminderIntervalMs {
		return fmt.Errorf("%s must be at least %d, got %d", KeyReminderIntervalMs, minReminderIntervalMs, p.ReminderIntervalMs)
	}
	if p.ExerciseIntervalMin < 1 {
		return fmt.Errorf("%s must be at least 1, got %d", KeyExerciseIntervalMin, p.ExerciseIntervalMin)
	}
	if p.PopupSize.Width < minPopupSide || p.PopupSize.Height < minPopupSide {
		return fmt.Errorf("%s must be at least %dx%d", KeyPopupSize, minPopupSide, minPopupSide)
	}
	if !hexColor.MatchString(p.PopupColors.Background) || !hexColor.MatchString(p.PopupColors.Text) {
		return fmt.Errorf("%s must use #RRGGBB colors", KeyPopupColors)
	}
	if r := p.PopupColors.TransparencyRatio; r < 0 || r > 1 {
		return fmt.Errorf("transparencyRatio must be within [0,1], got %v", r)
	}
	return nil
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
