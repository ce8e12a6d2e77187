// Package messages defines the one-way events the core publishes to the UI and
// the commands the UI sends back to the core.
package messages

import (
	"encoding/json"
	"time"

	"blink-reminder/src/prefs"
)

// Message is the base interface for every event and command.
type Message interface {
	Type() string
}

// Event types (core -> UI).
const (
	TypeTrackingChanged     = "TrackingChanged"
	TypeCameraError         = "CameraError"
	TypeShortcutError       = "ShortcutError"
	TypePreferencesSnapshot = "PreferencesSnapshot"
	TypePopupContent        = "PopupContent"
	TypeFaceData            = "FaceData"
	TypeVideoFrame          = "VideoFrame"
	TypeBlinkDetected       = "BlinkDetected"
	TypeWindowClosed        = "WindowClosed"
	TypeCameraWindow        = "CameraWindow"
	TypePopupEditor         = "PopupEditor"
	TypeQuitting            = "Quitting"
)

// Command types (UI -> core).
const (
	TypeStartTracking     = "StartTracking"
	TypeStopTracking      = "StopTracking"
	TypeToggleTracking    = "ToggleTracking"
	TypeSetPreference     = "SetPreference"
	TypeShowCameraWindow  = "ShowCameraWindow"
	TypeCloseCameraWindow = "CloseCameraWindow"
	TypeShowPopupEditor   = "ShowPopupEditor"
	TypeSavePopupEditor   = "SavePopupEditor"
	TypeSkipExercise      = "SkipExercise"
	TypeSnoozeExercise    = "SnoozeExercise"
	TypeResetPreferences  = "ResetPreferences"
	TypeQuit              = "Quit"
)

// Window names used by WindowClosed and the show/close commands.
const (
	WindowCamera      = "camera"
	WindowPopupEditor = "popup-editor"
)

// Event is published by the core on the UI event channel.
type Event interface {
	Message
	isEvent()
}

// Command is sent by the UI to the core.
type Command interface {
	Message
	isCommand()
}

// TrackingChanged reports the tracking flag and the active strategy.
type TrackingChanged struct {
	Tracking bool
	Strategy string
}

func (TrackingChanged) Type() string { return TypeTrackingChanged }
func (TrackingChanged) isEvent()     {}

// CameraError carries a user-facing camera problem. Terminal is set once the
// retry bound is exhausted or the detector could not be launched.
type CameraError struct {
	Message  string
	Terminal bool
}

func (CameraError) Type() string { return TypeCameraError }
func (CameraError) isEvent()     {}

// ShortcutError reports a failed global shortcut registration.
type ShortcutError struct {
	Shortcut string
	Message  string
}

func (ShortcutError) Type() string { return TypeShortcutError }
func (ShortcutError) isEvent()     {}

// PreferencesSnapshot is published after every preference change.
type PreferencesSnapshot struct {
	Prefs prefs.Preferences
}

func (PreferencesSnapshot) Type() string { return TypePreferencesSnapshot }
func (PreferencesSnapshot) isEvent()     {}

// PopupContent describes what an open reminder popup should display.
type PopupContent struct {
	Message    string
	Colors     prefs.Colors
	DarkMode   bool
	CameraMode bool
}

func (PopupContent) Type() string { return TypePopupContent }
func (PopupContent) isEvent()     {}

// FaceData is forwarded verbatim from the detector.
type FaceData struct {
	Raw json.RawMessage
}

func (FaceData) Type() string { return TypeFaceData }
func (FaceData) isEvent()     {}

// VideoFrame is a base64-encoded JPEG frame from the detector.
type VideoFrame struct {
	Base64 string
}

func (VideoFrame) Type() string { return TypeVideoFrame }
func (VideoFrame) isEvent()     {}

// BlinkDetected is published for every detector blink.
type BlinkDetected struct {
	At             time.Time
	EAR            float64
	Baseline       float64
	DropPercentage float64
}

func (BlinkDetected) Type() string { return TypeBlinkDetected }
func (BlinkDetected) isEvent()     {}

// WindowClosed confirms that an auxiliary window is gone.
type WindowClosed struct {
	Window string
}

func (WindowClosed) Type() string { return TypeWindowClosed }
func (WindowClosed) isEvent()     {}

// CameraWindow asks the UI to open the camera visualization window.
type CameraWindow struct{}

func (CameraWindow) Type() string { return TypeCameraWindow }
func (CameraWindow) isEvent()     {}

// PopupEditor asks the UI to open the popup editor with the current layout.
type PopupEditor struct {
	Size     prefs.Size
	Position *prefs.Point
}

func (PopupEditor) Type() string { return TypePopupEditor }
func (PopupEditor) isEvent()     {}

// Quitting tells the UI to tear down its windows and leave its main loop.
type Quitting struct{}

func (Quitting) Type() string { return TypeQuitting }
func (Quitting) isEvent()     {}

type StartTracking struct{}

func (StartTracking) Type() string { return TypeStartTracking }
func (StartTracking) isCommand()   {}

type StopTracking struct{}

func (StopTracking) Type() string { return TypeStopTracking }
func (StopTracking) isCommand()   {}

type ToggleTracking struct{}

func (ToggleTracking) Type() string { return TypeToggleTracking }
func (ToggleTracking) isCommand()   {}

// SetPreference updates a single preference field.
type SetPreference struct {
	Key   string
	Value any
}

func (SetPreference) Type() string { return TypeSetPreference }
func (SetPreference) isCommand()   {}

type ShowCameraWindow struct{}

func (ShowCameraWindow) Type() string { return TypeShowCameraWindow }
func (ShowCameraWindow) isCommand()   {}

type CloseCameraWindow struct{}

func (CloseCameraWindow) Type() string { return TypeCloseCameraWindow }
func (CloseCameraWindow) isCommand()   {}

type ShowPopupEditor struct{}

func (ShowPopupEditor) Type() string { return TypeShowPopupEditor }
func (ShowPopupEditor) isCommand()   {}

// SavePopupEditor stores the layout chosen in the popup editor.
type SavePopupEditor struct {
	Size     prefs.Size
	Position *prefs.Point
}

func (SavePopupEditor) Type() string { return TypeSavePopupEditor }
func (SavePopupEditor) isCommand()   {}

type SkipExercise struct{}

func (SkipExercise) Type() string { return TypeSkipExercise }
func (SkipExercise) isCommand()   {}

type SnoozeExercise struct{}

func (SnoozeExercise) Type() string { return TypeSnoozeExercise }
func (SnoozeExercise) isCommand()   {}

type ResetPreferences struct{}

func (ResetPreferences) Type() string { return TypeResetPreferences }
func (ResetPreferences) isCommand()   {}

type Quit struct {
	Reason string
}

func (Quit) Type() string { return TypeQuit }
func (Quit) isCommand()   {}
