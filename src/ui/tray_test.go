package ui

import (
	"testing"

	"fyne.io/fyne/v2/test"

	"blink-reminder/src/messages"
	"blink-reminder/src/prefs"
)

func TestTrayMirrorsPreferences(t *testing.T) {
	test.NewTempApp(t)
	var sent []messages.Command
	tr := newTray(func(c messages.Command) { sent = append(sent, c) })

	if tr.toggle.Label != "Start tracking" {
		t.Errorf("Expected label 'Start tracking', got '%s'", tr.toggle.Label)
	}
	if !tr.mgd.Disabled {
		t.Error("Expected MGD item disabled while the camera is off")
	}

	p := prefs.Defaults()
	p.CameraEnabled = true
	tr.setPrefs(p)
	tr.setTracking(true)
	if !tr.camera.Checked || tr.mgd.Disabled {
		t.Error("Expected camera checked and MGD enabled")
	}
	if tr.toggle.Label != "Stop tracking" {
		t.Errorf("Expected label 'Stop tracking', got '%s'", tr.toggle.Label)
	}

	tr.camera.Action()
	if len(sent) != 1 {
		t.Fatalf("Expected 1 command, got %d", len(sent))
	}
	set, ok := sent[0].(messages.SetPreference)
	if !ok || set.Key != prefs.KeyCameraEnabled || set.Value != false {
		t.Errorf("Expected camera preference to flip to false, got %+v", sent[0])
	}
}
