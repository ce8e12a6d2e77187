//go:build linux

package power

import (
	"testing"

	"github.com/godbus/dbus/v5"
)

func TestDecodeSleepSignal(t *testing.T) {
	name := logindInterface + "." + prepareForSleep
	tests := []struct {
		name   string
		sig    *dbus.Signal
		want   Event
		wantOK bool
	}{
		{"going to sleep", &dbus.Signal{Name: name, Body: []interface{}{true}}, EventSuspend, true},
		{"woke up", &dbus.Signal{Name: name, Body: []interface{}{false}}, EventResume, true},
		{"other member", &dbus.Signal{Name: logindInterface + ".SessionNew", Body: []interface{}{true}}, 0, false},
		{"empty body", &dbus.Signal{Name: name}, 0, false},
		{"wrong type", &dbus.Signal{Name: name, Body: []interface{}{"yes"}}, 0, false},
		{"nil", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := decodeSleepSignal(tt.sig)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Expected (%v, %v), got (%v, %v)", tt.want, tt.wantOK, got, ok)
			}
		})
	}
}
