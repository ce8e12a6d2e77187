package display

import (
	"image"
	"testing"

	"blink-reminder/src/prefs"
)

func TestAutoPosition(t *testing.T) {
	tests := []struct {
		name   string
		bounds image.Rectangle
		size   prefs.Size
		want   prefs.Point
	}{
		{"full hd", image.Rect(0, 0, 1920, 1080), prefs.Size{Width: 220, Height: 90}, prefs.Point{X: 850, Y: 108}},
		{"offset monitor", image.Rect(1920, 0, 3840, 1200), prefs.Size{Width: 200, Height: 100}, prefs.Point{X: 2780, Y: 120}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AutoPosition(tt.bounds, tt.size); got != tt.want {
				t.Errorf("Expected position %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestClamp(t *testing.T) {
	bounds := image.Rect(0, 0, 1920, 1080)
	size := prefs.Size{Width: 220, Height: 90}
	tests := []struct {
		name string
		pos  prefs.Point
		want prefs.Point
	}{
		{"inside", prefs.Point{X: 100, Y: 100}, prefs.Point{X: 100, Y: 100}},
		{"past right edge", prefs.Point{X: 3000, Y: 100}, prefs.Point{X: 1700, Y: 100}},
		{"past bottom", prefs.Point{X: 100, Y: 2000}, prefs.Point{X: 100, Y: 990}},
		{"negative", prefs.Point{X: -50, Y: -10}, prefs.Point{X: 0, Y: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clamp(tt.pos, size, bounds); got != tt.want {
				t.Errorf("Expected position %+v, got %+v", tt.want, got)
			}
		})
	}
}
