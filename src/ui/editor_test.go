package ui

import (
	"testing"

	"blink-reminder/src/prefs"
)

func TestEditorLayoutParse(t *testing.T) {
	tests := []struct {
		name    string
		in      editorLayout
		size    prefs.Size
		pos     *prefs.Point
		wantErr bool
	}{
		{"auto position", editorLayout{width: "220", height: "90"}, prefs.Size{Width: 220, Height: 90}, nil, false},
		{"fixed position", editorLayout{width: "300", height: " 120 ", x: "10", y: "20"}, prefs.Size{Width: 300, Height: 120}, &prefs.Point{X: 10, Y: 20}, false},
		{"bad width", editorLayout{width: "wide", height: "90"}, prefs.Size{}, nil, true},
		{"half position", editorLayout{width: "220", height: "90", x: "10"}, prefs.Size{Width: 220, Height: 90}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size, pos, err := tt.in.parse()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error %v, got %v", tt.wantErr, err)
			}
			if err != nil {
				return
			}
			if size != tt.size {
				t.Errorf("Expected size %+v, got %+v", tt.size, size)
			}
			if (pos == nil) != (tt.pos == nil) || (pos != nil && *pos != *tt.pos) {
				t.Errorf("Expected position %v, got %v", tt.pos, pos)
			}
		})
	}
}

func TestLayoutFieldsRoundTrip(t *testing.T) {
	pos := &prefs.Point{X: 5, Y: 7}
	size, got, err := layoutFields(prefs.Size{Width: 100, Height: 50}, pos).parse()
	if err != nil {
		t.Fatal(err)
	}
	if size.Width != 100 || got == nil || *got != *pos {
		t.Errorf("Expected layout to survive the form, got %+v %v", size, got)
	}
}
