package ui

import (
	"image/color"
	"testing"

	"blink-reminder/src/prefs"
)

func TestParseHex(t *testing.T) {
	tests := []struct {
		in      string
		want    color.NRGBA
		wantErr bool
	}{
		{"#FFFFFF", color.NRGBA{R: 255, G: 255, B: 255, A: 255}, false},
		{"#102030", color.NRGBA{R: 0x10, G: 0x20, B: 0x30, A: 255}, false},
		{"#abcdef", color.NRGBA{R: 0xab, G: 0xcd, B: 0xef, A: 255}, false},
		{"FFFFFF", color.NRGBA{}, true},
		{"#FFF", color.NRGBA{}, true},
		{"#GGGGGG", color.NRGBA{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseHex(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error %v, got %v", tt.wantErr, err)
			}
			if got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestPopupColors(t *testing.T) {
	def := prefs.Defaults().PopupColors

	bg, text := popupColors(def, false)
	if bg.R != 255 || bg.A != 204 {
		t.Errorf("Expected white background at alpha 204, got %v", bg)
	}
	if text.R != 0 {
		t.Errorf("Expected black text, got %v", text)
	}

	bg, text = popupColors(def, true)
	if bg.R != darkBackground.R || text.R != darkText.R {
		t.Errorf("Expected dark palette for default colors, got %v / %v", bg, text)
	}

	custom := prefs.Colors{Background: "#FF0000", Text: "#00FF00", TransparencyRatio: 1}
	bg, _ = popupColors(custom, true)
	if bg.R != 255 || bg.G != 0 || bg.A != 255 {
		t.Errorf("Expected custom colors kept in dark mode, got %v", bg)
	}
}
