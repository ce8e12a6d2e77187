package ui

import (
	"fmt"
	"image/color"
	"strconv"

	"blink-reminder/src/prefs"
)

var (
	darkBackground = color.NRGBA{R: 0x20, G: 0x20, B: 0x20, A: 0xff}
	darkText       = color.NRGBA{R: 0xf0, G: 0xf0, B: 0xf0, A: 0xff}
)

// parseHex parses "#RRGGBB".
func parseHex(s string) (color.NRGBA, error) {
	if len(s) != 7 || s[0] != '#' {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// popupColors returns the background and text colors for a popup. The
// background alpha follows the transparency ratio, where 1 is opaque. Dark
// mode only replaces colors the user left at their defaults.
func popupColors(c prefs.Colors, dark bool) (bg, text color.NRGBA) {
	def := prefs.Defaults().PopupColors

	bg, err := parseHex(c.Background)
	if err != nil {
		bg, _ = parseHex(def.Background)
	}
	text, err = parseHex(c.Text)
	if err != nil {
		text, _ = parseHex(def.Text)
	}
	if dark && c.Background == def.Background && c.Text == def.Text {
		bg, text = darkBackground, darkText
	}

	ratio := c.TransparencyRatio
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	bg.A = uint8(ratio*255 + 0.5)
	return bg, text
}
