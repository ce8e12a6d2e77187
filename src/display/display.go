// Package display answers where popups go on the current monitors.
package display

import (
	"fmt"
	"image"

	"github.com/kbinani/screenshot"

	"blink-reminder/src/prefs"
)

// fallback is used when no display can be queried, e.g. on a headless box.
var fallback = image.Rect(0, 0, 1920, 1080)

// PrimaryBounds returns the bounds of display 0.
func PrimaryBounds() (image.Rectangle, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return fallback, fmt.Errorf("no active displays found")
	}
	return screenshot.GetDisplayBounds(0), nil
}

// VirtualBounds returns the union of every active display.
func VirtualBounds() (image.Rectangle, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return fallback, fmt.Errorf("no active displays found")
	}
	union := screenshot.GetDisplayBounds(0)
	for i := 1; i < n; i++ {
		union = union.Union(screenshot.GetDisplayBounds(i))
	}
	return union, nil
}

// AutoPosition centers a popup horizontally near the top of bounds.
func AutoPosition(bounds image.Rectangle, size prefs.Size) prefs.Point {
	return prefs.Point{
		X: bounds.Min.X + (bounds.Dx()-size.Width)/2,
		Y: bounds.Min.Y + bounds.Dy()/10,
	}
}

// Clamp pulls a saved position back inside bounds, for positions saved on a
// monitor that is no longer attached.
func Clamp(pos prefs.Point, size prefs.Size, bounds image.Rectangle) prefs.Point {
	maxX := bounds.Max.X - size.Width
	maxY := bounds.Max.Y - size.Height
	if pos.X > maxX {
		pos.X = maxX
	}
	if pos.Y > maxY {
		pos.Y = maxY
	}
	if pos.X < bounds.Min.X {
		pos.X = bounds.Min.X
	}
	if pos.Y < bounds.Min.Y {
		pos.Y = bounds.Min.Y
	}
	return pos
}

// Resolve returns where a popup of size should be placed: the saved position
// clamped to the virtual screen, or the automatic position on the primary
// display.
func Resolve(saved *prefs.Point, size prefs.Size) prefs.Point {
	if saved != nil {
		virtual, _ := VirtualBounds()
		return Clamp(*saved, size, virtual)
	}
	primary, _ := PrimaryBounds()
	return AutoPosition(primary, size)
}
