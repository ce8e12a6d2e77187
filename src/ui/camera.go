package ui

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"blink-reminder/src/messages"
)

// cameraWindow shows the detector's video stream and face data.
type cameraWindow struct {
	win    fyne.Window
	frame  *canvas.Image
	face   *widget.Label
	blinks *widget.Label
	count  int
}

func newCameraWindow(a fyne.App, send func(messages.Command)) *cameraWindow {
	c := &cameraWindow{
		win:    a.NewWindow("Blink Reminder - Camera"),
		frame:  canvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, 320, 240))),
		face:   widget.NewLabel("Waiting for face data..."),
		blinks: widget.NewLabel("Blinks: 0"),
	}
	c.frame.FillMode = canvas.ImageFillContain
	c.frame.SetMinSize(fyne.NewSize(320, 240))
	c.face.Wrapping = fyne.TextWrapWord

	c.win.SetContent(container.NewBorder(nil, container.NewVBox(c.blinks, c.face), nil, nil, c.frame))
	c.win.Resize(fyne.NewSize(480, 420))
	c.win.SetCloseIntercept(func() {
		send(messages.CloseCameraWindow{})
	})
	return c
}

func (c *cameraWindow) show() {
	c.count = 0
	c.blinks.SetText("Blinks: 0")
	c.win.Show()
}

func (c *cameraWindow) hide() { c.win.Hide() }

func (c *cameraWindow) showFrame(b64 string) error {
	img, err := decodeFrame(b64)
	if err != nil {
		return err
	}
	c.frame.Image = img
	c.frame.Refresh()
	return nil
}

func (c *cameraWindow) showFace(raw []byte) {
	s := string(raw)
	if len(s) > 300 {
		s = s[:300] + "..."
	}
	c.face.SetText(s)
}

func (c *cameraWindow) blink() {
	c.count++
	c.blinks.SetText(fmt.Sprintf("Blinks: %d", c.count))
}

// decodeFrame decodes a base64 JPEG, with or without a data URL prefix.
func decodeFrame(b64 string) (image.Image, error) {
	if i := strings.Index(b64, ","); i >= 0 && strings.HasPrefix(b64, "data:") {
		b64 = b64[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode frame image: %w", err)
	}
	return img, nil
}
