package ui

import (
	"fmt"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"blink-reminder/src/messages"
	"blink-reminder/src/prefs"
)

// editorLayout is the popup editor's form state.
type editorLayout struct {
	width, height string
	x, y          string
}

func layoutFields(size prefs.Size, pos *prefs.Point) editorLayout {
	l := editorLayout{width: strconv.Itoa(size.Width), height: strconv.Itoa(size.Height)}
	if pos != nil {
		l.x, l.y = strconv.Itoa(pos.X), strconv.Itoa(pos.Y)
	}
	return l
}

// parse turns the form back into a layout. Empty X and Y mean automatic
// placement.
func (l editorLayout) parse() (prefs.Size, *prefs.Point, error) {
	w, err := strconv.Atoi(strings.TrimSpace(l.width))
	if err != nil {
		return prefs.Size{}, nil, fmt.Errorf("width: %w", err)
	}
	h, err := strconv.Atoi(strings.TrimSpace(l.height))
	if err != nil {
		return prefs.Size{}, nil, fmt.Errorf("height: %w", err)
	}
	size := prefs.Size{Width: w, Height: h}

	xs, ys := strings.TrimSpace(l.x), strings.TrimSpace(l.y)
	if xs == "" && ys == "" {
		return size, nil, nil
	}
	x, err := strconv.Atoi(xs)
	if err != nil {
		return size, nil, fmt.Errorf("x: %w", err)
	}
	y, err := strconv.Atoi(ys)
	if err != nil {
		return size, nil, fmt.Errorf("y: %w", err)
	}
	return size, &prefs.Point{X: x, Y: y}, nil
}

func showEditor(a fyne.App, ev messages.PopupEditor, look messages.PopupContent, send func(messages.Command)) fyne.Window {
	win := a.NewWindow("Blink Reminder - Popup Layout")
	fields := layoutFields(ev.Size, ev.Position)

	width := widget.NewEntry()
	width.SetText(fields.width)
	height := widget.NewEntry()
	height.SetText(fields.height)
	x := widget.NewEntry()
	x.SetText(fields.x)
	x.SetPlaceHolder("auto")
	y := widget.NewEntry()
	y.SetText(fields.y)
	y.SetPlaceHolder("auto")
	status := widget.NewLabel("")

	form := widget.NewForm(
		widget.NewFormItem("Width", width),
		widget.NewFormItem("Height", height),
		widget.NewFormItem("X", x),
		widget.NewFormItem("Y", y),
	)
	form.SubmitText = "Save"
	form.OnSubmit = func() {
		size, pos, err := editorLayout{width: width.Text, height: height.Text, x: x.Text, y: y.Text}.parse()
		if err != nil {
			status.SetText(err.Error())
			return
		}
		send(messages.SavePopupEditor{Size: size, Position: pos})
	}
	form.OnCancel = func() { win.Close() }

	bg, fg := popupColors(look.Colors, look.DarkMode)
	sample := canvas.NewText(look.Message, fg)
	sample.Alignment = fyne.TextAlignCenter
	swatch := canvas.NewRectangle(bg)
	swatch.SetMinSize(fyne.NewSize(160, 48))
	preview := container.NewStack(swatch, container.NewCenter(sample))

	win.SetContent(container.NewVBox(preview, widget.NewCard("", "Reminder popup size and position", form), status))
	win.Resize(fyne.NewSize(320, 320))
	win.Show()
	return win
}
