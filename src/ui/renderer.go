package ui

import (
	"log/slog"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"

	"blink-reminder/src/display"
	"blink-reminder/src/messages"
	"blink-reminder/src/popup"
)

// renderer implements popup.Renderer with borderless fyne windows. Open
// returns at once; the window is built on the fyne thread.
type renderer struct {
	app  fyne.App
	send func(messages.Command)
}

func (r *renderer) Open(req popup.Request) (popup.Surface, error) {
	s := &surface{r: r}
	fyne.Do(func() { s.build(req) })
	return s, nil
}

type surface struct {
	r      *renderer
	win    fyne.Window
	bg     *canvas.Rectangle
	text   *canvas.Text
	closed bool
}

func (s *surface) build(req popup.Request) {
	if s.closed {
		return
	}
	if drv, ok := s.r.app.Driver().(desktop.Driver); ok {
		s.win = drv.CreateSplashWindow()
	} else {
		s.win = s.r.app.NewWindow("Blink Reminder")
	}

	s.bg = canvas.NewRectangle(nil)
	s.text = canvas.NewText("", nil)
	s.text.Alignment = fyne.TextAlignCenter
	s.text.TextStyle = fyne.TextStyle{Bold: true}
	s.apply(req)

	content := container.NewStack(s.bg, container.NewCenter(s.text))
	if req.FullScreen {
		skip := widget.NewButton("Skip", func() { s.r.send(messages.SkipExercise{}) })
		snooze := widget.NewButton("Snooze 5 min", func() { s.r.send(messages.SnoozeExercise{}) })
		buttons := container.NewHBox(layout.NewSpacer(), skip, snooze, layout.NewSpacer())
		content = container.NewStack(s.bg, container.NewBorder(nil, buttons, nil, nil, container.NewCenter(s.text)))
		s.text.TextSize = 36
		s.win.SetContent(content)
		s.win.SetFullScreen(true)
	} else {
		size := req.Appearance.Size
		s.win.SetContent(content)
		s.win.SetFixedSize(true)
		s.win.Resize(fyne.NewSize(float32(size.Width), float32(size.Height)))
		// fyne cannot move windows, so a saved position only decides whether
		// the popup still fits; placement is left to the window manager.
		pos := display.Resolve(req.Appearance.Position, size)
		slog.Debug("ui: popup placement", "id", req.ID, "x", pos.X, "y", pos.Y)
		s.win.CenterOnScreen()
	}
	s.win.Show()
}

func (s *surface) apply(req popup.Request) {
	bg, text := popupColors(req.Appearance.Colors, req.Appearance.DarkMode)
	s.bg.FillColor = bg
	s.text.Color = text
	s.text.Text = req.Message
	if s.text.TextSize == 0 || !req.FullScreen {
		s.text.TextSize = 20
	}
	s.bg.Refresh()
	s.text.Refresh()
}

func (s *surface) Update(req popup.Request) {
	fyne.Do(func() {
		if s.closed || s.win == nil {
			return
		}
		s.apply(req)
		if !req.FullScreen {
			size := req.Appearance.Size
			s.win.Resize(fyne.NewSize(float32(size.Width), float32(size.Height)))
		}
	})
}

func (s *surface) Close() {
	fyne.Do(func() {
		if s.closed {
			return
		}
		s.closed = true
		if s.win != nil {
			s.win.Close()
		}
	})
}
