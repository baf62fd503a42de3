// Package menu builds the in-engine settings overlay on top of the widget
// package.
package menu

import (
	"fmt"
	"math"

	"mini-engine/internal/config"
	"mini-engine/internal/ui"
	"mini-engine/internal/ui/widget"

	"github.com/go-gl/mathgl/mgl32"
)

// feature binds a toggle to one config.Render switch. Rebuild marks
// switches that change the screen buffer layout.
type feature struct {
	label   string
	field   func(r *config.Render) *bool
	rebuild bool
}

var features = []feature{
	{label: "Deferred", field: func(r *config.Render) *bool { return &r.Deferred }},
	{label: "Shadows", field: func(r *config.Render) *bool { return &r.Shadows }},
	{label: "Filtered shadows", field: func(r *config.Render) *bool { return &r.GoodGraphics }},
	{label: "SSAO", field: func(r *config.Render) *bool { return &r.SSAO }},
	{label: "Linked-list OIT", field: func(r *config.Render) *bool { return &r.LLTransparency }, rebuild: true},
	{label: "Godrays", field: func(r *config.Render) *bool { return &r.Godrays }},
	{label: "HDR", field: func(r *config.Render) *bool { return &r.HDR }},
	{label: "Toon", field: func(r *config.Render) *bool { return &r.Toonify }},
	{label: "Grayscale", field: func(r *config.Render) *bool { return &r.Grayscale }},
	{label: "Motion blur", field: func(r *config.Render) *bool { return &r.MotionBlur }},
	{label: "Reflections", field: func(r *config.Render) *bool { return &r.Reflections }},
	{label: "Unlit 2D", field: func(r *config.Render) *bool { return &r.NoLightEngine2D }},
	{label: "1D lightmaps", field: func(r *config.Render) *bool { return &r.OneDLights2D }},
}

// Layout.
const (
	rowH     = 28
	toggleW  = 36
	toggleH  = 18
	columnW  = 220
	sliderW  = 240
	sliderH  = 18
	buttonW  = 200
	buttonH  = 40
	titleTop = 60
)

// FPS slider: positions 0..210 map to 30..240 fps, the last one uncaps.
const (
	fpsMin   = 30
	fpsMax   = 240
	fpsSteps = fpsMax - fpsMin + 2
)

// FPSFromSlider maps a slider value to a frame cap; 0 is uncapped.
func FPSFromSlider(v float32) int {
	k := int(math.Round(float64(v) * (fpsSteps - 1)))
	if k >= fpsSteps-1 {
		return 0
	}
	return fpsMin + k
}

// SliderFromFPS is the inverse of FPSFromSlider.
func SliderFromFPS(limit int) float32 {
	if limit <= 0 {
		return 1
	}
	limit = min(max(limit, fpsMin), fpsMax)
	return float32(limit-fpsMin) / (fpsSteps - 1)
}

// PixelationFromSlider maps a slider value to a divisor in 1..16.
func PixelationFromSlider(v float32) int { return 1 + int(math.Round(float64(v)*15)) }

func sliderFromPixelation(p int) float32 { return float32(p-1) / 15 }

// Settings is a full-screen overlay editing config.Settings live. Hidden
// menus draw nothing and take no clicks.
type Settings struct {
	ui.Node
	Visible bool
	// OnRebuild runs after a change that needs the screen buffers
	// regenerated, such as pixelation.
	OnRebuild func()

	settings   *config.Settings
	title      *ui.Label
	toggles    []*widget.Toggle
	fps        *widget.Slider
	pixelation *widget.Slider
	resume     *widget.Button
	quit       *widget.Button
	kids       []ui.Element
	action     Action
}

func NewSettings(s *config.Settings, width, height int) *Settings {
	m := &Settings{settings: s}
	cur := s.Snapshot()

	m.title = ui.NewLabel("SETTINGS", 0, titleTop)
	m.title.Scale = 1.5
	m.kids = append(m.kids, m.title)

	for _, f := range features {
		t := widget.NewToggle(f.label, ui.Rect{W: toggleW, H: toggleH}, *f.field(&cur), func(on bool) {
			s.Update(func(r *config.Render) { *f.field(r) = on })
			if f.rebuild {
				m.rebuild()
			}
		})
		m.toggles = append(m.toggles, t)
		m.kids = append(m.kids, t)
	}

	m.fps = widget.NewSlider(ui.Rect{W: sliderW, H: sliderH}, SliderFromFPS(cur.FPSLimit), fpsSteps, func(v float32) {
		s.SetFPSLimit(FPSFromSlider(v))
	})
	m.fps.Caption = func(v float32) string {
		if n := FPSFromSlider(v); n > 0 {
			return fmt.Sprintf("%d FPS", n)
		}
		return "Uncapped"
	}
	m.pixelation = widget.NewSlider(ui.Rect{W: sliderW, H: sliderH}, sliderFromPixelation(cur.Pixelation), 16, func(v float32) {
		s.SetPixelation(PixelationFromSlider(v))
		m.rebuild()
	})
	m.pixelation.Caption = func(v float32) string {
		return fmt.Sprintf("Pixelation x%d", PixelationFromSlider(v))
	}
	m.resume = widget.NewButton("Resume", ui.Rect{W: buttonW, H: buttonH}, func() { m.action = ActionResume })
	m.quit = widget.NewButton("Quit", ui.Rect{W: buttonW, H: buttonH}, func() { m.action = ActionQuit })
	m.kids = append(m.kids, m.fps, m.pixelation, m.resume, m.quit)

	m.Layout(width, height)
	return m
}

func (m *Settings) rebuild() {
	if m.OnRebuild != nil {
		m.OnRebuild()
	}
}

// Layout centers the menu on a width x height screen: toggles in two
// columns, then the sliders, then the buttons.
func (m *Settings) Layout(width, height int) {
	w := float32(width)
	m.Rect = ui.Rect{W: w, H: float32(height)}
	cx := w / 2

	m.title.X = cx - 70
	y := float32(titleTop + 50)
	half := (len(m.toggles) + 1) / 2
	for i, t := range m.toggles {
		col, row := i/half, i%half
		t.X = cx - columnW + float32(col)*columnW
		t.Y = y + float32(row)*rowH
	}
	y += float32(half)*rowH + 20

	for _, s := range []*widget.Slider{m.fps, m.pixelation} {
		s.X, s.Y = cx-columnW, y
		y += rowH + 8
	}
	y += 12
	for _, b := range []*widget.Button{m.resume, m.quit} {
		b.X, b.Y = cx-buttonW/2, y
		y += buttonH + 10
	}
}

// Sync pulls the current settings into the widgets so edits made
// elsewhere, such as key bindings, show up.
func (m *Settings) Sync() {
	cur := m.settings.Snapshot()
	for i, f := range features {
		m.toggles[i].On = *f.field(&cur)
	}
	m.fps.Value = SliderFromFPS(cur.FPSLimit)
	m.pixelation.Value = sliderFromPixelation(cur.Pixelation)
}

// Show makes the menu visible, refreshed from the settings.
func (m *Settings) Show() {
	m.Sync()
	m.Visible = true
}

func (m *Settings) Hide() { m.Visible = false }

// Click routes a left click to the menu's widgets and returns the
// resulting action.
func (m *Settings) Click(x, y float32) Action {
	if !m.Visible {
		return ActionNone
	}
	m.action = ActionNone
	widget.Click(m, x, y)
	if m.action == ActionResume {
		m.Hide()
	}
	return m.action
}

// Hover forwards the pointer position to the widgets.
func (m *Settings) Hover(x, y float32) {
	if m.Visible {
		widget.Hover(m, x, y)
	}
}

func (m *Settings) Children() []ui.Element {
	if !m.Visible {
		return nil
	}
	return m.kids
}

func (m *Settings) Draw(c *ui.Compositor) error {
	if !m.Visible {
		return nil
	}
	c.FillRect(m.Rect, mgl32.Vec4{0, 0, 0, 0.5})
	return nil
}
