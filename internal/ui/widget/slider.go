package widget

import (
	"math"

	"mini-engine/internal/ui"

	"github.com/go-gl/mathgl/mgl32"
)

const handleWidth = 8

// Slider picks a value in [0, 1]. With Steps > 1 the value snaps to Steps
// evenly spaced positions.
type Slider struct {
	ui.Node
	Value    float32
	Steps    int
	Caption  func(v float32) string
	OnChange func(v float32)
	Hovered  bool
}

func NewSlider(r ui.Rect, initial float32, steps int, onChange func(v float32)) *Slider {
	s := &Slider{Node: ui.Node{Rect: r}, Steps: steps, OnChange: onChange}
	s.Value = s.snap(initial)
	return s
}

func (s *Slider) SetHovered(on bool) { s.Hovered = on }

func (s *Slider) snap(v float32) float32 {
	v = mgl32.Clamp(v, 0, 1)
	if s.Steps > 1 {
		n := float64(s.Steps - 1)
		v = float32(math.Round(float64(v)*n) / n)
	}
	return v
}

// Press moves the slider to the pointer. OnChange fires only when the
// snapped value changes.
func (s *Slider) Press(x, _ float32) bool {
	if s.W <= 0 {
		return true
	}
	v := s.snap((x - s.X) / s.W)
	if v != s.Value {
		s.Value = v
		if s.OnChange != nil {
			s.OnChange(v)
		}
	}
	return true
}

func (s *Slider) Draw(c *ui.Compositor) error {
	track := mgl32.Vec4{0.15, 0.15, 0.15, 0.85}
	if s.Hovered {
		track = mgl32.Vec4{0.22, 0.22, 0.22, 0.85}
	}
	c.FillRect(s.Rect, track)
	hx := s.X + s.Value*(s.W-handleWidth)
	c.FillRect(ui.Rect{X: hx, Y: s.Y, W: handleWidth, H: s.H}, mgl32.Vec4{0.8, 0.8, 0.8, 1})
	if s.Caption == nil {
		return nil
	}
	text := s.Caption(s.Value)
	_, h := c.MeasureText(text, 1)
	scale := float32(1)
	if h > 0 {
		scale = s.H / h
	}
	return c.DrawText(text, s.X+s.W+10, s.Y, scale, mgl32.Vec4{0.8, 0.8, 0.8, 1})
}
