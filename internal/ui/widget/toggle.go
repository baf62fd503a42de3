package widget

import (
	"mini-engine/internal/ui"

	"github.com/go-gl/mathgl/mgl32"
)

// Toggle is an on/off switch with its label drawn to the right.
type Toggle struct {
	ui.Node
	Label    string
	On       bool
	OnToggle func(on bool)
	Hovered  bool
}

func NewToggle(label string, r ui.Rect, initial bool, onToggle func(on bool)) *Toggle {
	return &Toggle{Node: ui.Node{Rect: r}, Label: label, On: initial, OnToggle: onToggle}
}

func (t *Toggle) SetHovered(on bool) { t.Hovered = on }

func (t *Toggle) Press(float32, float32) bool {
	t.On = !t.On
	if t.OnToggle != nil {
		t.OnToggle(t.On)
	}
	return true
}

func (t *Toggle) Draw(c *ui.Compositor) error {
	bg := mgl32.Vec4{0.5, 0.2, 0.2, 0.85}
	if t.On {
		bg = mgl32.Vec4{0.2, 0.5, 0.2, 0.85}
	}
	if t.Hovered {
		bg = mgl32.Vec4{bg.X() * 1.2, bg.Y() * 1.2, bg.Z() * 1.2, bg.W()}
	}
	c.FillRect(t.Rect, bg)
	if t.Label == "" {
		return nil
	}
	_, h := c.MeasureText(t.Label, 1)
	scale := float32(1)
	if h > 0 {
		scale = t.H / h
	}
	return c.DrawText(t.Label, t.X+t.W+10, t.Y, scale, mgl32.Vec4{1, 1, 1, 1})
}
