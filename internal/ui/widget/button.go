package widget

import (
	"mini-engine/internal/ui"

	"github.com/go-gl/mathgl/mgl32"
)

type Button struct {
	ui.Node
	Text    string
	OnClick func()
	Hovered bool

	NormalColor mgl32.Vec4
	HoverColor  mgl32.Vec4
	TextColor   mgl32.Vec4
}

func NewButton(text string, r ui.Rect, onClick func()) *Button {
	return &Button{
		Node:        ui.Node{Rect: r},
		Text:        text,
		OnClick:     onClick,
		NormalColor: mgl32.Vec4{0.2, 0.2, 0.2, 0.9},
		HoverColor:  mgl32.Vec4{0.3, 0.3, 0.3, 0.9},
		TextColor:   mgl32.Vec4{1, 1, 1, 1},
	}
}

func (b *Button) SetHovered(on bool) { b.Hovered = on }

func (b *Button) Press(float32, float32) bool {
	if b.OnClick != nil {
		b.OnClick()
	}
	return true
}

func (b *Button) Draw(c *ui.Compositor) error {
	color := b.NormalColor
	if b.Hovered {
		color = b.HoverColor
	}
	c.FillRect(b.Rect, color)

	// Text takes 40% of the button height, shrunk further to fit 90% of
	// its width.
	_, rawH := c.MeasureText(b.Text, 1)
	if rawH == 0 {
		return nil
	}
	scale := b.H * 0.4 / rawH
	w, h := c.MeasureText(b.Text, scale)
	if maxW := b.W * 0.9; w > maxW {
		scale *= maxW / w
		w, h = c.MeasureText(b.Text, scale)
	}
	return c.DrawText(b.Text, b.X+(b.W-w)/2, b.Y+(b.H-h)/2, scale, b.TextColor)
}
