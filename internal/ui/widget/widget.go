// Package widget holds interactive UI elements: buttons, toggles, sliders
// and a frame statistics overlay. Pointer input is routed to them with
// Hover and Click, which the host calls from its input callbacks.
package widget

import "mini-engine/internal/ui"

// Hoverable elements track whether the pointer is over them.
type Hoverable interface {
	SetHovered(on bool)
}

// Clickable elements react to a left click at (x, y).
type Clickable interface {
	Press(x, y float32) bool
}

// Hover updates the hover state of every Hoverable under root.
func Hover(root ui.Element, x, y float32) {
	if root == nil {
		return
	}
	if h, ok := root.(Hoverable); ok {
		h.SetHovered(root.Bounds().Contains(x, y))
	}
	for _, k := range root.Children() {
		Hover(k, x, y)
	}
}

// Click delivers a left click to the topmost element under the pointer.
// It reports whether a widget consumed it.
func Click(root ui.Element, x, y float32) bool {
	c, ok := ui.Hit(root, x, y).(Clickable)
	if !ok {
		return false
	}
	return c.Press(x, y)
}
