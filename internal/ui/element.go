package ui

import (
	"mini-engine/internal/gpu"

	"github.com/go-gl/mathgl/mgl32"
)

// Rect is a screen rectangle in pixels with a top-left origin.
type Rect struct {
	X, Y, W, H float32
}

// Contains reports whether the point lies inside r, edges included.
func (r Rect) Contains(x, y float32) bool {
	return x >= r.X && x <= r.X+r.W && y >= r.Y && y <= r.Y+r.H
}

// Element is a node of the UI tree. Draw renders the element itself; the
// compositor then draws Children on top, in order.
type Element interface {
	Bounds() Rect
	Draw(c *Compositor) error
	Children() []Element
}

// Node carries the bounds and children shared by the built-in elements.
type Node struct {
	Rect
	Kids []Element
}

func (n *Node) Bounds() Rect           { return n.Rect }
func (n *Node) Children() []Element    { return n.Kids }
func (n *Node) Add(kids ...Element)    { n.Kids = append(n.Kids, kids...) }
func (n *Node) Draw(*Compositor) error { return nil }

// Box is a filled rectangle.
type Box struct {
	Node
	Color mgl32.Vec4
}

func NewBox(r Rect, color mgl32.Vec4) *Box {
	return &Box{Node: Node{Rect: r}, Color: color}
}

func (b *Box) Draw(c *Compositor) error {
	c.FillRect(b.Rect, b.Color)
	return nil
}

// Label draws one line of text; Y is the top of the line.
type Label struct {
	Node
	Text  string
	Scale float32
	Color mgl32.Vec4
}

func NewLabel(text string, x, y float32) *Label {
	return &Label{Node: Node{Rect: Rect{X: x, Y: y}}, Text: text, Scale: 1, Color: mgl32.Vec4{1, 1, 1, 1}}
}

func (l *Label) Draw(c *Compositor) error {
	return c.DrawText(l.Text, l.X, l.Y, l.Scale, l.Color)
}

// Image draws a texture stretched over its bounds.
type Image struct {
	Node
	Texture gpu.Texture
	Tint    mgl32.Vec4
}

func NewImage(r Rect, t gpu.Texture) *Image {
	return &Image{Node: Node{Rect: r}, Texture: t, Tint: mgl32.Vec4{1, 1, 1, 1}}
}

func (i *Image) Draw(c *Compositor) error {
	c.DrawImage(i.Rect, i.Texture, i.Tint, false)
	return nil
}

// OutputSource is anything that renders into a texture, such as a
// sub-engine's view.
type OutputSource interface {
	Output() gpu.Texture
}

// SubView shows the render-to-texture output of another engine. Rendered
// textures have a bottom-left origin, so the image is flipped.
type SubView struct {
	Node
	Source OutputSource
}

func NewSubView(r Rect, src OutputSource) *SubView {
	return &SubView{Node: Node{Rect: r}, Source: src}
}

func (s *SubView) Draw(c *Compositor) error {
	if s.Source == nil {
		return nil
	}
	t := s.Source.Output()
	if t == 0 {
		return nil
	}
	c.DrawImage(s.Rect, t, mgl32.Vec4{1, 1, 1, 1}, true)
	return nil
}

// Hit returns the topmost element under the point, or nil. Later children
// are drawn above earlier ones and win.
func Hit(root Element, x, y float32) Element {
	if root == nil {
		return nil
	}
	kids := root.Children()
	for i := len(kids) - 1; i >= 0; i-- {
		if e := Hit(kids[i], x, y); e != nil {
			return e
		}
	}
	if root.Bounds().Contains(x, y) {
		return root
	}
	return nil
}
