package render

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Camera3D handles the view and projection matrices of a 3D view.
type Camera3D struct {
	Position  mgl32.Vec3
	Direction mgl32.Vec3
	Up        mgl32.Vec3

	AspectRatio float32
	FOV         float32
	NearPlane   float32
	FarPlane    float32
}

// NewCamera3D returns a camera at the origin looking down -Z.
func NewCamera3D(width, height int) *Camera3D {
	c := &Camera3D{
		Direction: mgl32.Vec3{0, 0, -1},
		Up:        mgl32.Vec3{0, 1, 0},
		FOV:       60.0,
		NearPlane: 0.1,
		FarPlane:  1000.0,
	}
	c.SetViewport(width, height)
	return c
}

// SetViewport updates the aspect ratio.
func (c *Camera3D) SetViewport(width, height int) {
	if width <= 0 || height <= 0 {
		c.AspectRatio = 1
		return
	}
	c.AspectRatio = float32(width) / float32(height)
}

func (c *Camera3D) GetProjectionMatrix() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.FOV), c.AspectRatio, c.NearPlane, c.FarPlane)
}

func (c *Camera3D) GetViewMatrix() mgl32.Mat4 {
	dir := c.Direction
	if dir.Len() == 0 {
		dir = mgl32.Vec3{0, 0, -1}
	}
	return mgl32.LookAtV(c.Position, c.Position.Add(dir.Normalize()), c.Up)
}

// Origin is the point entities are sorted around.
func (c *Camera3D) Origin() mgl32.Vec3 { return c.Position }

// Camera2D maps a 2D world onto the screen.
type Camera2D struct {
	Center mgl32.Vec2
	// Zoom is the number of half-screens per world unit vertically.
	Zoom        float32
	AspectRatio float32
}

// NewCamera2D returns a camera showing 10 world units vertically.
func NewCamera2D(width, height int) *Camera2D {
	c := &Camera2D{Zoom: 0.2}
	c.SetViewport(width, height)
	return c
}

// SetViewport updates the aspect ratio.
func (c *Camera2D) SetViewport(width, height int) {
	if width <= 0 || height <= 0 {
		c.AspectRatio = 1
		return
	}
	c.AspectRatio = float32(width) / float32(height)
}

// ScalerAdder returns the world to NDC mapping: ndc = world*scaler + adder.
func (c *Camera2D) ScalerAdder() (scaler, adder mgl32.Vec3) {
	sx := c.Zoom / c.AspectRatio
	sy := c.Zoom
	return mgl32.Vec3{sx, sy, 1}, mgl32.Vec3{-c.Center.X() * sx, -c.Center.Y() * sy, 0}
}

// ScreenToWorld returns the matrix mapping NDC back into world space.
func (c *Camera2D) ScreenToWorld() mgl32.Mat4 {
	s, a := c.ScalerAdder()
	return mgl32.Scale3D(1/s.X(), 1/s.Y(), 1).Mul4(mgl32.Translate3D(-a.X(), -a.Y(), 0))
}
