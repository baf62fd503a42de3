package render

import (
	"mini-engine/internal/gpu"
	"mini-engine/internal/lights"
	"mini-engine/internal/shaders"

	"github.com/go-gl/mathgl/mgl32"
)

// Pass names the pass a context is currently drawing.
type Pass int

const (
	PassNone Pass = iota
	PassShadow
	PassGBuffer
	PassTransparency
	PassForward
	PassScene2D
	PassLightmap2D
	PassUI
)

func (p Pass) String() string {
	switch p {
	case PassShadow:
		return "shadow"
	case PassGBuffer:
		return "gbuffer"
	case PassTransparency:
		return "transparency"
	case PassForward:
		return "forward"
	case PassScene2D:
		return "scene2d"
	case PassLightmap2D:
		return "lightmap2d"
	case PassUI:
		return "ui"
	}
	return "none"
}

// Stats counts what a frame drew.
type Stats struct {
	Models    int
	Objects   int
	Particles int
	Decals    int
	Vertices  int
}

// Context is the per-view mutable state threaded through every draw call.
// One long-lived instance exists per view.
type Context struct {
	Device gpu.Device

	// Scaler and Adder map world positions into the space the current pass
	// renders in (identity for camera passes, light space for shadows).
	Scaler mgl32.Vec3
	Adder  mgl32.Vec3

	Aspect float32
	Zoom   float32

	View     mgl32.Mat4
	Proj     mgl32.Mat4
	ViewProj mgl32.Mat4

	CameraPos mgl32.Vec3
	Width     int
	Height    int

	Time  float64
	Delta float64

	Pass    Pass
	Program *shaders.Program

	// CalcShadows is set while the shadow pass renders.
	CalcShadows bool
	// Shadow is the light view being rendered during the shadow pass.
	Shadow *lights.ShadowView

	// White is a 1x1 white texture for untextured draws.
	White gpu.Texture

	Stats Stats
}

// NewContext returns a context with identity transforms.
func NewContext(dev gpu.Device) *Context {
	c := &Context{Device: dev, Zoom: 1, Aspect: 1}
	c.ResetTransforms()
	return c
}

// ResetStats zeroes the frame counters. Views call it once per frame before
// any draw.
func (c *Context) ResetStats() {
	c.Stats = Stats{}
}

// ResetTransforms restores identity view, projection, scaler and adder.
func (c *Context) ResetTransforms() {
	c.Scaler = mgl32.Vec3{1, 1, 1}
	c.Adder = mgl32.Vec3{}
	c.View = mgl32.Ident4()
	c.Proj = mgl32.Ident4()
	c.ViewProj = mgl32.Ident4()
}

// Use binds a program and pushes the shared uniforms: projection, an
// identity world matrix, white color, scaler and adder.
func (c *Context) Use(p *shaders.Program) {
	c.Program = p
	c.Device.UseProgram(p.Handle)
	c.Device.UniformMat4(shaders.LocProjection, c.ViewProj)
	c.Device.UniformMat4(shaders.LocWorld, mgl32.Ident4())
	c.Device.Uniform4f(shaders.LocColor, mgl32.Vec4{1, 1, 1, 1})
	c.Device.Uniform3f(shaders.LocCameraPos, c.CameraPos)
	c.Device.Uniform2f(shaders.LocScreenSize, mgl32.Vec2{float32(c.Width), float32(c.Height)})
	c.PushTransforms()
}

// PushTransforms re-sends scaler and adder. Call it before every batch that
// depends on them; a previous batch may have used different values.
func (c *Context) PushTransforms() {
	c.Device.Uniform3f(shaders.LocScaler, c.Scaler)
	c.Device.Uniform3f(shaders.LocAdder, c.Adder)
}

// SetWorld sets the model matrix of the next draw.
func (c *Context) SetWorld(m mgl32.Mat4) {
	c.Device.UniformMat4(shaders.LocWorld, m)
}

// SetColor sets the color multiplier of the next draw.
func (c *Context) SetColor(col mgl32.Vec4) {
	c.Device.Uniform4f(shaders.LocColor, col)
}

// SetBones uploads skinning matrices, truncated to the shader's array size.
func (c *Context) SetBones(bones []mgl32.Mat4) {
	if len(bones) > shaders.MaxBones {
		bones = bones[:shaders.MaxBones]
	}
	c.Device.UniformMat4Array(shaders.LocBones, bones)
}

// BindDiffuse binds a texture to the diffuse slot; 0 binds White.
func (c *Context) BindDiffuse(t gpu.Texture) {
	if t == 0 {
		t = c.White
	}
	c.Device.BindTexture(shaders.SlotDiffuse, t)
}

// DrawMesh draws a mesh and counts it.
func (c *Context) DrawMesh(m gpu.Mesh, vertices int) {
	c.Device.DrawMesh(m)
	c.Stats.Vertices += vertices
}
