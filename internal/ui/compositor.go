// Package ui draws an element tree over the view output using the 2D
// color-multiply shaders.
package ui

import (
	"fmt"
	"log/slog"

	"mini-engine/internal/gpu"
	"mini-engine/internal/logging"
	"mini-engine/internal/profiling"
	"mini-engine/internal/render"
	"mini-engine/internal/shaders"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	shapeKey = "colormult2d"
	textKey  = "colormult2d,MCM_TEXT"
)

// RequiredShaders lists the variants the compositor uses.
func RequiredShaders() []string { return []string{shapeKey, textKey} }

type Options struct {
	Device   gpu.Device
	Shaders  *shaders.Set
	Logger   *slog.Logger
	Profiler *profiling.Profiler
	// FontPixels is the glyph size the atlas is baked at; 0 means 20.
	FontPixels int
}

// Compositor draws UI primitives in pixel coordinates. It owns a unit quad,
// a flipped unit quad for render targets and a dynamic text mesh.
type Compositor struct {
	dev     gpu.Device
	shaders *shaders.Set
	log     *slog.Logger
	prof    *profiling.Profiler
	ctx     *render.Context
	fontPx  int

	Atlas *Atlas

	quad, flipped, text gpu.Mesh
	white               gpu.Texture
	width, height       int
	textVerts           []float32
	err                 error
}

func New(opts Options) *Compositor {
	px := opts.FontPixels
	if px <= 0 {
		px = 20
	}
	return &Compositor{
		dev:     opts.Device,
		shaders: opts.Shaders,
		log:     logging.OrNop(opts.Logger),
		prof:    opts.Profiler,
		ctx:     render.NewContext(opts.Device),
		fontPx:  px,
	}
}

// Load bakes and uploads the font atlas and creates the meshes.
func (c *Compositor) Load() error {
	var err error
	if c.Atlas == nil {
		if c.Atlas, err = DefaultAtlas(c.fontPx); err != nil {
			return fmt.Errorf("ui font: %w", err)
		}
	}
	if c.Atlas.Texture == 0 {
		if err := c.Atlas.Upload(c.dev); err != nil {
			return err
		}
	}
	mk := func(v []float32, dynamic bool) (gpu.Mesh, error) {
		return c.dev.CreateMesh(gpu.MeshDesc{Vertices: v, Layout: []int{2, 2}, Primitive: gpu.Triangles, Dynamic: dynamic})
	}
	if c.quad, err = mk(unitQuad(false), false); err != nil {
		return fmt.Errorf("ui quad: %w", err)
	}
	if c.flipped, err = mk(unitQuad(true), false); err != nil {
		return fmt.Errorf("ui quad: %w", err)
	}
	if c.text, err = mk(nil, true); err != nil {
		return fmt.Errorf("ui text mesh: %w", err)
	}
	c.white, err = c.dev.CreateTexture(gpu.TextureDesc{
		Kind: gpu.Texture2D, Format: gpu.FormatRGBA8, Width: 1, Height: 1,
		Pixels: []byte{255, 255, 255, 255},
	})
	if err != nil {
		return fmt.Errorf("ui white texture: %w", err)
	}
	c.ctx.White = c.white
	return nil
}

// Release deletes every GPU resource the compositor owns.
func (c *Compositor) Release() {
	for _, m := range []gpu.Mesh{c.quad, c.flipped, c.text} {
		if m != 0 {
			c.dev.DeleteMesh(m)
		}
	}
	c.quad, c.flipped, c.text = 0, 0, 0
	if c.white != 0 {
		c.dev.DeleteTexture(c.white)
		c.white = 0
	}
	if c.Atlas != nil {
		c.Atlas.Release(c.dev)
	}
}

func unitQuad(flipV bool) []float32 {
	v0, v1 := float32(0), float32(1)
	if flipV {
		v0, v1 = 1, 0
	}
	return []float32{
		0, 0, 0, v0,
		1, 0, 1, v0,
		1, 1, 1, v1,
		0, 0, 0, v0,
		1, 1, 1, v1,
		0, 1, 0, v1,
	}
}

// Resize sets the window size the pixel coordinates refer to.
func (c *Compositor) Resize(w, h int) {
	c.width, c.height = max(w, 1), max(h, 1)
}

// PixelToNDC returns the scaler/adder pair mapping top-left pixel
// coordinates to normalized device coordinates.
func PixelToNDC(w, h int) (scaler, adder mgl32.Vec3) {
	return mgl32.Vec3{2 / float32(w), -2 / float32(h), 1}, mgl32.Vec3{-1, 1, 0}
}

// Compose draws the tree rooted at root onto the screen, parents before
// children. The first failing element stops the walk.
func (c *Compositor) Compose(root Element) error {
	defer c.prof.Track("ui.Compose")()
	if root == nil {
		return nil
	}
	ctx := c.ctx
	ctx.ResetStats()
	ctx.Pass = render.PassUI
	ctx.Width, ctx.Height = c.width, c.height
	ctx.Scaler, ctx.Adder = PixelToNDC(c.width, c.height)
	ctx.Program = nil
	c.err = nil

	c.dev.BindFramebuffer(gpu.Screen)
	c.dev.Viewport(0, 0, c.width, c.height)
	c.dev.SetDepth(gpu.DepthState{})
	c.dev.SetCull(gpu.CullNone)
	c.dev.SetBlend(gpu.BlendAlpha)
	defer c.dev.SetBlend(gpu.BlendNone)

	if err := c.walk(root); err != nil {
		return err
	}
	if err := c.dev.CheckError(); err != nil {
		c.log.Warn("gpu error", "pass", "ui", "err", err)
	}
	return nil
}

func (c *Compositor) walk(e Element) error {
	if err := e.Draw(c); err != nil {
		return fmt.Errorf("ui element %T: %w", e, err)
	}
	if c.err != nil {
		return c.err
	}
	for _, k := range e.Children() {
		if err := c.walk(k); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compositor) use(key string) bool {
	p, err := c.shaders.GetShader(key)
	if err != nil {
		if c.err == nil {
			c.err = err
		}
		return false
	}
	if c.ctx.Program != p {
		c.ctx.Use(p)
	}
	return true
}

// FillRect draws a solid rectangle.
func (c *Compositor) FillRect(r Rect, color mgl32.Vec4) {
	c.DrawImage(r, 0, color, false)
}

// DrawImage draws t over r multiplied by tint. A zero texture draws white.
func (c *Compositor) DrawImage(r Rect, t gpu.Texture, tint mgl32.Vec4, flipV bool) {
	if !c.use(shapeKey) {
		return
	}
	c.ctx.SetWorld(mgl32.Translate3D(r.X, r.Y, 0).Mul4(mgl32.Scale3D(r.W, r.H, 1)))
	c.ctx.SetColor(tint)
	c.ctx.BindDiffuse(t)
	m := c.quad
	if flipV {
		m = c.flipped
	}
	c.ctx.DrawMesh(m, 6)
}

// DrawText draws one line of text with its baseline at y + the atlas line
// ascent, so y is the top of the line.
func (c *Compositor) DrawText(text string, x, y, scale float32, color mgl32.Vec4) error {
	if text == "" || c.Atlas == nil {
		return nil
	}
	if !c.use(textKey) {
		return c.err
	}
	baseline := y + float32(c.Atlas.LineHeight)*scale*0.8
	c.textVerts = c.Atlas.appendText(c.textVerts[:0], text, x, baseline, scale)
	if len(c.textVerts) == 0 {
		return nil
	}
	c.dev.UpdateMesh(c.text, c.textVerts)
	c.ctx.SetWorld(mgl32.Ident4())
	c.ctx.SetColor(color)
	c.dev.BindTexture(shaders.SlotDiffuse, c.Atlas.Texture)
	c.ctx.DrawMesh(c.text, len(c.textVerts)/4)
	return nil
}

// MeasureText returns the pixel size of text at scale.
func (c *Compositor) MeasureText(text string, scale float32) (float32, float32) {
	if c.Atlas == nil {
		return 0, 0
	}
	return c.Atlas.Measure(text, scale)
}
