package ui_test

import (
	"errors"
	"testing"

	"mini-engine/internal/gpu"
	"mini-engine/internal/gpu/gputest"
	"mini-engine/internal/shaders"
	"mini-engine/internal/ui"

	"github.com/go-gl/mathgl/mgl32"
)

func newCompositor(t *testing.T) (*gputest.Device, *ui.Compositor) {
	t.Helper()
	dev := gputest.New()
	set := shaders.New(dev, nil, nil)
	if err := set.Preload(ui.RequiredShaders()...); err != nil {
		t.Fatalf("Preload: %v", err)
	}
	c := ui.New(ui.Options{Device: dev, Shaders: set, FontPixels: 16})
	if err := c.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	c.Resize(800, 600)
	dev.ResetLog()
	return dev, c
}

func TestAtlasMetrics(t *testing.T) {
	a, err := ui.DefaultAtlas(16)
	if err != nil {
		t.Fatal(err)
	}
	g, ok := a.Glyphs['A']
	if !ok || g.Width == 0 || g.Height == 0 || g.Advance == 0 {
		t.Fatalf("glyph A = %+v", g)
	}
	space := a.Glyphs[' ']
	if space.Width != 0 || space.Advance == 0 {
		t.Fatalf("space = %+v", space)
	}
	if a.H&(a.H-1) != 0 {
		t.Fatalf("atlas height %d is not a power of two", a.H)
	}
	w, _ := a.Measure("AA", 2)
	if w != float32(4*g.Advance) {
		t.Fatalf("Measure = %v, want %v", w, 4*g.Advance)
	}
	// Missing glyphs advance like a space.
	if w, _ := a.Measure("世", 1); w != float32(space.Advance) {
		t.Fatalf("missing glyph advance = %v", w)
	}
}

func TestBakeAtlasRejectsGarbage(t *testing.T) {
	if _, err := ui.BakeAtlas([]byte("not a font"), 16); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestComposeDrawsParentsFirst(t *testing.T) {
	dev, c := newCompositor(t)
	root := ui.NewBox(ui.Rect{X: 10, Y: 20, W: 100, H: 50}, mgl32.Vec4{1, 0, 0, 0.5})
	label := ui.NewLabel("Hi", 12, 22)
	root.Add(label)
	if err := c.Compose(root); err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if len(dev.DrawLog) != 2 {
		t.Fatalf("draws = %d", len(dev.DrawLog))
	}
	box, text := dev.DrawLog[0], dev.DrawLog[1]
	if box.ProgramName != "colormult2d" || text.ProgramName != "colormult2d,MCM_TEXT" {
		t.Fatalf("programs = %s, %s", box.ProgramName, text.ProgramName)
	}
	for _, d := range dev.DrawLog {
		if d.Framebuffer != gpu.Screen || d.Blend != gpu.BlendAlpha || d.Depth.Test {
			t.Fatalf("draw state = %+v", d)
		}
	}
	world, _ := dev.Uniform(box.Program, shaders.LocWorld)
	want := mgl32.Translate3D(10, 20, 0).Mul4(mgl32.Scale3D(100, 50, 1))
	if world != want {
		t.Fatalf("box world = %v", world)
	}
	if col, _ := dev.Uniform(box.Program, shaders.LocColor); col != (mgl32.Vec4{1, 0, 0, 0.5}) {
		t.Fatalf("box color = %v", col)
	}
	if verts := len(dev.Meshes[text.Mesh].Vertices); verts != 2*6*4 {
		t.Fatalf("text vertices = %d floats, want two glyph quads", verts)
	}
	if dev.Blend != gpu.BlendNone {
		t.Fatal("Compose must restore blending")
	}
}

func TestPixelToNDC(t *testing.T) {
	s, a := ui.PixelToNDC(800, 600)
	corner := func(x, y float32) mgl32.Vec2 {
		return mgl32.Vec2{x*s.X() + a.X(), y*s.Y() + a.Y()}
	}
	if got := corner(0, 0); got != (mgl32.Vec2{-1, 1}) {
		t.Fatalf("top-left = %v", got)
	}
	if got := corner(800, 600); got != (mgl32.Vec2{1, -1}) {
		t.Fatalf("bottom-right = %v", got)
	}
}

type output gpu.Texture

func (o output) Output() gpu.Texture { return gpu.Texture(o) }

func TestSubViewDrawsSourceFlipped(t *testing.T) {
	dev, c := newCompositor(t)
	tex, err := dev.CreateTexture(gpu.TextureDesc{Format: gpu.FormatRGBA8, Width: 4, Height: 4})
	if err != nil {
		t.Fatal(err)
	}
	sv := ui.NewSubView(ui.Rect{W: 200, H: 100}, output(tex))
	if err := c.Compose(sv); err != nil {
		t.Fatal(err)
	}
	if len(dev.DrawLog) != 1 {
		t.Fatalf("draws = %d", len(dev.DrawLog))
	}
	if dev.Slots[shaders.SlotDiffuse] != tex {
		t.Fatal("sub view did not bind its source texture")
	}
	mesh := dev.Meshes[dev.DrawLog[0].Mesh]
	if mesh.Vertices[3] != 1 {
		t.Fatalf("sub view quad must flip v, got %v", mesh.Vertices[:4])
	}
	if err := c.Compose(ui.NewSubView(ui.Rect{W: 1, H: 1}, output(0))); err != nil || len(dev.DrawLog) != 1 {
		t.Fatal("a source without output must draw nothing")
	}
}

func TestHit(t *testing.T) {
	root := &ui.Node{Rect: ui.Rect{W: 100, H: 100}}
	a := ui.NewBox(ui.Rect{X: 10, Y: 10, W: 50, H: 50}, mgl32.Vec4{})
	b := ui.NewBox(ui.Rect{X: 40, Y: 40, W: 50, H: 50}, mgl32.Vec4{})
	root.Add(a, b)
	if ui.Hit(root, 45, 45) != b {
		t.Fatal("overlap must pick the later child")
	}
	if ui.Hit(root, 15, 15) != a {
		t.Fatal("expected a")
	}
	if ui.Hit(root, 5, 95) != root {
		t.Fatal("expected root")
	}
	if ui.Hit(root, 150, 5) != nil {
		t.Fatal("expected nil outside")
	}
}

type failing struct{ ui.Node }

func (failing) Draw(*ui.Compositor) error { return errors.New("boom") }

func TestComposeStopsOnElementError(t *testing.T) {
	dev, c := newCompositor(t)
	root := &ui.Node{}
	root.Add(&failing{}, ui.NewBox(ui.Rect{W: 1, H: 1}, mgl32.Vec4{1, 1, 1, 1}))
	if err := c.Compose(root); err == nil {
		t.Fatal("expected the element error")
	}
	if len(dev.DrawLog) != 0 {
		t.Fatal("elements after a failure must not draw")
	}
}

func TestReleaseFreesEverything(t *testing.T) {
	dev, c := newCompositor(t)
	before := len(dev.Programs)
	c.Release()
	if live := dev.Live() - before; live != 0 {
		t.Fatalf("%d resources leaked", live)
	}
}
