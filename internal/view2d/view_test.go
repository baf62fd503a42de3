package view2d_test

import (
	"errors"
	"testing"

	"mini-engine/internal/config"
	"mini-engine/internal/fbo"
	"mini-engine/internal/gpu"
	"mini-engine/internal/gpu/gputest"
	"mini-engine/internal/lights"
	"mini-engine/internal/render"
	"mini-engine/internal/shaders"
	"mini-engine/internal/view2d"

	"github.com/go-gl/mathgl/mgl32"
)

type sprite struct {
	name   string
	mat    render.Material
	passes []render.Pass
}

func (s *sprite) Position() mgl32.Vec3      { return mgl32.Vec3{} }
func (s *sprite) Material() render.Material { return s.mat }
func (s *sprite) Name() string              { return s.name }

func (s *sprite) Render(ctx *render.Context) error {
	s.passes = append(s.passes, ctx.Pass)
	ctx.DrawMesh(1, 6)
	return nil
}

type fixture struct {
	dev     *gputest.Device
	view    *view2d.View
	buffers *fbo.Set2D
	lights  *lights.List2D
}

func newFixture(t *testing.T, edit func(r *config.Render), sub bool) *fixture {
	t.Helper()
	cfg := config.DefaultRender()
	if edit != nil {
		edit(&cfg)
	}
	dev := gputest.New()
	set := shaders.New(dev, nil, nil)
	buffers := fbo.New2D(dev, fbo.Options2D{LightmapSize: 64, Lightmap1DWidth: 128})
	if err := buffers.Generate(320, 240); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	list := lights.NewList2D(buffers)
	v := view2d.New(view2d.Options{
		Device:    dev,
		Shaders:   set,
		Buffers:   buffers,
		Lights:    list,
		Settings:  config.NewSettings(cfg),
		Tuning:    config.DefaultTuning(),
		SubEngine: sub,
	})
	if err := set.Preload(v.RequiredShaders(cfg)...); err != nil {
		t.Fatalf("Preload: %v", err)
	}
	if err := v.Load(); err != nil {
		t.Fatal(err)
	}
	v.Resize(320, 240)
	dev.ResetLog()
	return &fixture{dev: dev, view: v, buffers: buffers, lights: list}
}

func lightmapFB(t *testing.T, li *lights.Light2D) gpu.Framebuffer {
	t.Helper()
	lm, ok := li.Lightmap().(*fbo.Lightmap)
	if !ok {
		t.Fatalf("light has no lightmap")
	}
	return lm.FB
}

func TestNoLightEngineDrawsDirectly(t *testing.T) {
	f := newFixture(t, func(r *config.Render) { r.NoLightEngine2D = true }, false)
	a, b := &sprite{name: "a"}, &sprite{name: "b", mat: render.Transparent}
	if err := f.view.Render(render.Frame{Entities: []render.Renderable{a, b}}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	draws := f.dev.DrawsTo(gpu.Screen)
	if len(draws) != 2 || len(f.dev.DrawLog) != 2 {
		t.Fatalf("draws = %+v", f.dev.DrawLog)
	}
	for _, d := range draws {
		if d.ProgramName != "colormult2d" || d.Blend != gpu.BlendAlpha {
			t.Fatalf("direct draw = %+v", d)
		}
	}
}

func TestLitPipeline(t *testing.T) {
	f := newFixture(t, nil, false)
	lamp := &lights.Light2D{Position: mgl32.Vec2{1, 2}, Color: mgl32.Vec3{1, 0.5, 0}, Width: 6, OneD: true}
	sky := &lights.Light2D{Color: mgl32.Vec3{0.2, 0.2, 0.3}, Width: 100, Sky: true}
	for _, li := range []*lights.Light2D{lamp, sky} {
		if err := f.lights.Add(li); err != nil {
			t.Fatal(err)
		}
	}
	wall := &sprite{name: "wall"}
	glass := &sprite{name: "glass", mat: render.Transparent}
	if err := f.view.Render(render.Frame{Entities: []render.Renderable{wall, glass}}); err != nil {
		t.Fatalf("Render: %v", err)
	}

	if d := f.dev.DrawsTo(f.buffers.Scene.FB); len(d) != 2 {
		t.Fatalf("scene draws = %d", len(d))
	}
	for _, li := range []*lights.Light2D{lamp, sky} {
		d := f.dev.DrawsTo(lightmapFB(t, li))
		if len(d) != 1 {
			t.Fatalf("lightmap draws = %d, want only the opaque caster", len(d))
		}
	}
	if d := f.dev.DrawsTo(lightmapFB(t, lamp)); d[0].ProgramName != "lightmap2d,MCM_1D" || !d[0].Depth.Test {
		t.Fatalf("1D lightmap draw = %+v", d[0])
	}

	combine := f.dev.DrawsTo(f.buffers.Light.FB)
	if len(combine) != 2 {
		t.Fatalf("combine draws = %d", len(combine))
	}
	if combine[0].ProgramName != "lightcombine2d,MCM_1D" || combine[1].ProgramName != "lightcombine2d,MCM_SKY" {
		t.Fatalf("combine programs = %s, %s", combine[0].ProgramName, combine[1].ProgramName)
	}
	for _, d := range combine {
		if d.Blend != gpu.BlendOne || !d.Fullscreen {
			t.Fatalf("combine draw state = %+v", d)
		}
	}
	params, _ := f.dev.Uniform(combine[0].Program, shaders.LocLightParams)
	if params != (mgl32.Vec4{6, config.DefaultTuning().Light2DFalloff, 0, 0}) {
		t.Fatalf("light params = %v", params)
	}

	out := f.dev.DrawsTo(gpu.Screen)
	if len(out) != 1 || out[0].ProgramName != "addtoscene2d" {
		t.Fatalf("compose draws = %+v", out)
	}
	last := f.dev.DrawLog[len(f.dev.DrawLog)-1]
	if last.Framebuffer != gpu.Screen {
		t.Fatal("compose must be the last draw")
	}
	if len(glass.passes) != 1 || len(wall.passes) != 3 {
		t.Fatalf("passes: wall %v glass %v", wall.passes, glass.passes)
	}
}

func TestNoLightsLeavesAmbient(t *testing.T) {
	f := newFixture(t, nil, false)
	if err := f.view.Render(render.Frame{Entities: []render.Renderable{&sprite{name: "a"}}}); err != nil {
		t.Fatal(err)
	}
	if d := f.dev.DrawsTo(f.buffers.Light.FB); len(d) != 0 {
		t.Fatalf("light draws = %d", len(d))
	}
	want := config.DefaultTuning().AmbientFloor.Vec4(1)
	for _, c := range f.dev.ClearLog {
		if c.Framebuffer == f.buffers.Light.FB && c.Color != want {
			t.Fatalf("light target cleared to %v", c.Color)
		}
	}
	if d := f.dev.DrawsTo(gpu.Screen); len(d) != 1 {
		t.Fatalf("compose draws = %d", len(d))
	}
}

func TestSubEngineWritesOut(t *testing.T) {
	f := newFixture(t, nil, true)
	if err := f.view.Render(render.Frame{}); err != nil {
		t.Fatal(err)
	}
	if d := f.dev.DrawsTo(gpu.Screen); len(d) != 0 {
		t.Fatal("sub-engine drew to the screen")
	}
	if d := f.dev.DrawsTo(f.buffers.Out.FB); len(d) != 1 {
		t.Fatalf("out draws = %d", len(d))
	}
	if f.view.Output() != f.buffers.Out.Color[0] {
		t.Fatal("Output mismatch")
	}
}

func TestDebugModeReturnsPassError(t *testing.T) {
	f := newFixture(t, func(r *config.Render) { r.Debug = true }, false)
	boom := errors.New("GL_INVALID_ENUM")
	f.dev.InjectError(boom)
	err := f.view.Render(render.Frame{})
	var perr *view2d.PassError
	if !errors.As(err, &perr) || perr.Pass != "scene" || !errors.Is(err, boom) {
		t.Fatalf("Render = %v", err)
	}
}

func TestShadeTexel(t *testing.T) {
	got := view2d.ShadeTexel(mgl32.Vec4{0.8, 0.4, 0.2, 0.5}, mgl32.Vec3{0.25, 1, 4})
	want := mgl32.Vec4{0.4, 0.4, 0.4, 0.5}
	if !got.ApproxEqual(want) {
		t.Fatalf("ShadeTexel = %v, want %v", got, want)
	}
	if got := view2d.ShadeTexel(mgl32.Vec4{1, 1, 1, 1}, mgl32.Vec3{-1, 0, 0.01}); !got.ApproxEqual(mgl32.Vec4{0, 0, 0.1, 1}) {
		t.Fatalf("ShadeTexel clamp = %v", got)
	}
}
