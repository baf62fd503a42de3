package fbo_test

import (
	"errors"
	"testing"

	"mini-engine/internal/fbo"
	"mini-engine/internal/gpu"
	"mini-engine/internal/gpu/gputest"
	"mini-engine/internal/lights"
)

func TestScaledSize(t *testing.T) {
	cases := []struct{ w, h, p, ew, eh int }{
		{800, 600, 1, 800, 600},
		{800, 600, 3, 266, 200},
		{1, 1, 4, 1, 1},
		{0, 0, 1, 1, 1},
		{1919, 1079, 2, 959, 539},
	}
	for _, c := range cases {
		w, h := fbo.ScaledSize(c.w, c.h, c.p)
		if w != c.ew || h != c.eh {
			t.Errorf("ScaledSize(%d,%d,%d) = %d,%d want %d,%d", c.w, c.h, c.p, w, h, c.ew, c.eh)
		}
	}
}

func TestGenerateSizesEveryScreenTarget(t *testing.T) {
	dev := gputest.New()
	s := fbo.New(dev, fbo.Options{Pixelation: 3, HDRSampleSize: 16})
	if err := s.Generate(1280, 721); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	w, h := s.Size()
	if w != 426 || h != 240 {
		t.Fatalf("Size = %dx%d", w, h)
	}
	for _, tgt := range []fbo.Target{s.GBuffer, s.Light, s.Transparency, s.Godray, s.Out} {
		for _, tex := range tgt.Color {
			d := dev.Textures[tex]
			if d.Width != w || d.Height != h {
				t.Fatalf("texture %d is %dx%d", tex, d.Width, d.Height)
			}
		}
	}
	if len(s.GBuffer.Color) != 5 || s.GBuffer.Depth == 0 {
		t.Fatalf("G-buffer must have 5 color attachments and depth")
	}
	if s.Transparency.Depth != s.GBuffer.Depth {
		t.Fatalf("transparency must share the G-buffer depth")
	}
	if d := dev.Textures[s.HDR.Color[0]]; d.Width != 16 || d.Height != 16 {
		t.Fatalf("HDR target is %dx%d", d.Width, d.Height)
	}
	if dev.Bound != gpu.Screen {
		t.Fatalf("Generate must leave the screen bound")
	}
}

func TestResizeCycleLeaksNothing(t *testing.T) {
	dev := gputest.New()
	s := fbo.New(dev, fbo.Options{Pixelation: 2, LLTransparency: true})
	sizes := [][2]int{{640, 480}, {1920, 1080}, {3, 5}, {800, 600}}
	if err := s.Generate(sizes[0][0], sizes[0][1]); err != nil {
		t.Fatal(err)
	}
	live := dev.Live()
	for _, sz := range sizes[1:] {
		allocated, released := dev.Allocated, dev.Released
		if err := s.Generate(sz[0], sz[1]); err != nil {
			t.Fatal(err)
		}
		if dev.Allocated-allocated != dev.Released-released {
			t.Fatalf("resize to %v: %d allocated, %d released", sz, dev.Allocated-allocated, dev.Released-released)
		}
		if dev.Live() != live {
			t.Fatalf("live handles changed across resize: %d -> %d", live, dev.Live())
		}
		w, h := fbo.ScaledSize(sz[0], sz[1], 2)
		if got := dev.Textures[s.GBuffer.Color[0]]; got.Width != w || got.Height != h {
			t.Fatalf("resize to %v: G-buffer %dx%d", sz, got.Width, got.Height)
		}
	}
	if s.LLHeads == 0 || s.LLNodes == 0 || s.LLCounter == 0 {
		t.Fatalf("LL buffers missing")
	}
	s.Destroy()
	if dev.Live() != 0 || dev.Allocated != dev.Released {
		t.Fatalf("Destroy leaked %d handles", dev.Live())
	}
	if err := s.Generate(100, 100); err != nil {
		t.Fatalf("Generate after Destroy: %v", err)
	}
	if !s.Generated() {
		t.Fatalf("not generated")
	}
}

func TestAllocFailureNamesTargetAndCleansUp(t *testing.T) {
	dev := gputest.New()
	dev.FailFramebuffer = func(desc gpu.FramebufferDesc) error {
		if len(desc.Color) == 1 && desc.Depth != nil && dev.Textures[desc.Color[0].Texture].Format == gpu.FormatRGBA16F {
			return errors.New("incomplete")
		}
		return nil
	}
	s := fbo.New(dev, fbo.Options{})
	err := s.Generate(64, 64)
	var ae *fbo.AllocError
	if !errors.As(err, &ae) || ae.Target != "transparency" {
		t.Fatalf("expected AllocError for transparency, got %v", err)
	}
	if dev.Live() != 0 || s.Generated() {
		t.Fatalf("failed Generate left %d handles", dev.Live())
	}
}

func TestShadowSlotsRequireAllocation(t *testing.T) {
	dev := gputest.New()
	s := fbo.New(dev, fbo.Options{})
	if _, err := s.Shadows().Acquire(1); !errors.Is(err, lights.ErrShadowsNotAllocated) {
		t.Fatalf("expected ErrShadowsNotAllocated, got %v", err)
	}
	if err := s.GenerateShadows(256, lights.MaxLights); err != nil {
		t.Fatal(err)
	}
	if len(s.Shadows().Layers) != lights.MaxLights {
		t.Fatalf("expected one framebuffer per layer")
	}
	d := dev.Textures[s.Shadows().Texture]
	if d.Kind != gpu.Texture2DArray || d.Layers != lights.MaxLights || !d.Compare {
		t.Fatalf("unexpected shadow texture %+v", d)
	}
	slots, err := s.Shadows().Acquire(6)
	if err != nil || len(slots) != 6 {
		t.Fatalf("Acquire: %v %v", slots, err)
	}
	if _, err := s.Shadows().Acquire(lights.MaxLights); !errors.Is(err, lights.ErrLightLimit) {
		t.Fatalf("expected ErrLightLimit, got %v", err)
	}
	s.Shadows().Release(slots)
	if _, err := s.Shadows().Acquire(lights.MaxLights); err != nil {
		t.Fatalf("released slots not reusable: %v", err)
	}
	s.Destroy()
	if dev.Live() != 0 {
		t.Fatalf("shadow maps leaked")
	}
}

func TestListWithShadowMaps(t *testing.T) {
	dev := gputest.New()
	s := fbo.New(dev, fbo.Options{})
	l := lights.NewList()
	if err := l.EnableShadows(s.Shadows()); err != nil {
		t.Fatal(err)
	}
	li := &lights.Light{Kind: lights.KindSpot, Radius: 4, CastShadows: true}
	if err := l.Add(li); !errors.Is(err, lights.ErrShadowsNotAllocated) {
		t.Fatalf("expected ErrShadowsNotAllocated, got %v", err)
	}
	if err := s.GenerateShadows(128, lights.MaxLights); err != nil {
		t.Fatal(err)
	}
	if err := l.Add(li); err != nil {
		t.Fatalf("Add after GenerateShadows: %v", err)
	}
	if v := li.Prepare()[0]; !v.Shadowed() {
		t.Fatalf("light should have a shadow slot")
	}
}
