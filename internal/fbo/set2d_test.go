package fbo_test

import (
	"testing"

	"mini-engine/internal/fbo"
	"mini-engine/internal/gpu"
	"mini-engine/internal/gpu/gputest"
	"mini-engine/internal/lights"
)

func TestSet2DLightmaps(t *testing.T) {
	dev := gputest.New()
	s := fbo.New2D(dev, fbo.Options2D{Pixelation: 1, LightmapSize: 256, Lightmap1DWidth: 512})
	if err := s.Generate(320, 200); err != nil {
		t.Fatal(err)
	}
	list := lights.NewList2D(s)
	flat := &lights.Light2D{Width: 3}
	angular := &lights.Light2D{Width: 3, OneD: true}
	if err := list.Add(flat); err != nil {
		t.Fatal(err)
	}
	if err := list.Add(angular); err != nil {
		t.Fatal(err)
	}
	m1 := flat.Lightmap().(*fbo.Lightmap)
	m2 := angular.Lightmap().(*fbo.Lightmap)
	if d := dev.Textures[m1.Color[0]]; d.Kind != gpu.Texture2D || d.Width != 256 {
		t.Fatalf("2D lightmap %+v", d)
	}
	if d := dev.Textures[m2.Color[0]]; d.Kind != gpu.Texture1D || d.Width != 512 {
		t.Fatalf("1D lightmap %+v", d)
	}
	if m2.Depth == 0 {
		t.Fatalf("1D lightmap needs a depth attachment")
	}
	live := dev.Live()
	if err := list.Remove(flat); err != nil {
		t.Fatal(err)
	}
	if dev.Live() != live-2 {
		t.Fatalf("freeing a 2D lightmap should release its texture and framebuffer")
	}
	s.Destroy()
	if dev.Live() != 0 {
		t.Fatalf("Destroy leaked %d handles", dev.Live())
	}
}
