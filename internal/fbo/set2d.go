package fbo

import (
	"mini-engine/internal/gpu"
	"mini-engine/internal/lights"
)

// Options2D configures the 2D framebuffer set.
type Options2D struct {
	Pixelation int
	// LightmapSize is the edge of a square 2D lightmap.
	LightmapSize int
	// Lightmap1DWidth is the angular resolution of a 1D lightmap.
	Lightmap1DWidth int
}

// Lightmap is a 2D light's visibility target.
type Lightmap struct {
	Target
	oneD  bool
	alloc allocator
}

// OneD reports whether the lightmap is a 1D angular depth map.
func (m *Lightmap) OneD() bool { return m.oneD }

// Set2D is the 2D pipeline's framebuffer set: the unlit scene, the light
// accumulation buffer, the sub-engine output and one lightmap per light.
type Set2D struct {
	dev   gpu.Device
	opts  Options2D
	alloc allocator

	width, height int
	generated     bool

	Scene Target
	Light Target
	Out   Target

	lightmaps map[*Lightmap]struct{}
}

var _ lights.LightmapAllocator = (*Set2D)(nil)

// New2D returns an empty 2D set.
func New2D(dev gpu.Device, opts Options2D) *Set2D {
	s := &Set2D{dev: dev, alloc: allocator{dev: dev}, lightmaps: make(map[*Lightmap]struct{})}
	s.Configure(opts)
	return s
}

// Configure replaces the options used by the next Generate. Existing
// lightmaps keep their size until reallocated.
func (s *Set2D) Configure(opts Options2D) {
	if opts.Pixelation < 1 {
		opts.Pixelation = 1
	}
	if opts.LightmapSize < 1 {
		opts.LightmapSize = 512
	}
	if opts.Lightmap1DWidth < 1 {
		opts.Lightmap1DWidth = 1024
	}
	s.opts = opts
}

// Size returns the scaled render target size.
func (s *Set2D) Size() (int, int) { return s.width, s.height }

// Generated reports whether the screen-sized targets exist.
func (s *Set2D) Generated() bool { return s.generated }

// Generate (re)allocates the screen-sized targets and binds the screen.
func (s *Set2D) Generate(w, h int) (err error) {
	defer s.dev.BindFramebuffer(gpu.Screen)
	if s.generated {
		s.destroyTargets()
	}
	defer func() {
		if err != nil {
			s.destroyTargets()
		}
	}()
	sw, sh := ScaledSize(w, h, s.opts.Pixelation)
	a := &s.alloc
	if s.Scene, err = a.target("scene2d", sw, sh, []gpu.Format{gpu.FormatRGBA8}, false, 0); err != nil {
		return err
	}
	if s.Light, err = a.target("light2d", sw, sh, []gpu.Format{gpu.FormatRGBA16F}, false, 0); err != nil {
		return err
	}
	if s.Out, err = a.target("out2d", sw, sh, []gpu.Format{gpu.FormatRGBA8}, false, 0); err != nil {
		return err
	}
	s.width, s.height = sw, sh
	s.generated = true
	return nil
}

func (s *Set2D) destroyTargets() {
	s.alloc.release()
	s.Scene, s.Light, s.Out = Target{}, Target{}, Target{}
	s.width, s.height = 0, 0
	s.generated = false
}

// Destroy releases the screen-sized targets and every lightmap.
func (s *Set2D) Destroy() {
	s.destroyTargets()
	for m := range s.lightmaps {
		m.alloc.release()
		m.Target = Target{}
	}
	clear(s.lightmaps)
}

// Live returns the number of GPU resources the set currently owns.
func (s *Set2D) Live() int {
	n := s.alloc.live()
	for m := range s.lightmaps {
		n += m.alloc.live()
	}
	return n
}

// AllocLightmap creates a lightmap target. A 1D lightmap stores the nearest
// occluder distance per angle and has a 1D depth attachment for the depth
// test; a 2D lightmap is a square occluder mask.
func (s *Set2D) AllocLightmap(oneD bool) (lights.Lightmap, error) {
	m := &Lightmap{oneD: oneD, alloc: allocator{dev: s.dev}}
	defer s.dev.BindFramebuffer(gpu.Screen)
	if oneD {
		w := s.opts.Lightmap1DWidth
		color, err := m.alloc.texture("lightmap1d", gpu.TextureDesc{Kind: gpu.Texture1D, Format: gpu.FormatR32F, Width: w, Height: 1, Filter: gpu.FilterLinear})
		if err != nil {
			m.alloc.release()
			return nil, err
		}
		depth, err := m.alloc.texture("lightmap1d", gpu.TextureDesc{Kind: gpu.Texture1D, Format: gpu.FormatDepth32F, Width: w, Height: 1})
		if err != nil {
			m.alloc.release()
			return nil, err
		}
		fb, err := m.alloc.framebuffer("lightmap1d", gpu.FramebufferDesc{
			Color: []gpu.Attachment{{Texture: color, Layer: -1}},
			Depth: &gpu.Attachment{Texture: depth, Layer: -1},
		})
		if err != nil {
			m.alloc.release()
			return nil, err
		}
		m.Target = Target{FB: fb, Color: []gpu.Texture{color}, Depth: depth, W: w, H: 1}
	} else {
		size := s.opts.LightmapSize
		t, err := m.alloc.target("lightmap2d", size, size, []gpu.Format{gpu.FormatRGBA8}, false, 0)
		if err != nil {
			m.alloc.release()
			return nil, err
		}
		m.Target = t
	}
	s.lightmaps[m] = struct{}{}
	return m, nil
}

// FreeLightmap releases a lightmap created by AllocLightmap.
func (s *Set2D) FreeLightmap(l lights.Lightmap) {
	m, ok := l.(*Lightmap)
	if !ok {
		return
	}
	if _, ok := s.lightmaps[m]; !ok {
		return
	}
	m.alloc.release()
	m.Target = Target{}
	delete(s.lightmaps, m)
}
