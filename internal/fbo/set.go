package fbo

import (
	"mini-engine/internal/gpu"
	"mini-engine/internal/shaders"
)

// Options configures the 3D framebuffer set.
type Options struct {
	Pixelation int
	// HDRSampleSize is the edge of the fixed brightness sampling target.
	HDRSampleSize int
	// LLTransparency allocates the linked-list transparency buffers.
	LLTransparency bool
	// LLNodesPerPixel sizes the fragment node pool.
	LLNodesPerPixel int
}

// G-buffer color attachment order.
const (
	GColor = iota
	GPosition
	GNormal
	GRenderHint
	GRenderHint2
)

// Set is the 3D pipeline's framebuffer set.
type Set struct {
	dev   gpu.Device
	opts  Options
	alloc allocator

	width, height int
	generated     bool

	// GBuffer holds color, position, normal and both render hints plus depth.
	GBuffer Target
	// Light accumulates per-light contributions.
	Light Target
	// Transparency shares the G-buffer depth; it is tested, never written.
	Transparency Target
	Godray       Target
	// Out receives the final composite of a sub-engine.
	Out Target
	HDR Target

	LLHeads   gpu.Buffer
	LLNodes   gpu.Buffer
	LLCounter gpu.Buffer

	shadows *ShadowMaps
}

// New returns an empty set. Nothing is allocated until Generate.
func New(dev gpu.Device, opts Options) *Set {
	s := &Set{dev: dev, alloc: allocator{dev: dev}}
	s.Configure(opts)
	s.shadows = newShadowMaps(dev)
	return s
}

// Configure replaces the options used by the next Generate.
func (s *Set) Configure(opts Options) {
	if opts.Pixelation < 1 {
		opts.Pixelation = 1
	}
	if opts.HDRSampleSize < 1 {
		opts.HDRSampleSize = 16
	}
	if opts.LLNodesPerPixel < 1 {
		opts.LLNodesPerPixel = 4
	}
	s.opts = opts
}

// Options returns the current options.
func (s *Set) Options() Options { return s.opts }

// Size returns the scaled render target size.
func (s *Set) Size() (int, int) { return s.width, s.height }

// Generated reports whether the screen-sized targets exist.
func (s *Set) Generated() bool { return s.generated }

// Generate allocates every screen-sized target for a w x h window. An
// existing allocation is destroyed first. The screen framebuffer is bound
// when Generate returns.
func (s *Set) Generate(w, h int) (err error) {
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
	s.GBuffer, err = a.target("gbuffer", sw, sh, []gpu.Format{
		gpu.FormatRGBA16F, gpu.FormatRGBA32F, gpu.FormatRGBA16F, gpu.FormatRGBA8, gpu.FormatRGBA8,
	}, true, 0)
	if err != nil {
		return err
	}
	if s.Light, err = a.target("light", sw, sh, []gpu.Format{gpu.FormatRGBA16F}, false, 0); err != nil {
		return err
	}
	if s.Transparency, err = a.target("transparency", sw, sh, []gpu.Format{gpu.FormatRGBA16F}, false, s.GBuffer.Depth); err != nil {
		return err
	}
	if s.Godray, err = a.target("godray", sw, sh, []gpu.Format{gpu.FormatRGBA8}, false, 0); err != nil {
		return err
	}
	if s.Out, err = a.target("out", sw, sh, []gpu.Format{gpu.FormatRGBA8}, true, 0); err != nil {
		return err
	}
	hdr := s.opts.HDRSampleSize
	if s.HDR, err = a.target("hdr", hdr, hdr, []gpu.Format{gpu.FormatRGBA32F}, false, 0); err != nil {
		return err
	}
	if s.opts.LLTransparency {
		pixels := sw * sh
		if s.LLHeads, err = a.buffer("ll heads", pixels*4); err != nil {
			return err
		}
		if s.LLNodes, err = a.buffer("ll nodes", pixels*s.opts.LLNodesPerPixel*shaders.LLNodeSize); err != nil {
			return err
		}
		if s.LLCounter, err = a.buffer("ll counter", 4); err != nil {
			return err
		}
	}
	s.width, s.height = sw, sh
	s.generated = true
	return nil
}

func (s *Set) destroyTargets() {
	s.alloc.release()
	s.GBuffer, s.Light, s.Transparency, s.Godray, s.Out, s.HDR = Target{}, Target{}, Target{}, Target{}, Target{}, Target{}
	s.LLHeads, s.LLNodes, s.LLCounter = 0, 0, 0
	s.width, s.height = 0, 0
	s.generated = false
}

// Destroy releases every GPU resource of the set, shadow maps included.
// Generate may be called again afterwards.
func (s *Set) Destroy() {
	s.destroyTargets()
	s.shadows.destroy()
}

// Live returns the number of GPU resources the set currently owns.
func (s *Set) Live() int { return s.alloc.live() + s.shadows.alloc.live() }

// GenerateShadows (re)allocates the shadow map array: one depth layer and
// framebuffer per light view slot.
func (s *Set) GenerateShadows(size, layers int) error {
	defer s.dev.BindFramebuffer(gpu.Screen)
	return s.shadows.generate(size, layers)
}

// Shadows returns the shadow map array. It is usable as a slot allocator
// before GenerateShadows; acquiring then fails with ErrShadowsNotAllocated.
func (s *Set) Shadows() *ShadowMaps { return s.shadows }
