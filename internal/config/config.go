package config

import "sync"

// Render holds the pipeline feature switches read once per frame.
type Render struct {
	// Deferred selects the deferred pipeline; false renders forward.
	Deferred bool
	Shadows  bool
	// GoodGraphics enables percentage-closer filtering of shadow lookups.
	GoodGraphics   bool
	SSAO           bool
	LLTransparency bool
	Godrays        bool
	HDR            bool
	Toonify        bool
	Grayscale      bool
	MotionBlur     bool
	Reflections    bool

	// Pixelation divides the render target size (1 = full resolution).
	Pixelation int
	// ShadowTexSize is the edge length of every shadow map layer.
	ShadowTexSize int
	// FPSLimit caps the frame loop; 0 is unlimited.
	FPSLimit int

	// Debug turns GPU errors into frame-aborting errors.
	Debug bool

	// NoLightEngine2D bypasses 2D lighting and draws with straight alpha.
	NoLightEngine2D bool
	// OneDLights2D stores 2D light visibility as a 1D angular depth map.
	OneDLights2D bool
}

// DefaultRender returns the settings a fresh engine starts with.
func DefaultRender() Render {
	return Render{
		Deferred:      true,
		Shadows:       true,
		GoodGraphics:  true,
		SSAO:          true,
		Godrays:       true,
		HDR:           true,
		Reflections:   true,
		Pixelation:    1,
		ShadowTexSize: 1024,
		FPSLimit:      144,
		OneDLights2D:  true,
	}
}

// Settings guards a Render value shared between the render thread and
// whatever edits it (menus, flags, the console).
type Settings struct {
	mu     sync.RWMutex
	render Render
}

// NewSettings returns settings initialized from r, clamped.
func NewSettings(r Render) *Settings {
	s := &Settings{}
	s.render = clamp(r)
	return s
}

// Snapshot returns a copy of the current settings.
func (s *Settings) Snapshot() Render {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.render
}

// Update edits the settings under the write lock and clamps the result.
func (s *Settings) Update(fn func(r *Render)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.render
	fn(&r)
	s.render = clamp(r)
}

// GetPixelation returns the render target divisor.
func (s *Settings) GetPixelation() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.render.Pixelation
}

// SetPixelation sets the render target divisor.
func (s *Settings) SetPixelation(p int) {
	s.Update(func(r *Render) { r.Pixelation = p })
}

// GetFPSLimit returns the frame cap; 0 means unlimited.
func (s *Settings) GetFPSLimit() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.render.FPSLimit
}

// SetFPSLimit sets the frame cap.
func (s *Settings) SetFPSLimit(limit int) {
	s.Update(func(r *Render) { r.FPSLimit = limit })
}

func clamp(r Render) Render {
	// Clamp to reasonable values
	if r.Pixelation < 1 {
		r.Pixelation = 1
	}
	if r.Pixelation > 16 {
		r.Pixelation = 16
	}
	if r.ShadowTexSize < 128 {
		r.ShadowTexSize = 128
	}
	if r.ShadowTexSize > 8192 {
		r.ShadowTexSize = 8192
	}
	r.ShadowTexSize = nextPowerOfTwo(r.ShadowTexSize)
	if r.FPSLimit < 0 {
		r.FPSLimit = 0
	}
	if r.FPSLimit > 1000 {
		r.FPSLimit = 1000
	}
	return r
}

func nextPowerOfTwo(v int) int {
	p := 1
	for p < v {
		p <<= 1
	}
	return p
}
