// Package fbo owns the framebuffer objects and attached textures of the 3D
// and 2D pipelines. Screen-sized targets are always reallocated as a whole.
package fbo

import (
	"fmt"

	"mini-engine/internal/gpu"
)

// AllocError names the target whose allocation failed.
type AllocError struct {
	Target string
	Err    error
}

func (e *AllocError) Error() string {
	return fmt.Sprintf("allocate %s framebuffer: %v", e.Target, e.Err)
}

func (e *AllocError) Unwrap() error { return e.Err }

// Target is a framebuffer with its attachments.
type Target struct {
	FB    gpu.Framebuffer
	Color []gpu.Texture
	Depth gpu.Texture
	W, H  int
}

// ScaledSize returns the render target size for a window size and a
// pixelation divisor: (max(1, w/p), max(1, h/p)) with integer division.
func ScaledSize(w, h, pixelation int) (int, int) {
	if pixelation < 1 {
		pixelation = 1
	}
	return max(1, w/pixelation), max(1, h/pixelation)
}

// allocator records every resource it creates so a set can be released as a
// unit, including after a failed partial allocation.
type allocator struct {
	dev          gpu.Device
	textures     []gpu.Texture
	framebuffers []gpu.Framebuffer
	buffers      []gpu.Buffer
}

func (a *allocator) texture(target string, desc gpu.TextureDesc) (gpu.Texture, error) {
	t, err := a.dev.CreateTexture(desc)
	if err != nil {
		return 0, &AllocError{Target: target, Err: err}
	}
	a.textures = append(a.textures, t)
	return t, nil
}

func (a *allocator) framebuffer(target string, desc gpu.FramebufferDesc) (gpu.Framebuffer, error) {
	f, err := a.dev.CreateFramebuffer(desc)
	if err != nil {
		return 0, &AllocError{Target: target, Err: err}
	}
	a.framebuffers = append(a.framebuffers, f)
	return f, nil
}

func (a *allocator) buffer(target string, size int) (gpu.Buffer, error) {
	b, err := a.dev.CreateStorageBuffer(size)
	if err != nil {
		return 0, &AllocError{Target: target, Err: err}
	}
	a.buffers = append(a.buffers, b)
	return b, nil
}

// target creates a 2D framebuffer with one texture per color format and
// either a fresh depth texture (ownDepth) or the shared one.
func (a *allocator) target(name string, w, h int, colors []gpu.Format, ownDepth bool, shared gpu.Texture) (Target, error) {
	t := Target{W: w, H: h}
	var desc gpu.FramebufferDesc
	for _, f := range colors {
		tex, err := a.texture(name, gpu.TextureDesc{Kind: gpu.Texture2D, Format: f, Width: w, Height: h, Filter: filterFor(f)})
		if err != nil {
			return Target{}, err
		}
		t.Color = append(t.Color, tex)
		desc.Color = append(desc.Color, gpu.Attachment{Texture: tex, Layer: -1})
	}
	switch {
	case ownDepth:
		tex, err := a.texture(name, gpu.TextureDesc{Kind: gpu.Texture2D, Format: gpu.FormatDepth32F, Width: w, Height: h})
		if err != nil {
			return Target{}, err
		}
		t.Depth = tex
	case shared != 0:
		t.Depth = shared
	}
	if t.Depth != 0 {
		desc.Depth = &gpu.Attachment{Texture: t.Depth, Layer: -1}
	}
	fb, err := a.framebuffer(name, desc)
	if err != nil {
		return Target{}, err
	}
	t.FB = fb
	return t, nil
}

// filterFor samples color targets linearly; float data and depth are read
// texel-exact.
func filterFor(f gpu.Format) gpu.Filter {
	if f == gpu.FormatRGBA8 || f == gpu.FormatRGBA16F {
		return gpu.FilterLinear
	}
	return gpu.FilterNearest
}

func (a *allocator) release() {
	for _, f := range a.framebuffers {
		a.dev.DeleteFramebuffer(f)
	}
	for _, t := range a.textures {
		a.dev.DeleteTexture(t)
	}
	for _, b := range a.buffers {
		a.dev.DeleteStorageBuffer(b)
	}
	a.framebuffers = a.framebuffers[:0]
	a.textures = a.textures[:0]
	a.buffers = a.buffers[:0]
}

func (a *allocator) live() int {
	return len(a.framebuffers) + len(a.textures) + len(a.buffers)
}
