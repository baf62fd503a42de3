package fbo

import (
	"fmt"

	"mini-engine/internal/gpu"
	"mini-engine/internal/lights"
)

// ShadowMaps is a depth texture array with one framebuffer per layer. It
// hands out layers to lights as a lights.SlotAllocator.
type ShadowMaps struct {
	dev   gpu.Device
	alloc allocator

	Texture gpu.Texture
	Layers  []gpu.Framebuffer
	Size    int

	used []bool
}

var _ lights.SlotAllocator = (*ShadowMaps)(nil)

func newShadowMaps(dev gpu.Device) *ShadowMaps {
	return &ShadowMaps{dev: dev, alloc: allocator{dev: dev}}
}

// Allocated reports whether the array exists.
func (m *ShadowMaps) Allocated() bool { return m.Texture != 0 }

// generate recreates the GPU resources. Slot bookkeeping survives when the
// layer count is unchanged, so lights keep their layers across a resize of
// the shadow maps.
func (m *ShadowMaps) generate(size, layers int) (err error) {
	if layers < 1 {
		return &AllocError{Target: "shadows", Err: fmt.Errorf("invalid layer count %d", layers)}
	}
	m.alloc.release()
	m.Texture, m.Layers = 0, nil
	defer func() {
		if err != nil {
			m.alloc.release()
			m.Texture, m.Layers = 0, nil
		}
	}()

	tex, err := m.alloc.texture("shadows", gpu.TextureDesc{
		Kind:    gpu.Texture2DArray,
		Format:  gpu.FormatDepth32F,
		Width:   size,
		Height:  size,
		Layers:  layers,
		Filter:  gpu.FilterLinear,
		Compare: true,
	})
	if err != nil {
		return err
	}
	fbs := make([]gpu.Framebuffer, layers)
	for i := range fbs {
		f, err := m.alloc.framebuffer(fmt.Sprintf("shadows[%d]", i), gpu.FramebufferDesc{
			Depth: &gpu.Attachment{Texture: tex, Layer: i},
		})
		if err != nil {
			return err
		}
		fbs[i] = f
	}
	m.Texture, m.Layers, m.Size = tex, fbs, size
	if len(m.used) != layers {
		m.used = make([]bool, layers)
	}
	return nil
}

func (m *ShadowMaps) destroy() {
	m.alloc.release()
	m.Texture, m.Layers, m.Size = 0, nil, 0
}

// Acquire reserves n free layers.
func (m *ShadowMaps) Acquire(n int) ([]int, error) {
	if !m.Allocated() {
		return nil, lights.ErrShadowsNotAllocated
	}
	out := make([]int, 0, n)
	for i := range m.used {
		if len(out) == n {
			break
		}
		if !m.used[i] {
			out = append(out, i)
		}
	}
	if len(out) < n {
		return nil, fmt.Errorf("%w: %d shadow layers free, %d needed", lights.ErrLightLimit, len(out), n)
	}
	for _, i := range out {
		m.used[i] = true
	}
	return out, nil
}

// Release returns layers to the pool.
func (m *ShadowMaps) Release(slots []int) {
	for _, i := range slots {
		if i >= 0 && i < len(m.used) {
			m.used[i] = false
		}
	}
}

// Framebuffer returns the framebuffer rendering into layer slot.
func (m *ShadowMaps) Framebuffer(slot int) (gpu.Framebuffer, bool) {
	if slot < 0 || slot >= len(m.Layers) {
		return 0, false
	}
	return m.Layers[slot], true
}
