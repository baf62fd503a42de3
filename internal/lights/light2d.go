package lights

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// MaxLights2D bounds the 2D light list; each light owns a lightmap target.
const MaxLights2D = 16

// Lightmap is a light's offscreen visibility target.
type Lightmap interface {
	// OneD reports whether the map stores the 1D angular encoding.
	OneD() bool
}

// LightmapAllocator creates and frees per-light lightmap targets.
type LightmapAllocator interface {
	AllocLightmap(oneD bool) (Lightmap, error)
	FreeLightmap(m Lightmap)
}

// Light2D is a 2D light. Width is the radius of its lit disc in world units.
type Light2D struct {
	Position mgl32.Vec2
	Color    mgl32.Vec3
	Width    float32
	// Sky lights cover the whole view without falloff.
	Sky bool
	// OneD selects the 1D angular lightmap encoding.
	OneD bool

	lightmap Lightmap
}

// Lightmap returns the light's target, nil until the light is added.
func (l *Light2D) Lightmap() Lightmap { return l.lightmap }

// Prepare returns the scaler/adder pair mapping world space into the light's
// lightmap space, where the lit disc spans [-1, 1].
func (l *Light2D) Prepare() (scaler, adder mgl32.Vec3) {
	w := l.Width
	if w <= 0 {
		w = 1
	}
	inv := 1 / w
	return mgl32.Vec3{inv, inv, 1}, mgl32.Vec3{-l.Position.X() * inv, -l.Position.Y() * inv, 0}
}

// List2D is the bounded set of active 2D lights.
type List2D struct {
	lights []*Light2D
	alloc  LightmapAllocator
}

// NewList2D returns an empty list allocating lightmaps from alloc.
func NewList2D(alloc LightmapAllocator) *List2D {
	return &List2D{alloc: alloc}
}

// SetAllocator replaces the lightmap allocator, moving every light's target
// to the new one.
func (l *List2D) SetAllocator(alloc LightmapAllocator) error {
	for _, li := range l.lights {
		if li.lightmap != nil && l.alloc != nil {
			l.alloc.FreeLightmap(li.lightmap)
		}
		li.lightmap = nil
	}
	l.alloc = alloc
	if alloc == nil {
		return nil
	}
	for _, li := range l.lights {
		m, err := alloc.AllocLightmap(li.OneD)
		if err != nil {
			return fmt.Errorf("reallocate lightmap: %w", err)
		}
		li.lightmap = m
	}
	return nil
}

// Add registers a light and allocates its lightmap.
func (l *List2D) Add(li *Light2D) error {
	if l.index(li) >= 0 {
		return ErrAlreadyAdded
	}
	if len(l.lights) >= MaxLights2D {
		return fmt.Errorf("add 2d light: %w (%d lights)", ErrLightLimit, len(l.lights))
	}
	if l.alloc != nil {
		m, err := l.alloc.AllocLightmap(li.OneD)
		if err != nil {
			return fmt.Errorf("add 2d light: %w", err)
		}
		li.lightmap = m
	}
	l.lights = append(l.lights, li)
	return nil
}

// Remove unregisters a light and frees its lightmap.
func (l *List2D) Remove(li *Light2D) error {
	i := l.index(li)
	if i < 0 {
		return ErrUnknownLight
	}
	if li.lightmap != nil && l.alloc != nil {
		l.alloc.FreeLightmap(li.lightmap)
	}
	li.lightmap = nil
	l.lights = append(l.lights[:i], l.lights[i+1:]...)
	return nil
}

// Clear removes every light.
func (l *List2D) Clear() {
	for len(l.lights) > 0 {
		_ = l.Remove(l.lights[len(l.lights)-1])
	}
}

// All returns the lights in insertion order.
func (l *List2D) All() []*Light2D { return append([]*Light2D(nil), l.lights...) }

// Len returns the number of lights.
func (l *List2D) Len() int { return len(l.lights) }

func (l *List2D) index(li *Light2D) int {
	for i, x := range l.lights {
		if x == li {
			return i
		}
	}
	return -1
}
