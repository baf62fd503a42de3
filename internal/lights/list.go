package lights

import (
	"errors"
	"fmt"
)

var (
	// ErrLightLimit is returned when adding a light would exceed MaxLights views.
	ErrLightLimit = errors.New("lights: light limit reached")
	// ErrShadowsNotAllocated is returned when a shadowed light is added before
	// the shadow maps exist.
	ErrShadowsNotAllocated = errors.New("lights: shadow maps not allocated")
	// ErrUnknownLight is returned when removing a light that is not in the list.
	ErrUnknownLight = errors.New("lights: light not in list")
	// ErrAlreadyAdded is returned when a light is added twice.
	ErrAlreadyAdded = errors.New("lights: light already in list")
)

// SlotAllocator hands out shadow map layers.
type SlotAllocator interface {
	// Acquire reserves n layers, or fails with ErrShadowsNotAllocated or
	// ErrLightLimit.
	Acquire(n int) ([]int, error)
	Release(slots []int)
}

// List is the bounded set of active 3D lights. It is edited between frames
// and read-only while a frame renders.
type List struct {
	lights  []*Light
	views   int
	shadows SlotAllocator
}

// NewList returns an empty list with shadows disabled.
func NewList() *List {
	return &List{}
}

// EnableShadows sets the shadow slot allocator; nil disables shadows. Slots
// held from a previous allocator are released and every shadow-casting
// light acquires new ones.
func (l *List) EnableShadows(a SlotAllocator) error {
	for _, li := range l.lights {
		if l.shadows != nil && len(li.slots) > 0 {
			l.shadows.Release(li.slots)
		}
		li.slots = nil
	}
	l.shadows = a
	if a == nil {
		return nil
	}
	for _, li := range l.lights {
		if err := l.acquire(li); err != nil {
			return fmt.Errorf("re-acquire %s light shadows: %w", li.Kind, err)
		}
	}
	return nil
}

func (l *List) acquire(li *Light) error {
	if l.shadows == nil || !li.CastShadows {
		return nil
	}
	slots, err := l.shadows.Acquire(li.Kind.Views())
	if err != nil {
		return err
	}
	li.slots = slots
	return nil
}

// Add registers a light. It fails with ErrLightLimit when the total view
// count would exceed MaxLights, and with ErrShadowsNotAllocated when shadows
// are enabled but the shadow maps are missing.
func (l *List) Add(li *Light) error {
	if l.index(li) >= 0 {
		return ErrAlreadyAdded
	}
	if l.views+li.Kind.Views() > MaxLights {
		return fmt.Errorf("add %s light: %w (%d views in use)", li.Kind, ErrLightLimit, l.views)
	}
	if err := l.acquire(li); err != nil {
		return fmt.Errorf("add %s light: %w", li.Kind, err)
	}
	l.lights = append(l.lights, li)
	l.views += li.Kind.Views()
	return nil
}

// Remove unregisters a light and releases its shadow slots.
func (l *List) Remove(li *Light) error {
	i := l.index(li)
	if i < 0 {
		return ErrUnknownLight
	}
	if l.shadows != nil && len(li.slots) > 0 {
		l.shadows.Release(li.slots)
	}
	li.slots = nil
	l.lights = append(l.lights[:i], l.lights[i+1:]...)
	l.views -= li.Kind.Views()
	return nil
}

// Clear removes every light.
func (l *List) Clear() {
	for len(l.lights) > 0 {
		_ = l.Remove(l.lights[len(l.lights)-1])
	}
}

// All returns the lights in insertion order.
func (l *List) All() []*Light {
	return append([]*Light(nil), l.lights...)
}

// Len returns the number of lights.
func (l *List) Len() int { return len(l.lights) }

// Views returns the total number of light views.
func (l *List) Views() int { return l.views }

func (l *List) index(li *Light) int {
	for i, x := range l.lights {
		if x == li {
			return i
		}
	}
	return -1
}
