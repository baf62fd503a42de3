package lights_test

import (
	"errors"
	"testing"

	"mini-engine/internal/lights"

	"github.com/go-gl/mathgl/mgl32"
)

// pool is a SlotAllocator over a fixed number of layers.
type pool struct {
	allocated bool
	free      []int
	released  int
}

func newPool(n int) *pool {
	p := &pool{allocated: true}
	for i := 0; i < n; i++ {
		p.free = append(p.free, i)
	}
	return p
}

func (p *pool) Acquire(n int) ([]int, error) {
	if !p.allocated {
		return nil, lights.ErrShadowsNotAllocated
	}
	if n > len(p.free) {
		return nil, lights.ErrLightLimit
	}
	out := append([]int(nil), p.free[:n]...)
	p.free = p.free[n:]
	return out, nil
}

func (p *pool) Release(slots []int) {
	p.free = append(p.free, slots...)
	p.released += len(slots)
}

func point(x float32) *lights.Light {
	return &lights.Light{Kind: lights.KindPoint, Position: mgl32.Vec3{x, 0, 0}, Color: mgl32.Vec3{1, 1, 1}, Radius: 10, CastShadows: true, ShadowLayers: lights.AllLayers}
}

func spot(x float32) *lights.Light {
	return &lights.Light{Kind: lights.KindSpot, Position: mgl32.Vec3{x, 0, 0}, Direction: mgl32.Vec3{0, 0, -1}, Color: mgl32.Vec3{1, 0, 0}, Radius: 5, ConeAngle: 1, CastShadows: true, ShadowLayers: 1}
}

func TestAddRejectsBeyondMaxLights(t *testing.T) {
	l := lights.NewList()
	for i := 0; i < lights.MaxLights; i++ {
		if err := l.Add(spot(float32(i))); err != nil {
			t.Fatalf("Add #%d: %v", i, err)
		}
	}
	if err := l.Add(spot(99)); !errors.Is(err, lights.ErrLightLimit) {
		t.Fatalf("expected ErrLightLimit, got %v", err)
	}
	if l.Views() != lights.MaxLights || l.Len() != lights.MaxLights {
		t.Fatalf("rejected light leaked into the list: %d views", l.Views())
	}
}

func TestPointLightsCountSixViews(t *testing.T) {
	l := lights.NewList()
	for i := 0; i < 6; i++ {
		if err := l.Add(point(float32(i))); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	// 36 views used; a point light needs 6 more.
	if err := l.Add(point(7)); !errors.Is(err, lights.ErrLightLimit) {
		t.Fatalf("expected ErrLightLimit, got %v", err)
	}
	if err := l.Add(spot(7)); err != nil {
		t.Fatalf("a spot light still fits: %v", err)
	}
}

func TestRemoveUnregistersAndReleasesSlots(t *testing.T) {
	p := newPool(lights.MaxLights)
	l := lights.NewList()
	if err := l.EnableShadows(p); err != nil {
		t.Fatal(err)
	}
	li := point(0)
	if err := l.Add(li); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got := len(li.Slots()); got != 6 {
		t.Fatalf("expected 6 slots, got %d", got)
	}
	if err := l.Remove(li); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if l.Len() != 0 || l.Views() != 0 || len(l.All()) != 0 {
		t.Fatalf("light still registered after Remove")
	}
	if p.released != 6 || len(li.Slots()) != 0 {
		t.Fatalf("slots not released: %d", p.released)
	}
	if err := l.Remove(li); !errors.Is(err, lights.ErrUnknownLight) {
		t.Fatalf("expected ErrUnknownLight, got %v", err)
	}
}

func TestAddFailsWhenShadowMapsMissing(t *testing.T) {
	p := &pool{}
	l := lights.NewList()
	if err := l.EnableShadows(p); err != nil {
		t.Fatal(err)
	}
	err := l.Add(spot(0))
	if !errors.Is(err, lights.ErrShadowsNotAllocated) {
		t.Fatalf("expected ErrShadowsNotAllocated, got %v", err)
	}
	if l.Len() != 0 {
		t.Fatalf("failed light must not be registered")
	}
	// Lights without shadows are unaffected.
	if err := l.Add(&lights.Light{Kind: lights.KindSpot, Radius: 3}); err != nil {
		t.Fatalf("unshadowed light: %v", err)
	}
}

func TestAllKeepsInsertionOrder(t *testing.T) {
	l := lights.NewList()
	a, b, c := spot(1), point(2), spot(3)
	for _, li := range []*lights.Light{a, b, c} {
		if err := l.Add(li); err != nil {
			t.Fatal(err)
		}
	}
	if err := l.Remove(b); err != nil {
		t.Fatal(err)
	}
	all := l.All()
	if len(all) != 2 || all[0] != a || all[1] != c {
		t.Fatalf("unexpected order: %v", all)
	}
	if err := l.Add(a); !errors.Is(err, lights.ErrAlreadyAdded) {
		t.Fatalf("expected ErrAlreadyAdded, got %v", err)
	}
}

func TestShouldShadow(t *testing.T) {
	sky := &lights.Light{Kind: lights.KindSky, CastShadows: true}
	if !sky.ShouldShadow(0) || !sky.ShouldShadow(8) {
		t.Fatalf("sky lights shadow every layer")
	}
	s := spot(0)
	if !s.ShouldShadow(1) || s.ShouldShadow(2) {
		t.Fatalf("spot light must respect its layer mask")
	}
	s.CastShadows = false
	if s.ShouldShadow(1) {
		t.Fatalf("non-casting light shadows nothing")
	}
}
