package lights_test

import (
	"errors"
	"testing"

	"mini-engine/internal/lights"

	"github.com/go-gl/mathgl/mgl32"
)

type fakeMap struct{ oneD bool }

func (m *fakeMap) OneD() bool { return m.oneD }

type mapAlloc struct{ live int }

func (a *mapAlloc) AllocLightmap(oneD bool) (lights.Lightmap, error) {
	a.live++
	return &fakeMap{oneD: oneD}, nil
}

func (a *mapAlloc) FreeLightmap(lights.Lightmap) { a.live-- }

func TestList2DAllocatesLightmaps(t *testing.T) {
	a := &mapAlloc{}
	l := lights.NewList2D(a)
	li := &lights.Light2D{Position: mgl32.Vec2{3, 4}, Width: 2, OneD: true}
	if err := l.Add(li); err != nil {
		t.Fatal(err)
	}
	if li.Lightmap() == nil || !li.Lightmap().OneD() || a.live != 1 {
		t.Fatalf("lightmap not allocated")
	}
	if err := l.Remove(li); err != nil {
		t.Fatal(err)
	}
	if a.live != 0 || li.Lightmap() != nil {
		t.Fatalf("lightmap not freed")
	}
}

func TestList2DBounded(t *testing.T) {
	l := lights.NewList2D(&mapAlloc{})
	for i := 0; i < lights.MaxLights2D; i++ {
		if err := l.Add(&lights.Light2D{Width: 1}); err != nil {
			t.Fatal(err)
		}
	}
	if err := l.Add(&lights.Light2D{Width: 1}); !errors.Is(err, lights.ErrLightLimit) {
		t.Fatalf("expected ErrLightLimit, got %v", err)
	}
}

func TestLight2DPrepare(t *testing.T) {
	li := &lights.Light2D{Position: mgl32.Vec2{3, 4}, Width: 2}
	s, a := li.Prepare()
	// the light center maps to the origin, a point Width away to length 1
	center := mgl32.Vec2{3*s[0] + a[0], 4*s[1] + a[1]}
	edge := mgl32.Vec2{5*s[0] + a[0], 4*s[1] + a[1]}
	if center.Len() != 0 || edge.Len() != 1 {
		t.Fatalf("center %v edge %v", center, edge)
	}
}
