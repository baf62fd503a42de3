package view3d

import (
	"sort"

	"mini-engine/internal/render"

	"github.com/go-gl/mathgl/mgl32"
)

type byDistance struct {
	ents []render.Renderable
	dist []float32
}

func (b byDistance) Len() int           { return len(b.ents) }
func (b byDistance) Less(i, j int) bool { return b.dist[i] < b.dist[j] }
func (b byDistance) Swap(i, j int) {
	b.ents[i], b.ents[j] = b.ents[j], b.ents[i]
	b.dist[i], b.dist[j] = b.dist[j], b.dist[i]
}

// SortByDistance orders entities by ascending squared distance from origin.
// Equal distances keep their relative order.
func SortByDistance(ents []render.Renderable, origin mgl32.Vec3) {
	b := byDistance{ents: ents, dist: make([]float32, len(ents))}
	for i, e := range ents {
		d := e.Position().Sub(origin)
		b.dist[i] = d.Dot(d)
	}
	sort.Stable(b)
}

func (v *View) sort(ents []render.Renderable) {
	defer v.prof.Track("view3d.Sort")()
	SortByDistance(ents, v.Camera.Origin())
}
