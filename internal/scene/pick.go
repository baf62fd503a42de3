package scene

import (
	"math"

	"mini-engine/internal/render"

	"github.com/go-gl/mathgl/mgl32"
)

// PickResult is the nearest cube a ray hit.
type PickResult struct {
	Cube     *Cube
	Distance float32
	Hit      bool
}

// Pick casts a ray from start along dir and returns the nearest Cube hit
// between minDist and maxDist. Other renderables are ignored.
func Pick(entities []render.Renderable, start, dir mgl32.Vec3, minDist, maxDist float32) PickResult {
	var best PickResult
	if dir.Len() == 0 {
		return best
	}
	dir = dir.Normalize()
	for _, r := range entities {
		c, ok := r.(*Cube)
		if !ok {
			continue
		}
		d, ok := rayBox(c, start, dir)
		if !ok || d < minDist || d > maxDist {
			continue
		}
		if !best.Hit || d < best.Distance {
			best = PickResult{Cube: c, Distance: d, Hit: true}
		}
	}
	return best
}

// rayBox intersects the ray with the cube's oriented box by moving the ray
// into the box's unscaled local frame and running the slab test there.
func rayBox(c *Cube, start, dir mgl32.Vec3) (float32, bool) {
	inv := mgl32.HomogRotate3DY(-c.Yaw)
	o := inv.Mul4x1(start.Sub(c.Pos).Vec4(1)).Vec3()
	d := inv.Mul4x1(dir.Vec4(0)).Vec3()
	half := c.Size.Mul(0.5)

	tmin, tmax := float32(math.Inf(-1)), float32(math.Inf(1))
	for i := range 3 {
		if d[i] == 0 {
			if o[i] < -half[i] || o[i] > half[i] {
				return 0, false
			}
			continue
		}
		t1 := (-half[i] - o[i]) / d[i]
		t2 := (half[i] - o[i]) / d[i]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin, tmax = max(tmin, t1), min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}
	if tmax < 0 {
		return 0, false
	}
	// Starting inside the box hits at distance 0.
	return max(tmin, 0), true
}

// CameraRay returns the world-space ray through pixel (x, y) of a
// width x height screen with a top-left origin.
func CameraRay(cam *render.Camera3D, x, y float32, width, height int) (start, dir mgl32.Vec3) {
	inv := cam.GetProjectionMatrix().Mul4(cam.GetViewMatrix()).Inv()
	nx := 2*x/float32(width) - 1
	ny := 1 - 2*y/float32(height)
	near := inv.Mul4x1(mgl32.Vec4{nx, ny, -1, 1})
	far := inv.Mul4x1(mgl32.Vec4{nx, ny, 1, 1})
	n := near.Vec3().Mul(1 / near.W())
	f := far.Vec3().Mul(1 / far.W())
	return n, f.Sub(n).Normalize()
}
