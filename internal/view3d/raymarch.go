package view3d

import "github.com/go-gl/mathgl/mgl32"

// RayMarch walks a screen-space ray (uv in xy, depth in z) from start by
// step, at most steps times. It reports the first UV whose scene depth is at
// or in front of the ray, and false once the ray leaves the [0,1] UV square
// or the steps run out. The reflection shader performs the same walk.
func RayMarch(start, step mgl32.Vec3, steps int, depth func(uv mgl32.Vec2) float32) (mgl32.Vec2, bool) {
	p := start
	for i := 0; i < steps; i++ {
		p = p.Add(step)
		if p.X() < 0 || p.Y() < 0 || p.X() > 1 || p.Y() > 1 {
			return mgl32.Vec2{}, false
		}
		uv := mgl32.Vec2{p.X(), p.Y()}
		if depth(uv) <= p.Z() {
			return uv, true
		}
	}
	return mgl32.Vec2{}, false
}
