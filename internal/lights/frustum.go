package lights

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

type plane struct {
	a, b, c, d float32
}

// Frustum is the six clip planes of a projection*view matrix:
// left, right, bottom, top, near, far.
type Frustum [6]plane

// NewFrustum extracts the planes from a combined projection*view matrix.
func NewFrustum(clip mgl32.Mat4) Frustum {
	// Matrix is in column-major order in mgl32
	m00, m01, m02, m03 := clip[0], clip[4], clip[8], clip[12]
	m10, m11, m12, m13 := clip[1], clip[5], clip[9], clip[13]
	m20, m21, m22, m23 := clip[2], clip[6], clip[10], clip[14]
	m30, m31, m32, m33 := clip[3], clip[7], clip[11], clip[15]

	var f Frustum
	f[0] = normalizePlane(plane{m30 + m00, m31 + m01, m32 + m02, m33 + m03})
	f[1] = normalizePlane(plane{m30 - m00, m31 - m01, m32 - m02, m33 - m03})
	f[2] = normalizePlane(plane{m30 + m10, m31 + m11, m32 + m12, m33 + m13})
	f[3] = normalizePlane(plane{m30 - m10, m31 - m11, m32 - m12, m33 - m13})
	f[4] = normalizePlane(plane{m30 + m20, m31 + m21, m32 + m22, m33 + m23})
	f[5] = normalizePlane(plane{m30 - m20, m31 - m21, m32 - m22, m33 - m23})
	return f
}

func normalizePlane(p plane) plane {
	n := float32(math.Sqrt(float64(p.a*p.a + p.b*p.b + p.c*p.c)))
	if n == 0 {
		return p
	}
	return plane{p.a / n, p.b / n, p.c / n, p.d / n}
}

// SphereVisible reports whether a sphere touches the frustum.
func (f Frustum) SphereVisible(center mgl32.Vec3, radius float32) bool {
	for _, p := range f {
		if p.a*center[0]+p.b*center[1]+p.c*center[2]+p.d < -radius {
			return false
		}
	}
	return true
}

// Culled reports whether the renderer may skip the light this frame: its
// radius is not positive or its volume lies outside the camera frustum.
// Sky lights are never culled by position.
func (l *Light) Culled(f Frustum) bool {
	if l.Radius <= 0 {
		return true
	}
	if l.Kind == KindSky {
		return false
	}
	return !f.SphereVisible(l.Position, l.Radius)
}
