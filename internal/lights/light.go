// Package lights holds the bounded per-frame light collections of the 3D and
// 2D pipelines and prepares each light for its shadow pass.
package lights

import (
	"fmt"
	"math"

	"mini-engine/internal/shaders"

	"github.com/go-gl/mathgl/mgl32"
)

// MaxLights bounds the number of light views a frame may carry; it is the
// length of the shader's light arrays.
const MaxLights = shaders.MaxLights

// Kind is the closed set of 3D light types.
type Kind int

const (
	KindPoint Kind = iota
	KindSpot
	KindSky
)

func (k Kind) String() string {
	switch k {
	case KindPoint:
		return "point"
	case KindSpot:
		return "spot"
	case KindSky:
		return "sky"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Views returns how many shadow views a light of this kind renders.
func (k Kind) Views() int {
	if k == KindPoint {
		return 6
	}
	return 1
}

// LayerMask selects the entity layers a light shadows.
type LayerMask uint32

// AllLayers shadows every layer.
const AllLayers LayerMask = ^LayerMask(0)

// Light is a 3D light source. Fields must not change while a frame renders.
type Light struct {
	Kind      Kind
	Position  mgl32.Vec3
	Direction mgl32.Vec3
	Color     mgl32.Vec3
	// Radius is the light's reach; for sky lights it is the depth of the
	// shadow volume.
	Radius float32
	// ConeAngle is the full spot cone angle in radians.
	ConeAngle float32
	// SkyExtent is the half width of a sky light's orthographic shadow box.
	SkyExtent    float32
	CastShadows  bool
	ShadowLayers LayerMask

	slots []int
}

// ShadowView is one prepared view of a light.
type ShadowView struct {
	Light *Light
	Face  int
	// Slot is the shadow map layer, or -1 when the view has no shadow map.
	Slot   int
	Eye    mgl32.Vec3
	View   mgl32.Mat4
	Proj   mgl32.Mat4
	Matrix mgl32.Mat4
	// Data is the light packed for the shader's light data array.
	Data mgl32.Mat4
	// Scaler and Adder map world space into the light's normalized shadow
	// space: p*Scaler + Adder has length 1 at the light radius.
	Scaler mgl32.Vec3
	Adder  mgl32.Vec3
}

// Shadowed reports whether the view samples a shadow map.
func (v ShadowView) Shadowed() bool { return v.Slot >= 0 }

// Slots returns the shadow map layers held by the light.
func (l *Light) Slots() []int { return append([]int(nil), l.slots...) }

// ShouldShadow reports whether the light shadows entities on the given
// layers. Sky lights shadow everything.
func (l *Light) ShouldShadow(layers LayerMask) bool {
	if !l.CastShadows {
		return false
	}
	if l.Kind == KindSky {
		return true
	}
	return l.ShadowLayers&layers != 0
}

var cubeFaces = [6]struct{ dir, up mgl32.Vec3 }{
	{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, -1, 0}},
	{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, -1, 0}},
	{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{0, 0, 1}},
	{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{0, 0, -1}},
	{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, -1, 0}},
	{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, -1, 0}},
}

// Prepare computes every view of the light. A light with a non-positive
// radius still yields its views; the renderer skips it.
func (l *Light) Prepare() []ShadowView {
	radius := l.Radius
	if radius <= 0 {
		radius = 1
	}
	near := max(radius*0.01, 0.01)
	views := make([]ShadowView, 0, l.Kind.Views())

	switch l.Kind {
	case KindPoint:
		proj := mgl32.Perspective(mgl32.DegToRad(90), 1, near, radius)
		for i, f := range cubeFaces {
			view := mgl32.LookAtV(l.Position, l.Position.Add(f.dir), f.up)
			views = append(views, l.view(i, l.Position, view, proj, radius))
		}
	case KindSpot:
		cone := l.ConeAngle
		if cone <= 0 || cone >= math.Pi {
			cone = mgl32.DegToRad(60)
		}
		dir := safeDir(l.Direction)
		view := mgl32.LookAtV(l.Position, l.Position.Add(dir), upFor(dir))
		proj := mgl32.Perspective(cone, 1, near, radius)
		views = append(views, l.view(0, l.Position, view, proj, radius))
	case KindSky:
		dir := safeDir(l.Direction)
		ext := l.SkyExtent
		if ext <= 0 {
			ext = radius
		}
		eye := l.Position.Sub(dir.Mul(radius * 0.5))
		view := mgl32.LookAtV(eye, eye.Add(dir), upFor(dir))
		proj := mgl32.Ortho(-ext, ext, -ext, ext, 0, radius)
		views = append(views, l.view(0, eye, view, proj, radius))
	}
	return views
}

func (l *Light) view(face int, eye mgl32.Vec3, view, proj mgl32.Mat4, radius float32) ShadowView {
	slot := -1
	if face < len(l.slots) {
		slot = l.slots[face]
	}
	inv := 1 / radius
	return ShadowView{
		Light:  l,
		Face:   face,
		Slot:   slot,
		Eye:    eye,
		View:   view,
		Proj:   proj,
		Matrix: proj.Mul4(view),
		Data:   l.pack(slot),
		Scaler: mgl32.Vec3{inv, inv, inv},
		Adder:  eye.Mul(-inv),
	}
}

// Pack returns the light's shader data without a shadow slot, one entry
// per light regardless of how many views it has.
func (l *Light) Pack() mgl32.Mat4 { return l.pack(-1) }

// pack lays the light out as the shader reads it:
// (position, radius) (color, kind) (direction, cos half cone) (slot, shadowed, 0, 0).
func (l *Light) pack(slot int) mgl32.Mat4 {
	dir := safeDir(l.Direction)
	cosCone := float32(-1)
	if l.Kind == KindSpot {
		cosCone = float32(math.Cos(float64(l.ConeAngle) / 2))
	}
	shadowed := float32(0)
	if slot >= 0 {
		shadowed = 1
	}
	return mgl32.Mat4FromCols(
		l.Position.Vec4(l.Radius),
		l.Color.Vec4(float32(l.Kind)),
		dir.Vec4(cosCone),
		mgl32.Vec4{float32(slot), shadowed, 0, 0},
	)
}

func safeDir(d mgl32.Vec3) mgl32.Vec3 {
	if d.Len() == 0 {
		return mgl32.Vec3{0, 0, -1}
	}
	return d.Normalize()
}

func upFor(dir mgl32.Vec3) mgl32.Vec3 {
	if math.Abs(float64(dir.Z())) > 0.99 {
		return mgl32.Vec3{0, 1, 0}
	}
	return mgl32.Vec3{0, 0, 1}
}
