// Package render holds the per-frame state shared by every draw call and the
// capability interfaces entities implement to be drawn.
package render

import (
	"fmt"

	"mini-engine/internal/lights"

	"github.com/go-gl/mathgl/mgl32"
)

// Material selects the pass and shader variant an entity is drawn with.
type Material int

const (
	Opaque Material = iota
	Skybox
	// Refract is an opaque surface drawn with the refraction variant.
	Refract
	Transparent
	// Bright is transparent geometry blended additively.
	Bright
	// Particles are point sprites expanded by the geometry shader.
	Particles
	// Decal is point-sprite geometry written into the G-buffer.
	Decal
)

func (m Material) String() string {
	switch m {
	case Opaque:
		return "opaque"
	case Skybox:
		return "skybox"
	case Refract:
		return "refract"
	case Transparent:
		return "transparent"
	case Bright:
		return "bright"
	case Particles:
		return "particles"
	case Decal:
		return "decal"
	}
	return fmt.Sprintf("Material(%d)", int(m))
}

// IsTransparent reports whether the material is drawn in the transparency pass.
func (m Material) IsTransparent() bool {
	return m == Transparent || m == Bright || m == Particles
}

// Renderable is an entity the views draw. Render issues draw calls with the
// program the view bound; it may bind its own textures and set the world
// and color uniforms, but must not rebind framebuffers or change blend or
// depth state.
type Renderable interface {
	Position() mgl32.Vec3
	Material() Material
	Render(ctx *Context) error
}

// ShadowCaster lets an entity exclude itself from individual lights.
type ShadowCaster interface {
	CastsShadow(l *lights.Light) bool
}

// ShadowCaster2D lets a 2D entity opt out of 2D lightmaps.
type ShadowCaster2D interface {
	CastsShadow2D(l *lights.Light2D) bool
}

// Boned entities are drawn with the skeletal variants.
type Boned interface {
	Boned() bool
}

// Layered entities report the shadow layers they belong to.
type Layered interface {
	Layers() lights.LayerMask
}

// Named entities provide a name for error reports.
type Named interface {
	Name() string
}

// DefaultLayers is the layer mask of entities that do not implement Layered.
const DefaultLayers lights.LayerMask = 1

// LayersOf returns the entity's shadow layers.
func LayersOf(r Renderable) lights.LayerMask {
	if l, ok := r.(Layered); ok {
		return l.Layers()
	}
	return DefaultLayers
}

// IsBoned reports whether the entity needs bone skinning.
func IsBoned(r Renderable) bool {
	b, ok := r.(Boned)
	return ok && b.Boned()
}

// NameOf returns a name for the entity suitable for logs.
func NameOf(r Renderable) string {
	if n, ok := r.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", r)
}

// CastsShadow combines the light's layer predicate with the entity's own.
// Skyboxes and transparent geometry never cast unless they say so.
func CastsShadow(r Renderable, l *lights.Light) bool {
	if !l.ShouldShadow(LayersOf(r)) {
		return false
	}
	if c, ok := r.(ShadowCaster); ok {
		return c.CastsShadow(l)
	}
	switch r.Material() {
	case Opaque, Refract, Decal:
		return true
	}
	return false
}

// CastsShadow2D reports whether a 2D entity occludes the light.
func CastsShadow2D(r Renderable, l *lights.Light2D) bool {
	if c, ok := r.(ShadowCaster2D); ok {
		return c.CastsShadow2D(l)
	}
	return r.Material() == Opaque
}

// EntityError wraps a failed entity render callback.
type EntityError struct {
	Pass   string
	Entity string
	Err    error
}

func (e *EntityError) Error() string {
	return fmt.Sprintf("%s pass: entity %s: %v", e.Pass, e.Entity, e.Err)
}

func (e *EntityError) Unwrap() error { return e.Err }

// Frame is the snapshot a view renders.
type Frame struct {
	// Entities is the frame's renderable list. Views may reorder it.
	Entities []Renderable
	Delta    float64
	Time     float64
}
