package scene

import (
	"fmt"
	"math"
	"math/rand"

	"mini-engine/internal/gpu"
	"mini-engine/internal/render"

	"github.com/go-gl/mathgl/mgl32"
)

type particle struct {
	pos, vel mgl32.Vec3
	age      float32
}

// Emitter is a CPU-simulated fountain of point sprites. The geometry shader
// expands each point into a camera-facing quad.
type Emitter struct {
	Label  string
	Origin mgl32.Vec3
	// Rate is the number of particles spawned per second.
	Rate    float32
	Life    float32
	Speed   float32
	Spread  float32
	Gravity mgl32.Vec3
	Color   mgl32.Vec4
	Size    float32
	Max     int

	dev   gpu.Device
	mesh  gpu.Mesh
	parts []particle
	acc   float32
	rng   *rand.Rand
	verts []float32
}

// NewEmitter creates the emitter's dynamic point mesh.
func NewEmitter(dev gpu.Device, origin mgl32.Vec3, limit int, seed int64) (*Emitter, error) {
	mesh, err := dev.CreateMesh(gpu.MeshDesc{Layout: LayoutParticle, Primitive: gpu.Points, Dynamic: true})
	if err != nil {
		return nil, fmt.Errorf("particle mesh: %w", err)
	}
	return &Emitter{
		Label:   "particles",
		Origin:  origin,
		Rate:    60,
		Life:    2,
		Speed:   3,
		Spread:  0.4,
		Gravity: mgl32.Vec3{0, -4, 0},
		Color:   mgl32.Vec4{1, 0.7, 0.3, 1},
		Size:    0.1,
		Max:     limit,
		dev:     dev,
		mesh:    mesh,
		rng:     rand.New(rand.NewSource(seed)),
	}, nil
}

func (e *Emitter) Position() mgl32.Vec3      { return e.Origin }
func (e *Emitter) Material() render.Material { return render.Particles }
func (e *Emitter) Name() string              { return e.Label }

// Live returns the number of particles alive.
func (e *Emitter) Live() int { return len(e.parts) }

// Update ages, moves and spawns particles.
func (e *Emitter) Update(dt float32) {
	for i := 0; i < len(e.parts); {
		p := &e.parts[i]
		p.age += dt
		if p.age >= e.Life {
			e.parts[i] = e.parts[len(e.parts)-1]
			e.parts = e.parts[:len(e.parts)-1]
			continue
		}
		p.vel = p.vel.Add(e.Gravity.Mul(dt))
		p.pos = p.pos.Add(p.vel.Mul(dt))
		i++
	}

	e.acc += e.Rate * dt
	for e.acc >= 1 {
		e.acc--
		if len(e.parts) >= e.Max {
			continue
		}
		e.parts = append(e.parts, particle{pos: e.Origin, vel: e.launch()})
	}
}

// launch returns a velocity inside a cone around +Y.
func (e *Emitter) launch() mgl32.Vec3 {
	a := e.rng.Float64() * 2 * math.Pi
	r := e.Spread * float32(math.Sqrt(e.rng.Float64()))
	dir := mgl32.Vec3{r * float32(math.Cos(a)), 1, r * float32(math.Sin(a))}
	return dir.Normalize().Mul(e.Speed)
}

func (e *Emitter) Render(ctx *render.Context) error {
	if len(e.parts) == 0 {
		return nil
	}
	e.verts = e.verts[:0]
	for _, p := range e.parts {
		fade := 1 - p.age/e.Life
		e.verts = append(e.verts,
			p.pos.X(), p.pos.Y(), p.pos.Z(),
			e.Color.X(), e.Color.Y(), e.Color.Z(), e.Color.W()*fade,
			e.Size)
	}
	ctx.Device.UpdateMesh(e.mesh, e.verts)
	ctx.SetWorld(mgl32.Ident4())
	ctx.DrawMesh(e.mesh, len(e.parts))
	return nil
}

func (e *Emitter) Release() {
	if e.mesh != 0 {
		e.dev.DeleteMesh(e.mesh)
		e.mesh = 0
	}
}
