package scene

import (
	"fmt"
	"math"

	"mini-engine/internal/engine"
	"mini-engine/internal/lights"
	"mini-engine/internal/render"
	"mini-engine/internal/ui"

	"github.com/go-gl/mathgl/mgl32"
)

// Demo3D is a floor, a ring of spinning crates, a glass pane, a spark
// fountain, an orbiting lamp and a sun.
type Demo3D struct {
	Floor  *Cube
	Crates []*Cube
	Glass  *Cube
	Sky    *Skybox
	Sparks *Emitter
	Sun    *lights.Light
	Lamp   *lights.Light
	Stats  *ui.Label

	eng     *engine.Engine
	elapsed float64
}

// Build3D adds the 3D demo to e. crate names an image loaded through the
// engine's texture cache; empty leaves the crates untextured.
func Build3D(e *engine.Engine, m *Meshes, crate string) (*Demo3D, error) {
	d := &Demo3D{eng: e}
	cam := e.Camera3D()
	if cam == nil {
		return nil, fmt.Errorf("build 3d demo: %w", engine.ErrWrongMode)
	}
	cam.Position = mgl32.Vec3{0, 3, 8}
	cam.Direction = mgl32.Vec3{0, -3, -8}.Normalize()

	d.Floor = NewCube("floor", m.Cube, mgl32.Vec3{0, -0.55, 0})
	d.Floor.Size = mgl32.Vec3{20, 0.1, 20}
	d.Floor.Color = mgl32.Vec4{0.6, 0.6, 0.55, 1}
	e.Add(d.Floor)

	for i := range 5 {
		a := float64(i) / 5 * 2 * math.Pi
		c := NewCube(fmt.Sprintf("crate%d", i), m.Cube, mgl32.Vec3{
			3 * float32(math.Cos(a)), 0, 3 * float32(math.Sin(a)),
		})
		if crate != "" {
			c.Texture = e.GetTexture(crate)
		}
		if i == 0 {
			c.Mat = render.Refract
		}
		d.Crates = append(d.Crates, c)
		e.Add(c)
	}

	d.Glass = NewCube("glass", m.Cube, mgl32.Vec3{0, 0.5, 1.5})
	d.Glass.Size = mgl32.Vec3{2, 2, 0.05}
	d.Glass.Color = mgl32.Vec4{0.4, 0.7, 1, 0.35}
	d.Glass.Mat = render.Transparent
	e.Add(d.Glass)

	d.Sky = &Skybox{Mesh: m.Inside, Extent: 400, Color: mgl32.Vec4{0.45, 0.6, 0.85, 1}}
	e.Add(d.Sky)

	sparks, err := NewEmitter(e.Device(), mgl32.Vec3{0, 0, 0}, 512, 1)
	if err != nil {
		return nil, err
	}
	d.Sparks = sparks
	e.Add(sparks)

	if v := e.View3D(); v != nil {
		d.Sun = &lights.Light{
			Kind: lights.KindSky, Direction: v.Sun.Mul(-1), Color: mgl32.Vec3{0.9, 0.85, 0.75},
			Radius: 60, SkyExtent: 15, CastShadows: true, ShadowLayers: lights.AllLayers,
		}
	}
	d.Lamp = &lights.Light{
		Kind: lights.KindPoint, Position: mgl32.Vec3{0, 2, 0}, Color: mgl32.Vec3{1, 0.6, 0.3},
		Radius: 8, CastShadows: true, ShadowLayers: lights.AllLayers,
	}
	for _, l := range []*lights.Light{d.Sun, d.Lamp} {
		if l == nil {
			continue
		}
		if err := e.AddLight(l); err != nil {
			d.Release()
			return nil, fmt.Errorf("build 3d demo: %w", err)
		}
	}

	d.Stats = ui.NewLabel("", 8, 8)
	e.UI.Add(d.Stats)
	return d, nil
}

// Update animates the demo; install it as the engine's OnUpdate.
func (d *Demo3D) Update(dt float64) {
	d.elapsed += dt
	for i, c := range d.Crates {
		c.Yaw = float32(d.elapsed) * (0.5 + 0.2*float32(i))
	}
	a := d.elapsed * 0.7
	d.Lamp.Position = mgl32.Vec3{2 * float32(math.Cos(a)), 2, 2 * float32(math.Sin(a))}
	d.Sparks.Update(float32(dt))
	if dt > 0 {
		d.Stats.Text = fmt.Sprintf("%.0f fps  %d sparks  exposure %.2f",
			1/dt, d.Sparks.Live(), d.eng.View3D().Exposure())
	}
}

// Release removes the demo's lights and frees its particle mesh.
func (d *Demo3D) Release() {
	for _, l := range []*lights.Light{d.Sun, d.Lamp} {
		if l != nil {
			_ = d.eng.RemoveLight(l)
		}
	}
	if d.Sparks != nil {
		d.Sparks.Release()
	}
}

// Demo2D is a row of sprite occluders lit by a wandering lamp and a dim sky.
type Demo2D struct {
	Ground  *Sprite
	Pillars []*Sprite
	Lamp    *lights.Light2D
	Sky     *lights.Light2D

	eng     *engine.Engine
	elapsed float64
}

func Build2D(e *engine.Engine, m *Meshes) (*Demo2D, error) {
	d := &Demo2D{eng: e}
	if e.Camera2D() == nil {
		return nil, fmt.Errorf("build 2d demo: %w", engine.ErrWrongMode)
	}
	d.Ground = NewSprite("ground", m.Quad, mgl32.Vec2{-10, -5}, mgl32.Vec2{20, 1})
	d.Ground.Color = mgl32.Vec4{0.35, 0.3, 0.25, 1}
	d.Ground.Occluder = true
	e.Add(d.Ground)
	for i := range 4 {
		p := NewSprite(fmt.Sprintf("pillar%d", i), m.Quad,
			mgl32.Vec2{float32(i)*3 - 5, -4}, mgl32.Vec2{0.6, 3})
		p.Occluder = true
		d.Pillars = append(d.Pillars, p)
		e.Add(p)
	}

	d.Sky = &lights.Light2D{Color: mgl32.Vec3{0.15, 0.15, 0.25}, Width: 100, Sky: true}
	d.Lamp = &lights.Light2D{Position: mgl32.Vec2{0, 0}, Color: mgl32.Vec3{1, 0.8, 0.5}, Width: 8}
	for _, l := range []*lights.Light2D{d.Sky, d.Lamp} {
		if err := e.AddLight2D(l); err != nil {
			d.Release()
			return nil, fmt.Errorf("build 2d demo: %w", err)
		}
	}
	return d, nil
}

func (d *Demo2D) Update(dt float64) {
	d.elapsed += dt
	d.Lamp.Position = mgl32.Vec2{6 * float32(math.Sin(d.elapsed*0.5)), 1}
}

func (d *Demo2D) Release() {
	for _, l := range []*lights.Light2D{d.Sky, d.Lamp} {
		_ = d.eng.RemoveLight2D(l)
	}
}
