package scene_test

import (
	"errors"
	"testing"

	"mini-engine/internal/config"
	"mini-engine/internal/engine"
	"mini-engine/internal/gpu/gputest"
	"mini-engine/internal/render"
	"mini-engine/internal/scene"

	"github.com/go-gl/mathgl/mgl32"
)

func vec(v []float32) mgl32.Vec3 { return mgl32.Vec3{v[0], v[1], v[2]} }

func TestCubeWindingMatchesNormals(t *testing.T) {
	for _, inward := range []bool{false, true} {
		verts := scene.CubeVertices(inward)
		if len(verts) != scene.CubeVertexCount*8 {
			t.Fatalf("inward=%v: %d floats", inward, len(verts))
		}
		for tri := 0; tri < scene.CubeVertexCount/3; tri++ {
			a := verts[tri*24:]
			b := verts[tri*24+8:]
			c := verts[tri*24+16:]
			n := vec(a[3:])
			face := vec(b).Sub(vec(a)).Cross(vec(c).Sub(vec(a)))
			if face.Dot(n) <= 0 {
				t.Fatalf("inward=%v triangle %d winds against its normal", inward, tri)
			}
			centroid := vec(a).Add(vec(b)).Add(vec(c)).Mul(1.0 / 3)
			out := centroid.Dot(n) > 0
			if out == inward {
				t.Fatalf("inward=%v triangle %d normal points the wrong way", inward, tri)
			}
		}
	}
}

func TestMeshesRelease(t *testing.T) {
	dev := gputest.New()
	m, err := scene.NewMeshes(dev)
	if err != nil {
		t.Fatal(err)
	}
	if len(dev.Meshes) != 3 {
		t.Fatalf("%d meshes", len(dev.Meshes))
	}
	if got := dev.Meshes[m.Cube].VertexCount(); got != scene.CubeVertexCount {
		t.Fatalf("cube has %d vertices", got)
	}
	m.Release()
	if dev.Live() != 0 {
		t.Fatalf("leaked %d", dev.Live())
	}
}

func TestEmitterLifecycle(t *testing.T) {
	dev := gputest.New()
	e, err := scene.NewEmitter(dev, mgl32.Vec3{}, 100, 7)
	if err != nil {
		t.Fatal(err)
	}
	e.Rate, e.Life = 10, 1

	e.Update(0.5)
	if e.Live() != 5 {
		t.Fatalf("after 0.5s: %d particles, want 5", e.Live())
	}
	e.Update(0.6)
	if e.Live() != 6 {
		t.Fatalf("after 1.1s: %d particles, want 6", e.Live())
	}

	e.Max = 3
	e.Update(2)
	if e.Live() != 3 {
		t.Fatalf("cap ignored: %d particles", e.Live())
	}

	ctx := render.NewContext(dev)
	if err := e.Render(ctx); err != nil {
		t.Fatal(err)
	}
	for _, desc := range dev.Meshes {
		if len(desc.Vertices) != 3*8 {
			t.Fatalf("uploaded %d floats, want %d", len(desc.Vertices), 3*8)
		}
	}
	if ctx.Stats.Vertices != 3 {
		t.Fatalf("counted %d vertices", ctx.Stats.Vertices)
	}
	e.Release()
	if dev.Live() != 0 {
		t.Fatalf("leaked %d", dev.Live())
	}
}

func TestSpriteWorldCoversRect(t *testing.T) {
	s := scene.NewSprite("s", 1, mgl32.Vec2{2, 3}, mgl32.Vec2{4, 5})
	corner := s.World().Mul4x1(mgl32.Vec4{1, 1, 0, 1})
	if !corner.Vec3().ApproxEqual(mgl32.Vec3{6, 8, 0}) {
		t.Fatalf("far corner %v", corner)
	}
	if s.CastsShadow2D(nil) {
		t.Fatalf("sprites are not occluders by default")
	}
}

func newEngine(t *testing.T, mode engine.Mode) *engine.Engine {
	t.Helper()
	cfg := config.DefaultRender()
	e := engine.New(engine.Options{
		Device:   gputest.New(),
		Settings: config.NewSettings(cfg),
		Mode:     mode,
		Width:    320,
		Height:   240,
	})
	t.Cleanup(func() { _ = e.Close() })
	if err := e.PostLoad(); err != nil {
		t.Fatalf("PostLoad: %v", err)
	}
	return e
}

func TestDemo3DRenders(t *testing.T) {
	e := newEngine(t, engine.Mode3D)
	m, err := scene.NewMeshes(e.Device())
	if err != nil {
		t.Fatal(err)
	}
	d, err := scene.Build3D(e, m, "")
	if err != nil {
		t.Fatal(err)
	}
	e.OnUpdate = d.Update
	for range 3 {
		if err := e.RenderSingleFrame(0.1); err != nil {
			t.Fatalf("frame %d: %v", e.Frame(), err)
		}
	}
	if e.Lights().Len() != 2 || e.Lights().Views() != 7 {
		t.Fatalf("lights %d views %d", e.Lights().Len(), e.Lights().Views())
	}
	if d.Sparks.Live() == 0 {
		t.Fatalf("emitter never spawned")
	}
	if d.Stats.Text == "" {
		t.Fatalf("stats label not updated")
	}

	if _, err := scene.Build2D(e, m); !errors.Is(err, engine.ErrWrongMode) {
		t.Fatalf("Build2D on a 3D engine: %v", err)
	}
	d.Release()
	if e.Lights().Len() != 0 {
		t.Fatalf("Release left %d lights", e.Lights().Len())
	}
}

func TestDemo2DRenders(t *testing.T) {
	e := newEngine(t, engine.Mode2D)
	m, err := scene.NewMeshes(e.Device())
	if err != nil {
		t.Fatal(err)
	}
	d, err := scene.Build2D(e, m)
	if err != nil {
		t.Fatal(err)
	}
	e.OnUpdate = d.Update
	for range 2 {
		if err := e.RenderSingleFrame(0.1); err != nil {
			t.Fatalf("frame %d: %v", e.Frame(), err)
		}
	}
	if e.Lights2D().Len() != 2 || len(e.Entities()) != 5 {
		t.Fatalf("lights %d entities %d", e.Lights2D().Len(), len(e.Entities()))
	}
	if d.Lamp.Position.X() == 0 {
		t.Fatalf("lamp did not move")
	}
}

func TestPickNearestCube(t *testing.T) {
	near := scene.NewCube("near", 1, mgl32.Vec3{0, 0, -3})
	far := scene.NewCube("far", 1, mgl32.Vec3{0, 0, -6})
	wide := scene.NewCube("wide", 1, mgl32.Vec3{5, 0, -3})
	wide.Size = mgl32.Vec3{2, 1, 1}
	wide.Yaw = mgl32.DegToRad(90)
	ents := []render.Renderable{far, near, wide, &scene.Skybox{}}

	hit := scene.Pick(ents, mgl32.Vec3{}, mgl32.Vec3{0, 0, -1}, 0.1, 100)
	if !hit.Hit || hit.Cube != near || !mgl32.FloatEqualThreshold(hit.Distance, 2.5, 1e-4) {
		t.Fatalf("hit = %+v", hit)
	}
	if hit := scene.Pick(ents, mgl32.Vec3{}, mgl32.Vec3{0, 0, -1}, 0.1, 2); hit.Hit {
		t.Fatalf("beyond reach: %+v", hit)
	}
	// Turned 90 degrees, the 2-long box spans z in [-4, -2] at x = 5.
	hit = scene.Pick(ents, mgl32.Vec3{5, 0, 0}, mgl32.Vec3{0, 0, -2}, 0, 100)
	if !hit.Hit || hit.Cube != wide || !mgl32.FloatEqualThreshold(hit.Distance, 2, 1e-4) {
		t.Fatalf("rotated hit = %+v", hit)
	}
	if hit := scene.Pick(ents, mgl32.Vec3{0, 5, 0}, mgl32.Vec3{0, 0, -1}, 0, 100); hit.Hit {
		t.Fatalf("miss above: %+v", hit)
	}
}

func TestCameraRayThroughCenter(t *testing.T) {
	cam := render.NewCamera3D(640, 480)
	cam.Position = mgl32.Vec3{1, 2, 3}
	start, dir := scene.CameraRay(cam, 320, 240, 640, 480)
	if !dir.ApproxEqualThreshold(mgl32.Vec3{0, 0, -1}, 1e-4) {
		t.Fatalf("dir = %v", dir)
	}
	if !mgl32.FloatEqualThreshold(start.Z(), 3-cam.NearPlane, 1e-3) {
		t.Fatalf("start = %v", start)
	}
}
