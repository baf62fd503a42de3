package scene_test

import (
	"errors"
	"io/fs"
	"testing"
	"testing/fstest"

	"mini-engine/internal/engine"
	"mini-engine/internal/scene"

	"github.com/go-gl/mathgl/mgl32"
)

var models = fstest.MapFS{
	"models/cube.json": {Data: []byte(`{
		"textures": {"all": "stone"},
		"elements": [{
			"from": [0, 0, 0], "to": [16, 16, 16],
			"faces": {"north": {"texture": "#all"}, "up": {"texture": "#top"}}
		}]
	}`)},
	"models/dirt.json": {Data: []byte(`{"parent": "cube", "textures": {"all": "dirt", "top": "grass"}}`)},
	"models/alias.json": {Data: []byte(`{
		"textures": {"a": "#b", "b": "#c", "c": "planks"},
		"elements": [{"from": [0, 0, 0], "to": [16, 8, 16], "faces": {"up": {"texture": "#a"}}}]
	}`)},
	"models/post.json": {Data: []byte(`{
		"elements": [{
			"from": [6, 0, 6], "to": [10, 16, 10],
			"rotation": {"origin": [8, 8, 8], "angle": 45, "axis": "y"},
			"faces": {"north": {"texture": "log"}}
		}]
	}`)},
	"models/loop_a.json": {Data: []byte(`{"parent": "loop_b"}`)},
	"models/loop_b.json": {Data: []byte(`{"parent": "loop_a"}`)},
	"models/broken.json": {Data: []byte(`{"elements": [`)},
}

func TestModelInheritsAndOverrides(t *testing.T) {
	l := scene.NewModelLoader(models)
	child, err := l.Load("dirt")
	if err != nil {
		t.Fatal(err)
	}
	if len(child.Elements) != 1 {
		t.Fatalf("inherited %d elements", len(child.Elements))
	}
	faces := child.Elements[0].Faces
	if faces["north"].Texture != "dirt" || faces["up"].Texture != "grass" {
		t.Fatalf("child faces = %v", faces)
	}

	parent, err := l.Load("cube")
	if err != nil {
		t.Fatal(err)
	}
	if got := parent.Elements[0].Faces["north"].Texture; got != "stone" {
		t.Fatalf("parent north = %q, resolving the child leaked into it", got)
	}
	if got := parent.Elements[0].Faces["up"].Texture; got != "#top" {
		t.Fatalf("unknown variable must stay as is, got %q", got)
	}
	again, _ := l.Load("dirt")
	if again != child {
		t.Fatal("expected the cached model")
	}
}

func TestModelVariableChains(t *testing.T) {
	m, err := scene.NewModelLoader(models).Load("alias")
	if err != nil {
		t.Fatal(err)
	}
	if got := m.Elements[0].Faces["up"].Texture; got != "planks" {
		t.Fatalf("resolved %q", got)
	}
	self := &scene.Model{Textures: map[string]string{"x": "#x"}}
	if got := self.ResolveTexture("#x"); got != "#x" {
		t.Fatalf("self reference resolved to %q", got)
	}
}

func TestModelErrors(t *testing.T) {
	l := scene.NewModelLoader(models)
	if _, err := l.Load("loop_a"); !errors.Is(err, scene.ErrModelCycle) {
		t.Fatalf("cycle: %v", err)
	}
	if _, err := l.Load("missing"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("missing: %v", err)
	}
	if _, err := l.Load("broken"); err == nil {
		t.Fatal("expected a decode error")
	}
}

func TestModelSpawn(t *testing.T) {
	e := newEngine(t, engine.Mode3D)
	mesh, err := scene.NewMeshes(e.Device())
	if err != nil {
		t.Fatal(err)
	}
	l := scene.NewModelLoader(models)

	slab, err := l.Load("alias")
	if err != nil {
		t.Fatal(err)
	}
	cubes := slab.Spawn(e, mesh, "slab", mgl32.Vec3{10, 0, 0})
	if len(cubes) != 1 || len(e.Entities()) != 1 {
		t.Fatalf("spawned %d cubes, %d entities", len(cubes), len(e.Entities()))
	}
	c := cubes[0]
	if !c.Pos.ApproxEqual(mgl32.Vec3{10, -0.25, 0}) || !c.Size.ApproxEqual(mgl32.Vec3{1, 0.5, 1}) {
		t.Fatalf("slab at %v size %v", c.Pos, c.Size)
	}
	if c.Texture == nil || c.Texture.Name != "textures/planks.png" {
		t.Fatalf("texture = %+v", c.Texture)
	}

	post, err := l.Load("post")
	if err != nil {
		t.Fatal(err)
	}
	p := post.Spawn(e, mesh, "post", mgl32.Vec3{})[0]
	// Rotating about its own center leaves the post in place.
	if !p.Pos.ApproxEqual(mgl32.Vec3{}) || !mgl32.FloatEqual(p.Yaw, mgl32.DegToRad(45)) {
		t.Fatalf("post at %v yaw %v", p.Pos, p.Yaw)
	}
	if err := e.RenderSingleFrame(0.016); err != nil {
		t.Fatal(err)
	}
}
