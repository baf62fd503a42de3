package scene

import (
	"mini-engine/internal/gpu"
	"mini-engine/internal/lights"
	"mini-engine/internal/render"
	"mini-engine/internal/textures"

	"github.com/go-gl/mathgl/mgl32"
)

func handle(t *textures.Texture) gpu.Texture {
	if t == nil {
		return 0
	}
	return t.Handle
}

// Cube is a textured, lit box.
type Cube struct {
	Label string
	Mesh  gpu.Mesh
	Pos   mgl32.Vec3
	// Size scales the unit cube per axis.
	Size    mgl32.Vec3
	Yaw     float32
	Color   mgl32.Vec4
	Texture *textures.Texture
	Mat     render.Material
}

func NewCube(label string, mesh gpu.Mesh, pos mgl32.Vec3) *Cube {
	return &Cube{
		Label: label,
		Mesh:  mesh,
		Pos:   pos,
		Size:  mgl32.Vec3{1, 1, 1},
		Color: mgl32.Vec4{1, 1, 1, 1},
	}
}

func (c *Cube) Position() mgl32.Vec3      { return c.Pos }
func (c *Cube) Material() render.Material { return c.Mat }
func (c *Cube) Name() string              { return c.Label }

// World returns the model matrix: scale, then yaw, then translate.
func (c *Cube) World() mgl32.Mat4 {
	return mgl32.Translate3D(c.Pos.X(), c.Pos.Y(), c.Pos.Z()).
		Mul4(mgl32.HomogRotate3DY(c.Yaw)).
		Mul4(mgl32.Scale3D(c.Size.X(), c.Size.Y(), c.Size.Z()))
}

func (c *Cube) Render(ctx *render.Context) error {
	ctx.SetWorld(c.World())
	ctx.SetColor(c.Color)
	ctx.BindDiffuse(handle(c.Texture))
	ctx.DrawMesh(c.Mesh, CubeVertexCount)
	return nil
}

// Skybox is an inward-facing cube that follows the camera.
type Skybox struct {
	Mesh gpu.Mesh
	// Extent is the half size of the box; keep it inside the far plane.
	Extent  float32
	Color   mgl32.Vec4
	Texture *textures.Texture
}

func (s *Skybox) Position() mgl32.Vec3      { return mgl32.Vec3{} }
func (s *Skybox) Material() render.Material { return render.Skybox }
func (s *Skybox) Name() string              { return "skybox" }

func (s *Skybox) Render(ctx *render.Context) error {
	p, e := ctx.CameraPos, s.Extent*2
	ctx.SetWorld(mgl32.Translate3D(p.X(), p.Y(), p.Z()).Mul4(mgl32.Scale3D(e, e, e)))
	ctx.SetColor(s.Color)
	ctx.BindDiffuse(handle(s.Texture))
	ctx.DrawMesh(s.Mesh, CubeVertexCount)
	return nil
}

// Sprite is a textured rectangle in 2D world units. Pos is its lower left
// corner.
type Sprite struct {
	Label   string
	Mesh    gpu.Mesh
	Pos     mgl32.Vec2
	Size    mgl32.Vec2
	Color   mgl32.Vec4
	Texture *textures.Texture
	// Occluder sprites block 2D light.
	Occluder bool
}

func NewSprite(label string, mesh gpu.Mesh, pos, size mgl32.Vec2) *Sprite {
	return &Sprite{Label: label, Mesh: mesh, Pos: pos, Size: size, Color: mgl32.Vec4{1, 1, 1, 1}}
}

func (s *Sprite) Position() mgl32.Vec3      { return s.Pos.Vec3(0) }
func (s *Sprite) Material() render.Material { return render.Opaque }
func (s *Sprite) Name() string              { return s.Label }

func (s *Sprite) CastsShadow2D(*lights.Light2D) bool { return s.Occluder }

// World maps the unit quad onto the sprite's rectangle.
func (s *Sprite) World() mgl32.Mat4 {
	return mgl32.Translate3D(s.Pos.X(), s.Pos.Y(), 0).Mul4(mgl32.Scale3D(s.Size.X(), s.Size.Y(), 1))
}

func (s *Sprite) Render(ctx *render.Context) error {
	ctx.SetWorld(s.World())
	ctx.SetColor(s.Color)
	ctx.BindDiffuse(handle(s.Texture))
	ctx.DrawMesh(s.Mesh, 6)
	return nil
}
