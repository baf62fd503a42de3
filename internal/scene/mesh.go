// Package scene holds the sample renderables the demo binary draws: a lit
// cube, a skybox, a particle emitter and 2D sprites.
package scene

import (
	"fmt"

	"mini-engine/internal/gpu"
)

// Layouts of the meshes in this package.
var (
	// Layout3D is position, normal and uv.
	Layout3D = []int{3, 3, 2}
	// LayoutParticle is position, color and size.
	LayoutParticle = []int{3, 4, 1}
	// Layout2D is position and uv.
	Layout2D = []int{2, 2}
)

// faceUV is the uv of each vertex of a face, in table order.
var faceUV = [6][2]float32{{0, 1}, {1, 1}, {1, 0}, {1, 0}, {0, 0}, {0, 1}}

// cubeFaces is the unit cube as position + normal, two triangles per face.
var cubeFaces = []float32{
	// NORTH
	-0.5, -0.5, 0.5, 0, 0, 1,
	0.5, -0.5, 0.5, 0, 0, 1,
	0.5, 0.5, 0.5, 0, 0, 1,
	0.5, 0.5, 0.5, 0, 0, 1,
	-0.5, 0.5, 0.5, 0, 0, 1,
	-0.5, -0.5, 0.5, 0, 0, 1,

	// SOUTH
	0.5, -0.5, -0.5, 0, 0, -1,
	-0.5, -0.5, -0.5, 0, 0, -1,
	-0.5, 0.5, -0.5, 0, 0, -1,
	-0.5, 0.5, -0.5, 0, 0, -1,
	0.5, 0.5, -0.5, 0, 0, -1,
	0.5, -0.5, -0.5, 0, 0, -1,

	// WEST
	-0.5, -0.5, -0.5, -1, 0, 0,
	-0.5, -0.5, 0.5, -1, 0, 0,
	-0.5, 0.5, 0.5, -1, 0, 0,
	-0.5, 0.5, 0.5, -1, 0, 0,
	-0.5, 0.5, -0.5, -1, 0, 0,
	-0.5, -0.5, -0.5, -1, 0, 0,

	// EAST
	0.5, -0.5, 0.5, 1, 0, 0,
	0.5, -0.5, -0.5, 1, 0, 0,
	0.5, 0.5, -0.5, 1, 0, 0,
	0.5, 0.5, -0.5, 1, 0, 0,
	0.5, 0.5, 0.5, 1, 0, 0,
	0.5, -0.5, 0.5, 1, 0, 0,

	// TOP
	-0.5, 0.5, 0.5, 0, 1, 0,
	0.5, 0.5, 0.5, 0, 1, 0,
	0.5, 0.5, -0.5, 0, 1, 0,
	0.5, 0.5, -0.5, 0, 1, 0,
	-0.5, 0.5, -0.5, 0, 1, 0,
	-0.5, 0.5, 0.5, 0, 1, 0,

	// BOTTOM
	-0.5, -0.5, -0.5, 0, -1, 0,
	0.5, -0.5, -0.5, 0, -1, 0,
	0.5, -0.5, 0.5, 0, -1, 0,
	0.5, -0.5, 0.5, 0, -1, 0,
	-0.5, -0.5, 0.5, 0, -1, 0,
	-0.5, -0.5, -0.5, 0, -1, 0,
}

// CubeVertexCount is the number of vertices in CubeVertices.
const CubeVertexCount = 36

// CubeVertices returns the unit cube in Layout3D. When inward is set the
// winding and normals are flipped, so the inside faces the camera.
func CubeVertices(inward bool) []float32 {
	out := make([]float32, 0, CubeVertexCount*8)
	for i := 0; i < CubeVertexCount; i++ {
		j := i
		if inward {
			// reverse each triangle's winding
			j = i/3*3 + 2 - i%3
		}
		v := cubeFaces[j*6 : j*6+6]
		n := [3]float32{v[3], v[4], v[5]}
		if inward {
			n = [3]float32{-n[0], -n[1], -n[2]}
		}
		uv := faceUV[j%6]
		out = append(out, v[0], v[1], v[2], n[0], n[1], n[2], uv[0], uv[1])
	}
	return out
}

// QuadVertices is the unit quad [0,1]² in Layout2D, v growing downwards.
var QuadVertices = []float32{
	0, 0, 0, 1,
	1, 0, 1, 1,
	1, 1, 1, 0,
	1, 1, 1, 0,
	0, 1, 0, 0,
	0, 0, 0, 1,
}

// Meshes are the shared static meshes of the demo renderables.
type Meshes struct {
	dev    gpu.Device
	Cube   gpu.Mesh
	Inside gpu.Mesh
	Quad   gpu.Mesh
}

// NewMeshes uploads the shared meshes. Call Release when done.
func NewMeshes(dev gpu.Device) (*Meshes, error) {
	m := &Meshes{dev: dev}
	var err error
	if m.Cube, err = dev.CreateMesh(gpu.MeshDesc{Vertices: CubeVertices(false), Layout: Layout3D}); err != nil {
		return nil, fmt.Errorf("cube mesh: %w", err)
	}
	if m.Inside, err = dev.CreateMesh(gpu.MeshDesc{Vertices: CubeVertices(true), Layout: Layout3D}); err != nil {
		m.Release()
		return nil, fmt.Errorf("skybox mesh: %w", err)
	}
	if m.Quad, err = dev.CreateMesh(gpu.MeshDesc{Vertices: QuadVertices, Layout: Layout2D}); err != nil {
		m.Release()
		return nil, fmt.Errorf("quad mesh: %w", err)
	}
	return m, nil
}

func (m *Meshes) Release() {
	for _, h := range []gpu.Mesh{m.Cube, m.Inside, m.Quad} {
		if h != 0 {
			m.dev.DeleteMesh(h)
		}
	}
	m.Cube, m.Inside, m.Quad = 0, 0, 0
}
