// Package gpu defines the graphics device the rendering pipeline drives.
//
// Every pass in the engine talks to a Device instead of calling the GL
// bindings directly. The glbackend package implements it on OpenGL 4.3 core;
// the gputest package records it for tests.
package gpu

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Resource handles. Zero is never a valid resource except for Screen.
type (
	Texture     uint32
	Framebuffer uint32
	Program     uint32
	Mesh        uint32
	Buffer      uint32
)

// Screen is the default framebuffer.
const Screen Framebuffer = 0

// TextureKind selects the texture target.
type TextureKind int

const (
	Texture2D TextureKind = iota
	Texture2DArray
	Texture1D
)

func (k TextureKind) String() string {
	switch k {
	case Texture2D:
		return "2d"
	case Texture2DArray:
		return "2d-array"
	case Texture1D:
		return "1d"
	}
	return fmt.Sprintf("TextureKind(%d)", int(k))
}

// Format is the internal storage format of a texture.
type Format int

const (
	FormatRGBA8 Format = iota
	FormatRGBA16F
	FormatRGBA32F
	FormatR32F
	FormatR32UI
	FormatDepth32F
)

// IsDepth reports whether the format can be attached as a depth buffer.
func (f Format) IsDepth() bool { return f == FormatDepth32F }

// Filter is the sampling filter for both minification and magnification.
type Filter int

const (
	FilterNearest Filter = iota
	FilterLinear
)

// TextureDesc describes a texture allocation.
type TextureDesc struct {
	Kind   TextureKind
	Format Format
	Width  int
	Height int
	// Layers is only used by Texture2DArray.
	Layers int
	Filter Filter
	// Compare enables depth comparison sampling (sampler2DShadow).
	Compare bool
	// Pixels optionally uploads tightly packed RGBA8 data.
	Pixels []byte
}

// Attachment binds a texture (or one layer of an array texture) to a framebuffer.
type Attachment struct {
	Texture Texture
	// Layer selects an array layer; -1 attaches the whole texture.
	Layer int
}

// FramebufferDesc lists the attachments of a framebuffer object.
type FramebufferDesc struct {
	Color []Attachment
	Depth *Attachment
}

// ProgramSource holds the preprocessed stage sources of one shader variant.
type ProgramSource struct {
	Name     string
	Vertex   string
	Fragment string
	// Geometry is optional.
	Geometry string
}

// Primitive is the topology of a mesh.
type Primitive int

const (
	Triangles Primitive = iota
	TriangleStrip
	Lines
	Points
)

// MeshDesc describes interleaved float vertex data.
type MeshDesc struct {
	Vertices []float32
	// Layout lists the component count of each attribute, in order.
	Layout    []int
	Primitive Primitive
	Dynamic   bool
}

// Stride returns the number of floats per vertex.
func (m MeshDesc) Stride() int {
	n := 0
	for _, c := range m.Layout {
		n += c
	}
	return n
}

// VertexCount returns the number of whole vertices in Vertices.
func (m MeshDesc) VertexCount() int {
	s := m.Stride()
	if s == 0 {
		return 0
	}
	return len(m.Vertices) / s
}

// Blend selects a fixed blend equation.
type Blend int

const (
	BlendNone Blend = iota
	// BlendAlpha is straight alpha: src*a + dst*(1-a). Destination alpha
	// becomes a + dst_a*(1-a), so coverage accumulates toward 1.
	BlendAlpha
	// BlendAdditive is src*a + dst. Destination alpha is left unchanged.
	BlendAdditive
	// BlendOne is src + dst on every channel, used for light accumulation.
	BlendOne
)

func (b Blend) String() string {
	switch b {
	case BlendNone:
		return "none"
	case BlendAlpha:
		return "alpha"
	case BlendAdditive:
		return "additive"
	case BlendOne:
		return "one"
	}
	return fmt.Sprintf("Blend(%d)", int(b))
}

// DepthState configures depth testing and writing.
type DepthState struct {
	Test  bool
	Write bool
}

// Cull selects face culling.
type Cull int

const (
	CullNone Cull = iota
	CullBack
	CullFront
)

// ClearFlags selects the buffers Clear touches.
type ClearFlags int

const (
	ClearColor ClearFlags = 1 << iota
	ClearDepth
)

// ErrNoContext is returned by a backend that has no current GPU context.
var ErrNoContext = errors.New("gpu: no current context")

// Device is the explicit-binding GPU API the pipeline is written against.
//
// A Device is bound to the thread that owns the GPU context; none of its
// methods may be called concurrently.
type Device interface {
	CreateTexture(desc TextureDesc) (Texture, error)
	UpdateTexture(t Texture, desc TextureDesc) error
	DeleteTexture(t Texture)
	CreateFramebuffer(desc FramebufferDesc) (Framebuffer, error)
	DeleteFramebuffer(f Framebuffer)
	CreateProgram(src ProgramSource) (Program, error)
	DeleteProgram(p Program)
	CreateMesh(desc MeshDesc) (Mesh, error)
	UpdateMesh(m Mesh, vertices []float32)
	DeleteMesh(m Mesh)
	CreateStorageBuffer(size int) (Buffer, error)
	DeleteStorageBuffer(b Buffer)

	BindFramebuffer(f Framebuffer)
	Viewport(x, y, w, h int)
	UseProgram(p Program)
	BindTexture(slot int, t Texture)
	BindStorageBuffer(slot int, b Buffer)
	// ClearStorageBuffer fills the buffer with the given 32-bit word.
	ClearStorageBuffer(b Buffer, word uint32)
	SetBlend(b Blend)
	SetDepth(d DepthState)
	SetCull(c Cull)
	SetColorMask(write bool)
	Clear(flags ClearFlags, color mgl32.Vec4, depth float32)

	Uniform1i(loc int32, v int32)
	Uniform1f(loc int32, v float32)
	Uniform2f(loc int32, v mgl32.Vec2)
	Uniform3f(loc int32, v mgl32.Vec3)
	Uniform4f(loc int32, v mgl32.Vec4)
	UniformMat4(loc int32, m mgl32.Mat4)
	UniformMat4Array(loc int32, ms []mgl32.Mat4)
	UniformVec2Array(loc int32, vs []mgl32.Vec2)
	UniformVec3Array(loc int32, vs []mgl32.Vec3)

	DrawMesh(m Mesh)
	DrawFullscreen()
	// ReadPixels reads RGBA float data from color attachment 0 of f. It
	// drains pending GPU errors, so callers check errors before reading.
	ReadPixels(f Framebuffer, x, y, w, h int) ([]float32, error)
	// Barrier orders shader storage writes before subsequent reads.
	Barrier()
	// CheckError returns the first pending GPU error, if any, and clears it.
	CheckError() error
}

// Error is a GPU error code reported by CheckError.
type Error struct {
	Code uint32
	Name string
}

func (e *Error) Error() string {
	return fmt.Sprintf("gpu error 0x%X (%s)", e.Code, e.Name)
}

// ShaderError reports a failed shader stage compile or program link.
// Stage is "vertex", "fragment", "geometry" or "link".
type ShaderError struct {
	Stage string
	Log   string
}

func (e *ShaderError) Error() string {
	if e.Stage == "link" {
		return fmt.Sprintf("failed to link program: %s", e.Log)
	}
	return fmt.Sprintf("failed to compile %s shader: %s", e.Stage, e.Log)
}
