// Package glbackend implements gpu.Device on OpenGL 4.3 core.
//
// All methods must be called from the thread that owns the GL context
// (see runtime.LockOSThread in cmd/mini-engine).
package glbackend

import (
	"fmt"
	"unsafe"

	"mini-engine/internal/gpu"

	"github.com/go-gl/gl/v4.3-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

type meshInfo struct {
	vao, vbo uint32
	count    int32
	stride   int
	mode     uint32
	dynamic  bool
}

// Device is the OpenGL implementation of gpu.Device.
type Device struct {
	targets map[gpu.Texture]uint32
	meshes  map[gpu.Mesh]*meshInfo
	// active holds the live uniform locations of every program; setting an
	// inactive explicit location is an INVALID_OPERATION on most drivers.
	active  map[gpu.Program]map[int32]bool
	current map[int32]bool
	quadVAO uint32
	quadVBO uint32
}

var _ gpu.Device = (*Device)(nil)

// New initializes the GL function pointers for the current context and
// returns a device bound to it.
func New() (*Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("gl init: %w", err)
	}

	d := &Device{
		targets: make(map[gpu.Texture]uint32),
		meshes:  make(map[gpu.Mesh]*meshInfo),
		active:  make(map[gpu.Program]map[int32]bool),
	}
	d.setupQuad()

	gl.Enable(gl.DEPTH_TEST)
	gl.FrontFace(gl.CCW)
	return d, nil
}

// Version returns the driver version string.
func (d *Device) Version() string {
	return gl.GoStr(gl.GetString(gl.VERSION))
}

func (d *Device) setupQuad() {
	// pos.xy, uv.xy as a triangle strip
	quad := []float32{
		-1, -1, 0, 0,
		1, -1, 1, 0,
		-1, 1, 0, 1,
		1, 1, 1, 1,
	}
	gl.GenVertexArrays(1, &d.quadVAO)
	gl.BindVertexArray(d.quadVAO)
	gl.GenBuffers(1, &d.quadVBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, d.quadVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(quad)*4, gl.Ptr(quad), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(0, 2, gl.FLOAT, false, 4*4, 0)
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointerWithOffset(1, 2, gl.FLOAT, false, 4*4, 2*4)
	gl.BindVertexArray(0)
}

// Release frees the device-owned objects. Resources created by callers must
// be deleted by them first.
func (d *Device) Release() {
	if d.quadVAO != 0 {
		gl.DeleteVertexArrays(1, &d.quadVAO)
		gl.DeleteBuffers(1, &d.quadVBO)
		d.quadVAO, d.quadVBO = 0, 0
	}
}

func formatOf(f gpu.Format) (internal int32, format, xtype uint32) {
	switch f {
	case gpu.FormatRGBA16F:
		return gl.RGBA16F, gl.RGBA, gl.FLOAT
	case gpu.FormatRGBA32F:
		return gl.RGBA32F, gl.RGBA, gl.FLOAT
	case gpu.FormatR32F:
		return gl.R32F, gl.RED, gl.FLOAT
	case gpu.FormatR32UI:
		return gl.R32UI, gl.RED_INTEGER, gl.UNSIGNED_INT
	case gpu.FormatDepth32F:
		return gl.DEPTH_COMPONENT32F, gl.DEPTH_COMPONENT, gl.FLOAT
	default:
		return gl.RGBA8, gl.RGBA, gl.UNSIGNED_BYTE
	}
}

func targetOf(k gpu.TextureKind) uint32 {
	switch k {
	case gpu.Texture2DArray:
		return gl.TEXTURE_2D_ARRAY
	case gpu.Texture1D:
		return gl.TEXTURE_1D
	default:
		return gl.TEXTURE_2D
	}
}

// CreateTexture allocates texture storage.
func (d *Device) CreateTexture(desc gpu.TextureDesc) (gpu.Texture, error) {
	if desc.Width <= 0 || (desc.Kind != gpu.Texture1D && desc.Height <= 0) {
		return 0, fmt.Errorf("texture: invalid size %dx%d", desc.Width, desc.Height)
	}
	var id uint32
	gl.GenTextures(1, &id)
	t := gpu.Texture(id)
	target := targetOf(desc.Kind)
	d.targets[t] = target

	gl.BindTexture(target, id)
	filter := int32(gl.NEAREST)
	if desc.Filter == gpu.FilterLinear {
		filter = gl.LINEAR
	}
	gl.TexParameteri(target, gl.TEXTURE_MIN_FILTER, filter)
	gl.TexParameteri(target, gl.TEXTURE_MAG_FILTER, filter)
	gl.TexParameteri(target, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	if desc.Kind != gpu.Texture1D {
		gl.TexParameteri(target, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	}
	if desc.Compare {
		gl.TexParameteri(target, gl.TEXTURE_COMPARE_MODE, gl.COMPARE_REF_TO_TEXTURE)
		gl.TexParameteri(target, gl.TEXTURE_COMPARE_FUNC, gl.LEQUAL)
	}
	d.upload(target, desc)
	gl.BindTexture(target, 0)

	if code := gl.GetError(); code != gl.NO_ERROR {
		gl.DeleteTextures(1, &id)
		delete(d.targets, t)
		return 0, &gpu.Error{Code: code, Name: errorName(code)}
	}
	return t, nil
}

func (d *Device) upload(target uint32, desc gpu.TextureDesc) {
	internal, format, xtype := formatOf(desc.Format)
	var pixels unsafe.Pointer
	if len(desc.Pixels) > 0 {
		gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
		pixels = gl.Ptr(desc.Pixels)
	}
	switch target {
	case gl.TEXTURE_2D_ARRAY:
		layers := max(desc.Layers, 1)
		gl.TexImage3D(target, 0, internal, int32(desc.Width), int32(desc.Height), int32(layers), 0, format, xtype, pixels)
	case gl.TEXTURE_1D:
		gl.TexImage1D(target, 0, internal, int32(desc.Width), 0, format, xtype, pixels)
	default:
		gl.TexImage2D(target, 0, internal, int32(desc.Width), int32(desc.Height), 0, format, xtype, pixels)
	}
}

// UpdateTexture re-specifies the storage and contents of an existing texture.
func (d *Device) UpdateTexture(t gpu.Texture, desc gpu.TextureDesc) error {
	target, ok := d.targets[t]
	if !ok {
		return fmt.Errorf("texture %d: unknown", t)
	}
	gl.BindTexture(target, uint32(t))
	d.upload(target, desc)
	gl.BindTexture(target, 0)
	return d.CheckError()
}

// DeleteTexture releases a texture.
func (d *Device) DeleteTexture(t gpu.Texture) {
	if t == 0 {
		return
	}
	id := uint32(t)
	gl.DeleteTextures(1, &id)
	delete(d.targets, t)
}

// CreateFramebuffer builds a framebuffer object and checks completeness.
// The default framebuffer is bound on return.
func (d *Device) CreateFramebuffer(desc gpu.FramebufferDesc) (gpu.Framebuffer, error) {
	var id uint32
	gl.GenFramebuffers(1, &id)
	gl.BindFramebuffer(gl.FRAMEBUFFER, id)

	attach := func(point uint32, a gpu.Attachment) {
		if a.Layer >= 0 && d.targets[a.Texture] == gl.TEXTURE_2D_ARRAY {
			gl.FramebufferTextureLayer(gl.FRAMEBUFFER, point, uint32(a.Texture), 0, int32(a.Layer))
			return
		}
		gl.FramebufferTexture(gl.FRAMEBUFFER, point, uint32(a.Texture), 0)
	}

	bufs := make([]uint32, len(desc.Color))
	for i, a := range desc.Color {
		point := uint32(gl.COLOR_ATTACHMENT0 + i)
		attach(point, a)
		bufs[i] = point
	}
	if desc.Depth != nil {
		attach(gl.DEPTH_ATTACHMENT, *desc.Depth)
	}
	if len(bufs) > 0 {
		gl.DrawBuffers(int32(len(bufs)), &bufs[0])
	} else {
		// depth-only target
		gl.DrawBuffer(gl.NONE)
		gl.ReadBuffer(gl.NONE)
	}

	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
	if status != gl.FRAMEBUFFER_COMPLETE {
		gl.DeleteFramebuffers(1, &id)
		return 0, fmt.Errorf("framebuffer incomplete: status=0x%X", status)
	}
	return gpu.Framebuffer(id), nil
}

// DeleteFramebuffer releases a framebuffer object. Attached textures are not deleted.
func (d *Device) DeleteFramebuffer(f gpu.Framebuffer) {
	if f == gpu.Screen {
		return
	}
	id := uint32(f)
	gl.DeleteFramebuffers(1, &id)
}

// CreateMesh uploads interleaved vertex data.
func (d *Device) CreateMesh(desc gpu.MeshDesc) (gpu.Mesh, error) {
	stride := desc.Stride()
	if stride == 0 {
		return 0, fmt.Errorf("mesh: empty layout")
	}
	m := &meshInfo{stride: stride, mode: primitiveOf(desc.Primitive), dynamic: desc.Dynamic}
	gl.GenVertexArrays(1, &m.vao)
	gl.BindVertexArray(m.vao)
	gl.GenBuffers(1, &m.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, m.vbo)

	offset := 0
	for i, comps := range desc.Layout {
		gl.EnableVertexAttribArray(uint32(i))
		gl.VertexAttribPointerWithOffset(uint32(i), int32(comps), gl.FLOAT, false, int32(stride*4), uintptr(offset*4))
		offset += comps
	}
	d.fill(m, desc.Vertices)
	gl.BindVertexArray(0)

	h := gpu.Mesh(m.vao)
	d.meshes[h] = m
	return h, nil
}

func (d *Device) fill(m *meshInfo, vertices []float32) {
	usage := uint32(gl.STATIC_DRAW)
	if m.dynamic {
		usage = gl.DYNAMIC_DRAW
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, m.vbo)
	if len(vertices) > 0 {
		gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, gl.Ptr(vertices), usage)
	} else {
		gl.BufferData(gl.ARRAY_BUFFER, 0, nil, usage)
	}
	m.count = int32(len(vertices) / m.stride)
}

// UpdateMesh replaces the vertex data of a mesh, orphaning the old buffer.
func (d *Device) UpdateMesh(h gpu.Mesh, vertices []float32) {
	m, ok := d.meshes[h]
	if !ok {
		return
	}
	gl.BindVertexArray(m.vao)
	d.fill(m, vertices)
	gl.BindVertexArray(0)
}

// DeleteMesh releases a mesh.
func (d *Device) DeleteMesh(h gpu.Mesh) {
	m, ok := d.meshes[h]
	if !ok {
		return
	}
	gl.DeleteVertexArrays(1, &m.vao)
	gl.DeleteBuffers(1, &m.vbo)
	delete(d.meshes, h)
}

func primitiveOf(p gpu.Primitive) uint32 {
	switch p {
	case gpu.TriangleStrip:
		return gl.TRIANGLE_STRIP
	case gpu.Lines:
		return gl.LINES
	case gpu.Points:
		return gl.POINTS
	default:
		return gl.TRIANGLES
	}
}

// CreateStorageBuffer allocates a shader storage buffer of size bytes.
func (d *Device) CreateStorageBuffer(size int) (gpu.Buffer, error) {
	if size <= 0 {
		return 0, fmt.Errorf("storage buffer: invalid size %d", size)
	}
	var id uint32
	gl.GenBuffers(1, &id)
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, id)
	gl.BufferData(gl.SHADER_STORAGE_BUFFER, size, nil, gl.DYNAMIC_COPY)
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, 0)
	if code := gl.GetError(); code != gl.NO_ERROR {
		gl.DeleteBuffers(1, &id)
		return 0, &gpu.Error{Code: code, Name: errorName(code)}
	}
	return gpu.Buffer(id), nil
}

// DeleteStorageBuffer releases a storage buffer.
func (d *Device) DeleteStorageBuffer(b gpu.Buffer) {
	if b == 0 {
		return
	}
	id := uint32(b)
	gl.DeleteBuffers(1, &id)
}

// BindFramebuffer binds f for drawing and reading.
func (d *Device) BindFramebuffer(f gpu.Framebuffer) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(f))
}

// Viewport sets the viewport rectangle.
func (d *Device) Viewport(x, y, w, h int) {
	gl.Viewport(int32(x), int32(y), int32(w), int32(h))
}

// UseProgram activates a program; 0 unbinds.
func (d *Device) UseProgram(p gpu.Program) {
	gl.UseProgram(uint32(p))
	d.current = d.active[p]
}

func (d *Device) live(loc int32) bool {
	return d.current[loc]
}

// BindTexture binds t to the given texture unit.
func (d *Device) BindTexture(slot int, t gpu.Texture) {
	gl.ActiveTexture(uint32(gl.TEXTURE0 + slot))
	target, ok := d.targets[t]
	if !ok {
		target = gl.TEXTURE_2D
	}
	gl.BindTexture(target, uint32(t))
}

// BindStorageBuffer binds b to a shader storage binding point.
func (d *Device) BindStorageBuffer(slot int, b gpu.Buffer) {
	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, uint32(slot), uint32(b))
}

// ClearStorageBuffer fills a storage buffer with a repeated 32-bit word.
func (d *Device) ClearStorageBuffer(b gpu.Buffer, word uint32) {
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, uint32(b))
	gl.ClearBufferData(gl.SHADER_STORAGE_BUFFER, gl.R32UI, gl.RED_INTEGER, gl.UNSIGNED_INT, gl.Ptr(&word))
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, 0)
}

// BlendFactors returns the separate color and alpha factors for b as
// (src rgb, dst rgb, src alpha, dst alpha). ok is false for BlendNone.
func BlendFactors(b gpu.Blend) (f [4]uint32, ok bool) {
	switch b {
	case gpu.BlendAlpha:
		return [4]uint32{gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA, gl.ONE, gl.ONE_MINUS_SRC_ALPHA}, true
	case gpu.BlendAdditive:
		return [4]uint32{gl.SRC_ALPHA, gl.ONE, gl.ZERO, gl.ONE}, true
	case gpu.BlendOne:
		return [4]uint32{gl.ONE, gl.ONE, gl.ONE, gl.ONE}, true
	}
	return f, false
}

// SetBlend selects a blend equation.
func (d *Device) SetBlend(b gpu.Blend) {
	f, ok := BlendFactors(b)
	if !ok {
		gl.Disable(gl.BLEND)
		return
	}
	gl.BlendFuncSeparate(f[0], f[1], f[2], f[3])
	gl.Enable(gl.BLEND)
}

// SetDepth configures depth testing and writes.
func (d *Device) SetDepth(s gpu.DepthState) {
	if s.Test {
		gl.Enable(gl.DEPTH_TEST)
		gl.DepthFunc(gl.LEQUAL)
	} else {
		gl.Disable(gl.DEPTH_TEST)
	}
	gl.DepthMask(s.Write)
}

// SetCull configures face culling.
func (d *Device) SetCull(c gpu.Cull) {
	switch c {
	case gpu.CullNone:
		gl.Disable(gl.CULL_FACE)
	case gpu.CullFront:
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.FRONT)
	default:
		gl.Enable(gl.CULL_FACE)
		gl.CullFace(gl.BACK)
	}
}

// SetColorMask enables or disables all color writes.
func (d *Device) SetColorMask(write bool) {
	gl.ColorMask(write, write, write, write)
}

// Clear clears the bound framebuffer.
func (d *Device) Clear(flags gpu.ClearFlags, color mgl32.Vec4, depth float32) {
	var mask uint32
	if flags&gpu.ClearColor != 0 {
		gl.ClearColor(color[0], color[1], color[2], color[3])
		mask |= gl.COLOR_BUFFER_BIT
	}
	if flags&gpu.ClearDepth != 0 {
		gl.ClearDepth(float64(depth))
		// depth writes must be on for the clear to take effect
		gl.DepthMask(true)
		mask |= gl.DEPTH_BUFFER_BIT
	}
	if mask != 0 {
		gl.Clear(mask)
	}
}

func (d *Device) Uniform1i(loc int32, v int32) {
	if d.live(loc) {
		gl.Uniform1i(loc, v)
	}
}

func (d *Device) Uniform1f(loc int32, v float32) {
	if d.live(loc) {
		gl.Uniform1f(loc, v)
	}
}

func (d *Device) Uniform2f(loc int32, v mgl32.Vec2) {
	if d.live(loc) {
		gl.Uniform2f(loc, v[0], v[1])
	}
}

func (d *Device) Uniform3f(loc int32, v mgl32.Vec3) {
	if d.live(loc) {
		gl.Uniform3f(loc, v[0], v[1], v[2])
	}
}

func (d *Device) Uniform4f(loc int32, v mgl32.Vec4) {
	if d.live(loc) {
		gl.Uniform4f(loc, v[0], v[1], v[2], v[3])
	}
}

func (d *Device) UniformMat4(loc int32, m mgl32.Mat4) {
	if d.live(loc) {
		gl.UniformMatrix4fv(loc, 1, false, &m[0])
	}
}

func (d *Device) UniformMat4Array(loc int32, ms []mgl32.Mat4) {
	if len(ms) == 0 || !d.live(loc) {
		return
	}
	gl.UniformMatrix4fv(loc, int32(len(ms)), false, &ms[0][0])
}

func (d *Device) UniformVec2Array(loc int32, vs []mgl32.Vec2) {
	if len(vs) == 0 || !d.live(loc) {
		return
	}
	gl.Uniform2fv(loc, int32(len(vs)), &vs[0][0])
}

func (d *Device) UniformVec3Array(loc int32, vs []mgl32.Vec3) {
	if len(vs) == 0 || !d.live(loc) {
		return
	}
	gl.Uniform3fv(loc, int32(len(vs)), &vs[0][0])
}

// DrawMesh draws all vertices of a mesh with its primitive type.
func (d *Device) DrawMesh(h gpu.Mesh) {
	m, ok := d.meshes[h]
	if !ok || m.count == 0 {
		return
	}
	gl.BindVertexArray(m.vao)
	gl.DrawArrays(m.mode, 0, m.count)
}

// DrawFullscreen draws a clip-space quad with uv in [0,1].
func (d *Device) DrawFullscreen() {
	gl.BindVertexArray(d.quadVAO)
	gl.DrawArrays(gl.TRIANGLE_STRIP, 0, 4)
}

// ReadPixels reads back RGBA floats from color attachment 0 of f.
func (d *Device) ReadPixels(f gpu.Framebuffer, x, y, w, h int) ([]float32, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("read pixels: invalid size %dx%d", w, h)
	}
	out := make([]float32, w*h*4)
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, uint32(f))
	if f != gpu.Screen {
		gl.ReadBuffer(gl.COLOR_ATTACHMENT0)
	}
	gl.ReadPixels(int32(x), int32(y), int32(w), int32(h), gl.RGBA, gl.FLOAT, gl.Ptr(out))
	gl.BindFramebuffer(gl.READ_FRAMEBUFFER, 0)
	return out, d.CheckError()
}

// Barrier makes storage buffer writes visible to later draws.
func (d *Device) Barrier() {
	gl.MemoryBarrier(gl.SHADER_STORAGE_BARRIER_BIT)
}

// CheckError drains the GL error queue and returns the first error.
func (d *Device) CheckError() error {
	var first error
	for {
		code := gl.GetError()
		if code == gl.NO_ERROR {
			return first
		}
		if first == nil {
			first = &gpu.Error{Code: code, Name: errorName(code)}
		}
	}
}

func errorName(code uint32) string {
	switch code {
	case gl.INVALID_ENUM:
		return "INVALID_ENUM"
	case gl.INVALID_VALUE:
		return "INVALID_VALUE"
	case gl.INVALID_OPERATION:
		return "INVALID_OPERATION"
	case gl.INVALID_FRAMEBUFFER_OPERATION:
		return "INVALID_FRAMEBUFFER_OPERATION"
	case gl.OUT_OF_MEMORY:
		return "OUT_OF_MEMORY"
	case gl.STACK_OVERFLOW:
		return "STACK_OVERFLOW"
	case gl.STACK_UNDERFLOW:
		return "STACK_UNDERFLOW"
	}
	return "UNKNOWN"
}
