// Package gputest provides a recording gpu.Device for tests.
//
// The device keeps every created resource, the bound state and the uniform
// values per program, so tests can assert pass ordering, handle leaks and
// the uniform location contract without a GPU.
package gputest

import (
	"fmt"
	"sort"

	"mini-engine/internal/gpu"

	"github.com/go-gl/mathgl/mgl32"
)

// Call is one recorded device command.
type Call struct {
	Op   string
	Args []any
}

// Draw records the state a draw call was issued with.
type Draw struct {
	Framebuffer gpu.Framebuffer
	Program     gpu.Program
	ProgramName string
	Blend       gpu.Blend
	Depth       gpu.DepthState
	Fullscreen  bool
	Mesh        gpu.Mesh
}

// ClearRecord records a clear of the bound framebuffer.
type ClearRecord struct {
	Framebuffer gpu.Framebuffer
	Flags       gpu.ClearFlags
	Color       mgl32.Vec4
	Depth       float32
}

// Device records gpu.Device calls. The zero value is not usable; call New.
type Device struct {
	Calls    []Call
	DrawLog  []Draw
	ClearLog []ClearRecord

	Textures     map[gpu.Texture]gpu.TextureDesc
	Framebuffers map[gpu.Framebuffer]gpu.FramebufferDesc
	Programs     map[gpu.Program]gpu.ProgramSource
	Meshes       map[gpu.Mesh]gpu.MeshDesc
	Buffers      map[gpu.Buffer]int

	// Allocated and Released count every create and delete of any resource kind.
	Allocated int
	Released  int
	// ProgramsCreated counts successful CreateProgram calls.
	ProgramsCreated int

	Bound     gpu.Framebuffer
	Program   gpu.Program
	Blend     gpu.Blend
	Depth     gpu.DepthState
	Cull      gpu.Cull
	ColorMask bool
	View      [4]int
	Slots     map[int]gpu.Texture

	// FailProgram, when set, is consulted before linking a program.
	FailProgram func(src gpu.ProgramSource) error
	// FailFramebuffer, when set, is consulted before creating a framebuffer.
	FailFramebuffer func(desc gpu.FramebufferDesc) error
	// Pixels, when set, supplies ReadPixels results.
	Pixels func(f gpu.Framebuffer, x, y, w, h int) []float32
	// DrawError, when set, is consulted after each draw. A non-nil result is
	// queued as a pending GPU error.
	DrawError func(dr Draw) error

	uniforms map[gpu.Program]map[int32]any
	pending  []error
	next     uint32
}

var _ gpu.Device = (*Device)(nil)

// New returns an empty recording device.
func New() *Device {
	return &Device{
		Textures:     make(map[gpu.Texture]gpu.TextureDesc),
		Framebuffers: make(map[gpu.Framebuffer]gpu.FramebufferDesc),
		Programs:     make(map[gpu.Program]gpu.ProgramSource),
		Meshes:       make(map[gpu.Mesh]gpu.MeshDesc),
		Buffers:      make(map[gpu.Buffer]int),
		Slots:        make(map[int]gpu.Texture),
		uniforms:     make(map[gpu.Program]map[int32]any),
		ColorMask:    true,
	}
}

func (d *Device) record(op string, args ...any) {
	d.Calls = append(d.Calls, Call{Op: op, Args: args})
}

func (d *Device) id() uint32 {
	d.next++
	return d.next
}

// Live returns the number of resources that were created and not yet deleted.
func (d *Device) Live() int {
	return len(d.Textures) + len(d.Framebuffers) + len(d.Programs) + len(d.Meshes) + len(d.Buffers)
}

// ResetLog forgets recorded calls, draws and clears but keeps resources and state.
func (d *Device) ResetLog() {
	d.Calls = nil
	d.DrawLog = nil
	d.ClearLog = nil
}

// Ops returns the recorded operation names in order.
func (d *Device) Ops() []string {
	out := make([]string, len(d.Calls))
	for i, c := range d.Calls {
		out[i] = c.Op
	}
	return out
}

// Count returns how many times op was recorded.
func (d *Device) Count(op string) int {
	n := 0
	for _, c := range d.Calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// InjectError queues an error for the next CheckError call.
func (d *Device) InjectError(err error) {
	d.pending = append(d.pending, err)
}

// Uniform returns the last value set at loc while p was bound.
func (d *Device) Uniform(p gpu.Program, loc int32) (any, bool) {
	v, ok := d.uniforms[p][loc]
	return v, ok
}

// ProgramByName returns the live program created from a source with the given name.
func (d *Device) ProgramByName(name string) (gpu.Program, bool) {
	for p, src := range d.Programs {
		if src.Name == name {
			return p, true
		}
	}
	return 0, false
}

// DrawsTo returns the draws issued while f was bound.
func (d *Device) DrawsTo(f gpu.Framebuffer) []Draw {
	var out []Draw
	for _, dr := range d.DrawLog {
		if dr.Framebuffer == f {
			out = append(out, dr)
		}
	}
	return out
}

// DrawsWith returns the draws issued with the named program.
func (d *Device) DrawsWith(name string) []Draw {
	var out []Draw
	for _, dr := range d.DrawLog {
		if dr.ProgramName == name {
			out = append(out, dr)
		}
	}
	return out
}

// TexturesOfSize returns the live textures with the given dimensions, sorted by handle.
func (d *Device) TexturesOfSize(w, h int) []gpu.Texture {
	var out []gpu.Texture
	for t, desc := range d.Textures {
		if desc.Width == w && desc.Height == h {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (d *Device) CreateTexture(desc gpu.TextureDesc) (gpu.Texture, error) {
	if desc.Width <= 0 || (desc.Kind != gpu.Texture1D && desc.Height <= 0) {
		return 0, fmt.Errorf("texture: invalid size %dx%d", desc.Width, desc.Height)
	}
	t := gpu.Texture(d.id())
	desc.Pixels = nil
	d.Textures[t] = desc
	d.Allocated++
	d.record("CreateTexture", t, desc)
	return t, nil
}

func (d *Device) UpdateTexture(t gpu.Texture, desc gpu.TextureDesc) error {
	if _, ok := d.Textures[t]; !ok {
		return fmt.Errorf("texture %d: unknown", t)
	}
	desc.Pixels = nil
	d.Textures[t] = desc
	d.record("UpdateTexture", t, desc)
	return nil
}

func (d *Device) DeleteTexture(t gpu.Texture) {
	if _, ok := d.Textures[t]; !ok {
		return
	}
	delete(d.Textures, t)
	d.Released++
	d.record("DeleteTexture", t)
}

func (d *Device) CreateFramebuffer(desc gpu.FramebufferDesc) (gpu.Framebuffer, error) {
	if d.FailFramebuffer != nil {
		if err := d.FailFramebuffer(desc); err != nil {
			return 0, err
		}
	}
	for _, a := range desc.Color {
		if _, ok := d.Textures[a.Texture]; !ok {
			return 0, fmt.Errorf("framebuffer: color attachment %d is not a live texture", a.Texture)
		}
	}
	if desc.Depth != nil {
		if _, ok := d.Textures[desc.Depth.Texture]; !ok {
			return 0, fmt.Errorf("framebuffer: depth attachment %d is not a live texture", desc.Depth.Texture)
		}
	}
	f := gpu.Framebuffer(d.id())
	d.Framebuffers[f] = desc
	d.Allocated++
	d.record("CreateFramebuffer", f)
	d.Bound = gpu.Screen
	return f, nil
}

func (d *Device) DeleteFramebuffer(f gpu.Framebuffer) {
	if _, ok := d.Framebuffers[f]; !ok {
		return
	}
	delete(d.Framebuffers, f)
	d.Released++
	d.record("DeleteFramebuffer", f)
}

func (d *Device) CreateProgram(src gpu.ProgramSource) (gpu.Program, error) {
	d.record("CreateProgram", src.Name)
	if d.FailProgram != nil {
		if err := d.FailProgram(src); err != nil {
			return 0, err
		}
	}
	p := gpu.Program(d.id())
	d.Programs[p] = src
	d.uniforms[p] = make(map[int32]any)
	d.Allocated++
	d.ProgramsCreated++
	return p, nil
}

func (d *Device) DeleteProgram(p gpu.Program) {
	if _, ok := d.Programs[p]; !ok {
		return
	}
	delete(d.Programs, p)
	delete(d.uniforms, p)
	d.Released++
	d.record("DeleteProgram", p)
}

func (d *Device) CreateMesh(desc gpu.MeshDesc) (gpu.Mesh, error) {
	if desc.Stride() == 0 {
		return 0, fmt.Errorf("mesh: empty layout")
	}
	m := gpu.Mesh(d.id())
	d.Meshes[m] = desc
	d.Allocated++
	d.record("CreateMesh", m)
	return m, nil
}

func (d *Device) UpdateMesh(m gpu.Mesh, vertices []float32) {
	desc, ok := d.Meshes[m]
	if !ok {
		return
	}
	desc.Vertices = append([]float32(nil), vertices...)
	d.Meshes[m] = desc
	d.record("UpdateMesh", m, len(vertices))
}

func (d *Device) DeleteMesh(m gpu.Mesh) {
	if _, ok := d.Meshes[m]; !ok {
		return
	}
	delete(d.Meshes, m)
	d.Released++
	d.record("DeleteMesh", m)
}

func (d *Device) CreateStorageBuffer(size int) (gpu.Buffer, error) {
	if size <= 0 {
		return 0, fmt.Errorf("storage buffer: invalid size %d", size)
	}
	b := gpu.Buffer(d.id())
	d.Buffers[b] = size
	d.Allocated++
	d.record("CreateStorageBuffer", b, size)
	return b, nil
}

func (d *Device) DeleteStorageBuffer(b gpu.Buffer) {
	if _, ok := d.Buffers[b]; !ok {
		return
	}
	delete(d.Buffers, b)
	d.Released++
	d.record("DeleteStorageBuffer", b)
}

func (d *Device) BindFramebuffer(f gpu.Framebuffer) {
	d.Bound = f
	d.record("BindFramebuffer", f)
}

func (d *Device) Viewport(x, y, w, h int) {
	d.View = [4]int{x, y, w, h}
	d.record("Viewport", x, y, w, h)
}

func (d *Device) UseProgram(p gpu.Program) {
	d.Program = p
	d.record("UseProgram", p, d.Programs[p].Name)
}

func (d *Device) BindTexture(slot int, t gpu.Texture) {
	d.Slots[slot] = t
	d.record("BindTexture", slot, t)
}

func (d *Device) BindStorageBuffer(slot int, b gpu.Buffer) {
	d.record("BindStorageBuffer", slot, b)
}

func (d *Device) ClearStorageBuffer(b gpu.Buffer, word uint32) {
	d.record("ClearStorageBuffer", b, word)
}

func (d *Device) SetBlend(b gpu.Blend) {
	d.Blend = b
	d.record("SetBlend", b)
}

func (d *Device) SetDepth(s gpu.DepthState) {
	d.Depth = s
	d.record("SetDepth", s)
}

func (d *Device) SetCull(c gpu.Cull) {
	d.Cull = c
	d.record("SetCull", c)
}

func (d *Device) SetColorMask(write bool) {
	d.ColorMask = write
	d.record("SetColorMask", write)
}

func (d *Device) Clear(flags gpu.ClearFlags, color mgl32.Vec4, depth float32) {
	d.ClearLog = append(d.ClearLog, ClearRecord{Framebuffer: d.Bound, Flags: flags, Color: color, Depth: depth})
	d.record("Clear", flags, color, depth)
}

func (d *Device) setUniform(op string, loc int32, v any) {
	if u, ok := d.uniforms[d.Program]; ok {
		u[loc] = v
	}
	d.record(op, loc, v)
}

func (d *Device) Uniform1i(loc int32, v int32)        { d.setUniform("Uniform1i", loc, v) }
func (d *Device) Uniform1f(loc int32, v float32)      { d.setUniform("Uniform1f", loc, v) }
func (d *Device) Uniform2f(loc int32, v mgl32.Vec2)   { d.setUniform("Uniform2f", loc, v) }
func (d *Device) Uniform3f(loc int32, v mgl32.Vec3)   { d.setUniform("Uniform3f", loc, v) }
func (d *Device) Uniform4f(loc int32, v mgl32.Vec4)   { d.setUniform("Uniform4f", loc, v) }
func (d *Device) UniformMat4(loc int32, m mgl32.Mat4) { d.setUniform("UniformMat4", loc, m) }

func (d *Device) UniformMat4Array(loc int32, ms []mgl32.Mat4) {
	d.setUniform("UniformMat4Array", loc, append([]mgl32.Mat4(nil), ms...))
}

func (d *Device) UniformVec2Array(loc int32, vs []mgl32.Vec2) {
	d.setUniform("UniformVec2Array", loc, append([]mgl32.Vec2(nil), vs...))
}

func (d *Device) UniformVec3Array(loc int32, vs []mgl32.Vec3) {
	d.setUniform("UniformVec3Array", loc, append([]mgl32.Vec3(nil), vs...))
}

func (d *Device) draw(mesh gpu.Mesh, fullscreen bool) {
	dr := Draw{
		Framebuffer: d.Bound,
		Program:     d.Program,
		ProgramName: d.Programs[d.Program].Name,
		Blend:       d.Blend,
		Depth:       d.Depth,
		Fullscreen:  fullscreen,
		Mesh:        mesh,
	}
	d.DrawLog = append(d.DrawLog, dr)
	if d.DrawError != nil {
		if err := d.DrawError(dr); err != nil {
			d.pending = append(d.pending, err)
		}
	}
}

func (d *Device) DrawMesh(m gpu.Mesh) {
	d.draw(m, false)
	d.record("DrawMesh", m)
}

func (d *Device) DrawFullscreen() {
	d.draw(0, true)
	d.record("DrawFullscreen")
}

func (d *Device) ReadPixels(f gpu.Framebuffer, x, y, w, h int) ([]float32, error) {
	d.record("ReadPixels", f, x, y, w, h)
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("read pixels: invalid size %dx%d", w, h)
	}
	// Like a real driver, a readback drains the error queue.
	var err error
	if len(d.pending) > 0 {
		err = d.pending[0]
		d.pending = nil
	}
	if d.Pixels != nil {
		return d.Pixels(f, x, y, w, h), err
	}
	return make([]float32, w*h*4), err
}

func (d *Device) Barrier() { d.record("Barrier") }

func (d *Device) CheckError() error {
	d.record("CheckError")
	if len(d.pending) == 0 {
		return nil
	}
	err := d.pending[0]
	d.pending = d.pending[1:]
	return err
}
