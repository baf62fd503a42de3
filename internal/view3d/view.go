// Package view3d runs the 3D frame: shadow maps, G-buffer, light
// accumulation, transparency and post-processing in deferred mode, or a
// single lit pass in forward mode.
package view3d

import (
	"fmt"
	"log/slog"

	"mini-engine/internal/config"
	"mini-engine/internal/fbo"
	"mini-engine/internal/gpu"
	"mini-engine/internal/lights"
	"mini-engine/internal/logging"
	"mini-engine/internal/profiling"
	"mini-engine/internal/render"
	"mini-engine/internal/shaders"

	"github.com/go-gl/mathgl/mgl32"
)

// PassError is a GPU error detected at the end of a pass.
type PassError struct {
	Pass  string
	Notes string
	Err   error
}

func (e *PassError) Error() string {
	if e.Notes != "" {
		return fmt.Sprintf("%s pass (%s): %v", e.Pass, e.Notes, e.Err)
	}
	return fmt.Sprintf("%s pass: %v", e.Pass, e.Err)
}

func (e *PassError) Unwrap() error { return e.Err }

// Options wires a view to the engine's shared resources.
type Options struct {
	Device   gpu.Device
	Shaders  *shaders.Set
	Buffers  *fbo.Set
	Lights   *lights.List
	Settings *config.Settings
	Tuning   config.Tuning
	Logger   *slog.Logger
	Profiler *profiling.Profiler
	Notes    *profiling.Notes
	// SubEngine renders the final composite into Buffers.Out instead of the screen.
	SubEngine bool
}

// View is the 3D frame pipeline. It must only be used on the render thread.
type View struct {
	dev      gpu.Device
	shaders  *shaders.Set
	buffers  *fbo.Set
	lights   *lights.List
	settings *config.Settings
	tuning   config.Tuning
	log      *slog.Logger
	prof     *profiling.Profiler
	notes    *profiling.Notes
	sub      bool

	Camera *render.Camera3D
	ctx    *render.Context

	// Sun points toward the sun; godrays radiate from its screen position.
	Sun mgl32.Vec3
	// ClearColor fills pixels no geometry covers in forward mode.
	ClearColor mgl32.Vec4

	cfg          config.Render
	frustum      lights.Frustum
	exposure     float32
	prevViewProj mgl32.Mat4
	windowW      int
	windowH      int
	white        gpu.Texture
	current      *shaders.Program
	lightsUsed   int
}

// New returns a view; call Load before the first frame.
func New(opts Options) *View {
	v := &View{
		dev:          opts.Device,
		shaders:      opts.Shaders,
		buffers:      opts.Buffers,
		lights:       opts.Lights,
		settings:     opts.Settings,
		tuning:       opts.Tuning,
		log:          logging.OrNop(opts.Logger),
		prof:         opts.Profiler,
		notes:        opts.Notes,
		sub:          opts.SubEngine,
		Camera:       render.NewCamera3D(1, 1),
		ctx:          render.NewContext(opts.Device),
		Sun:          mgl32.Vec3{0.3, 0.8, 0.5}.Normalize(),
		ClearColor:   mgl32.Vec4{0, 0, 0, 1},
		exposure:     1,
		prevViewProj: mgl32.Ident4(),
	}
	if v.notes == nil {
		v.notes = &profiling.Notes{}
	}
	return v
}

// Context returns the view's render context.
func (v *View) Context() *render.Context { return v.ctx }

// Exposure returns the current HDR exposure.
func (v *View) Exposure() float32 { return v.exposure }

// LightsConsumed returns how many light entries the last frame uploaded:
// light views in deferred mode, whole lights in forward mode.
func (v *View) LightsConsumed() int { return v.lightsUsed }

// Output returns the texture a sub-engine renders into.
func (v *View) Output() gpu.Texture {
	if len(v.buffers.Out.Color) == 0 {
		return 0
	}
	return v.buffers.Out.Color[0]
}

// RequiredShaders lists every variant a frame may use under cfg.
func (v *View) RequiredShaders(cfg config.Render) []string {
	if !cfg.Deferred {
		return []string{
			"forward", "forward,MCM_SKYBOX", "forward,MCM_BONES",
			"particles?geom_particles",
		}
	}
	keys := []string{
		"fbo", "fbo,MCM_SKYBOX", "fbo,MCM_REFRACT", "fbo,MCM_BONES",
		"particles,MCM_FBO?geom_particles", "particles?geom_particles",
		lightKey(cfg),
		"transponly", "transponly,MCM_BRIGHT", "transponly,MCM_BONES",
		finalKey(cfg),
	}
	if cfg.Shadows {
		keys = append(keys, "shadow", "shadow,MCM_BONES", "particles,MCM_SHADOWS?geom_particles")
	}
	if cfg.LLTransparency {
		keys = append(keys, "transponly,MCM_LL", "transponly,MCM_LL,MCM_BRIGHT", "ll_resolve")
	}
	if cfg.HDR {
		keys = append(keys, "hdrpass")
	}
	if cfg.Godrays {
		keys = append(keys, "hdrpass,MCM_GODRAYS")
	}
	return keys
}

func lightKey(cfg config.Render) string {
	return shaders.Variant("lightadder", "",
		shaders.On(shaders.FlagShadows, cfg.Shadows),
		shaders.On(shaders.FlagGoodGraphics, cfg.Shadows && cfg.GoodGraphics),
		shaders.On(shaders.FlagSSAO, cfg.SSAO))
}

func finalKey(cfg config.Render) string {
	return shaders.Variant("finalgodray", "",
		shaders.On(shaders.FlagGodrays, cfg.Godrays),
		shaders.On(shaders.FlagHDR, cfg.HDR),
		shaders.On(shaders.FlagToonify, cfg.Toonify),
		shaders.On(shaders.FlagGrayscale, cfg.Grayscale),
		shaders.On(shaders.FlagMotionBlur, cfg.MotionBlur),
		shaders.On(shaders.FlagSSR, cfg.Reflections))
}

// Load creates the view's own GPU resources. Shader variants are compiled
// by the engine through RequiredShaders before Load.
func (v *View) Load() error {
	if v.white == 0 {
		t, err := v.dev.CreateTexture(gpu.TextureDesc{
			Kind: gpu.Texture2D, Format: gpu.FormatRGBA8, Width: 1, Height: 1,
			Pixels: []byte{255, 255, 255, 255},
		})
		if err != nil {
			return fmt.Errorf("view3d white texture: %w", err)
		}
		v.white = t
	}
	v.ctx.White = v.white
	return nil
}

// Release deletes the view's own GPU resources.
func (v *View) Release() {
	if v.white != 0 {
		v.dev.DeleteTexture(v.white)
		v.white = 0
	}
}

// Resize records the window size; the framebuffer set must already be
// generated for it.
func (v *View) Resize(w, h int) {
	v.windowW, v.windowH = w, h
	v.Camera.SetViewport(w, h)
}

// Render draws one frame. Entities are reordered in place.
func (v *View) Render(f render.Frame) error {
	defer v.prof.Track("view3d.Render")()
	v.cfg = v.settings.Snapshot()
	v.reset(f)
	v.sort(f.Entities)

	if !v.cfg.Deferred {
		return v.forwardPass(f.Entities)
	}
	if v.cfg.Shadows {
		if err := v.shadowPass(f.Entities); err != nil {
			return err
		}
	}
	if err := v.gbufferPass(f.Entities); err != nil {
		return err
	}
	if err := v.lightPass(); err != nil {
		return err
	}
	if err := v.transparencyPass(f.Entities); err != nil {
		return err
	}
	return v.postPass(f.Delta)
}

func (v *View) reset(f render.Frame) {
	defer v.prof.Track("view3d.Reset")()
	c := v.ctx
	c.ResetStats()
	c.ResetTransforms()
	c.Time, c.Delta = f.Time, f.Delta
	c.Width, c.Height = v.buffers.Size()
	c.Aspect = v.Camera.AspectRatio
	c.CameraPos = v.Camera.Position
	c.View = v.Camera.GetViewMatrix()
	c.Proj = v.Camera.GetProjectionMatrix()
	c.ViewProj = c.Proj.Mul4(c.View)
	c.CalcShadows = false
	c.Shadow = nil
	c.Pass = render.PassNone
	v.frustum = lights.NewFrustum(c.ViewProj)
	v.current = nil
}

// check reads the GPU error state at the end of a pass. Debug mode turns an
// error into a frame-aborting PassError; otherwise it is logged.
func (v *View) check(pass string) error {
	return v.fail(pass, v.dev.CheckError())
}

// fail applies the GPU error policy to err: debug mode aborts the frame
// with a PassError, release mode logs and carries on.
func (v *View) fail(pass string, err error) error {
	if err == nil {
		return nil
	}
	perr := &PassError{Pass: pass, Notes: v.notes.String(), Err: err}
	if v.cfg.Debug {
		return perr
	}
	v.log.Warn("gpu error", "pass", pass, "notes", perr.Notes, "err", err)
	return nil
}

// use binds the program for key unless it is already current.
func (v *View) use(key string) (*shaders.Program, bool, error) {
	p, err := v.shaders.GetShader(key)
	if err != nil {
		return nil, false, err
	}
	if p == v.current {
		return p, false, nil
	}
	v.current = p
	v.ctx.Use(p)
	return p, true, nil
}

func (v *View) draw(pass string, r render.Renderable) error {
	defer v.notes.Push("entity " + render.NameOf(r))()
	v.ctx.PushTransforms()
	v.ctx.BindDiffuse(0)
	v.ctx.Stats.Objects++
	if err := r.Render(v.ctx); err != nil {
		return &render.EntityError{Pass: pass, Entity: render.NameOf(r), Err: err}
	}
	return nil
}

// activeViews prepares every light that is not culled, in insertion order.
func (v *View) activeViews() []lights.ShadowView {
	var out []lights.ShadowView
	for _, li := range v.lights.All() {
		if li.Culled(v.frustum) {
			continue
		}
		out = append(out, li.Prepare()...)
	}
	if len(out) > lights.MaxLights {
		out = out[:lights.MaxLights]
	}
	return out
}

// activeLights packs every light that is not culled, one entry per light,
// in insertion order.
func (v *View) activeLights() []mgl32.Mat4 {
	var out []mgl32.Mat4
	for _, li := range v.lights.All() {
		if li.Culled(v.frustum) {
			continue
		}
		if len(out) == lights.MaxLights {
			break
		}
		out = append(out, li.Pack())
	}
	return out
}

func (v *View) finalTarget() (gpu.Framebuffer, int, int) {
	if v.sub {
		w, h := v.buffers.Size()
		return v.buffers.Out.FB, w, h
	}
	return gpu.Screen, v.windowW, v.windowH
}
