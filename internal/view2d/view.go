// Package view2d runs the 2D frame: an unlit scene, one lightmap per light,
// additive light accumulation and the final add-to-scene composite.
package view2d

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

// PassError is a GPU error detected at the end of a 2D pass.
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

type Options struct {
	Device    gpu.Device
	Shaders   *shaders.Set
	Buffers   *fbo.Set2D
	Lights    *lights.List2D
	Settings  *config.Settings
	Tuning    config.Tuning
	Logger    *slog.Logger
	Profiler  *profiling.Profiler
	Notes     *profiling.Notes
	SubEngine bool
}

// View is the 2D frame pipeline. Entities draw in slice order, so later
// entities cover earlier ones.
type View struct {
	dev      gpu.Device
	shaders  *shaders.Set
	buffers  *fbo.Set2D
	lights   *lights.List2D
	settings *config.Settings
	tuning   config.Tuning
	log      *slog.Logger
	prof     *profiling.Profiler
	notes    *profiling.Notes
	sub      bool

	Camera     *render.Camera2D
	ClearColor mgl32.Vec4

	ctx     *render.Context
	cfg     config.Render
	windowW int
	windowH int
	white   gpu.Texture
	current *shaders.Program
}

func New(opts Options) *View {
	v := &View{
		dev:        opts.Device,
		shaders:    opts.Shaders,
		buffers:    opts.Buffers,
		lights:     opts.Lights,
		settings:   opts.Settings,
		tuning:     opts.Tuning,
		log:        logging.OrNop(opts.Logger),
		prof:       opts.Profiler,
		notes:      opts.Notes,
		sub:        opts.SubEngine,
		Camera:     render.NewCamera2D(1, 1),
		ClearColor: mgl32.Vec4{0, 0, 0, 0},
		ctx:        render.NewContext(opts.Device),
	}
	if v.notes == nil {
		v.notes = &profiling.Notes{}
	}
	return v
}

func (v *View) Context() *render.Context { return v.ctx }

// Output returns the texture a sub-engine renders into.
func (v *View) Output() gpu.Texture {
	if len(v.buffers.Out.Color) == 0 {
		return 0
	}
	return v.buffers.Out.Color[0]
}

// RequiredShaders lists every variant a frame may use under cfg.
func (v *View) RequiredShaders(cfg config.Render) []string {
	if cfg.NoLightEngine2D {
		return []string{"colormult2d"}
	}
	return []string{
		"colormult2d",
		"lightmap2d", "lightmap2d,MCM_1D",
		"lightcombine2d", "lightcombine2d,MCM_1D",
		"lightcombine2d,MCM_SKY", "lightcombine2d,MCM_1D,MCM_SKY",
		"addtoscene2d",
	}
}

func (v *View) Load() error {
	if v.white == 0 {
		t, err := v.dev.CreateTexture(gpu.TextureDesc{
			Kind: gpu.Texture2D, Format: gpu.FormatRGBA8, Width: 1, Height: 1,
			Pixels: []byte{255, 255, 255, 255},
		})
		if err != nil {
			return fmt.Errorf("view2d white texture: %w", err)
		}
		v.white = t
	}
	v.ctx.White = v.white
	return nil
}

func (v *View) Release() {
	if v.white != 0 {
		v.dev.DeleteTexture(v.white)
		v.white = 0
	}
}

func (v *View) Resize(w, h int) {
	v.windowW, v.windowH = w, h
	v.Camera.SetViewport(w, h)
}

// Render draws one frame.
func (v *View) Render(f render.Frame) error {
	defer v.prof.Track("view2d.Render")()
	v.cfg = v.settings.Snapshot()
	v.reset(f)

	if v.cfg.NoLightEngine2D {
		return v.directPass(f.Entities)
	}
	if err := v.scenePass(f.Entities); err != nil {
		return err
	}
	if err := v.lightmapPass(f.Entities); err != nil {
		return err
	}
	if err := v.combinePass(); err != nil {
		return err
	}
	return v.composePass()
}

func (v *View) reset(f render.Frame) {
	c := v.ctx
	c.ResetStats()
	c.ResetTransforms()
	c.Time, c.Delta = f.Time, f.Delta
	c.Width, c.Height = v.buffers.Size()
	c.Aspect = v.Camera.AspectRatio
	c.Zoom = v.Camera.Zoom
	c.Scaler, c.Adder = v.Camera.ScalerAdder()
	c.Pass = render.PassNone
	v.current = nil
}

func (v *View) check(pass string) error {
	err := v.dev.CheckError()
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

func (v *View) use(key string) (*shaders.Program, error) {
	p, err := v.shaders.GetShader(key)
	if err != nil {
		return nil, err
	}
	if p != v.current {
		v.current = p
		v.ctx.Use(p)
	}
	return p, nil
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

func (v *View) finalTarget() (gpu.Framebuffer, int, int) {
	if v.sub {
		w, h := v.buffers.Size()
		return v.buffers.Out.FB, w, h
	}
	return gpu.Screen, v.windowW, v.windowH
}
