// Package engine owns one rendering pipeline: its shaders, framebuffers,
// lights, view, UI compositor, texture cache and scheduler. It drives the
// frame loop and tears everything down in reverse order of creation.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"mini-engine/internal/capture"
	"mini-engine/internal/config"
	"mini-engine/internal/fbo"
	"mini-engine/internal/gpu"
	"mini-engine/internal/lights"
	"mini-engine/internal/logging"
	"mini-engine/internal/profiling"
	"mini-engine/internal/render"
	"mini-engine/internal/sched"
	"mini-engine/internal/shaders"
	"mini-engine/internal/textures"
	"mini-engine/internal/ui"
	"mini-engine/internal/view2d"
	"mini-engine/internal/view3d"
)

var (
	// ErrShutdown is returned once Shutdown has been signaled.
	ErrShutdown = errors.New("engine: shut down")
	// ErrMidFrame is returned by operations that may only run between frames.
	ErrMidFrame = errors.New("engine: called during a frame")
	// ErrNotLoaded is returned before PostLoad succeeds.
	ErrNotLoaded = errors.New("engine: not loaded")
	// ErrWrongMode is returned when a 3D operation is used on a 2D engine or
	// the other way round.
	ErrWrongMode = errors.New("engine: operation not available in this mode")
)

// slowFrame is the frame time above which the loop logs its top tasks.
const slowFrame = 16 * time.Millisecond

// Mode selects the pipeline an engine runs.
type Mode int

const (
	Mode3D Mode = iota
	Mode2D
)

func (m Mode) String() string {
	if m == Mode2D {
		return "2d"
	}
	return "3d"
}

// PanicError is a panic recovered at the frame boundary.
type PanicError struct {
	Value any
	Notes string
}

func (e *PanicError) Error() string {
	if e.Notes != "" {
		return fmt.Sprintf("panic during frame (%s): %v", e.Notes, e.Value)
	}
	return fmt.Sprintf("panic during frame: %v", e.Value)
}

// Window is the surface the frame loop presents to.
type Window interface {
	ShouldClose() bool
	PollEvents()
	SwapBuffers()
}

type Options struct {
	Device   gpu.Device
	Settings *config.Settings
	// Tuning defaults to config.DefaultTuning when zero.
	Tuning *config.Tuning
	Logger *slog.Logger
	// Shaders overrides the embedded shader sources.
	Shaders fs.FS
	// Textures is where GetTexture reads image files from; nil is the
	// working directory.
	Textures fs.FS
	Mode     Mode
	// SubEngine renders into an off-screen output texture and skips the UI.
	SubEngine bool
	Width     int
	Height    int
	// Workers bounds background decode tasks; 0 means GOMAXPROCS.
	Workers    int
	FontPixels int
}

// Engine is one rendering pipeline. All methods except Shutdown,
// RequestCapture and Scheduler().ScheduleSync must be called from the
// render thread.
type Engine struct {
	dev      gpu.Device
	settings *config.Settings
	tuning   config.Tuning
	log      *slog.Logger
	prof     *profiling.Profiler
	notes    *profiling.Notes
	mode     Mode
	sub      bool

	sched    *sched.Scheduler
	shaders  *shaders.Set
	textures *textures.Cache
	ui       *ui.Compositor

	buffers   *fbo.Set
	lights    *lights.List
	view      *view3d.View
	buffers2D *fbo.Set2D
	lights2D  *lights.List2D
	view2D    *view2d.View

	// UI is the root of the element tree composed over every frame.
	UI *ui.Node
	// OnUpdate runs at the start of every frame, inside the frame boundary.
	OnUpdate func(dt float64)
	// OnFrameEnd receives the wall time of each frame Run presents, before
	// the limiter sleeps.
	OnFrameEnd func(d time.Duration)

	entities []render.Renderable
	scratch  []render.Renderable

	width, height int
	shadowSize    int
	frame         uint64
	time          float64
	loaded        bool
	inFrame       bool
	closed        bool
	stop          atomic.Bool
	limiter       *FPSLimiter

	captureMu   sync.Mutex
	capturePath string
}

// New wires an engine. Nothing touches the GPU until PostLoad.
func New(opts Options) *Engine {
	settings := opts.Settings
	if settings == nil {
		settings = config.NewSettings(config.DefaultRender())
	}
	tuning := config.DefaultTuning()
	if opts.Tuning != nil {
		tuning = *opts.Tuning
	}
	texSrc := opts.Textures
	if texSrc == nil {
		texSrc = os.DirFS(".")
	}
	log := logging.OrNop(opts.Logger).With("engine", opts.Mode.String())
	e := &Engine{
		dev:      opts.Device,
		settings: settings,
		tuning:   tuning,
		log:      log,
		prof:     profiling.New(),
		notes:    &profiling.Notes{},
		mode:     opts.Mode,
		sub:      opts.SubEngine,
		width:    max(opts.Width, 1),
		height:   max(opts.Height, 1),
		limiter:  NewFPSLimiter(),
		UI:       &ui.Node{},
	}
	e.sched = sched.New(sched.Options{Workers: opts.Workers, Logger: log})
	e.shaders = shaders.New(opts.Device, opts.Shaders, log)
	e.textures = textures.New(textures.Options{
		Device:    opts.Device,
		Scheduler: e.sched,
		Source:    texSrc,
		Logger:    log,
	})
	e.ui = ui.New(ui.Options{
		Device:     opts.Device,
		Shaders:    e.shaders,
		Logger:     log,
		Profiler:   e.prof,
		FontPixels: opts.FontPixels,
	})

	cfg := settings.Snapshot()
	switch opts.Mode {
	case Mode2D:
		e.buffers2D = fbo.New2D(opts.Device, e.options2D(cfg))
		e.lights2D = lights.NewList2D(e.buffers2D)
		e.view2D = view2d.New(view2d.Options{
			Device:    opts.Device,
			Shaders:   e.shaders,
			Buffers:   e.buffers2D,
			Lights:    e.lights2D,
			Settings:  settings,
			Tuning:    tuning,
			Logger:    log,
			Profiler:  e.prof,
			Notes:     e.notes,
			SubEngine: opts.SubEngine,
		})
	default:
		e.buffers = fbo.New(opts.Device, e.options3D(cfg))
		e.lights = lights.NewList()
		e.view = view3d.New(view3d.Options{
			Device:    opts.Device,
			Shaders:   e.shaders,
			Buffers:   e.buffers,
			Lights:    e.lights,
			Settings:  settings,
			Tuning:    tuning,
			Logger:    log,
			Profiler:  e.prof,
			Notes:     e.notes,
			SubEngine: opts.SubEngine,
		})
	}
	return e
}

func (e *Engine) options3D(cfg config.Render) fbo.Options {
	return fbo.Options{
		Pixelation:      cfg.Pixelation,
		HDRSampleSize:   e.tuning.HDRSampleSize,
		LLTransparency:  cfg.LLTransparency,
		LLNodesPerPixel: 4,
	}
}

func (e *Engine) options2D(cfg config.Render) fbo.Options2D {
	return fbo.Options2D{
		Pixelation:      cfg.Pixelation,
		LightmapSize:    e.tuning.Lightmap2DSize,
		Lightmap1DWidth: e.tuning.Lightmap1DWidth,
	}
}

// RequiredShaders lists the variants PostLoad compiles under cfg.
func (e *Engine) RequiredShaders(cfg config.Render) []string {
	var keys []string
	if e.mode == Mode2D {
		keys = e.view2D.RequiredShaders(cfg)
	} else {
		keys = e.view.RequiredShaders(cfg)
	}
	if !e.sub {
		keys = append(keys, ui.RequiredShaders()...)
	}
	return keys
}

// PostLoad compiles shaders and allocates every GPU resource. Any failure
// releases what was created so far and is returned; the engine must not
// render after a failed PostLoad.
func (e *Engine) PostLoad() (err error) {
	defer e.prof.Track("engine.PostLoad")()
	if e.closed {
		return ErrShutdown
	}
	if e.loaded {
		return nil
	}
	defer func() {
		if err != nil {
			e.release()
		}
	}()

	cfg := e.settings.Snapshot()
	if err := e.shaders.Preload(e.RequiredShaders(cfg)...); err != nil {
		return fmt.Errorf("preload shaders: %w", err)
	}
	if e.mode == Mode2D {
		if err := e.buffers2D.Generate(e.width, e.height); err != nil {
			return fmt.Errorf("generate framebuffers: %w", err)
		}
		if err := e.view2D.Load(); err != nil {
			return err
		}
		e.view2D.Resize(e.width, e.height)
	} else {
		if err := e.buffers.Generate(e.width, e.height); err != nil {
			return fmt.Errorf("generate framebuffers: %w", err)
		}
		if err := e.buffers.GenerateShadows(cfg.ShadowTexSize, lights.MaxLights); err != nil {
			return fmt.Errorf("generate shadow maps: %w", err)
		}
		e.shadowSize = cfg.ShadowTexSize
		if err := e.lights.EnableShadows(e.buffers.Shadows()); err != nil {
			return err
		}
		if err := e.view.Load(); err != nil {
			return err
		}
		e.view.Resize(e.width, e.height)
	}
	if !e.sub {
		if err := e.ui.Load(); err != nil {
			return fmt.Errorf("load ui: %w", err)
		}
		e.ui.Resize(e.width, e.height)
	}
	if err := e.textures.Load(); err != nil {
		return err
	}
	e.loaded = true
	e.log.Info("engine loaded",
		"width", e.width, "height", e.height,
		"shaders", len(e.shaders.Loaded()), "sub", e.sub)
	return nil
}

// RenderSingleFrame runs pending sync tasks and renders one frame. A GPU
// error in debug mode, a failing entity or a panic abandons the frame: the
// error is logged and returned, and the next frame starts clean.
func (e *Engine) RenderSingleFrame(dt float64) error {
	if e.stop.Load() || e.closed {
		return ErrShutdown
	}
	if !e.loaded {
		return ErrNotLoaded
	}
	if e.inFrame {
		return ErrMidFrame
	}
	e.prof.ResetFrame()
	defer e.prof.Track("engine.Frame")()
	e.inFrame = true
	defer func() { e.inFrame = false }()

	e.frame++
	e.time += dt
	e.notes.Reset()
	e.sched.RunSyncTick()

	if err := e.renderFrame(dt); err != nil {
		e.logFrameError(err)
		return err
	}
	return nil
}

func (e *Engine) renderFrame(dt float64) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Notes: e.notes.String()}
		}
	}()
	if e.OnUpdate != nil {
		e.OnUpdate(dt)
	}

	e.scratch = append(e.scratch[:0], e.entities...)
	f := render.Frame{Entities: e.scratch, Delta: dt, Time: e.time}
	if e.mode == Mode2D {
		err = e.view2D.Render(f)
	} else {
		err = e.view.Render(f)
	}
	clear(e.scratch)
	if err != nil {
		return err
	}
	if e.sub {
		return nil
	}
	return e.ui.Compose(e.UI)
}

func (e *Engine) logFrameError(err error) {
	attrs := []any{"frame", e.frame, "err", err}
	var (
		entErr *render.EntityError
		pass3D *view3d.PassError
		pass2D *view2d.PassError
		panicE *PanicError
	)
	switch {
	case errors.As(err, &entErr):
		attrs = append(attrs, "pass", entErr.Pass, "entity", entErr.Entity)
	case errors.As(err, &pass3D):
		attrs = append(attrs, "pass", pass3D.Pass, "notes", pass3D.Notes)
	case errors.As(err, &pass2D):
		attrs = append(attrs, "pass", pass2D.Pass, "notes", pass2D.Notes)
	case errors.As(err, &panicE):
		attrs = append(attrs, "notes", panicE.Notes)
	}
	e.log.Warn("frame abandoned", attrs...)
}

// ReloadScreenBuffers reallocates every screen-sized target for a w x h
// window, picking up the current pixelation and shadow map size. A failed
// allocation releases the engine as a failed PostLoad does; it renders
// again only after a successful PostLoad.
func (e *Engine) ReloadScreenBuffers(w, h int) (err error) {
	if e.inFrame {
		return ErrMidFrame
	}
	if e.closed {
		return ErrShutdown
	}
	w, h = max(w, 1), max(h, 1)
	e.width, e.height = w, h
	if !e.loaded {
		return nil
	}
	defer e.prof.Track("engine.ReloadScreenBuffers")()
	defer func() {
		if err != nil {
			e.log.Error("screen buffers lost, engine unloaded", "err", err)
			e.release()
		}
	}()
	cfg := e.settings.Snapshot()
	if e.mode == Mode2D {
		e.buffers2D.Configure(e.options2D(cfg))
		if err := e.buffers2D.Generate(w, h); err != nil {
			return fmt.Errorf("reload screen buffers: %w", err)
		}
		e.view2D.Resize(w, h)
	} else {
		e.buffers.Configure(e.options3D(cfg))
		if err := e.buffers.Generate(w, h); err != nil {
			return fmt.Errorf("reload screen buffers: %w", err)
		}
		if cfg.ShadowTexSize != e.shadowSize {
			if err := e.buffers.GenerateShadows(cfg.ShadowTexSize, lights.MaxLights); err != nil {
				return fmt.Errorf("reload shadow maps: %w", err)
			}
			e.shadowSize = cfg.ShadowTexSize
		}
		e.view.Resize(w, h)
	}
	if !e.sub {
		e.ui.Resize(w, h)
	}
	e.log.Debug("screen buffers reloaded", "width", w, "height", h, "pixelation", cfg.Pixelation)
	return nil
}

// ReloadShaders recompiles every loaded variant plus any the current
// settings need. On failure the set is left empty and the error returned.
func (e *Engine) ReloadShaders() error {
	if e.inFrame {
		return ErrMidFrame
	}
	if !e.loaded {
		return ErrNotLoaded
	}
	defer e.prof.Track("engine.ReloadShaders")()
	if err := e.shaders.Reload(); err != nil {
		return fmt.Errorf("reload shaders: %w", err)
	}
	if err := e.shaders.Preload(e.RequiredShaders(e.settings.Snapshot())...); err != nil {
		return fmt.Errorf("reload shaders: %w", err)
	}
	e.log.Info("shaders reloaded", "count", len(e.shaders.Loaded()))
	return nil
}

// Shutdown stops the frame loop. A frame already in flight completes; no
// new frame begins. Safe to call from any goroutine.
func (e *Engine) Shutdown() {
	if e.stop.CompareAndSwap(false, true) {
		e.log.Info("shutdown requested", "frame", e.frame)
	}
}

// Stopped reports whether Shutdown has been called.
func (e *Engine) Stopped() bool { return e.stop.Load() }

// Close shuts the engine down and releases everything it owns. The
// returned error is the first background task failure, if any.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	e.Shutdown()
	err := e.sched.Shutdown()
	e.release()
	e.closed = true
	return err
}

// release frees GPU resources in reverse order of PostLoad.
func (e *Engine) release() {
	e.textures.Release()
	e.ui.Release()
	if e.mode == Mode2D {
		e.view2D.Release()
		e.lights2D.Clear()
		e.buffers2D.Destroy()
	} else {
		e.view.Release()
		e.lights.Clear()
		e.buffers.Destroy()
	}
	e.shaders.Destroy()
	e.loaded = false
}

// Run renders frames until the window closes, ctx is done or Shutdown is
// called. Frame errors are logged and the loop continues.
func (e *Engine) Run(ctx context.Context, w Window) error {
	if !e.loaded {
		return ErrNotLoaded
	}
	last := time.Now()
	for !e.stop.Load() && !w.ShouldClose() && ctx.Err() == nil {
		start := time.Now()
		dt := start.Sub(last).Seconds()
		last = start

		w.PollEvents()
		if e.stop.Load() {
			break
		}
		if err := e.RenderSingleFrame(dt); errors.Is(err, ErrShutdown) {
			break
		}
		e.takeCapture()
		w.SwapBuffers()

		d := time.Since(start)
		if d > slowFrame {
			e.log.Info("slow frame", "duration", d, "top", e.prof.TopN(5))
		}
		if e.OnFrameEnd != nil {
			e.OnFrameEnd(d)
		}
		e.limiter.Wait(e.settings.GetFPSLimit())
	}
	return nil
}

// RequestCapture asks Run to save the next frame to path. Safe to call
// from any goroutine.
func (e *Engine) RequestCapture(path string) {
	e.captureMu.Lock()
	e.capturePath = path
	e.captureMu.Unlock()
}

func (e *Engine) takeCapture() {
	e.captureMu.Lock()
	path := e.capturePath
	e.capturePath = ""
	e.captureMu.Unlock()
	if path == "" {
		return
	}
	if err := e.Capture(path); err != nil {
		e.log.Warn("capture failed", "path", path, "err", err)
		return
	}
	e.log.Info("frame captured", "path", path)
}

// Capture reads back the last frame and saves it as PNG or WebP by the
// extension of path. A sub-engine reads its output texture, any other
// engine the screen; call it after RenderSingleFrame and before the swap.
func (e *Engine) Capture(path string) error {
	if e.inFrame {
		return ErrMidFrame
	}
	if !e.loaded {
		return ErrNotLoaded
	}
	switch filepath.Ext(path) {
	case ".png", ".webp":
	default:
		return fmt.Errorf("capture %s: %w", path, capture.ErrFormat)
	}
	fb, w, h := e.captureSource()
	px, err := e.dev.ReadPixels(fb, 0, 0, w, h)
	if err != nil {
		return fmt.Errorf("capture %s: %w", path, err)
	}
	img, err := capture.FromPixels(px, w, h)
	if err != nil {
		return fmt.Errorf("capture %s: %w", path, err)
	}
	return capture.Save(path, img)
}

func (e *Engine) captureSource() (gpu.Framebuffer, int, int) {
	if !e.sub {
		return gpu.Screen, e.width, e.height
	}
	if e.mode == Mode2D {
		w, h := e.buffers2D.Size()
		return e.buffers2D.Out.FB, w, h
	}
	w, h := e.buffers.Size()
	return e.buffers.Out.FB, w, h
}

// Output returns the sub-engine output texture, so a parent engine can
// show it with a ui.SubView.
func (e *Engine) Output() gpu.Texture {
	if e.mode == Mode2D {
		return e.view2D.Output()
	}
	return e.view.Output()
}

// GetTexture returns the named texture, loading it in the background on
// first use. The placeholder handle is valid until the load completes.
func (e *Engine) GetTexture(name string) *textures.Texture {
	return e.textures.GetTexture(name)
}

// Add appends entities to the frame list.
func (e *Engine) Add(rs ...render.Renderable) {
	e.entities = append(e.entities, rs...)
}

// Remove drops an entity from the frame list. It reports whether it was present.
func (e *Engine) Remove(r render.Renderable) bool {
	i := slices.Index(e.entities, r)
	if i < 0 {
		return false
	}
	e.entities = slices.Delete(e.entities, i, i+1)
	return true
}

// Entities returns the frame list in insertion order.
func (e *Engine) Entities() []render.Renderable { return slices.Clone(e.entities) }

// AddLight registers a 3D light.
func (e *Engine) AddLight(l *lights.Light) error {
	if e.mode != Mode3D {
		return ErrWrongMode
	}
	return e.lights.Add(l)
}

func (e *Engine) RemoveLight(l *lights.Light) error {
	if e.mode != Mode3D {
		return ErrWrongMode
	}
	return e.lights.Remove(l)
}

// AddLight2D registers a 2D light, encoding its lightmap as the current
// settings choose.
func (e *Engine) AddLight2D(l *lights.Light2D) error {
	if e.mode != Mode2D {
		return ErrWrongMode
	}
	l.OneD = e.settings.Snapshot().OneDLights2D
	return e.lights2D.Add(l)
}

func (e *Engine) RemoveLight2D(l *lights.Light2D) error {
	if e.mode != Mode2D {
		return ErrWrongMode
	}
	return e.lights2D.Remove(l)
}

// Camera3D returns the 3D camera, nil for a 2D engine.
func (e *Engine) Camera3D() *render.Camera3D {
	if e.view == nil {
		return nil
	}
	return e.view.Camera
}

// Camera2D returns the 2D camera, nil for a 3D engine.
func (e *Engine) Camera2D() *render.Camera2D {
	if e.view2D == nil {
		return nil
	}
	return e.view2D.Camera
}

// View3D returns the 3D view, nil for a 2D engine.
func (e *Engine) View3D() *view3d.View { return e.view }

// View2D returns the 2D view, nil for a 3D engine.
func (e *Engine) View2D() *view2d.View { return e.view2D }

func (e *Engine) Device() gpu.Device            { return e.dev }
func (e *Engine) Settings() *config.Settings    { return e.settings }
func (e *Engine) Scheduler() *sched.Scheduler   { return e.sched }
func (e *Engine) Shaders() *shaders.Set         { return e.shaders }
func (e *Engine) Compositor() *ui.Compositor    { return e.ui }
func (e *Engine) Profiler() *profiling.Profiler { return e.prof }
func (e *Engine) Frame() uint64                 { return e.frame }
func (e *Engine) Size() (int, int)              { return e.width, e.height }
func (e *Engine) Buffers() *fbo.Set             { return e.buffers }
func (e *Engine) Buffers2D() *fbo.Set2D         { return e.buffers2D }
func (e *Engine) Lights() *lights.List          { return e.lights }
func (e *Engine) Lights2D() *lights.List2D      { return e.lights2D }
