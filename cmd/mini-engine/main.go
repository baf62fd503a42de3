package main

import (
	"context"
	"flag"
	"io/fs"
	"log"
	"os"
	"runtime"

	"mini-engine/internal/config"
	"mini-engine/internal/engine"
	"mini-engine/internal/gpu/glbackend"
	"mini-engine/internal/logging"
	"mini-engine/internal/scene"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/xlab/closer"
)

func init() {
	runtime.LockOSThread()
}

// window adapts a glfw window to the engine's frame loop. Input is
// handled as part of polling so it lands between frames.
type window struct {
	*glfw.Window
	ctl *controls
}

func (w window) PollEvents() {
	glfw.PollEvents()
	w.ctl.handle()
}

func main() {
	flags := parseFlags()
	settings := config.NewSettings(flags.render)
	logger := logging.Default(flags.render.Debug)

	if err := glfw.Init(); err != nil {
		log.Fatalf("glfw init: %v", err)
	}
	defer glfw.Terminate()

	win, err := setupWindow(flags.width, flags.height)
	if err != nil {
		log.Fatalf("window: %v", err)
	}
	dev, err := glbackend.New()
	if err != nil {
		log.Fatalf("gpu: %v", err)
	}
	logger.Info("gl context ready", "version", dev.Version())

	mode := engine.Mode3D
	if flags.twoD {
		mode = engine.Mode2D
	}
	var shaderSrc fs.FS
	if flags.shaders != "" {
		shaderSrc = os.DirFS(flags.shaders)
	}
	fbw, fbh := win.GetFramebufferSize()
	eng := engine.New(engine.Options{
		Device:   dev,
		Settings: settings,
		Logger:   logger,
		Shaders:  shaderSrc,
		Textures: os.DirFS(flags.assets),
		Mode:     mode,
		Width:    fbw,
		Height:   fbh,
	})
	if err := eng.PostLoad(); err != nil {
		log.Fatalf("engine load: %v", err)
	}

	meshes, err := scene.NewMeshes(dev)
	if err != nil {
		log.Fatalf("meshes: %v", err)
	}
	ctl := newControls(win, eng, settings, logger)
	release, err := buildDemo(eng, meshes, flags.crate, ctl.fly)
	if err != nil {
		log.Fatalf("demo: %v", err)
	}
	if flags.model != "" && eng.Camera3D() != nil {
		m, err := scene.NewModelLoader(os.DirFS(flags.assets)).Load(flags.model)
		if err != nil {
			log.Fatalf("model: %v", err)
		}
		m.Spawn(eng, meshes, flags.model, mgl32.Vec3{0, 0, -2})
	}
	ctl.mount()

	// Signals arrive on closer's goroutine; GL teardown must stay on this
	// thread, so the handler only stops the loop and waits for it.
	done := make(chan struct{})
	closer.Bind(func() {
		eng.Shutdown()
		<-done
	})

	if flags.capture != "" {
		eng.RequestCapture(flags.capture)
	}

	if err := eng.Run(context.Background(), window{Window: win, ctl: ctl}); err != nil {
		logger.Error("frame loop", "err", err)
	}

	release()
	meshes.Release()
	if err := eng.Close(); err != nil {
		logger.Warn("background task failed", "err", err)
	}
	dev.Release()
	close(done)
	closer.Close()
}

type options struct {
	render        config.Render
	width, height int
	twoD          bool
	assets        string
	crate         string
	model         string
	capture       string
	shaders       string
}

func parseFlags() options {
	o := options{render: config.DefaultRender()}
	r := &o.render
	forward := flag.Bool("forward", false, "render with the single-pass forward pipeline")
	flag.BoolVar(&o.twoD, "2d", false, "run the 2D pipeline")
	flag.IntVar(&o.width, "width", 1280, "window width")
	flag.IntVar(&o.height, "height", 720, "window height")
	flag.StringVar(&o.assets, "assets", "assets", "directory textures are loaded from")
	flag.StringVar(&o.crate, "crate", "", "texture for the demo crates, relative to -assets")
	flag.StringVar(&o.model, "model", "", "box model under -assets/models to place in the 3D demo")
	flag.StringVar(&o.shaders, "shaders", "", "read GLSL from this directory instead of the embedded copy; F5 reloads it")
	flag.StringVar(&o.capture, "capture", "", "save the first frame to this .png or .webp file")
	flag.BoolVar(&r.Shadows, "shadows", r.Shadows, "shadow maps")
	flag.BoolVar(&r.GoodGraphics, "pcf", r.GoodGraphics, "filtered shadow lookups")
	flag.BoolVar(&r.SSAO, "ssao", r.SSAO, "screen-space ambient occlusion")
	flag.BoolVar(&r.LLTransparency, "ll", r.LLTransparency, "linked-list order-independent transparency")
	flag.BoolVar(&r.Godrays, "godrays", r.Godrays, "godrays")
	flag.BoolVar(&r.HDR, "hdr", r.HDR, "dynamic HDR exposure")
	flag.BoolVar(&r.Toonify, "toon", r.Toonify, "toon shading")
	flag.BoolVar(&r.Grayscale, "gray", r.Grayscale, "grayscale output")
	flag.BoolVar(&r.MotionBlur, "motionblur", r.MotionBlur, "camera motion blur")
	flag.BoolVar(&r.Reflections, "reflections", r.Reflections, "screen-space reflections")
	flag.IntVar(&r.Pixelation, "pixelation", r.Pixelation, "render target divisor (1-16)")
	flag.IntVar(&r.ShadowTexSize, "shadow-size", r.ShadowTexSize, "shadow map edge in texels")
	flag.IntVar(&r.FPSLimit, "fps", r.FPSLimit, "frame rate cap, 0 for none")
	flag.BoolVar(&r.Debug, "debug", r.Debug, "abort frames on GPU errors and log at debug level")
	flag.BoolVar(&r.NoLightEngine2D, "nolight2d", r.NoLightEngine2D, "draw 2D scenes unlit")
	flag.BoolVar(&r.OneDLights2D, "onedlights", r.OneDLights2D, "1D angular lightmaps for 2D lights")
	flag.Parse()
	r.Deferred = !*forward
	return o
}

func setupWindow(w, h int) (*glfw.Window, error) {
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)

	win, err := glfw.CreateWindow(w, h, "mini-engine", nil, nil)
	if err != nil {
		return nil, err
	}
	win.MakeContextCurrent()
	// the engine paces frames itself
	glfw.SwapInterval(0)
	return win, nil
}

// buildDemo installs the demo for the engine's mode. pre runs before the
// demo's own update each frame.
func buildDemo(eng *engine.Engine, m *scene.Meshes, crate string, pre func(dt float64)) (func(), error) {
	var update func(float64)
	var release func()
	if eng.Camera2D() != nil {
		d, err := scene.Build2D(eng, m)
		if err != nil {
			return nil, err
		}
		update, release = d.Update, d.Release
	} else {
		d, err := scene.Build3D(eng, m, crate)
		if err != nil {
			return nil, err
		}
		update, release = d.Update, d.Release
	}
	eng.OnUpdate = func(dt float64) {
		pre(dt)
		update(dt)
	}
	return release, nil
}
