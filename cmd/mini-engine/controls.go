package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"mini-engine/internal/config"
	"mini-engine/internal/engine"
	"mini-engine/internal/input"
	"mini-engine/internal/scene"
	"mini-engine/internal/ui/menu"
	"mini-engine/internal/ui/widget"

	"github.com/go-gl/glfw/v3.3/glfw"
)

const (
	flySpeed  = 4
	pickReach = 100
)

// controls turns input actions into engine calls. handle runs right after
// glfw.PollEvents, between frames, so it may reload buffers and shaders.
type controls struct {
	win      *glfw.Window
	eng      *engine.Engine
	settings *config.Settings
	log      *slog.Logger
	in       *input.Manager
	menu     *menu.Settings
	stats    *widget.Stats
}

func newControls(win *glfw.Window, eng *engine.Engine, settings *config.Settings, logger *slog.Logger) *controls {
	w, h := win.GetFramebufferSize()
	c := &controls{
		win:      win,
		eng:      eng,
		settings: settings,
		log:      logger,
		in:       input.New(),
		menu:     menu.NewSettings(settings, w, h),
		stats:    widget.NewStats(8, 36, eng.Profiler()),
	}
	c.menu.OnRebuild = c.reloadBuffers
	eng.OnFrameEnd = c.stats.Record
	c.in.Attach(win)

	win.SetFramebufferSizeCallback(func(_ *glfw.Window, w, h int) {
		if w == 0 || h == 0 {
			return // minimized
		}
		c.menu.Layout(w, h)
		c.reloadBuffers()
	})
	return c
}

// mount adds the overlays to the engine UI. Call it after the scene has
// added its own elements so the menu draws on top.
func (c *controls) mount() {
	c.eng.UI.Add(c.stats, c.menu)
}

func (c *controls) reloadBuffers() {
	w, h := c.win.GetFramebufferSize()
	if err := c.eng.ReloadScreenBuffers(w, h); err != nil {
		c.log.Error("reload screen buffers", "width", w, "height", h, "err", err)
	}
}

// pointer returns the cursor in framebuffer pixels, which differ from
// window coordinates on high-DPI displays.
func (c *controls) pointer() (float32, float32) {
	x, y := c.in.Cursor()
	ww, wh := c.win.GetSize()
	fw, fh := c.win.GetFramebufferSize()
	if ww > 0 && wh > 0 {
		x *= float32(fw) / float32(ww)
		y *= float32(fh) / float32(wh)
	}
	return x, y
}

func (c *controls) handle() {
	defer c.in.EndFrame()
	in := c.in

	x, y := c.pointer()
	c.menu.Hover(x, y)
	if in.JustPressed(input.ActionMouseLeft) {
		if c.menu.Visible {
			if c.menu.Click(x, y) == menu.ActionQuit {
				c.win.SetShouldClose(true)
			}
		} else {
			c.pick(x, y)
		}
	}

	if in.JustPressed(input.ActionMenu) {
		if c.menu.Visible {
			c.menu.Hide()
		} else {
			c.menu.Show()
		}
	}
	if in.JustPressed(input.ActionReloadShaders) {
		if err := c.eng.ReloadShaders(); err != nil {
			c.log.Error("shader reload", "err", err)
		}
	}
	if in.JustPressed(input.ActionCapture) {
		name := fmt.Sprintf("capture-%s.png", time.Now().Format("20060102-150405"))
		c.eng.RequestCapture(filepath.Join("captures", name))
	}
	if in.JustPressed(input.ActionToggleStats) {
		c.stats.Visible = !c.stats.Visible
	}
	if in.JustPressed(input.ActionTogglePipeline) {
		c.settings.Update(func(r *config.Render) { r.Deferred = !r.Deferred })
		c.log.Info("pipeline switched", "deferred", c.settings.Snapshot().Deferred)
	}
	if in.JustPressed(input.ActionCyclePixelation) {
		p := c.settings.GetPixelation() * 2
		if p > 16 {
			p = 1
		}
		c.settings.SetPixelation(p)
		c.reloadBuffers()
	}
	if c.menu.Visible {
		c.menu.Sync()
	}
}

// pick logs the entity under the pointer.
func (c *controls) pick(x, y float32) {
	cam := c.eng.Camera3D()
	if cam == nil {
		return
	}
	w, h := c.win.GetFramebufferSize()
	start, dir := scene.CameraRay(cam, x, y, w, h)
	if hit := scene.Pick(c.eng.Entities(), start, dir, cam.NearPlane, pickReach); hit.Hit {
		c.log.Info("picked", "entity", hit.Cube.Label, "distance", hit.Distance)
	}
}

// fly moves the active camera from the held movement actions.
func (c *controls) fly(dt float64) {
	if c.menu.Visible {
		return
	}
	in := c.in
	step := float32(dt) * flySpeed
	if in.Held(input.ActionFast) {
		step *= 3
	}
	fwd := in.Axis(input.ActionMoveBackward, input.ActionMoveForward)
	side := in.Axis(input.ActionMoveLeft, input.ActionMoveRight)
	up := in.Axis(input.ActionMoveDown, input.ActionMoveUp)

	if cam := c.eng.Camera3D(); cam != nil {
		dir := cam.Direction.Normalize()
		right := dir.Cross(cam.Up).Normalize()
		move := dir.Mul(fwd).Add(right.Mul(side)).Add(cam.Up.Mul(up))
		if move.Len() > 0 {
			cam.Position = cam.Position.Add(move.Normalize().Mul(step))
		}
		return
	}
	if cam := c.eng.Camera2D(); cam != nil {
		cam.Center[0] += side * step
		cam.Center[1] += (fwd + up) * step
	}
}
