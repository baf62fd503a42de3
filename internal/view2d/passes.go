package view2d

import (
	"math"

	"mini-engine/internal/fbo"
	"mini-engine/internal/gpu"
	"mini-engine/internal/render"
	"mini-engine/internal/shaders"

	"github.com/go-gl/mathgl/mgl32"
)

// directPass draws every entity straight to the output with alpha blending.
func (v *View) directPass(ents []render.Renderable) error {
	defer v.prof.Track("view2d.Direct")()
	defer v.notes.Push("direct pass")()

	target, w, h := v.finalTarget()
	v.dev.BindFramebuffer(target)
	v.dev.Viewport(0, 0, w, h)
	v.dev.Clear(gpu.ClearColor, v.ClearColor, 1)
	return v.drawScene(ents, "direct")
}

func (v *View) scenePass(ents []render.Renderable) error {
	defer v.prof.Track("view2d.Scene")()
	defer v.notes.Push("scene pass")()

	c := v.ctx
	v.dev.BindFramebuffer(v.buffers.Scene.FB)
	v.dev.Viewport(0, 0, c.Width, c.Height)
	v.dev.Clear(gpu.ClearColor, v.ClearColor, 1)
	return v.drawScene(ents, "scene")
}

func (v *View) drawScene(ents []render.Renderable, pass string) error {
	c := v.ctx
	c.Pass = render.PassScene2D
	v.current = nil
	v.dev.SetDepth(gpu.DepthState{})
	v.dev.SetBlend(gpu.BlendAlpha)
	for _, e := range ents {
		if _, err := v.use("colormult2d"); err != nil {
			return err
		}
		c.Stats.Models++
		if err := v.draw(pass, e); err != nil {
			return err
		}
	}
	v.dev.SetBlend(gpu.BlendNone)
	return v.check(pass)
}

func lightmapKey(oneD bool) string {
	return shaders.Variant("lightmap2d", "", shaders.On(shaders.Flag1D, oneD))
}

func combineKey(oneD, sky bool) string {
	return shaders.Variant("lightcombine2d", "",
		shaders.On(shaders.Flag1D, oneD),
		shaders.On(shaders.FlagSky, sky))
}

// lightmapPass renders the shadow casters of every light into its lightmap.
// A 1D lightmap keeps the nearest occluder per angle through the depth test.
func (v *View) lightmapPass(ents []render.Renderable) error {
	defer v.prof.Track("view2d.Lightmaps")()
	defer v.notes.Push("lightmap pass")()

	c := v.ctx
	c.Pass = render.PassLightmap2D
	scaler, adder := c.Scaler, c.Adder
	defer func() { c.Scaler, c.Adder = scaler, adder }()
	v.dev.SetBlend(gpu.BlendNone)

	for _, li := range v.lights.All() {
		lm, ok := li.Lightmap().(*fbo.Lightmap)
		if !ok {
			continue
		}
		oneD := lm.OneD()
		v.dev.BindFramebuffer(lm.FB)
		v.dev.Viewport(0, 0, lm.W, lm.H)
		if oneD {
			v.dev.SetDepth(gpu.DepthState{Test: true, Write: true})
			v.dev.Clear(gpu.ClearColor|gpu.ClearDepth, mgl32.Vec4{}, 1)
		} else {
			v.dev.SetDepth(gpu.DepthState{})
			v.dev.Clear(gpu.ClearColor, mgl32.Vec4{}, 1)
		}
		c.Scaler, c.Adder = li.Prepare()
		v.current = nil
		for _, e := range ents {
			if !render.CastsShadow2D(e, li) {
				continue
			}
			if _, err := v.use(lightmapKey(oneD)); err != nil {
				return err
			}
			if err := v.draw("lightmap", e); err != nil {
				return err
			}
		}
	}
	v.dev.SetDepth(gpu.DepthState{})
	return v.check("lightmap")
}

// combinePass accumulates every light into the light target. The target
// starts at the ambient floor so an unlit scene is not black.
func (v *View) combinePass() error {
	defer v.prof.Track("view2d.Combine")()
	defer v.notes.Push("combine pass")()

	c := v.ctx
	scaler, adder := c.Scaler, c.Adder
	defer func() { c.Scaler, c.Adder = scaler, adder }()
	screenToWorld := v.Camera.ScreenToWorld()

	v.current = nil
	v.dev.BindFramebuffer(v.buffers.Light.FB)
	v.dev.Viewport(0, 0, c.Width, c.Height)
	v.dev.SetDepth(gpu.DepthState{})
	v.dev.Clear(gpu.ClearColor, v.tuning.AmbientFloor.Vec4(1), 1)
	v.dev.SetBlend(gpu.BlendOne)
	defer v.dev.SetBlend(gpu.BlendNone)

	for _, li := range v.lights.All() {
		lm, ok := li.Lightmap().(*fbo.Lightmap)
		if !ok {
			continue
		}
		if _, err := v.use(combineKey(lm.OneD(), li.Sky)); err != nil {
			return err
		}
		c.Scaler, c.Adder = li.Prepare()
		c.PushTransforms()
		c.SetWorld(screenToWorld)
		c.SetColor(li.Color.Vec4(1))
		v.dev.Uniform4f(shaders.LocLightParams, mgl32.Vec4{li.Width, v.tuning.Light2DFalloff, 0, 0})
		v.dev.BindTexture(shaders.SlotLightmap, lm.Color[0])
		v.dev.DrawFullscreen()
	}
	return v.check("combine")
}

// composePass multiplies the unlit scene by the square root of the
// accumulated light. See ShadeTexel.
func (v *View) composePass() error {
	defer v.prof.Track("view2d.Compose")()
	defer v.notes.Push("compose pass")()

	target, w, h := v.finalTarget()
	v.current = nil
	v.dev.BindFramebuffer(target)
	v.dev.Viewport(0, 0, w, h)
	v.dev.SetBlend(gpu.BlendNone)
	v.dev.SetDepth(gpu.DepthState{})
	v.dev.Clear(gpu.ClearColor, v.ClearColor, 1)
	if _, err := v.use("addtoscene2d"); err != nil {
		return err
	}
	v.dev.BindTexture(shaders.SlotDiffuse, v.buffers.Scene.Color[0])
	v.dev.BindTexture(shaders.SlotLightAccum, v.buffers.Light.Color[0])
	v.dev.DrawFullscreen()
	return v.check("compose")
}

// ShadeTexel is the add-to-scene formula: scene color scaled by the square
// root of the accumulated light, alpha untouched. Negative light counts as 0.
func ShadeTexel(scene mgl32.Vec4, light mgl32.Vec3) mgl32.Vec4 {
	f := func(x float32) float32 { return float32(math.Sqrt(float64(max(x, 0)))) }
	return mgl32.Vec4{
		scene.X() * f(light.X()),
		scene.Y() * f(light.Y()),
		scene.Z() * f(light.Z()),
		scene.W(),
	}
}
