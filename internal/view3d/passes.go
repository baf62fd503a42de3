package view3d

import (
	"slices"

	"mini-engine/internal/gpu"
	"mini-engine/internal/lights"
	"mini-engine/internal/render"
	"mini-engine/internal/shaders"

	"github.com/go-gl/mathgl/mgl32"
)

// shadowBias offsets the depth comparison against acne.
const shadowBias = 0.002

func shadowKey(r render.Renderable) string {
	switch r.Material() {
	case render.Particles, render.Decal:
		return "particles,MCM_SHADOWS?geom_particles"
	}
	return shaders.Variant("shadow", "", shaders.On(shaders.FlagBones, render.IsBoned(r)))
}

func (v *View) shadowPass(ents []render.Renderable) error {
	defer v.prof.Track("view3d.Shadow")()
	defer v.notes.Push("shadow pass")()

	sm := v.buffers.Shadows()
	if !sm.Allocated() {
		return nil
	}
	c := v.ctx
	c.Pass = render.PassShadow
	c.CalcShadows = true
	defer func() {
		c.CalcShadows = false
		c.Shadow = nil
		c.Scaler, c.Adder = mgl32.Vec3{1, 1, 1}, mgl32.Vec3{}
		c.ViewProj = c.Proj.Mul4(c.View)
		c.CameraPos = v.Camera.Position
	}()

	v.dev.SetBlend(gpu.BlendNone)
	v.dev.SetDepth(gpu.DepthState{Test: true, Write: true})
	v.dev.SetCull(gpu.CullNone)
	v.dev.Viewport(0, 0, sm.Size, sm.Size)

	for _, li := range v.lights.All() {
		if li.Culled(v.frustum) {
			continue
		}
		sky := float32(0)
		if li.Kind == lights.KindSky {
			sky = 1
		}
		for _, view := range li.Prepare() {
			fb, ok := sm.Framebuffer(view.Slot)
			if !ok {
				continue
			}
			v.dev.BindFramebuffer(fb)
			v.dev.Clear(gpu.ClearDepth, mgl32.Vec4{}, 1)

			view := view
			c.Shadow = &view
			c.ViewProj = view.Matrix
			c.Scaler, c.Adder = view.Scaler, view.Adder
			c.CameraPos = view.Eye
			v.current = nil

			for _, e := range ents {
				if !render.CastsShadow(e, li) {
					continue
				}
				_, fresh, err := v.use(shadowKey(e))
				if err != nil {
					return err
				}
				if fresh {
					v.dev.Uniform4f(shaders.LocLightParams, mgl32.Vec4{0, 0, sky, 0})
				}
				if err := v.draw("shadow", e); err != nil {
					return err
				}
			}
		}
		if err := v.check("shadow"); err != nil {
			return err
		}
	}
	return v.check("shadow")
}

func gbufferKey(r render.Renderable) (string, bool) {
	switch r.Material() {
	case render.Opaque:
		return shaders.Variant("fbo", "", shaders.On(shaders.FlagBones, render.IsBoned(r))), true
	case render.Skybox:
		return "fbo,MCM_SKYBOX", true
	case render.Refract:
		return "fbo,MCM_REFRACT", true
	case render.Decal:
		return "particles,MCM_FBO?geom_particles", true
	}
	return "", false
}

func (v *View) gbufferPass(ents []render.Renderable) error {
	defer v.prof.Track("view3d.GBuffer")()
	defer v.notes.Push("gbuffer pass")()

	c := v.ctx
	c.Pass = render.PassGBuffer
	v.current = nil
	v.dev.BindFramebuffer(v.buffers.GBuffer.FB)
	v.dev.Viewport(0, 0, c.Width, c.Height)
	v.dev.SetBlend(gpu.BlendNone)
	v.dev.SetDepth(gpu.DepthState{Test: true, Write: true})
	v.dev.SetCull(gpu.CullBack)
	v.dev.Clear(gpu.ClearColor|gpu.ClearDepth, mgl32.Vec4{}, 1)

	for _, e := range ents {
		key, ok := gbufferKey(e)
		if !ok {
			continue
		}
		if _, _, err := v.use(key); err != nil {
			return err
		}
		if e.Material() == render.Decal {
			c.Stats.Decals++
		} else {
			c.Stats.Models++
		}
		if err := v.draw("gbuffer", e); err != nil {
			return err
		}
	}
	v.dev.SetCull(gpu.CullNone)
	return v.check("gbuffer")
}

// lightPass clears the light buffer to the ambient floor and adds every
// active light view in one fullscreen draw. With no lights the buffer holds
// only the ambient floor.
func (v *View) lightPass() error {
	defer v.prof.Track("view3d.Light")()
	defer v.notes.Push("light pass")()

	c := v.ctx
	v.current = nil
	v.dev.BindFramebuffer(v.buffers.Light.FB)
	v.dev.Viewport(0, 0, c.Width, c.Height)
	v.dev.SetBlend(gpu.BlendNone)
	v.dev.SetDepth(gpu.DepthState{})
	v.dev.Clear(gpu.ClearColor, v.tuning.AmbientFloor.Vec4(1), 1)

	views := v.activeViews()
	n := len(views)
	v.lightsUsed = n
	if n > 0 {
		matrices := make([]mgl32.Mat4, n)
		data := make([]mgl32.Mat4, n)
		for i, sv := range views {
			matrices[i] = sv.Matrix
			data[i] = sv.Data
		}
		if _, _, err := v.use(lightKey(v.cfg)); err != nil {
			return err
		}
		g := v.buffers.GBuffer
		v.dev.BindTexture(shaders.SlotPosition, g.Color[1])
		v.dev.BindTexture(shaders.SlotNormal, g.Color[2])
		v.dev.BindTexture(shaders.SlotDepth, g.Depth)
		v.dev.BindTexture(shaders.SlotRenderHint, g.Color[3])
		texel := float32(0)
		if sm := v.buffers.Shadows(); sm.Allocated() {
			v.dev.BindTexture(shaders.SlotShadows, sm.Texture)
			texel = 1 / float32(sm.Size)
		}
		v.dev.Uniform1i(shaders.LocLightCount, int32(n))
		v.dev.UniformMat4Array(shaders.LocShadowMatrices, matrices)
		v.dev.UniformMat4Array(shaders.LocLightData, data)
		v.dev.Uniform1f(shaders.LocSSAORadius, v.tuning.SSAORadius)
		v.dev.Uniform4f(shaders.LocLightParams, mgl32.Vec4{shadowBias, texel, 0, 0})
		v.dev.SetBlend(gpu.BlendOne)
		v.dev.DrawFullscreen()
		v.dev.SetBlend(gpu.BlendNone)
	}
	return v.check("light")
}

func transparentKey(r render.Renderable, ll bool) string {
	if r.Material() == render.Particles {
		return "particles?geom_particles"
	}
	return shaders.Variant("transponly", "",
		shaders.On(shaders.FlagLL, ll),
		shaders.On(shaders.FlagBright, r.Material() == render.Bright),
		shaders.On(shaders.FlagBones, render.IsBoned(r)))
}

func blendFor(m render.Material) gpu.Blend {
	if m == render.Bright {
		return gpu.BlendAdditive
	}
	return gpu.BlendAlpha
}

// transparencyPass draws transparent entities back to front against the
// G-buffer depth. The entity slice is left in back-to-front order.
func (v *View) transparencyPass(ents []render.Renderable) error {
	defer v.prof.Track("view3d.Transparency")()
	defer v.notes.Push("transparency pass")()

	c := v.ctx
	c.Pass = render.PassTransparency
	v.current = nil
	v.dev.BindFramebuffer(v.buffers.Transparency.FB)
	v.dev.Viewport(0, 0, c.Width, c.Height)
	v.dev.SetDepth(gpu.DepthState{Test: true, Write: false})
	v.dev.Clear(gpu.ClearColor, mgl32.Vec4{}, 1)
	defer v.dev.SetDepth(gpu.DepthState{Test: true, Write: true})

	slices.Reverse(ents)

	ll := v.cfg.LLTransparency && v.buffers.LLHeads != 0
	if ll {
		if err := v.linkedList(ents); err != nil {
			return err
		}
	}
	for _, e := range ents {
		m := e.Material()
		if !m.IsTransparent() || (ll && m == render.Transparent) {
			continue
		}
		if _, _, err := v.use(transparentKey(e, false)); err != nil {
			return err
		}
		v.dev.SetBlend(blendFor(m))
		if m == render.Particles {
			c.Stats.Particles++
		} else {
			c.Stats.Models++
		}
		if err := v.draw("transparency", e); err != nil {
			return err
		}
	}
	v.dev.SetBlend(gpu.BlendNone)
	return v.check("transparency")
}

// linkedList renders alpha-blended geometry into per-pixel fragment lists and
// resolves them sorted into the transparency target. Additive materials
// commute, so they stay on the ordered path.
func (v *View) linkedList(ents []render.Renderable) error {
	b := v.buffers
	v.dev.ClearStorageBuffer(b.LLHeads, 0xFFFFFFFF)
	v.dev.ClearStorageBuffer(b.LLCounter, 0)
	v.dev.BindStorageBuffer(shaders.BufLLHeads, b.LLHeads)
	v.dev.BindStorageBuffer(shaders.BufLLNodes, b.LLNodes)
	v.dev.BindStorageBuffer(shaders.BufLLCounter, b.LLCounter)
	v.dev.SetBlend(gpu.BlendNone)
	for _, e := range ents {
		m := e.Material()
		if m != render.Transparent {
			continue
		}
		if _, _, err := v.use(transparentKey(e, true)); err != nil {
			return err
		}
		v.ctx.Stats.Models++
		if err := v.draw("transparency", e); err != nil {
			return err
		}
	}
	v.dev.Barrier()
	if _, _, err := v.use("ll_resolve"); err != nil {
		return err
	}
	v.dev.SetDepth(gpu.DepthState{})
	v.dev.SetBlend(gpu.BlendAlpha)
	v.dev.DrawFullscreen()
	v.dev.SetDepth(gpu.DepthState{Test: true, Write: false})
	return nil
}
