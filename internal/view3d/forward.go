package view3d

import (
	"mini-engine/internal/gpu"
	"mini-engine/internal/render"
	"mini-engine/internal/shaders"
)

func forwardKey(r render.Renderable) string {
	switch r.Material() {
	case render.Particles, render.Decal:
		return "particles?geom_particles"
	case render.Skybox:
		return "forward,MCM_SKYBOX"
	}
	return shaders.Variant("forward", "", shaders.On(shaders.FlagBones, render.IsBoned(r)))
}

// forwardPass draws opaque entities near to far and transparent ones far to
// near, lighting each fragment directly. Shadows and post effects are
// deferred-only.
func (v *View) forwardPass(ents []render.Renderable) error {
	defer v.prof.Track("view3d.Forward")()
	defer v.notes.Push("forward pass")()

	c := v.ctx
	c.Pass = render.PassForward
	v.current = nil

	data := v.activeLights()
	n := len(data)
	v.lightsUsed = n
	use := func(r render.Renderable) error {
		_, fresh, err := v.use(forwardKey(r))
		if err != nil {
			return err
		}
		if fresh {
			v.dev.Uniform3f(shaders.LocAmbient, v.tuning.AmbientFloor)
			v.dev.Uniform1i(shaders.LocLightCount, int32(n))
			v.dev.UniformMat4Array(shaders.LocLightData, data)
		}
		return nil
	}

	target, w, h := v.finalTarget()
	v.dev.BindFramebuffer(target)
	v.dev.Viewport(0, 0, w, h)
	v.dev.SetBlend(gpu.BlendNone)
	v.dev.SetDepth(gpu.DepthState{Test: true, Write: true})
	v.dev.Clear(gpu.ClearColor|gpu.ClearDepth, v.ClearColor, 1)

	for _, e := range ents {
		if e.Material().IsTransparent() {
			continue
		}
		if err := use(e); err != nil {
			return err
		}
		c.Stats.Models++
		if err := v.draw("forward", e); err != nil {
			return err
		}
	}

	v.dev.SetDepth(gpu.DepthState{Test: true, Write: false})
	for i := len(ents) - 1; i >= 0; i-- {
		e := ents[i]
		m := e.Material()
		if !m.IsTransparent() {
			continue
		}
		if err := use(e); err != nil {
			return err
		}
		v.dev.SetBlend(blendFor(m))
		if m == render.Particles {
			c.Stats.Particles++
		} else {
			c.Stats.Models++
		}
		if err := v.draw("forward", e); err != nil {
			return err
		}
	}
	v.dev.SetBlend(gpu.BlendNone)
	v.dev.SetDepth(gpu.DepthState{Test: true, Write: true})
	return v.check("forward")
}
