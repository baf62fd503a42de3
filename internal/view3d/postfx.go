package view3d

import (
	"math"

	"mini-engine/internal/gpu"
	"mini-engine/internal/shaders"

	"github.com/go-gl/mathgl/mgl32"
)

func (v *View) postPass(dt float64) error {
	defer v.prof.Track("view3d.Post")()
	defer v.notes.Push("post pass")()

	v.dev.SetDepth(gpu.DepthState{})
	v.dev.SetBlend(gpu.BlendNone)
	g := v.buffers.GBuffer
	c := v.ctx

	if v.cfg.HDR {
		hdr := v.buffers.HDR
		v.dev.BindFramebuffer(hdr.FB)
		v.dev.Viewport(0, 0, hdr.W, hdr.H)
		if _, _, err := v.use("hdrpass"); err != nil {
			return err
		}
		v.dev.BindTexture(shaders.SlotDiffuse, g.Color[0])
		v.dev.BindTexture(shaders.SlotLightAccum, v.buffers.Light.Color[0])
		v.dev.BindTexture(shaders.SlotRenderHint, g.Color[3])
		v.dev.DrawFullscreen()
		if err := v.check("post"); err != nil {
			return err
		}
		px, err := v.dev.ReadPixels(hdr.FB, 0, 0, hdr.W, hdr.H)
		if err != nil {
			if err := v.fail("hdr readback", err); err != nil {
				return err
			}
		} else {
			v.AdjustExposure(averageLuminance(px), dt)
		}
	}

	if v.cfg.Godrays {
		v.dev.BindFramebuffer(v.buffers.Godray.FB)
		v.dev.Viewport(0, 0, c.Width, c.Height)
		if _, _, err := v.use("hdrpass,MCM_GODRAYS"); err != nil {
			return err
		}
		v.dev.BindTexture(shaders.SlotDiffuse, g.Color[0])
		v.dev.BindTexture(shaders.SlotRenderHint, g.Color[3])
		v.dev.DrawFullscreen()
	}

	target, w, h := v.finalTarget()
	v.dev.BindFramebuffer(target)
	v.dev.Viewport(0, 0, w, h)
	v.dev.Clear(gpu.ClearColor|gpu.ClearDepth, v.ClearColor, 1)
	if _, _, err := v.use(finalKey(v.cfg)); err != nil {
		return err
	}
	v.dev.BindTexture(shaders.SlotDiffuse, g.Color[0])
	v.dev.BindTexture(shaders.SlotPosition, g.Color[1])
	v.dev.BindTexture(shaders.SlotNormal, g.Color[2])
	v.dev.BindTexture(shaders.SlotDepth, g.Depth)
	v.dev.BindTexture(shaders.SlotLightAccum, v.buffers.Light.Color[0])
	v.dev.BindTexture(shaders.SlotRenderHint, g.Color[3])
	v.dev.BindTexture(shaders.SlotTransparency, v.buffers.Transparency.Color[0])
	v.dev.BindTexture(shaders.SlotGodray, v.buffers.Godray.Color[0])

	t := v.tuning
	v.dev.Uniform1f(shaders.LocExposure, v.exposure)
	v.dev.Uniform3f(shaders.LocSunScreen, v.SunScreen())
	v.dev.Uniform4f(shaders.LocGodrayParams, mgl32.Vec4{t.GodrayDecay, t.GodrayDensity, t.GodrayWeight, t.GodrayExposure})
	v.dev.Uniform1i(shaders.LocGodraySamples, int32(t.GodraySamples))
	v.dev.Uniform4f(shaders.LocPostParams, mgl32.Vec4{t.MotionBlurStrength, float32(t.ReflectionSteps), t.ReflectionStepSize, 0})
	v.dev.UniformMat4(shaders.LocPrevViewProj, v.prevViewProj)
	v.dev.DrawFullscreen()
	v.prevViewProj = c.ViewProj

	v.dev.SetDepth(gpu.DepthState{Test: true, Write: true})
	return v.check("post")
}

// averageLuminance averages the red channel of RGBA float pixels, where the
// HDR pass writes luminance. Non-finite samples are ignored.
func averageLuminance(px []float32) float32 {
	var sum float64
	n := 0
	for i := 0; i+3 < len(px); i += 4 {
		l := float64(px[i])
		if math.IsNaN(l) || math.IsInf(l, 0) {
			continue
		}
		sum += l
		n++
	}
	if n == 0 {
		return 0
	}
	return float32(sum / float64(n))
}

// AdjustExposure moves the exposure toward the value that maps avgLum to
// the target brightness, by at most ExposureSpeed per second.
func (v *View) AdjustExposure(avgLum float32, dt float64) {
	t := v.tuning
	if math.IsNaN(float64(avgLum)) || dt <= 0 {
		return
	}
	want := t.ExposureTarget / max(avgLum, 1e-4)
	want = min(max(want, t.ExposureMin), t.ExposureMax)
	step := t.ExposureSpeed * float32(dt)
	switch diff := want - v.exposure; {
	case diff > step:
		v.exposure += step
	case diff < -step:
		v.exposure -= step
	default:
		v.exposure = want
	}
}

// SunScreen projects the sun direction to screen UV. z is 1 when the sun is
// in front of the camera and 0 when godrays must be disabled.
func (v *View) SunScreen() mgl32.Vec3 {
	c := v.ctx
	if v.Sun.Len() == 0 {
		return mgl32.Vec3{}
	}
	far := v.Camera.FarPlane * 0.5
	p := c.CameraPos.Add(v.Sun.Normalize().Mul(far))
	clip := c.ViewProj.Mul4x1(p.Vec4(1))
	if clip.W() <= 0 {
		return mgl32.Vec3{}
	}
	ndc := clip.Vec3().Mul(1 / clip.W())
	return mgl32.Vec3{ndc.X()*0.5 + 0.5, ndc.Y()*0.5 + 0.5, 1}
}
