package config

import "github.com/go-gl/mathgl/mgl32"

// Tuning holds the visual constants of the pipeline. They were picked by eye;
// override them per engine rather than deriving new ones.
type Tuning struct {
	// SSAORadius is the world-space sampling radius of the occlusion kernel.
	SSAORadius float32

	GodraySamples  int
	GodrayDecay    float32
	GodrayDensity  float32
	GodrayWeight   float32
	GodrayExposure float32

	// ExposureTarget is the average brightness HDR exposure aims for.
	ExposureTarget float32
	ExposureMin    float32
	ExposureMax    float32
	// ExposureSpeed is the maximum exposure change per second.
	ExposureSpeed float32
	// HDRSampleSize is the edge length of the brightness sampling target.
	HDRSampleSize int

	// AmbientFloor is the light an unlit fragment still receives.
	AmbientFloor mgl32.Vec3

	ReflectionSteps    int
	ReflectionStepSize float32

	MotionBlurStrength float32

	// Light2DFalloff is the exponent of 2D light falloff over its width.
	Light2DFalloff  float32
	Lightmap2DSize  int
	Lightmap1DWidth int
}

// DefaultTuning returns the stock constants.
func DefaultTuning() Tuning {
	return Tuning{
		SSAORadius:         0.5,
		GodraySamples:      35,
		GodrayDecay:        0.95,
		GodrayDensity:      0.84,
		GodrayWeight:       0.05,
		GodrayExposure:     0.3,
		ExposureTarget:     0.4,
		ExposureMin:        0.25,
		ExposureMax:        4.0,
		ExposureSpeed:      0.5,
		HDRSampleSize:      16,
		AmbientFloor:       mgl32.Vec3{0.1, 0.1, 0.1},
		ReflectionSteps:    32,
		ReflectionStepSize: 0.02,
		MotionBlurStrength: 0.5,
		Light2DFalloff:     2.0,
		Lightmap2DSize:     512,
		Lightmap1DWidth:    1024,
	}
}
