package shaders

// Uniform locations shared by every shader family. The numbers are declared
// with layout(location = N) in the GLSL sources and must match exactly; a
// mismatch binds data to the wrong uniform without any error.
const (
	LocProjection    int32 = 1
	LocWorld         int32 = 2
	LocColor         int32 = 3
	LocScreenSize    int32 = 4
	LocScaler        int32 = 5
	LocAdder         int32 = 6
	LocTime          int32 = 7
	LocAmbient       int32 = 8
	LocLightCount    int32 = 9
	LocExposure      int32 = 10
	LocZNearFar      int32 = 11
	LocPostParams    int32 = 12
	LocSunScreen     int32 = 13
	LocCameraPos     int32 = 14
	LocGodrayParams  int32 = 15
	LocGodraySamples int32 = 16
	LocSSAORadius    int32 = 17
	LocPrevViewProj  int32 = 18
	LocLightParams   int32 = 19

	// LocShadowMatrices is the first element of a MaxLights mat4 array.
	LocShadowMatrices int32 = 20
	// LocLightData is the first element of a MaxLights mat4 array packed by lights.Pack.
	LocLightData int32 = LocShadowMatrices + MaxLights
	LocBones     int32 = 100

	LocSSAOKernel int32 = 200
	LocPCFJumps   int32 = LocSSAOKernel + SSAOKernelSize*2
)

// Array bounds of the uniform arrays above.
const (
	MaxLights      = 38
	MaxBones       = 70
	SSAOKernelSize = 16
	PCFJumpCount   = 16
)

// Texture binding slots.
const (
	SlotDiffuse      = 0
	SlotPosition     = 1
	SlotNormal       = 2
	SlotDepth        = 3
	SlotLightAccum   = 4
	SlotRenderHint   = 5
	SlotRenderHint2  = 6
	SlotShadows      = 7
	SlotTransparency = 8
	SlotGodray       = 9
	SlotLightmap     = 10
)

// Shader storage buffer bindings of linked-list transparency.
const (
	BufLLHeads   = 0
	BufLLNodes   = 1
	BufLLCounter = 2
)

// UniformNames maps each location to the uniform name the GLSL declares there.
var UniformNames = map[int32]string{
	LocProjection:     "u_projection",
	LocWorld:          "u_world",
	LocColor:          "u_color",
	LocScreenSize:     "u_screen_size",
	LocScaler:         "u_scaler",
	LocAdder:          "u_adder",
	LocTime:           "u_time",
	LocAmbient:        "u_ambient",
	LocLightCount:     "u_light_count",
	LocExposure:       "u_exposure",
	LocZNearFar:       "u_znearfar",
	LocPostParams:     "u_post_params",
	LocSunScreen:      "u_sun_screen",
	LocCameraPos:      "u_camera_pos",
	LocGodrayParams:   "u_godray_params",
	LocGodraySamples:  "u_godray_samples",
	LocSSAORadius:     "u_ssao_radius",
	LocPrevViewProj:   "u_prev_viewproj",
	LocLightParams:    "u_light_params",
	LocShadowMatrices: "u_shadow_matrix",
	LocLightData:      "u_light_data",
	LocBones:          "u_bones",
	LocSSAOKernel:     "u_ssao_kernel",
	LocPCFJumps:       "u_pcf_jumps",
}

// SlotNames maps each texture binding slot to its sampler name.
var SlotNames = map[int]string{
	SlotDiffuse:      "t_diffuse",
	SlotPosition:     "t_position",
	SlotNormal:       "t_normal",
	SlotDepth:        "t_depth",
	SlotLightAccum:   "t_light",
	SlotRenderHint:   "t_renderhint",
	SlotRenderHint2:  "t_renderhint2",
	SlotShadows:      "t_shadows",
	SlotTransparency: "t_transparency",
	SlotGodray:       "t_godray",
	SlotLightmap:     "t_lightmap",
}

// BufferNames maps each storage buffer binding to its block name.
var BufferNames = map[int]string{
	BufLLHeads:   "LLHeads",
	BufLLNodes:   "LLNodes",
	BufLLCounter: "LLCounter",
}

// LLNodeSize is the byte size of one linked-list fragment node:
// vec4 color, float depth, uint next, padded to 32 bytes.
const LLNodeSize = 32
