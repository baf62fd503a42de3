package shaders_test

import (
	"io/fs"
	"regexp"
	"strconv"
	"testing"

	"mini-engine/internal/gpu/gputest"
	"mini-engine/internal/shaders"
)

// The numbers below are the contract with the GLSL sources. Changing one
// here without the shaders (or the reverse) must fail this test.
func TestUniformLocationNumbers(t *testing.T) {
	want := map[int32]int32{
		shaders.LocProjection:     1,
		shaders.LocWorld:          2,
		shaders.LocColor:          3,
		shaders.LocScreenSize:     4,
		shaders.LocScaler:         5,
		shaders.LocAdder:          6,
		shaders.LocCameraPos:      14,
		shaders.LocShadowMatrices: 20,
		shaders.LocLightData:      58,
		shaders.LocBones:          100,
		shaders.LocSSAOKernel:     200,
		shaders.LocPCFJumps:       232,
	}
	for got, exp := range want {
		if got != exp {
			t.Errorf("location %d, want %d", got, exp)
		}
	}
	if shaders.MaxLights != 38 {
		t.Fatalf("MaxLights = %d", shaders.MaxLights)
	}
	if shaders.LocLightData < shaders.LocShadowMatrices+shaders.MaxLights {
		t.Fatalf("light data overlaps the shadow matrix array")
	}
	if shaders.LocBones < shaders.LocLightData+shaders.MaxLights {
		t.Fatalf("bones overlap the light data array")
	}
	if shaders.LocSSAOKernel < shaders.LocBones+shaders.MaxBones {
		t.Fatalf("SSAO kernel overlaps the bone array")
	}
}

func TestTextureSlotNumbers(t *testing.T) {
	slots := []int{
		shaders.SlotDiffuse, shaders.SlotPosition, shaders.SlotNormal, shaders.SlotDepth,
		shaders.SlotLightAccum, shaders.SlotRenderHint, shaders.SlotRenderHint2,
	}
	for i, s := range slots {
		if s != i {
			t.Errorf("slot %d bound at %d", i, s)
		}
	}
}

var (
	uniformDecl = regexp.MustCompile(`layout\s*\(\s*location\s*=\s*(\d+)\s*\)\s*uniform\s+\w+\s+(\w+)\s*(?:\[(\d+)\])?`)
	samplerDecl = regexp.MustCompile(`layout\s*\(\s*binding\s*=\s*(\d+)\s*\)\s*uniform\s+\w+\s+(\w+)`)
	bufferDecl  = regexp.MustCompile(`layout\s*\(\s*std430\s*,\s*binding\s*=\s*(\d+)\s*\)\s*(?:coherent\s+)?buffer\s+(\w+)`)
)

var arraySizes = map[string]int{
	"u_shadow_matrix": shaders.MaxLights,
	"u_light_data":    shaders.MaxLights,
	"u_bones":         shaders.MaxBones,
	"u_ssao_kernel":   shaders.SSAOKernelSize,
	"u_pcf_jumps":     shaders.PCFJumpCount,
}

func TestGLSLDeclarationsMatchLocationTable(t *testing.T) {
	src := shaders.Embedded()
	files, err := fs.Glob(src, "*")
	if err != nil || len(files) == 0 {
		t.Fatalf("no embedded shaders: %v", err)
	}
	seen := 0
	for _, name := range files {
		b, err := fs.ReadFile(src, name)
		if err != nil {
			t.Fatal(err)
		}
		text := string(b)
		for _, m := range uniformDecl.FindAllStringSubmatch(text, -1) {
			seen++
			loc, _ := strconv.Atoi(m[1])
			if want, ok := shaders.UniformNames[int32(loc)]; !ok || want != m[2] {
				t.Errorf("%s: location %d declares %s, table says %q", name, loc, m[2], want)
			}
			if size, ok := arraySizes[m[2]]; ok {
				if got, _ := strconv.Atoi(m[3]); got != size {
					t.Errorf("%s: %s[%s], want [%d]", name, m[2], m[3], size)
				}
			}
		}
		for _, m := range samplerDecl.FindAllStringSubmatch(text, -1) {
			slot, _ := strconv.Atoi(m[1])
			if want := shaders.SlotNames[slot]; want != m[2] {
				t.Errorf("%s: binding %d declares %s, table says %q", name, slot, m[2], want)
			}
		}
		for _, m := range bufferDecl.FindAllStringSubmatch(text, -1) {
			slot, _ := strconv.Atoi(m[1])
			if want := shaders.BufferNames[slot]; want != m[2] {
				t.Errorf("%s: buffer binding %d declares %s, table says %q", name, slot, m[2], want)
			}
		}
	}
	if seen == 0 {
		t.Fatalf("no uniform declarations found")
	}
}

func TestEveryPipelineVariantHasSources(t *testing.T) {
	set := shaders.New(gputest.New(), nil, nil)
	keys := []string{
		"fbo", "fbo,MCM_SKYBOX", "fbo,MCM_REFRACT", "fbo,MCM_BONES",
		"shadow", "shadow,MCM_BONES",
		"particles,MCM_SHADOWS?geom_particles", "particles,MCM_FBO?geom_particles", "particles?geom_particles",
		"lightadder,MCM_SHADOWS,MCM_GOOD_GRAPHICS,MCM_SSAO",
		"transponly", "transponly,MCM_BRIGHT", "transponly,MCM_LL", "ll_resolve",
		"hdrpass", "hdrpass,MCM_GODRAYS",
		"finalgodray,MCM_GODRAYS,MCM_HDR,MCM_TOONIFY,MCM_GRAYSCALE,MCM_MOTBLUR,MCM_SSR",
		"forward", "forward,MCM_SKYBOX",
		"colormult2d", "colormult2d,MCM_TEXT",
		"lightmap2d", "lightmap2d,MCM_1D",
		"lightcombine2d", "lightcombine2d,MCM_1D,MCM_SKY", "addtoscene2d",
	}
	if err := set.Preload(keys...); err != nil {
		t.Fatalf("Preload: %v", err)
	}
}
