package glbackend

import (
	"fmt"
	"strings"

	"mini-engine/internal/gpu"

	"github.com/go-gl/gl/v4.3-core/gl"
)

// CreateProgram compiles and links the stages of src.
func (d *Device) CreateProgram(src gpu.ProgramSource) (gpu.Program, error) {
	type stage struct {
		name string
		kind uint32
		code string
	}
	stages := []stage{
		{"vertex", gl.VERTEX_SHADER, src.Vertex},
		{"fragment", gl.FRAGMENT_SHADER, src.Fragment},
	}
	if src.Geometry != "" {
		stages = append(stages, stage{"geometry", gl.GEOMETRY_SHADER, src.Geometry})
	}

	compiled := make([]uint32, 0, len(stages))
	defer func() {
		for _, s := range compiled {
			gl.DeleteShader(s)
		}
	}()
	for _, s := range stages {
		id, err := compileShader(s.code, s.kind)
		if err != nil {
			return 0, &gpu.ShaderError{Stage: s.name, Log: err.Error()}
		}
		compiled = append(compiled, id)
	}

	program := gl.CreateProgram()
	for _, s := range compiled {
		gl.AttachShader(program, s)
	}
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)

		return 0, &gpu.ShaderError{Stage: "link", Log: strings.TrimRight(log, "\x00")}
	}
	for _, s := range compiled {
		gl.DetachShader(program, s)
	}
	d.active[gpu.Program(program)] = activeLocations(program)
	return gpu.Program(program), nil
}

// activeLocations lists every location occupied by an active uniform,
// expanding arrays element by element.
func activeLocations(program uint32) map[int32]bool {
	out := make(map[int32]bool)
	var count int32
	gl.GetProgramInterfaceiv(program, gl.UNIFORM, gl.ACTIVE_RESOURCES, &count)
	props := [2]uint32{gl.LOCATION, gl.ARRAY_SIZE}
	var values [2]int32
	for i := int32(0); i < count; i++ {
		gl.GetProgramResourceiv(program, gl.UNIFORM, uint32(i), 2, &props[0], 2, nil, &values[0])
		loc, size := values[0], values[1]
		if loc < 0 {
			continue
		}
		for j := int32(0); j < max(size, 1); j++ {
			out[loc+j] = true
		}
	}
	return out
}

// DeleteProgram releases a linked program.
func (d *Device) DeleteProgram(p gpu.Program) {
	if p == 0 {
		return
	}
	gl.DeleteProgram(uint32(p))
	delete(d.active, p)
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)

		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)

		return 0, fmt.Errorf("%s", strings.TrimRight(log, "\x00"))
	}
	return shader, nil
}
