// Package shaders loads and caches shader program variants.
//
// A variant is identified by a key of the form "base,FLAG_A,FLAG_B?geom".
// Sources are read from an fs.FS: base.vs (or fullscreen.vs), base.fs and
// an optional geom.geom. Uniform locations and texture slots are fixed by
// the constants in locations.go.
package shaders

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"mini-engine/internal/gpu"
	"mini-engine/internal/logging"
)

//go:embed glsl
var embedded embed.FS

// Embedded returns the GLSL sources compiled into the binary.
func Embedded() fs.FS {
	sub, err := fs.Sub(embedded, "glsl")
	if err != nil {
		panic(err)
	}
	return sub
}

// Program is one linked program variant. It is immutable once linked.
type Program struct {
	Key    Key
	Handle gpu.Program
}

// CompileError names the variant that failed to build.
type CompileError struct {
	Variant string
	Stage   string
	Log     string
	Err     error
}

func (e *CompileError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("shader %q: %s stage: %s", e.Variant, e.Stage, e.Log)
	}
	return fmt.Sprintf("shader %q: %v", e.Variant, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// Set caches program variants by key. It must only be used on the render thread.
type Set struct {
	dev      gpu.Device
	src      fs.FS
	log      *slog.Logger
	programs map[string]*Program
	order    []string
}

// New returns an empty set reading sources from src; nil src uses Embedded.
func New(dev gpu.Device, src fs.FS, logger *slog.Logger) *Set {
	if src == nil {
		src = Embedded()
	}
	return &Set{
		dev:      dev,
		src:      src,
		log:      logging.OrNop(logger),
		programs: make(map[string]*Program),
	}
}

// GetShader returns the program for key, compiling it on first use.
// Repeated calls with the same key return the same *Program.
func (s *Set) GetShader(key string) (*Program, error) {
	k, err := ParseKey(key)
	if err != nil {
		return nil, &CompileError{Variant: key, Err: err}
	}
	name := k.String()
	if p, ok := s.programs[name]; ok {
		return p, nil
	}
	p, err := s.build(k)
	if err != nil {
		return nil, err
	}
	s.programs[name] = p
	s.order = append(s.order, name)
	s.log.Debug("shader linked", "variant", name, "program", p.Handle)
	return p, nil
}

// Preload compiles every key. On the first failure everything loaded by this
// set is destroyed and the error is returned; a partial set is never kept.
func (s *Set) Preload(keys ...string) error {
	for _, key := range keys {
		if _, err := s.GetShader(key); err != nil {
			s.Destroy()
			return err
		}
	}
	return nil
}

// Reload destroys every program and recompiles all previously requested
// variants, re-reading their sources. Callers must re-resolve their programs.
func (s *Set) Reload() error {
	keys := append([]string(nil), s.order...)
	s.Destroy()
	return s.Preload(keys...)
}

// Loaded returns the canonical keys of the loaded programs in load order.
func (s *Set) Loaded() []string { return append([]string(nil), s.order...) }

// Destroy deletes every program.
func (s *Set) Destroy() {
	for _, name := range s.order {
		s.dev.DeleteProgram(s.programs[name].Handle)
	}
	clear(s.programs)
	s.order = s.order[:0]
}

func (s *Set) build(k Key) (*Program, error) {
	name := k.String()
	vs, err := s.read(k.Base+".vs", "fullscreen.vs")
	if err != nil {
		return nil, &CompileError{Variant: name, Err: err}
	}
	fsrc, err := s.read(k.Base + ".fs")
	if err != nil {
		return nil, &CompileError{Variant: name, Err: err}
	}
	src := gpu.ProgramSource{
		Name:     name,
		Vertex:   Preprocess(vs, k),
		Fragment: Preprocess(fsrc, k),
	}
	if k.Geometry != "" {
		gs, err := s.read(k.Geometry + ".geom")
		if err != nil {
			return nil, &CompileError{Variant: name, Err: err}
		}
		src.Geometry = Preprocess(gs, k)
	}

	handle, err := s.dev.CreateProgram(src)
	if err != nil {
		ce := &CompileError{Variant: name, Err: err}
		var se *gpu.ShaderError
		if errors.As(err, &se) {
			ce.Stage, ce.Log = se.Stage, se.Log
		}
		return nil, ce
	}
	p := &Program{Key: k, Handle: handle}
	s.uploadConstants(p)
	return p, nil
}

// uploadConstants pushes the fixed sample tables into programs that use them.
// Uniform values persist in a linked program, so this runs once per load.
func (s *Set) uploadConstants(p *Program) {
	ssao := p.Key.Has(FlagSSAO)
	pcf := p.Key.Has(FlagGoodGraphics)
	if !ssao && !pcf {
		return
	}
	s.dev.UseProgram(p.Handle)
	if ssao {
		s.dev.UniformVec3Array(LocSSAOKernel, SSAOKernel[:])
	}
	if pcf {
		s.dev.UniformVec2Array(LocPCFJumps, PCFJumps[:])
	}
	s.dev.UseProgram(0)
}

func (s *Set) read(names ...string) (string, error) {
	var firstErr error
	for _, n := range names {
		b, err := fs.ReadFile(s.src, n)
		if err == nil {
			return string(b), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return "", firstErr
}
