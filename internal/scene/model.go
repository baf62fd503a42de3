package scene

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"path"
	"strings"

	"mini-engine/internal/engine"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrModelCycle is returned when a model's parent chain loops.
var ErrModelCycle = errors.New("model parent cycle")

// Model is a prop built from axis-aligned boxes, in the JSON block model
// format: coordinates are in sixteenths of a unit, textures are named
// through variables like "#side", and a model may inherit the elements
// and textures of a parent.
type Model struct {
	Parent   string            `json:"parent"`
	Textures map[string]string `json:"textures"`
	Elements []Element         `json:"elements"`
}

type Element struct {
	From     [3]float32      `json:"from"`
	To       [3]float32      `json:"to"`
	Rotation *Rotation       `json:"rotation"`
	Faces    map[string]Face `json:"faces"`
}

// Rotation turns an element about Origin. Only the y axis is honored;
// props are placed upright.
type Rotation struct {
	Origin [3]float32 `json:"origin"`
	Angle  float32    `json:"angle"`
	Axis   string     `json:"axis"`
}

type Face struct {
	Texture string `json:"texture"`
}

// maxTextureHops bounds "#a" -> "#b" -> ... variable chains.
const maxTextureHops = 10

// ModelLoader reads models/<name>.json from an fs.FS. Parsed files and
// resolved models are cached by name.
type ModelLoader struct {
	fsys     fs.FS
	raw      map[string]*Model
	resolved map[string]*Model
}

func NewModelLoader(fsys fs.FS) *ModelLoader {
	return &ModelLoader{fsys: fsys, raw: make(map[string]*Model), resolved: make(map[string]*Model)}
}

// Load returns the named model with its parents merged in and every face
// texture resolved to a file name. A child's texture variables override
// its parent's, including for inherited elements.
func (l *ModelLoader) Load(name string) (*Model, error) {
	if m, ok := l.resolved[name]; ok {
		return m, nil
	}
	merged, err := l.merge(name, map[string]bool{})
	if err != nil {
		return nil, err
	}
	m := *merged
	m.Elements = cloneElements(merged.Elements)
	for i := range m.Elements {
		for side, f := range m.Elements[i].Faces {
			f.Texture = m.ResolveTexture(f.Texture)
			m.Elements[i].Faces[side] = f
		}
	}
	l.resolved[name] = &m
	return &m, nil
}

// merge returns the model with its parent chain folded in and texture
// variables left unresolved.
func (l *ModelLoader) merge(name string, seen map[string]bool) (*Model, error) {
	if seen[name] {
		return nil, fmt.Errorf("load model %q: %w", name, ErrModelCycle)
	}
	seen[name] = true
	if m, ok := l.raw[name]; ok {
		return m, nil
	}

	data, err := fs.ReadFile(l.fsys, path.Join("models", name+".json"))
	if err != nil {
		return nil, fmt.Errorf("load model %q: %w", name, err)
	}
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode model %q: %w", name, err)
	}
	if m.Textures == nil {
		m.Textures = make(map[string]string)
	}
	if m.Parent != "" {
		parent, err := l.merge(m.Parent, seen)
		if err != nil {
			return nil, fmt.Errorf("load parent of %q: %w", name, err)
		}
		if len(m.Elements) == 0 {
			m.Elements = parent.Elements
		}
		for k, v := range parent.Textures {
			if _, ok := m.Textures[k]; !ok {
				m.Textures[k] = v
			}
		}
	}
	l.raw[name] = &m
	return &m, nil
}

// cloneElements copies the face maps so resolving one model's texture
// variables cannot rewrite another's.
func cloneElements(src []Element) []Element {
	out := make([]Element, len(src))
	for i, e := range src {
		out[i] = e
		out[i].Faces = maps.Clone(e.Faces)
	}
	return out
}

// ResolveTexture follows "#name" variables through the model's texture
// map. Unknown variables are returned as they are.
func (m *Model) ResolveTexture(name string) string {
	for range maxTextureHops {
		key, ok := strings.CutPrefix(name, "#")
		if !ok {
			break
		}
		v, ok := m.Textures[key]
		if !ok {
			break
		}
		name = v
	}
	return name
}

// texture picks the texture a whole box is drawn with: the first of
// north, up, then any other face that names a file.
func (e *Element) texture() string {
	for _, side := range []string{"north", "up", "south", "east", "west", "down"} {
		if f, ok := e.Faces[side]; ok && f.Texture != "" && !strings.HasPrefix(f.Texture, "#") {
			return f.Texture
		}
	}
	return ""
}

// Spawn adds one Cube per element to e, with the model's unit block
// centered on pos. Face textures load as textures/<name>.png through the
// engine's cache.
func (m *Model) Spawn(e *engine.Engine, mesh *Meshes, label string, pos mgl32.Vec3) []*Cube {
	cubes := make([]*Cube, 0, len(m.Elements))
	for i, el := range m.Elements {
		from := mgl32.Vec3(el.From).Mul(1.0 / 16)
		to := mgl32.Vec3(el.To).Mul(1.0 / 16)
		center := from.Add(to).Mul(0.5).Sub(mgl32.Vec3{0.5, 0.5, 0.5})

		c := NewCube(fmt.Sprintf("%s/%d", label, i), mesh.Cube, pos.Add(center))
		c.Size = to.Sub(from)
		if r := el.Rotation; r != nil && r.Axis == "y" {
			c.Yaw = mgl32.DegToRad(r.Angle)
			o := mgl32.Vec3(r.Origin).Mul(1.0 / 16).Sub(mgl32.Vec3{0.5, 0.5, 0.5})
			off := center.Sub(o)
			c.Pos = pos.Add(o).Add(mgl32.HomogRotate3DY(c.Yaw).Mul4x1(off.Vec4(0)).Vec3())
		}
		if tex := el.texture(); tex != "" {
			c.Texture = e.GetTexture(path.Join("textures", tex+".png"))
		}
		cubes = append(cubes, c)
		e.Add(c)
	}
	return cubes
}
