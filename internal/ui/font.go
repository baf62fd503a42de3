package ui

import (
	"fmt"
	"image"
	"math"

	"mini-engine/internal/gpu"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Glyph describes a single character's placement and metrics within the atlas.
type Glyph struct {
	// Pixel coordinates of the glyph in the atlas (top-left origin).
	AtlasX, AtlasY int
	Width, Height  int
	// Bearing is the offset from the pen position to the glyph's top-left.
	BearingX, BearingY int
	Advance            int
}

// Atlas is a baked glyph sheet. Pix is the coverage image; Texture is set
// once the atlas is uploaded.
type Atlas struct {
	Texture gpu.Texture
	W, H    int
	Glyphs  map[rune]Glyph
	// LineHeight is the face's ascent plus descent in pixels.
	LineHeight int
	Pix        *image.Alpha
}

const (
	atlasWidth   = 512
	atlasPadding = 1
	firstRune    = rune(32)
	lastRune     = rune(255)
)

// BakeAtlas rasterizes the printable Latin-1 range of a TrueType or
// OpenType font at the given pixel size.
func BakeAtlas(ttf []byte, pixels int) (*Atlas, error) {
	f, err := opentype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: float64(pixels), DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("new face: %w", err)
	}
	defer func() { _ = face.Close() }()

	// First pass: row-pack to find the atlas height.
	offsetX, offsetY, rowH := 0, 0, 0
	for r := firstRune; r <= lastRune; r++ {
		dr, mask, _, _, ok := face.Glyph(fixed.P(0, 0), r)
		if !ok || mask == nil || dr.Empty() {
			continue
		}
		if offsetX+dr.Dx() > atlasWidth {
			offsetX = 0
			offsetY += rowH + atlasPadding
			rowH = 0
		}
		offsetX += dr.Dx() + atlasPadding
		rowH = max(rowH, dr.Dy())
	}
	atlasH := nextPow2(offsetY + rowH + atlasPadding)

	m := face.Metrics()
	a := &Atlas{
		W:          atlasWidth,
		H:          atlasH,
		Glyphs:     make(map[rune]Glyph),
		LineHeight: (m.Ascent + m.Descent).Ceil(),
		Pix:        image.NewAlpha(image.Rect(0, 0, atlasWidth, atlasH)),
	}

	// Second pass: render each glyph and record metrics.
	offsetX, offsetY, rowH = 0, 0, 0
	for r := firstRune; r <= lastRune; r++ {
		dr, mask, maskp, advance, ok := face.Glyph(fixed.P(0, 0), r)
		if !ok || mask == nil {
			continue
		}
		g := Glyph{
			BearingX: dr.Min.X,
			BearingY: -dr.Min.Y,
			Advance:  int(math.Round(float64(advance) / 64.0)),
		}
		if dr.Empty() {
			a.Glyphs[r] = g
			continue
		}
		if offsetX+dr.Dx() > atlasWidth {
			offsetX = 0
			offsetY += rowH + atlasPadding
			rowH = 0
		}
		dst := image.Rect(offsetX, offsetY, offsetX+dr.Dx(), offsetY+dr.Dy())
		draw.Draw(a.Pix, dst, mask, maskp, draw.Src)
		g.AtlasX, g.AtlasY = offsetX, offsetY
		g.Width, g.Height = dr.Dx(), dr.Dy()
		a.Glyphs[r] = g

		offsetX += dr.Dx() + atlasPadding
		rowH = max(rowH, dr.Dy())
	}
	return a, nil
}

// DefaultAtlas bakes Go Regular.
func DefaultAtlas(pixels int) (*Atlas, error) {
	return BakeAtlas(goregular.TTF, pixels)
}

func nextPow2(v int) int {
	n := 1
	for n < v {
		n <<= 1
	}
	return n
}

// Upload creates the atlas texture. Coverage goes to alpha with white color,
// which the text shader variant reads.
func (a *Atlas) Upload(dev gpu.Device) error {
	px := make([]byte, a.W*a.H*4)
	for i, c := range a.Pix.Pix {
		px[i*4], px[i*4+1], px[i*4+2], px[i*4+3] = 255, 255, 255, c
	}
	t, err := dev.CreateTexture(gpu.TextureDesc{
		Kind: gpu.Texture2D, Format: gpu.FormatRGBA8, Width: a.W, Height: a.H,
		Filter: gpu.FilterLinear, Pixels: px,
	})
	if err != nil {
		return fmt.Errorf("upload font atlas: %w", err)
	}
	a.Texture = t
	return nil
}

// Release deletes the atlas texture.
func (a *Atlas) Release(dev gpu.Device) {
	if a.Texture != 0 {
		dev.DeleteTexture(a.Texture)
		a.Texture = 0
	}
}

// Measure returns the width and tallest glyph height of text at scale.
// Missing glyphs advance like a space.
func (a *Atlas) Measure(text string, scale float32) (float32, float32) {
	var w, h float32
	for _, r := range text {
		g, ok := a.Glyphs[r]
		if !ok {
			w += float32(a.Glyphs[' '].Advance) * scale
			continue
		}
		w += float32(g.Advance) * scale
		h = max(h, float32(g.Height)*scale)
	}
	return w, h
}

// appendText appends two triangles per visible glyph, as x, y, u, v in
// pixel space. y is the baseline.
func (a *Atlas) appendText(verts []float32, text string, x, y, scale float32) []float32 {
	aw, ah := float32(a.W), float32(a.H)
	for _, r := range text {
		g, ok := a.Glyphs[r]
		if !ok {
			x += float32(a.Glyphs[' '].Advance) * scale
			continue
		}
		if g.Width > 0 && g.Height > 0 {
			x0 := x + float32(g.BearingX)*scale
			y0 := y - float32(g.BearingY)*scale
			x1 := x0 + float32(g.Width)*scale
			y1 := y0 + float32(g.Height)*scale
			u0, v0 := float32(g.AtlasX)/aw, float32(g.AtlasY)/ah
			u1, v1 := float32(g.AtlasX+g.Width)/aw, float32(g.AtlasY+g.Height)/ah
			verts = append(verts,
				x0, y1, u0, v1,
				x0, y0, u0, v0,
				x1, y0, u1, v0,
				x0, y1, u0, v1,
				x1, y0, u1, v0,
				x1, y1, u1, v1,
			)
		}
		x += float32(g.Advance) * scale
	}
	return verts
}
