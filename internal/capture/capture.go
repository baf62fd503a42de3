// Package capture turns read-back framebuffer pixels into image files.
package capture

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"golang.org/x/image/draw"
)

// ErrFormat is returned for output extensions other than .png and .webp.
var ErrFormat = errors.New("capture: unsupported output format")

// FromPixels converts RGBA float pixels with a bottom-left origin, as the
// GPU reads them back, into an image with a top-left origin. Values are
// clamped to [0, 1].
func FromPixels(px []float32, w, h int) (*image.NRGBA, error) {
	if w <= 0 || h <= 0 || len(px) < w*h*4 {
		return nil, fmt.Errorf("capture: %d floats for a %dx%d image", len(px), w, h)
	}
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		src := px[(h-1-y)*w*4 : (h-y)*w*4]
		dst := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for i, v := range src {
			dst[i] = to8(v)
		}
	}
	return img, nil
}

func to8(v float32) uint8 {
	if math.IsNaN(float64(v)) || v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(math.Round(float64(v) * 255))
}

// Encode writes img in the format named by ext (".png" or ".webp").
func Encode(w io.Writer, img image.Image, ext string) error {
	switch strings.ToLower(ext) {
	case ".png":
		return png.Encode(w, img)
	case ".webp":
		if err := nativewebp.Encode(w, img, nil); err != nil {
			return fmt.Errorf("webp encode: %w", err)
		}
		return nil
	}
	return fmt.Errorf("%w: %q", ErrFormat, ext)
}

// Save writes img to path, choosing the encoder by extension. Parent
// directories are created.
func Save(path string, img image.Image) error {
	ext := filepath.Ext(path)
	switch strings.ToLower(ext) {
	case ".png", ".webp":
	default:
		return fmt.Errorf("%w: %q", ErrFormat, ext)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, img, ext); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Thumbnail scales img to fit within maxW x maxH, keeping its aspect ratio.
// Images that already fit are returned unscaled.
func Thumbnail(img image.Image, maxW, maxH int) image.Image {
	b := img.Bounds()
	if b.Dx() <= maxW && b.Dy() <= maxH {
		return img
	}
	scale := min(float64(maxW)/float64(b.Dx()), float64(maxH)/float64(b.Dy()))
	w := max(1, int(math.Round(float64(b.Dx())*scale)))
	h := max(1, int(math.Round(float64(b.Dy())*scale)))
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
