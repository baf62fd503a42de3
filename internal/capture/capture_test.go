package capture_test

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"mini-engine/internal/capture"

	"golang.org/x/image/webp"
)

func TestFromPixelsFlipsAndClamps(t *testing.T) {
	// Two rows: bottom row red, top row half green with overflow alpha.
	px := []float32{
		1, 0, 0, 1,
		0, 0.5, 0, 2,
	}
	img, err := capture.FromPixels(px, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	top := img.NRGBAAt(0, 0)
	bottom := img.NRGBAAt(0, 1)
	if top.G != 128 || top.A != 255 || top.R != 0 {
		t.Fatalf("top = %+v", top)
	}
	if bottom.R != 255 || bottom.A != 255 {
		t.Fatalf("bottom = %+v", bottom)
	}
	if _, err := capture.FromPixels(px, 2, 2); err == nil {
		t.Fatal("short pixel slice must fail")
	}
}

func TestSaveByExtension(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 4))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	dir := t.TempDir()

	pngPath := filepath.Join(dir, "shots", "a.png")
	if err := capture.Save(pngPath, img); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(pngPath)
	if err != nil {
		t.Fatal(err)
	}
	if got, err := png.Decode(bytes.NewReader(data)); err != nil || got.Bounds().Dx() != 8 {
		t.Fatalf("png round trip: %v", err)
	}

	webpPath := filepath.Join(dir, "a.webp")
	if err := capture.Save(webpPath, img); err != nil {
		t.Fatal(err)
	}
	data, err = os.ReadFile(webpPath)
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := webp.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width != 8 || cfg.Height != 4 {
		t.Fatalf("webp config = %+v, %v", cfg, err)
	}

	if err := capture.Save(filepath.Join(dir, "a.gif"), img); !errors.Is(err, capture.ErrFormat) {
		t.Fatalf("gif = %v", err)
	}
}

func TestThumbnail(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 400, 100))
	th := capture.Thumbnail(img, 100, 100)
	if b := th.Bounds(); b.Dx() != 100 || b.Dy() != 25 {
		t.Fatalf("thumbnail = %v", b)
	}
	if capture.Thumbnail(img, 500, 500) != image.Image(img) {
		t.Fatal("fitting image must be returned as is")
	}
}
