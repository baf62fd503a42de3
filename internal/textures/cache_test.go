package textures_test

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io/fs"
	"testing"
	"testing/fstest"
	"time"

	"mini-engine/internal/gpu/gputest"
	"mini-engine/internal/sched"
	"mini-engine/internal/textures"

	"golang.org/x/image/bmp"
)

func encoded(t *testing.T, w, h int, enc func(*bytes.Buffer, image.Image) error) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := enc(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func pngBytes(t *testing.T, w, h int) []byte {
	return encoded(t, w, h, func(b *bytes.Buffer, m image.Image) error { return png.Encode(b, m) })
}

func bmpBytes(t *testing.T, w, h int) []byte {
	return encoded(t, w, h, func(b *bytes.Buffer, m image.Image) error { return bmp.Encode(b, m) })
}

// settle runs sync ticks until every texture left Pending.
func settle(t *testing.T, s *sched.Scheduler, texs ...*textures.Texture) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		s.RunSyncTick()
		pending := false
		for _, x := range texs {
			if x.State == textures.Pending {
				pending = true
			}
		}
		if !pending {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("textures never finished loading")
}

func newCache(t *testing.T, src fs.FS) (*gputest.Device, *sched.Scheduler, *textures.Cache) {
	t.Helper()
	dev := gputest.New()
	s := sched.New(sched.Options{Workers: 2})
	t.Cleanup(func() { _ = s.Shutdown() })
	c := textures.New(textures.Options{Device: dev, Scheduler: s, Source: src})
	if err := c.Load(); err != nil {
		t.Fatal(err)
	}
	return dev, s, c
}

func TestGetTextureLoadsInBackground(t *testing.T) {
	src := fstest.MapFS{
		"a.png": {Data: pngBytes(t, 4, 2)},
		"b.bmp": {Data: bmpBytes(t, 3, 3)},
	}
	dev, s, c := newCache(t, src)
	a := c.GetTexture("a.png")
	b := c.GetTexture("b.bmp")
	if a.Handle != c.Placeholder() || a.State != textures.Pending {
		t.Fatalf("first call must return the placeholder, got %+v", a)
	}
	if c.GetTexture("a.png") != a {
		t.Fatal("GetTexture must cache by name")
	}
	settle(t, s, a, b)
	for _, x := range []*textures.Texture{a, b} {
		if x.State != textures.Ready || x.Handle == c.Placeholder() {
			t.Fatalf("%s = %+v", x.Name, x)
		}
	}
	if d := dev.Textures[a.Handle]; d.Width != 4 || d.Height != 2 || len(d.Pixels) != 4*2*4 {
		t.Fatalf("a.png uploaded as %dx%d with %d bytes", d.Width, d.Height, len(d.Pixels))
	}
	if px := dev.Textures[a.Handle].Pixels; px[0] != 255 || px[3] != 255 {
		t.Fatalf("first pixel = %v", px[:4])
	}
	if b.Width != 3 || b.Height != 3 {
		t.Fatalf("b.bmp = %dx%d", b.Width, b.Height)
	}
}

func TestGetTextureFailures(t *testing.T) {
	src := fstest.MapFS{
		"bad.png":   {Data: []byte("definitely not a png")},
		"notes.txt": {Data: []byte("hello")},
	}
	_, s, c := newCache(t, src)
	bad := c.GetTexture("bad.png")
	missing := c.GetTexture("missing.png")
	txt := c.GetTexture("notes.txt")
	settle(t, s, bad, missing, txt)
	for _, x := range []*textures.Texture{bad, missing, txt} {
		if x.State != textures.Failed || x.Err == nil || x.Handle != c.Placeholder() {
			t.Fatalf("%s = %+v", x.Name, x)
		}
	}
	if !errors.Is(missing.Err, fs.ErrNotExist) {
		t.Fatalf("missing err = %v", missing.Err)
	}
	if !errors.Is(txt.Err, textures.ErrUnknownFormat) {
		t.Fatalf("txt err = %v", txt.Err)
	}
}

func TestReleaseDeletesUploads(t *testing.T) {
	dev, s, c := newCache(t, fstest.MapFS{"a.png": {Data: pngBytes(t, 1, 1)}})
	settle(t, s, c.GetTexture("a.png"))
	c.Release()
	if dev.Live() != 0 {
		t.Fatalf("%d textures leaked", dev.Live())
	}
}

func TestStaleDecodeAfterReleaseIsDropped(t *testing.T) {
	dev, s, c := newCache(t, fstest.MapFS{"a.png": {Data: pngBytes(t, 2, 2)}})
	old := c.GetTexture("a.png")
	deadline := time.Now().Add(5 * time.Second)
	for s.Pending() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("decode never finished")
		}
		time.Sleep(time.Millisecond)
	}

	c.Release()
	if err := c.Load(); err != nil {
		t.Fatal(err)
	}
	fresh := c.GetTexture("a.png")
	if fresh == old {
		t.Fatal("Release kept the old entry")
	}
	settle(t, s, fresh)
	if old.State != textures.Pending {
		t.Fatalf("stale entry was uploaded: %+v", old)
	}
	if dev.Live() != 2 {
		t.Fatalf("live textures = %d, want placeholder and a.png", dev.Live())
	}
	c.Release()
	if dev.Live() != 0 {
		t.Fatalf("%d textures leaked", dev.Live())
	}
}

func TestDecodeNormalizesBounds(t *testing.T) {
	img, err := textures.Decode("x.PNG", bytes.NewReader(pngBytes(t, 5, 7)))
	if err != nil {
		t.Fatal(err)
	}
	if img.Rect != image.Rect(0, 0, 5, 7) {
		t.Fatalf("bounds = %v", img.Rect)
	}
}
