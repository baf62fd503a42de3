// Package textures loads image files into GPU textures without blocking the
// render thread.
package textures

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"log/slog"

	"mini-engine/internal/gpu"
	"mini-engine/internal/logging"
	"mini-engine/internal/sched"
)

// State is the load state of a texture.
type State int

const (
	Pending State = iota
	Ready
	Failed
)

// Texture is a cached texture. Handle is the white placeholder until the
// image is uploaded. Fields change only on the render thread.
type Texture struct {
	Name   string
	Handle gpu.Texture
	Width  int
	Height int
	State  State
	Err    error
}

type Options struct {
	Device    gpu.Device
	Scheduler *sched.Scheduler
	Source    fs.FS
	Logger    *slog.Logger
}

// Cache maps names to textures. Its methods must be called from the render
// thread.
type Cache struct {
	dev   gpu.Device
	sched *sched.Scheduler
	src   fs.FS
	log   *slog.Logger

	white   gpu.Texture
	entries map[string]*Texture
}

func New(opts Options) *Cache {
	return &Cache{
		dev:     opts.Device,
		sched:   opts.Scheduler,
		src:     opts.Source,
		log:     logging.OrNop(opts.Logger),
		entries: make(map[string]*Texture),
	}
}

// Load creates the placeholder texture.
func (c *Cache) Load() error {
	if c.white != 0 {
		return nil
	}
	t, err := c.dev.CreateTexture(gpu.TextureDesc{
		Kind: gpu.Texture2D, Format: gpu.FormatRGBA8, Width: 1, Height: 1,
		Pixels: []byte{255, 255, 255, 255},
	})
	if err != nil {
		return fmt.Errorf("placeholder texture: %w", err)
	}
	c.white = t
	return nil
}

// Placeholder returns the white texture pending loads point at.
func (c *Cache) Placeholder() gpu.Texture { return c.white }

// GetTexture returns the texture for name, starting a background load the
// first time a name is requested. It never blocks on I/O.
func (c *Cache) GetTexture(name string) *Texture {
	if t, ok := c.entries[name]; ok {
		return t
	}
	t := &Texture{Name: name, Handle: c.white, State: Pending}
	c.entries[name] = t
	c.start(t)
	return t
}

// start submits the decode; a saturated pool retries on the next tick.
func (c *Cache) start(t *Texture) {
	err := c.sched.StartAsync(func(context.Context) error {
		img, err := c.decode(t.Name)
		if err != nil {
			c.sched.ScheduleSync(func() { c.fail(t, err) })
			return nil
		}
		c.sched.ScheduleSync(func() { c.upload(t, img.Pix, img.Rect.Dx(), img.Rect.Dy()) })
		return nil
	})
	switch {
	case err == nil:
	case errors.Is(err, sched.ErrQueueFull):
		c.sched.ScheduleSync(func() {
			if c.current(t) {
				c.start(t)
			}
		})
	default:
		c.fail(t, err)
	}
}

func (c *Cache) decode(name string) (*image.RGBA, error) {
	f, err := c.src.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(name, f)
}

// current reports whether t is still the cached entry for its name. A
// Release followed by a new request for the same name replaces it.
func (c *Cache) current(t *Texture) bool { return c.entries[t.Name] == t }

func (c *Cache) upload(t *Texture, pix []byte, w, h int) {
	if !c.current(t) {
		return
	}
	handle, err := c.dev.CreateTexture(gpu.TextureDesc{
		Kind: gpu.Texture2D, Format: gpu.FormatRGBA8, Width: w, Height: h,
		Filter: gpu.FilterLinear, Pixels: pix,
	})
	if err != nil {
		c.fail(t, err)
		return
	}
	t.Handle, t.Width, t.Height, t.State = handle, w, h, Ready
	c.log.Debug("texture loaded", "name", t.Name, "w", w, "h", h)
}

func (c *Cache) fail(t *Texture, err error) {
	t.State, t.Err = Failed, err
	c.log.Warn("texture load failed", "name", t.Name, "err", err)
}

// Release deletes every uploaded texture and the placeholder. Loads still
// in flight are dropped when they complete.
func (c *Cache) Release() {
	for name, t := range c.entries {
		if t.State == Ready {
			c.dev.DeleteTexture(t.Handle)
		}
		delete(c.entries, name)
	}
	if c.white != 0 {
		c.dev.DeleteTexture(c.white)
		c.white = 0
	}
}
