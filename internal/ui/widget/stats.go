package widget

import (
	"fmt"
	"time"

	"mini-engine/internal/profiling"
	"mini-engine/internal/ui"

	"github.com/go-gl/mathgl/mgl32"
)

const historyLen = 60

// Stats is a profiling overlay: frame time over the last 60 frames plus
// the most expensive passes of the latest frame.
type Stats struct {
	ui.Node
	Prof    *profiling.Profiler
	Visible bool
	// Top is the number of passes listed.
	Top int

	history       []time.Duration
	min, max, avg time.Duration
	passes        string
}

func NewStats(x, y float32, prof *profiling.Profiler) *Stats {
	return &Stats{Node: ui.Node{Rect: ui.Rect{X: x, Y: y, W: 420, H: 56}}, Prof: prof, Top: 4}
}

// Record adds one frame's duration and captures the profiler's pass
// breakdown for it. Call it after the frame, before the profiler resets.
func (s *Stats) Record(d time.Duration) {
	if len(s.history) >= historyLen {
		s.history = s.history[1:]
	}
	s.history = append(s.history, d)

	var total time.Duration
	s.min, s.max = d, d
	for _, v := range s.history {
		total += v
		s.min = min(s.min, v)
		s.max = max(s.max, v)
	}
	s.avg = total / time.Duration(len(s.history))
	s.passes = s.Prof.TopN(s.Top)
}

// Frame returns min, average and max frame time over the window.
func (s *Stats) Frame() (lo, avg, hi time.Duration) { return s.min, s.avg, s.max }

func ms(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }

func (s *Stats) Draw(c *ui.Compositor) error {
	if !s.Visible || len(s.history) == 0 {
		return nil
	}
	c.FillRect(s.Rect, mgl32.Vec4{0, 0, 0, 0.5})
	white := mgl32.Vec4{1, 1, 1, 1}
	line := fmt.Sprintf("frame %.1fms  min %.1f  avg %.1f  max %.1f",
		ms(s.history[len(s.history)-1]), ms(s.min), ms(s.avg), ms(s.max))
	if err := c.DrawText(line, s.X+6, s.Y+4, 1, white); err != nil {
		return err
	}
	return c.DrawText(s.passes, s.X+6, s.Y+30, 0.8, mgl32.Vec4{0.8, 0.8, 0.8, 1})
}
