package profiling_test

import (
	"strings"
	"testing"
	"time"

	"mini-engine/internal/profiling"
)

func TestTrackAccumulatesPerName(t *testing.T) {
	p := profiling.New()
	for i := 0; i < 3; i++ {
		stop := p.Track("pass")
		time.Sleep(time.Millisecond)
		stop()
	}
	snap := p.Snapshot()
	if snap["pass"] < 3*time.Millisecond {
		t.Fatalf("expected at least 3ms recorded, got %v", snap["pass"])
	}
	p.ResetFrame()
	if len(p.Snapshot()) != 0 {
		t.Fatalf("expected empty snapshot after ResetFrame")
	}
}

func TestTopNOrdersByDuration(t *testing.T) {
	p := profiling.New()
	stop := p.Track("slow")
	time.Sleep(3 * time.Millisecond)
	stop()
	p.Track("fast")()

	top := p.TopN(1)
	if !strings.HasPrefix(top, "slow:") || !strings.HasSuffix(top, "ms") {
		t.Fatalf("unexpected TopN(1): %q", top)
	}
	if got := strings.Count(p.TopN(5), ","); got != 1 {
		t.Fatalf("expected two entries, got %q", p.TopN(5))
	}
}

func TestNilProfilerIsInert(t *testing.T) {
	var p *profiling.Profiler
	p.Track("x")()
	p.ResetFrame()
	if p.TopN(3) != "" {
		t.Fatalf("nil profiler should report nothing")
	}
}

func TestNotesPushPop(t *testing.T) {
	var n profiling.Notes
	popOuter := n.Push("frame")
	popInner := n.Push("shadow pass")
	if got := n.String(); got != "frame > shadow pass" {
		t.Fatalf("unexpected notes %q", got)
	}
	popInner()
	if got := n.Current(); len(got) != 1 || got[0] != "frame" {
		t.Fatalf("unexpected notes after pop: %v", got)
	}
	popOuter()
	if len(n.Current()) != 0 {
		t.Fatalf("expected empty notes")
	}
}

func TestNotesOuterPopDropsSkippedInner(t *testing.T) {
	var n profiling.Notes
	pop := n.Push("frame")
	n.Push("entity")
	pop()
	if len(n.Current()) != 0 {
		t.Fatalf("outer pop should truncate inner notes, got %v", n.Current())
	}
}
