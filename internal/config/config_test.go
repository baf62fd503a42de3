package config_test

import (
	"testing"

	"mini-engine/internal/config"
)

func TestSettingsClampPixelation(t *testing.T) {
	s := config.NewSettings(config.DefaultRender())
	s.SetPixelation(0)
	if got := s.GetPixelation(); got != 1 {
		t.Fatalf("expected pixelation clamped to 1, got %d", got)
	}
	s.SetPixelation(99)
	if got := s.GetPixelation(); got != 16 {
		t.Fatalf("expected pixelation clamped to 16, got %d", got)
	}
}

func TestSettingsClampFPSLimit(t *testing.T) {
	s := config.NewSettings(config.DefaultRender())
	s.SetFPSLimit(-5)
	if got := s.GetFPSLimit(); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	s.SetFPSLimit(5000)
	if got := s.GetFPSLimit(); got != 1000 {
		t.Fatalf("expected 1000, got %d", got)
	}
}

func TestShadowTexSizeRoundsToPowerOfTwo(t *testing.T) {
	cases := map[int]int{1: 128, 1000: 1024, 1024: 1024, 3000: 4096, 100000: 8192}
	for in, want := range cases {
		r := config.DefaultRender()
		r.ShadowTexSize = in
		s := config.NewSettings(r)
		if got := s.Snapshot().ShadowTexSize; got != want {
			t.Errorf("ShadowTexSize %d: want %d, got %d", in, want, got)
		}
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s := config.NewSettings(config.DefaultRender())
	snap := s.Snapshot()
	snap.Deferred = false
	if !s.Snapshot().Deferred {
		t.Fatalf("mutating a snapshot leaked into settings")
	}
	s.Update(func(r *config.Render) { r.HDR = false })
	if s.Snapshot().HDR {
		t.Fatalf("Update did not apply")
	}
}

func TestDefaultTuning(t *testing.T) {
	tu := config.DefaultTuning()
	if tu.GodraySamples != 35 {
		t.Fatalf("expected 35 godray samples, got %d", tu.GodraySamples)
	}
	if tu.ExposureMin >= tu.ExposureMax {
		t.Fatalf("exposure bounds inverted")
	}
}
