package sched_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"mini-engine/internal/sched"
)

func TestSyncTickRunsInOrder(t *testing.T) {
	s := sched.New(sched.Options{})
	defer s.Shutdown()
	var got []int
	for i := range 3 {
		s.ScheduleSync(func() { got = append(got, i) })
	}
	if n := s.RunSyncTick(); n != 3 {
		t.Fatalf("ran %d tasks", n)
	}
	if !slices.Equal(got, []int{0, 1, 2}) {
		t.Fatalf("order = %v", got)
	}
	if s.RunSyncTick() != 0 {
		t.Fatal("tasks must run once")
	}
}

func TestTasksScheduledDuringTickWait(t *testing.T) {
	s := sched.New(sched.Options{})
	defer s.Shutdown()
	ran := 0
	s.ScheduleSync(func() {
		s.ScheduleSync(func() { ran++ })
	})
	s.RunSyncTick()
	if ran != 0 || s.Pending() != 1 {
		t.Fatalf("nested task ran early: ran=%d pending=%d", ran, s.Pending())
	}
	s.RunSyncTick()
	if ran != 1 {
		t.Fatal("nested task did not run on the next tick")
	}
}

func TestSyncPanicIsContained(t *testing.T) {
	s := sched.New(sched.Options{})
	defer s.Shutdown()
	after := false
	s.ScheduleSync(func() { panic("bad task") })
	s.ScheduleSync(func() { after = true })
	s.RunSyncTick()
	if !after {
		t.Fatal("a panicking task stopped the tick")
	}
}

func TestAsyncQueueFull(t *testing.T) {
	s := sched.New(sched.Options{Workers: 1})
	release := make(chan struct{})
	started := make(chan struct{})
	if err := s.StartAsync(func(context.Context) error {
		close(started)
		<-release
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	<-started
	if err := s.StartAsync(func(context.Context) error { return nil }); !errors.Is(err, sched.ErrQueueFull) {
		t.Fatalf("StartAsync = %v, want ErrQueueFull", err)
	}
	close(release)
	if err := s.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if err := s.StartAsync(func(context.Context) error { return nil }); !errors.Is(err, sched.ErrStopped) {
		t.Fatalf("StartAsync after Shutdown = %v", err)
	}
}

func TestShutdownCancelsAndWaits(t *testing.T) {
	s := sched.New(sched.Options{Workers: 2})
	started := make(chan struct{})
	done := false
	if err := s.StartAsync(func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		done = true
		return ctx.Err()
	}); err != nil {
		t.Fatal(err)
	}
	<-started
	if err := s.Shutdown(); err != nil {
		t.Fatalf("cancellation must not be reported: %v", err)
	}
	if !done {
		t.Fatal("Shutdown returned before the task finished")
	}
}

func TestAsyncErrorAndHandoff(t *testing.T) {
	s := sched.New(sched.Options{Workers: 2})
	boom := errors.New("decode failed")
	if err := s.StartAsync(func(context.Context) error { return boom }); err != nil {
		t.Fatal(err)
	}
	uploaded := false
	if err := s.StartAsync(func(context.Context) error {
		s.ScheduleSync(func() { uploaded = true })
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if err := s.Shutdown(); !errors.Is(err, boom) {
		t.Fatalf("Shutdown = %v, want %v", err, boom)
	}
	s.RunSyncTick()
	if !uploaded {
		t.Fatal("sync task scheduled from a worker did not run")
	}
}
