package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestScheduler_AddListRemove(t *testing.T) {
	s, err := New("UTC", zap.NewNop())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	noop := func(context.Context) error { return nil }

	if err := s.AddJob("weekly", "0 9 * * 1", noop); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.AddJob("daily", "@daily", noop); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.AddJob("daily", "@daily", noop); err == nil {
		t.Fatalf("expected duplicate error")
	}
	if err := s.AddJob("bad", "not a schedule", noop); err == nil {
		t.Fatalf("expected parse error")
	}

	s.Start()
	defer s.Stop()

	jobs := s.ListJobs()
	if len(jobs) != 2 || jobs[0].Name != "daily" || jobs[1].Name != "weekly" {
		t.Fatalf("jobs=%+v", jobs)
	}
	if jobs[1].NextRun.Weekday() != time.Monday {
		t.Fatalf("weekly next run %v", jobs[1].NextRun)
	}

	s.RemoveJob("daily")
	if jobs := s.ListJobs(); len(jobs) != 1 {
		t.Fatalf("jobs after remove=%+v", jobs)
	}
}

func TestScheduler_InvalidTimezone(t *testing.T) {
	if _, err := New("Mars/Olympus", zap.NewNop()); err == nil {
		t.Fatalf("expected timezone error")
	}
}

func TestScheduler_RunNowTimeout(t *testing.T) {
	s, _ := New("UTC", zap.NewNop())
	s.SetTimeout(10 * time.Millisecond)

	err := s.RunNow("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err=%v", err)
	}
}
