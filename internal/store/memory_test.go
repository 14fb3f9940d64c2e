package store

import (
	"errors"
	"testing"
	"time"
)

func TestMemoryStoreSaveAndUpdate(t *testing.T) {
	s := NewMemoryStore(10, 0)

	run := Run{ID: "r1", Name: "crimson-otter", Flow: "weather-flow", Status: StatusRunning, StartedAt: time.Now().UTC()}
	s.SaveRun(run)

	run.Status = StatusCompleted
	run.Steps = []StepRecord{{Name: "get-weather-info", Status: StatusCompleted}}
	s.SaveRun(run)

	got, err := s.GetRun("r1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Status != StatusCompleted || len(got.Steps) != 1 {
		t.Fatalf("run was not updated in place: %+v", got)
	}

	runs, err := s.ListRuns("weather-flow")
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
}

func TestMemoryStoreRetentionByCount(t *testing.T) {
	s := NewMemoryStore(2, 0)
	now := time.Now().UTC()
	for i, id := range []string{"a", "b", "c"} {
		s.SaveRun(Run{ID: id, Flow: "f", StartedAt: now.Add(time.Duration(i) * time.Second)})
	}

	runs, err := s.ListRuns("f")
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "c" || runs[1].ID != "b" {
		t.Fatalf("unexpected runs after retention: %+v", runs)
	}
	if _, err := s.GetRun("a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected oldest run to be evicted, got %v", err)
	}
}

func TestMemoryStoreRetentionByAge(t *testing.T) {
	s := NewMemoryStore(0, time.Hour)
	now := time.Now().UTC()
	s.SaveRun(Run{ID: "old", Flow: "f", StartedAt: now.Add(-2 * time.Hour)})
	s.SaveRun(Run{ID: "new", Flow: "f", StartedAt: now})

	runs, err := s.ListRuns("f")
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "new" {
		t.Fatalf("unexpected runs after age retention: %+v", runs)
	}
}

func TestMemoryStoreNotFound(t *testing.T) {
	s := NewMemoryStore(0, 0)
	if _, err := s.GetRun("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.ListRuns("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
