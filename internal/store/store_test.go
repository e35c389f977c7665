package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestClipLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	if err := s.UpsertClip(ctx, "c1", "c1.json", "INGEST", "running", nil, now); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.SetClipMeta(ctx, "c1", 150, 5.0, now); err != nil {
		t.Fatalf("meta: %v", err)
	}
	if err := s.SetClipPeople(ctx, "c1", `[{"id":0}]`, now); err != nil {
		t.Fatalf("people: %v", err)
	}

	c, err := s.GetClip(ctx, "c1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if c == nil || c.Frames != 150 || c.Duration != 5.0 {
		t.Fatalf("clip = %+v", c)
	}
	if c.PeopleJSON == nil || *c.PeopleJSON != `[{"id":0}]` {
		t.Fatalf("people_json = %v", c.PeopleJSON)
	}

	// Upsert keeps the row, updates the stage.
	if err := s.UpsertClip(ctx, "c1", "c1.json", "ANALYZE", "done", nil, now.Add(time.Second)); err != nil {
		t.Fatalf("upsert again: %v", err)
	}
	c, _ = s.GetClip(ctx, "c1")
	if c.LastStage != "ANALYZE" || c.Frames != 150 {
		t.Fatalf("after upsert: stage=%s frames=%d", c.LastStage, c.Frames)
	}

	missing, err := s.GetClip(ctx, "nope")
	if err != nil || missing != nil {
		t.Fatalf("missing clip = %v, %v", missing, err)
	}
}

func TestAnalysisRoundtrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	a := &Analysis{ID: "a1", ClipID: "c1", Participant: "LEFT", ReportJSON: `{"id":"a1"}`, CreatedAt: now}
	if err := s.SaveAnalysis(ctx, a); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.SaveAnalysis(ctx, &Analysis{ID: "a2", ClipID: "c2", Participant: "RIGHT", ReportJSON: `{}`, CreatedAt: now}); err != nil {
		t.Fatalf("save 2: %v", err)
	}

	got, err := s.GetAnalysis(ctx, "a1")
	if err != nil || got == nil {
		t.Fatalf("get: %v, %v", got, err)
	}
	if got.ReportJSON != `{"id":"a1"}` {
		t.Fatalf("report_json = %q", got.ReportJSON)
	}

	byClip, err := s.ListAnalyses(ctx, "c1", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(byClip) != 1 || byClip[0].ID != "a1" {
		t.Fatalf("filtered list = %+v", byClip)
	}
	all, _ := s.ListAnalyses(ctx, "", 10)
	if len(all) != 2 {
		t.Fatalf("unfiltered list = %d", len(all))
	}

	// Reports are immutable; a second insert under the same id must fail.
	if err := s.SaveAnalysis(ctx, a); err == nil {
		t.Fatal("duplicate analysis id accepted")
	}
}

func TestJobIdempotency(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	j := &Job{ClipID: "c1", Stage: "INGEST", Status: "queued", IdempotencyKey: "k1", CreatedAt: now, UpdatedAt: now}
	first, err := s.InsertJobIdempotent(ctx, j)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	dup := &Job{ClipID: "c1", Stage: "INGEST", Status: "queued", IdempotencyKey: "k1", CreatedAt: now, UpdatedAt: now}
	second, err := s.InsertJobIdempotent(ctx, dup)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	if second.ID != first.ID {
		t.Fatalf("duplicate returned job %d, want existing %d", second.ID, first.ID)
	}
}

func TestJobStateAndLogs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	j, err := s.RecordJob(ctx, &Job{ClipID: "c1", Stage: "ANALYZE", Status: "queued", IdempotencyKey: "k2", CreatedAt: now, UpdatedAt: now})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := s.MarkJobStarted(ctx, j.ID, now); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.MarkJobFinished(ctx, j.ID, "succeeded", now.Add(time.Second)); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if err := s.AppendJobLog(ctx, j.ID, "stage done", now); err != nil {
		t.Fatalf("log: %v", err)
	}

	jobs, err := s.ListJobs(ctx, 10)
	if err != nil || len(jobs) != 1 {
		t.Fatalf("jobs = %v, %v", jobs, err)
	}
	if jobs[0].Status != "succeeded" || jobs[0].StartedAt == nil || jobs[0].FinishedAt == nil {
		t.Fatalf("job = %+v", jobs[0])
	}

	lines, err := s.JobLogs(ctx, j.ID)
	if err != nil || len(lines) != 1 || lines[0] != "stage done" {
		t.Fatalf("logs = %v, %v", lines, err)
	}
}

func TestHealth(t *testing.T) {
	s := openTestStore(t)
	if err := s.Health(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
}
