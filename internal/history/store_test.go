package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"darkroom/internal/config"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	cfg := config.Default()
	root := t.TempDir()
	cfg.Paths.DownloadDir = filepath.Join(root, "downloads")
	cfg.Paths.ProcessedDir = filepath.Join(root, "processed")
	cfg.Paths.ArchiveDir = filepath.Join(root, "archive")
	cfg.Paths.LogDir = filepath.Join(root, "logs")

	store, err := Open(&cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRunLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	started := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	if err := store.BeginRun(ctx, "run-1", started); err != nil {
		t.Fatalf("BeginRun: %v", err)
	}

	if err := store.RecordItem(ctx, "run-1", ItemRecord{
		Name:     "hero.jpg",
		URL:      "https://example.com/hero.jpg",
		Status:   StatusUploaded,
		Hash:     "abc",
		Duration: 1200 * time.Millisecond,
	}); err != nil {
		t.Fatalf("RecordItem: %v", err)
	}
	if err := store.RecordItem(ctx, "run-1", ItemRecord{
		Name:   "banner.jpg",
		URL:    "https://example.com/banner.jpg",
		Status: StatusFailed,
		Detail: "unexpected status 502",
	}); err != nil {
		t.Fatalf("RecordItem: %v", err)
	}

	finished := started.Add(2 * time.Minute)
	if err := store.FinishRun(ctx, "run-1", finished, 2, 1, 0, 1); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	runs, err := store.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("runs = %d", len(runs))
	}
	run := runs[0]
	if run.ID != "run-1" || !run.Finished || run.Total != 2 || run.Succeeded != 1 || run.Failed != 1 {
		t.Fatalf("run = %+v", run)
	}
	if !run.StartedAt.Equal(started) || !run.FinishedAt.Equal(finished) {
		t.Fatalf("timestamps = %v / %v", run.StartedAt, run.FinishedAt)
	}

	records, err := store.ItemsForRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("ItemsForRun: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d", len(records))
	}
	if records[0].Name != "hero.jpg" || records[0].Status != StatusUploaded || records[0].Duration != 1200*time.Millisecond {
		t.Fatalf("first record = %+v", records[0])
	}
	if records[1].Status != StatusFailed || records[1].Detail != "unexpected status 502" {
		t.Fatalf("second record = %+v", records[1])
	}
}

func TestRecentRunsOrderAndLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		id := string(rune('a' + i))
		if err := store.BeginRun(ctx, id, base.Add(time.Duration(i)*time.Hour)); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := store.RecentRuns(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 3 {
		t.Fatalf("runs = %d", len(runs))
	}
	if runs[0].ID != "e" || runs[2].ID != "c" {
		t.Fatalf("order = %v, %v, %v", runs[0].ID, runs[1].ID, runs[2].ID)
	}
}

func TestFinishRunUnknownID(t *testing.T) {
	store := newTestStore(t)
	if err := store.FinishRun(context.Background(), "missing", time.Now(), 0, 0, 0, 0); err == nil {
		t.Fatal("expected error for unknown run")
	}
}

func TestUnfinishedRunReported(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.BeginRun(ctx, "open", time.Now()); err != nil {
		t.Fatal(err)
	}
	runs, err := store.RecentRuns(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Finished {
		t.Fatalf("runs = %+v", runs)
	}
}
