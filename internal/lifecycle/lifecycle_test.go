package lifecycle

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"darkroom/internal/config"
)

func newTestManager(t *testing.T) (*Manager, *config.Config) {
	t.Helper()

	cfg := config.Default()
	root := t.TempDir()
	cfg.Paths.DownloadDir = filepath.Join(root, "downloads")
	cfg.Paths.ProcessedDir = filepath.Join(root, "processed")
	cfg.Paths.ArchiveDir = filepath.Join(root, "archive")
	cfg.Paths.LogDir = filepath.Join(root, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	return NewManager(&cfg, nil), &cfg
}

func writeAged(t *testing.T, path string, age time.Duration) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	stamp := time.Now().Add(-age)
	if err := os.Chtimes(path, stamp, stamp); err != nil {
		t.Fatal(err)
	}
}

func TestArchiveUsesTimestampedName(t *testing.T) {
	m, cfg := newTestManager(t)
	m.now = func() time.Time { return time.Date(2026, 5, 17, 14, 30, 9, 0, time.UTC) }

	src := filepath.Join(cfg.Paths.ProcessedDir, "hero.webp")
	if err := os.WriteFile(src, []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}

	dest, err := m.Archive(src)
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if filepath.Base(dest) != "hero_20260517_143009.webp" {
		t.Fatalf("archive name = %q", filepath.Base(dest))
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatal("source should be moved, not copied")
	}
	if data, err := os.ReadFile(dest); err != nil || string(data) != "payload" {
		t.Fatalf("archived content = %q err=%v", data, err)
	}
}

func TestArchiveDisambiguatesSameSecondCollisions(t *testing.T) {
	m, cfg := newTestManager(t)
	m.now = func() time.Time { return time.Date(2026, 5, 17, 14, 30, 9, 0, time.UTC) }

	var names []string
	for i := 0; i < 3; i++ {
		src := filepath.Join(cfg.Paths.ProcessedDir, "hero.webp")
		if err := os.WriteFile(src, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		dest, err := m.Archive(src)
		if err != nil {
			t.Fatalf("Archive %d: %v", i, err)
		}
		names = append(names, filepath.Base(dest))
	}

	want := []string{
		"hero_20260517_143009.webp",
		"hero_20260517_143009_1.webp",
		"hero_20260517_143009_2.webp",
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names = %v, want %v", names, want)
		}
	}
}

func TestCleanupWorkingRemovesOnlyExpiredFiles(t *testing.T) {
	m, cfg := newTestManager(t)

	old := filepath.Join(cfg.Paths.DownloadDir, "old.jpg")
	fresh := filepath.Join(cfg.Paths.DownloadDir, "fresh.jpg")
	oldProcessed := filepath.Join(cfg.Paths.ProcessedDir, "old.webp")
	writeAged(t, old, 15*24*time.Hour) // default retention is fourteen days
	writeAged(t, fresh, time.Hour)
	writeAged(t, oldProcessed, 15*24*time.Hour)

	archived := filepath.Join(cfg.Paths.ArchiveDir, "kept.webp")
	writeAged(t, archived, 30*24*time.Hour)

	removed := m.CleanupWorking()
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("fresh file removed: %v", err)
	}
	if _, err := os.Stat(archived); err != nil {
		t.Fatal("working sweep must not touch the archive")
	}
}

func TestCleanupArchiveSparesLedgerAndFailureLog(t *testing.T) {
	m, cfg := newTestManager(t)

	expired := filepath.Join(cfg.Paths.ArchiveDir, "hero_20260101_000000.webp")
	writeAged(t, expired, 20*24*time.Hour)
	writeAged(t, cfg.LedgerPath(), 90*24*time.Hour)
	writeAged(t, cfg.FailureLogPath(), 90*24*time.Hour)

	removed := m.CleanupArchive()
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(cfg.LedgerPath()); err != nil {
		t.Fatal("ledger must survive archive sweeps")
	}
	if _, err := os.Stat(cfg.FailureLogPath()); err != nil {
		t.Fatal("failure log must survive archive sweeps")
	}
	if _, err := os.Stat(expired); !os.IsNotExist(err) {
		t.Fatal("expired archive file should be removed")
	}
}

func TestSweepDisabledWhenRetentionZero(t *testing.T) {
	m, cfg := newTestManager(t)
	m.daysToKeep = 0

	old := filepath.Join(cfg.Paths.DownloadDir, "ancient.jpg")
	writeAged(t, old, 365*24*time.Hour)

	if removed := m.CleanupWorking(); removed != 0 {
		t.Fatalf("removed = %d, want 0 when retention disabled", removed)
	}
	if _, err := os.Stat(old); err != nil {
		t.Fatalf("file removed despite disabled retention: %v", err)
	}
}

func TestSweepKeepsFileExactlyAtCutoff(t *testing.T) {
	m, cfg := newTestManager(t)

	fixed := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	atCutoff := filepath.Join(cfg.Paths.DownloadDir, "boundary.jpg")
	if err := os.WriteFile(atCutoff, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	stamp := fixed.AddDate(0, 0, -m.daysToKeep)
	if err := os.Chtimes(atCutoff, stamp, stamp); err != nil {
		t.Fatal(err)
	}

	if removed := m.CleanupWorking(); removed != 0 {
		t.Fatalf("removed = %d, file at cutoff must be kept", removed)
	}
}

func TestSweepIgnoresSubdirectories(t *testing.T) {
	m, cfg := newTestManager(t)

	sub := filepath.Join(cfg.Paths.DownloadDir, "nested")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	stamp := time.Now().Add(-30 * 24 * time.Hour)
	if err := os.Chtimes(sub, stamp, stamp); err != nil {
		t.Fatal(err)
	}

	if removed := m.CleanupWorking(); removed != 0 {
		t.Fatalf("removed = %d", removed)
	}
	if _, err := os.Stat(sub); err != nil {
		t.Fatal("directories must not be swept")
	}
}

func TestArchiveNameKeepsExtension(t *testing.T) {
	m, cfg := newTestManager(t)
	src := filepath.Join(cfg.Paths.ProcessedDir, "banner.webp")
	if err := os.WriteFile(src, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	dest, err := m.Archive(src)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(dest, ".webp") {
		t.Fatalf("dest = %q", dest)
	}
}

func TestArchiveConcurrentSameNameNeverOverwrites(t *testing.T) {
	m, cfg := newTestManager(t)
	m.now = func() time.Time { return time.Date(2026, 5, 17, 14, 30, 9, 0, time.UTC) }

	const workers = 6
	sources := make([]string, workers)
	for i := range sources {
		src := filepath.Join(cfg.Paths.ProcessedDir, fmt.Sprintf("w%d", i), "hero.webp")
		if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(src, []byte(fmt.Sprintf("payload-%d", i)), 0o644); err != nil {
			t.Fatal(err)
		}
		sources[i] = src
	}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		dests = make(map[string]struct{})
	)
	for _, src := range sources {
		wg.Add(1)
		go func(src string) {
			defer wg.Done()
			dest, err := m.Archive(src)
			if err != nil {
				t.Errorf("Archive %s: %v", src, err)
				return
			}
			mu.Lock()
			dests[dest] = struct{}{}
			mu.Unlock()
		}(src)
	}
	wg.Wait()

	if len(dests) != workers {
		t.Fatalf("distinct destinations = %d, want %d", len(dests), workers)
	}
	entries, err := os.ReadDir(cfg.Paths.ArchiveDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != workers {
		t.Fatalf("archive entries = %d, want %d", len(entries), workers)
	}
}
