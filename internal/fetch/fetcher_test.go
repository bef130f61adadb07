package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"darkroom/internal/config"
	"darkroom/internal/items"
	"darkroom/internal/ledger"
	"darkroom/internal/services"
)

func newTestFetcher(t *testing.T, led LedgerReader) (*Fetcher, *config.Config) {
	t.Helper()

	cfg := config.Default()
	root := t.TempDir()
	cfg.Paths.DownloadDir = filepath.Join(root, "downloads")
	cfg.Paths.ProcessedDir = filepath.Join(root, "processed")
	cfg.Paths.ArchiveDir = filepath.Join(root, "archive")
	cfg.Paths.LogDir = filepath.Join(root, "logs")
	cfg.Download.MaxRetries = 2
	cfg.Download.RateLimit = 0

	if led == nil {
		led = ledger.Open("", nil)
	}

	f := NewFetcher(&cfg, led, nil)
	f.policy.BaseDelay = time.Millisecond
	return f, &cfg
}

func digest(payload string) string {
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

func TestFetchDownloadsAndHashes(t *testing.T) {
	const payload = "jpeg bytes"
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	f, cfg := newTestFetcher(t, nil)
	res, err := f.Fetch(context.Background(), items.Spec{URL: srv.URL, Name: "hero.jpg"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.Unchanged {
		t.Fatal("fresh download reported unchanged")
	}
	if res.Hash != digest(payload) {
		t.Fatalf("hash = %q", res.Hash)
	}
	if gotUA != cfg.Download.UserAgent {
		t.Fatalf("user agent = %q", gotUA)
	}

	if filepath.Base(res.Path) != "hero.original" {
		t.Fatalf("artifact name = %q", filepath.Base(res.Path))
	}
	data, err := os.ReadFile(res.Path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if string(data) != payload {
		t.Fatalf("artifact = %q", data)
	}
	if _, err := os.Stat(res.Path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}
}

func TestFetchSkipsRecentUnchangedContent(t *testing.T) {
	const payload = "same bytes"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	led := ledger.Open(filepath.Join(t.TempDir(), "fp.json"), nil)
	if err := led.Record(srv.URL, digest(payload), time.Now()); err != nil {
		t.Fatal(err)
	}

	f, cfg := newTestFetcher(t, led)
	res, err := f.Fetch(context.Background(), items.Spec{URL: srv.URL, Name: "hero.jpg"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !res.Unchanged {
		t.Fatal("expected unchanged result")
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.DownloadDir, "hero.original")); !os.IsNotExist(err) {
		t.Fatalf("unchanged payload should not be promoted: %v", err)
	}
}

func TestFetchRedownloadsWhenWindowLapsed(t *testing.T) {
	const payload = "same bytes"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	led := ledger.Open(filepath.Join(t.TempDir(), "fp.json"), nil)
	stale := time.Now().Add(-7 * time.Hour) // default window is six hours
	if err := led.Record(srv.URL, digest(payload), stale); err != nil {
		t.Fatal(err)
	}

	f, _ := newTestFetcher(t, led)
	res, err := f.Fetch(context.Background(), items.Spec{URL: srv.URL, Name: "hero.jpg"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.Unchanged {
		t.Fatal("stale ledger entry should force a redownload")
	}
	if res.Path == "" {
		t.Fatal("expected promoted artifact path")
	}
}

func TestFetchProceedsWhenHashDiffers(t *testing.T) {
	const payload = "new bytes"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	led := ledger.Open(filepath.Join(t.TempDir(), "fp.json"), nil)
	if err := led.Record(srv.URL, digest("old bytes"), time.Now()); err != nil {
		t.Fatal(err)
	}

	f, _ := newTestFetcher(t, led)
	res, err := f.Fetch(context.Background(), items.Spec{URL: srv.URL, Name: "hero.jpg"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.Unchanged {
		t.Fatal("changed content must be promoted even inside the window")
	}
	if res.Hash != digest(payload) {
		t.Fatalf("hash = %q", res.Hash)
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("eventually fine"))
	}))
	defer srv.Close()

	f, _ := newTestFetcher(t, nil)
	res, err := f.Fetch(context.Background(), items.Spec{URL: srv.URL, Name: "flaky.jpg"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if hits != 3 {
		t.Fatalf("hits = %d, want 3", hits)
	}
	if res.Hash != digest("eventually fine") {
		t.Fatalf("hash = %q", res.Hash)
	}
}

func TestFetchExhaustsRetriesAndLogsFailure(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f, cfg := newTestFetcher(t, nil)
	_, err := f.Fetch(context.Background(), items.Spec{URL: srv.URL, Name: "down.jpg"})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if hits != cfg.Download.MaxRetries+1 {
		t.Fatalf("hits = %d, want %d", hits, cfg.Download.MaxRetries+1)
	}

	data, err := os.ReadFile(cfg.FailureLogPath())
	if err != nil {
		t.Fatalf("read failure log: %v", err)
	}
	if !strings.Contains(string(data), srv.URL) {
		t.Fatalf("failure log missing url: %q", data)
	}
}

func TestFetchLeavesNoPartialArtifactOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		w.Write([]byte("trunc"))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		conn, _, _ := w.(http.Hijacker).Hijack()
		conn.Close()
	}))
	defer srv.Close()

	f, cfg := newTestFetcher(t, nil)
	_, err := f.Fetch(context.Background(), items.Spec{URL: srv.URL, Name: "partial.jpg"})
	if err == nil {
		t.Fatal("expected error from truncated body")
	}

	entries, readErr := os.ReadDir(cfg.Paths.DownloadDir)
	if readErr != nil && !os.IsNotExist(readErr) {
		t.Fatal(readErr)
	}
	for _, e := range entries {
		if e.Name() == "partial.original" {
			t.Fatal("partial payload must not be promoted")
		}
	}
}

func TestFetchValidationErrorStaysOutOfFailureLog(t *testing.T) {
	f, cfg := newTestFetcher(t, nil)

	_, err := f.Fetch(context.Background(), items.Spec{URL: "http://exa mple.com/bad.jpg", Name: "bad.jpg"})
	if err == nil {
		t.Fatal("expected error from malformed locator")
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	if _, statErr := os.Stat(cfg.FailureLogPath()); !os.IsNotExist(statErr) {
		t.Fatalf("failure log must not exist for validation errors: %v", statErr)
	}
}
