package publish

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"darkroom/internal/config"
	"darkroom/internal/services"
)

type fakeConn struct {
	dirs      map[string]bool
	stored    map[string]string
	loginErr  error
	storErr   error
	storErrs  int // fail this many Stor calls before succeeding
	quitCalls int
	mkdOrder  []string
}

func newFakeConn(existing ...string) *fakeConn {
	dirs := map[string]bool{"/": true}
	for _, d := range existing {
		dirs[d] = true
	}
	return &fakeConn{dirs: dirs, stored: make(map[string]string)}
}

func (f *fakeConn) Login(user, password string) error { return f.loginErr }

func (f *fakeConn) ChangeDir(path string) error {
	if f.dirs[path] {
		return nil
	}
	return errors.New("550 no such directory")
}

func (f *fakeConn) MakeDir(path string) error {
	f.dirs[path] = true
	f.mkdOrder = append(f.mkdOrder, path)
	return nil
}

func (f *fakeConn) Stor(path string, r io.Reader) error {
	if f.storErrs > 0 {
		f.storErrs--
		return errors.New("426 transfer aborted")
	}
	if f.storErr != nil {
		return f.storErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.stored[path] = string(data)
	return nil
}

func (f *fakeConn) Quit() error {
	f.quitCalls++
	return nil
}

func newTestPublisher(t *testing.T, c *fakeConn) (*Publisher, string) {
	t.Helper()

	cfg := config.Default()
	cfg.Remote.Host = "ftp.example.com"
	cfg.Remote.Username = "sync"
	cfg.Remote.Password = "secret"
	cfg.Remote.RemoteDirectory = "/site/images"
	cfg.Remote.MaxRetries = 2

	p := NewPublisher(&cfg, nil)
	p.policy.BaseDelay = time.Millisecond
	p.dial = func(ctx context.Context, addr string, timeout time.Duration) (conn, error) {
		return c, nil
	}

	local := filepath.Join(t.TempDir(), "hero.webp")
	if err := os.WriteFile(local, []byte("webp bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	return p, local
}

func TestPublishStoresFile(t *testing.T) {
	c := newFakeConn("/site", "/site/images")
	p, local := newTestPublisher(t, c)

	if err := p.Publish(context.Background(), local, "hero.webp"); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if c.stored["hero.webp"] != "webp bytes" {
		t.Fatalf("stored = %v", c.stored)
	}
	if c.quitCalls != 1 {
		t.Fatalf("quit calls = %d", c.quitCalls)
	}
}

func TestPublishCreatesMissingRemoteDirs(t *testing.T) {
	c := newFakeConn() // neither /site nor /site/images exists
	p, local := newTestPublisher(t, c)

	if err := p.Publish(context.Background(), local, "hero.webp"); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	want := []string{"/site", "/site/images"}
	if len(c.mkdOrder) != 2 || c.mkdOrder[0] != want[0] || c.mkdOrder[1] != want[1] {
		t.Fatalf("mkd order = %v, want %v", c.mkdOrder, want)
	}
	if _, ok := c.stored["hero.webp"]; !ok {
		t.Fatal("file not stored after directory creation")
	}
}

func TestPublishRetriesTransientStorFailures(t *testing.T) {
	c := newFakeConn("/site/images")
	c.storErrs = 2
	p, local := newTestPublisher(t, c)

	if err := p.Publish(context.Background(), local, "hero.webp"); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if _, ok := c.stored["hero.webp"]; !ok {
		t.Fatal("expected upload to succeed on third attempt")
	}
	if c.quitCalls != 3 {
		t.Fatalf("quit calls = %d, want one per attempt", c.quitCalls)
	}
}

func TestPublishFailsAfterExhaustingRetries(t *testing.T) {
	c := newFakeConn("/site/images")
	c.storErr = errors.New("451 local error")
	p, local := newTestPublisher(t, c)

	err := p.Publish(context.Background(), local, "hero.webp")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if c.quitCalls != 3 {
		t.Fatalf("quit calls = %d, want 3 attempts", c.quitCalls)
	}
}

func TestPublishMissingLocalFileNotRetried(t *testing.T) {
	c := newFakeConn("/site/images")
	p, _ := newTestPublisher(t, c)

	err := p.Publish(context.Background(), filepath.Join(t.TempDir(), "absent.webp"), "absent.webp")
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
	if c.quitCalls != 1 {
		t.Fatalf("quit calls = %d, missing files must not be retried", c.quitCalls)
	}
}

func TestPublishDialFailure(t *testing.T) {
	cfg := config.Default()
	cfg.Remote.Host = "ftp.example.com"
	cfg.Remote.Username = "sync"
	cfg.Remote.MaxRetries = 0

	p := NewPublisher(&cfg, nil)
	p.policy.BaseDelay = time.Millisecond
	p.dial = func(ctx context.Context, addr string, timeout time.Duration) (conn, error) {
		return nil, errors.New("connection refused")
	}

	local := filepath.Join(t.TempDir(), "hero.webp")
	if err := os.WriteFile(local, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := p.Publish(context.Background(), local, "hero.webp"); err == nil {
		t.Fatal("expected dial error")
	}
}
