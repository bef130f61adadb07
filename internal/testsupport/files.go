package testsupport

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
)

// WriteFile fills the target path with the given content, creating
// parent directories as needed.
func WriteFile(t testing.TB, path string, content []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteImage writes a small solid-color image to path, inferring the
// encoding from the extension.
func WriteImage(t testing.TB, path string, width, height int) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	img := imaging.New(width, height, color.NRGBA{R: 90, G: 140, B: 60, A: 255})
	if err := imaging.Save(img, path); err != nil {
		t.Fatalf("save image %s: %v", path, err)
	}
}

// ImageBytes returns an encoded image payload for serving from test
// HTTP handlers.
func ImageBytes(t testing.TB, width, height int) []byte {
	t.Helper()

	path := filepath.Join(t.TempDir(), "payload.png")
	WriteImage(t, path, width, height)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read image payload: %v", err)
	}
	return data
}
