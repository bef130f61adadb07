package fetch

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FailureLog appends download failures to a plain text file so repeated
// offenders are visible without trawling structured logs.
type FailureLog struct {
	path string
	mu   sync.Mutex
}

// NewFailureLog returns a log writing to path. An empty path disables
// the log.
func NewFailureLog(path string) *FailureLog {
	return &FailureLog{path: path}
}

// Append records one failed download. Errors opening or writing the log
// are returned but callers typically only log them.
func (l *FailureLog) Append(url string, cause error) error {
	if l == nil || l.path == "" {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create failure log directory: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open failure log: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("%s\t%s\t%v\n", time.Now().UTC().Format(time.RFC3339), url, cause)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write failure log: %w", err)
	}
	return nil
}
