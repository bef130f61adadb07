package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"darkroom/internal/logging"
)

// Entry records the fingerprint of the last payload fetched from a URL.
type Entry struct {
	Hash      string    `json:"hash"`
	Timestamp time.Time `json:"timestamp"`
}

// Store provides thread-safe access to the fingerprint ledger.
type Store struct {
	path    string
	logger  *slog.Logger
	mu      sync.RWMutex
	entries map[string]Entry // keyed by source URL
	dirty   bool
}

// Open loads the ledger at path, tolerating a missing file. If path is
// empty the store is non-functional and all operations become no-ops.
func Open(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "ledger")

	s := &Store{
		path:    path,
		logger:  logger,
		entries: make(map[string]Entry),
	}

	if path == "" {
		return s
	}

	if err := s.load(); err != nil {
		logger.Warn("failed to load fingerprint ledger",
			logging.String(logging.FieldEventType, "ledger_load_failed"),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "ledger will start empty"),
			logging.String(logging.FieldImpact, "all images will be re-downloaded this run"))
	}

	return s
}

// Lookup returns the recorded entry for the given URL if present.
func (s *Store) Lookup(url string) (Entry, bool) {
	url = strings.TrimSpace(url)
	if url == "" || s.path == "" {
		return Entry{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, found := s.entries[url]
	return entry, found
}

// Record stores the fingerprint for a URL. The change is buffered in
// memory until Flush is called.
func (s *Store) Record(url, hash string, at time.Time) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return errors.New("ledger url cannot be empty")
	}
	if hash == "" {
		return errors.New("ledger hash cannot be empty")
	}
	if s.path == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[url] = Entry{Hash: hash, Timestamp: at.UTC()}
	s.dirty = true

	s.logger.Debug("recorded fingerprint",
		logging.String("url", url),
		logging.String("hash", hash))

	return nil
}

// Count returns the number of tracked URLs.
func (s *Store) Count() int {
	if s.path == "" {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}

// Flush writes the ledger to disk atomically. It is a no-op when no
// entries changed since the last flush.
func (s *Store) Flush() error {
	if s.path == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}

	if err := s.save(); err != nil {
		return fmt.Errorf("persist ledger: %w", err)
	}
	s.dirty = false

	s.logger.Debug("flushed fingerprint ledger",
		logging.Int("entry_count", len(s.entries)),
		logging.String("path", s.path))

	return nil
}

// diskEntry mirrors Entry with a string timestamp so legacy files that
// stored a bare hash per URL can still be decoded.
type diskEntry struct {
	Hash      string `json:"hash"`
	Timestamp string `json:"timestamp"`
}

// load reads the ledger from disk into memory.
func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil // fresh start
		}
		return fmt.Errorf("read ledger file: %w", err)
	}

	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse ledger file: %w", err)
	}

	now := time.Now().UTC()
	s.entries = make(map[string]Entry, len(raw))
	for url, value := range raw {
		if strings.TrimSpace(url) == "" {
			continue
		}

		var bare string
		if err := json.Unmarshal(value, &bare); err == nil {
			// Legacy format stored just the hash. Stamp it with the
			// load time so the recheck window still applies.
			if bare != "" {
				s.entries[url] = Entry{Hash: bare, Timestamp: now}
			}
			continue
		}

		var de diskEntry
		if err := json.Unmarshal(value, &de); err != nil || de.Hash == "" {
			s.logger.Warn("dropping unrecognized ledger entry",
				logging.String("url", url),
				logging.String(logging.FieldEventType, "ledger_entry_dropped"))
			continue
		}

		ts, err := time.Parse(time.RFC3339, de.Timestamp)
		if err != nil {
			ts = now
		}
		s.entries[url] = Entry{Hash: de.Hash, Timestamp: ts}
	}

	s.logger.Debug("loaded fingerprint ledger",
		logging.Int("entry_count", len(s.entries)),
		logging.String("path", s.path))

	return nil
}

// save writes the ledger to disk atomically.
func (s *Store) save() error {
	out := make(map[string]diskEntry, len(s.entries))
	for url, entry := range s.entries {
		out[url] = diskEntry{
			Hash:      entry.Hash,
			Timestamp: entry.Timestamp.Format(time.RFC3339),
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create ledger directory: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath) // cleanup on failure
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}
