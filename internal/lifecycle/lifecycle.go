package lifecycle

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"darkroom/internal/config"
	"darkroom/internal/fileutil"
	"darkroom/internal/logging"
	"darkroom/internal/services"
)

// Manager prunes expired artifacts and archives uploaded derivatives.
type Manager struct {
	workingDirs []string
	archiveDir  string
	daysToKeep  int
	archiveDays int
	exclude     []string
	logger      *slog.Logger
	now         func() time.Time
}

// NewManager builds a manager from the retention configuration. The
// ledger and failure log live in the archive directory and are never
// swept.
func NewManager(cfg *config.Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		workingDirs: cfg.WorkingDirs(),
		archiveDir:  cfg.Paths.ArchiveDir,
		daysToKeep:  cfg.Retention.DaysToKeep,
		archiveDays: cfg.Retention.ArchiveDays,
		exclude:     []string{cfg.LedgerPath(), cfg.FailureLogPath()},
		logger:      logging.NewComponentLogger(logger, "lifecycle"),
		now:         time.Now,
	}
}

// Archive moves an uploaded derivative into the archive directory under
// a timestamped name and returns the destination path. Names that
// collide within the same second get a numeric suffix.
func (m *Manager) Archive(processedPath string) (string, error) {
	if err := os.MkdirAll(m.archiveDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "lifecycle", "archive", "create archive directory", err)
	}

	base := filepath.Base(processedPath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	stamp := m.now().Format("20060102_150405")

	// Claim the destination name with an exclusive create so two workers
	// archiving the same base name in the same second cannot pick the same
	// slot; the rename below replaces the placeholder.
	dest := filepath.Join(m.archiveDir, fmt.Sprintf("%s_%s%s", stem, stamp, ext))
	for i := 1; ; i++ {
		claim, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			claim.Close()
			break
		}
		if !os.IsExist(err) {
			return "", services.Wrap(services.ErrTransient, "lifecycle", "archive",
				fmt.Sprintf("claim archive slot for %s", base), err)
		}
		dest = filepath.Join(m.archiveDir, fmt.Sprintf("%s_%s_%d%s", stem, stamp, i, ext))
	}

	if err := fileutil.Move(processedPath, dest); err != nil {
		os.Remove(dest)
		return "", services.Wrap(services.ErrTransient, "lifecycle", "archive",
			fmt.Sprintf("archive %s", base), err)
	}

	m.logger.Info("archived derivative",
		logging.String("source", processedPath),
		logging.String("destination", dest))
	return dest, nil
}

// CleanupWorking removes files older than the working retention window
// from the download and processed directories. It returns the number of
// files removed.
func (m *Manager) CleanupWorking() int {
	return m.sweep(m.workingDirs, m.daysToKeep, nil)
}

// CleanupArchive removes expired files from the archive directory,
// sparing the ledger and failure log. It returns the number of files
// removed.
func (m *Manager) CleanupArchive() int {
	return m.sweep([]string{m.archiveDir}, m.archiveDays, m.exclude)
}

// sweep deletes regular files strictly older than the cutoff. A
// retention of 0 or less disables the sweep.
func (m *Manager) sweep(dirs []string, retentionDays int, exclude []string) int {
	if retentionDays <= 0 {
		return 0
	}
	cutoff := m.now().AddDate(0, 0, -retentionDays)

	exclusions := make(map[string]struct{}, len(exclude))
	for _, path := range exclude {
		if trimmed := strings.TrimSpace(path); trimmed != "" {
			if abs, err := filepath.Abs(trimmed); err == nil {
				exclusions[abs] = struct{}{}
			}
		}
	}

	removed := 0
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			fullPath := filepath.Join(dir, entry.Name())
			if abs, err := filepath.Abs(fullPath); err == nil {
				fullPath = abs
			}
			if _, skip := exclusions[fullPath]; skip {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			if !info.ModTime().Before(cutoff) {
				continue
			}
			if err := os.Remove(fullPath); err != nil {
				logging.WarnWithContext(m.logger, "retention remove failed; file remains", "retention_remove_failed",
					logging.String("path", fullPath),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check file permissions and directory ownership"),
					logging.String(logging.FieldImpact, "expired file remains on disk"))
				continue
			}
			removed++
			m.logger.Info("removed expired file",
				logging.String("path", fullPath),
				logging.String(logging.FieldEventType, "file_pruned"))
		}
	}
	return removed
}
