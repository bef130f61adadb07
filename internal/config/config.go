package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration for the three storage tiers plus logs.
type Paths struct {
	DownloadDir  string `toml:"download_dir"`
	ProcessedDir string `toml:"processed_dir"`
	ArchiveDir   string `toml:"archive_dir"`
	LogDir       string `toml:"log_dir"`
}

// Download contains configuration for fetching remote images.
type Download struct {
	UserAgent            string  `toml:"user_agent"`
	MaxRetries           int     `toml:"max_retries"`
	Timeout              int     `toml:"timeout"`
	ForceRedownloadHours int     `toml:"force_redownload_hours"`
	RateLimit            float64 `toml:"rate_limit"`
}

// Remote contains configuration for the FTP file store uploads target.
type Remote struct {
	Host              string `toml:"host"`
	Port              int    `toml:"port"`
	Username          string `toml:"username"`
	Password          string `toml:"password"`
	RemoteDirectory   string `toml:"remote_directory"`
	MaxRetries        int    `toml:"max_retries"`
	Timeout           int    `toml:"timeout"`
	ConcurrentUploads int    `toml:"concurrent_uploads"`
}

// Retention contains the two-tier artifact expiry windows.
type Retention struct {
	DaysToKeep        int  `toml:"days_to_keep"`
	ArchiveDays       int  `toml:"archive_days"`
	CleanupOnStart    bool `toml:"cleanup_on_start"`
	DeleteAfterUpload bool `toml:"delete_after_upload"`
}

// Schedule contains daemon timing configuration.
type Schedule struct {
	IntervalMinutes int `toml:"interval_minutes"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Config encapsulates all configuration values for darkroom.
//
// Images holds the configured item list. Each element is either a bare
// locator string or a table with url/source, filename, and settings keys;
// items.Normalize turns the raw values into typed specs. Processing holds
// the default transform settings that per-item settings override.
type Config struct {
	Paths         Paths          `toml:"paths"`
	Images        []any          `toml:"images"`
	Download      Download       `toml:"download"`
	Processing    map[string]any `toml:"processing"`
	Remote        Remote         `toml:"remote"`
	Retention     Retention      `toml:"retention"`
	Schedule      Schedule       `toml:"schedule"`
	Logging       Logging        `toml:"logging"`
	Notifications Notifications  `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/darkroom/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("darkroom.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the working, archive, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DownloadDir, c.Paths.ProcessedDir, c.Paths.ArchiveDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// WorkingDirs returns the directories subject to the shorter retention
// window. The archive dir is deliberately excluded.
func (c *Config) WorkingDirs() []string {
	return []string{c.Paths.DownloadDir, c.Paths.ProcessedDir}
}

// LedgerPath returns the location of the fingerprint ledger document.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.Paths.ArchiveDir, "fingerprints.json")
}

// FailureLogPath returns the location of the append-only download failure log.
func (c *Config) FailureLogPath() string {
	return filepath.Join(c.Paths.ArchiveDir, "download_failures.log")
}

// HistoryDBPath returns the location of the sqlite run history database.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.Paths.LogDir, "history.db")
}

// DownloadTimeout returns the per-request fetch timeout.
func (c *Config) DownloadTimeout() time.Duration {
	return time.Duration(c.Download.Timeout) * time.Second
}

// RemoteTimeout returns the per-connection upload timeout.
func (c *Config) RemoteTimeout() time.Duration {
	return time.Duration(c.Remote.Timeout) * time.Second
}

// ForceRecheckWindow returns the duration during which an unchanged
// fingerprint short-circuits reprocessing.
func (c *Config) ForceRecheckWindow() time.Duration {
	return time.Duration(c.Download.ForceRedownloadHours) * time.Hour
}

// SyncInterval returns the pause between scheduled runs.
func (c *Config) SyncInterval() time.Duration {
	return time.Duration(c.Schedule.IntervalMinutes) * time.Minute
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
