package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable. Remote credentials are only
// required when a remote host is configured, so read-only commands work
// against a default config; commands that publish check RequireRemote.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateDownload(); err != nil {
		return err
	}
	if err := c.validateRemote(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

// RequireRemote enforces the remote-store settings a sync run cannot work
// without. This is the fatal startup check: a missing host or username
// aborts before any item is processed.
func (c *Config) RequireRemote() error {
	if c.Remote.Host == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/darkroom/config.toml"
		}
		return fmt.Errorf("remote.host is required: edit %s (create with 'darkroom config init')", defaultPath)
	}
	if c.Remote.Username == "" {
		return errors.New("remote.username is required")
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DownloadDir) == "" {
		return errors.New("paths.download_dir must be set")
	}
	if strings.TrimSpace(c.Paths.ProcessedDir) == "" {
		return errors.New("paths.processed_dir must be set")
	}
	if strings.TrimSpace(c.Paths.ArchiveDir) == "" {
		return errors.New("paths.archive_dir must be set")
	}
	if c.Paths.ArchiveDir == c.Paths.DownloadDir || c.Paths.ArchiveDir == c.Paths.ProcessedDir {
		return errors.New("paths.archive_dir must be distinct from the working directories")
	}
	return nil
}

func (c *Config) validateDownload() error {
	return ensurePositiveMap(map[string]int{
		"download.timeout": c.Download.Timeout,
	})
}

func (c *Config) validateRemote() error {
	if err := ensurePositiveMap(map[string]int{
		"remote.port":               c.Remote.Port,
		"remote.timeout":            c.Remote.Timeout,
		"remote.concurrent_uploads": c.Remote.ConcurrentUploads,
	}); err != nil {
		return err
	}
	if c.Remote.Port > 65535 {
		return errors.New("remote.port must be a valid TCP port")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
