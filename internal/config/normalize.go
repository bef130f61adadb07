package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDownload()
	c.normalizeRemote()
	c.normalizeRetention()
	c.normalizeSchedule()
	c.normalizeLogging()
	c.normalizeNotifications()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DownloadDir, err = expandPath(c.Paths.DownloadDir); err != nil {
		return fmt.Errorf("paths.download_dir: %w", err)
	}
	if c.Paths.ProcessedDir, err = expandPath(c.Paths.ProcessedDir); err != nil {
		return fmt.Errorf("paths.processed_dir: %w", err)
	}
	if c.Paths.ArchiveDir, err = expandPath(c.Paths.ArchiveDir); err != nil {
		return fmt.Errorf("paths.archive_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDownload() {
	c.Download.UserAgent = strings.TrimSpace(c.Download.UserAgent)
	if c.Download.UserAgent == "" {
		c.Download.UserAgent = defaultUserAgent
	}
	if c.Download.MaxRetries < 0 {
		c.Download.MaxRetries = 0
	}
	if c.Download.Timeout <= 0 {
		c.Download.Timeout = defaultDownloadTimeout
	}
	if c.Download.ForceRedownloadHours < 0 {
		c.Download.ForceRedownloadHours = 0
	}
	if c.Download.RateLimit <= 0 {
		c.Download.RateLimit = defaultDownloadRateLimit
	}
}

func (c *Config) normalizeRemote() {
	c.Remote.Host = strings.TrimSpace(c.Remote.Host)
	c.Remote.Username = strings.TrimSpace(c.Remote.Username)
	if c.Remote.Password == "" {
		if value, ok := os.LookupEnv("DARKROOM_REMOTE_PASSWORD"); ok {
			c.Remote.Password = value
		}
	}
	if c.Remote.Port <= 0 {
		c.Remote.Port = defaultRemotePort
	}
	c.Remote.RemoteDirectory = strings.TrimSpace(c.Remote.RemoteDirectory)
	if c.Remote.RemoteDirectory == "" {
		c.Remote.RemoteDirectory = defaultRemoteDirectory
	}
	if c.Remote.MaxRetries < 0 {
		c.Remote.MaxRetries = 0
	}
	if c.Remote.Timeout <= 0 {
		c.Remote.Timeout = defaultRemoteTimeout
	}
	if c.Remote.ConcurrentUploads <= 0 {
		c.Remote.ConcurrentUploads = defaultConcurrentUploads
	}
}

func (c *Config) normalizeRetention() {
	if c.Retention.DaysToKeep <= 0 {
		c.Retention.DaysToKeep = defaultDaysToKeep
	}
	if c.Retention.ArchiveDays <= 0 {
		c.Retention.ArchiveDays = defaultArchiveDays
	}
}

func (c *Config) normalizeSchedule() {
	if c.Schedule.IntervalMinutes <= 0 {
		c.Schedule.IntervalMinutes = defaultIntervalMinutes
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}
