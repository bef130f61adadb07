package config

const (
	defaultDownloadDir          = "~/.local/share/darkroom/downloads"
	defaultProcessedDir         = "~/.local/share/darkroom/processed"
	defaultArchiveDir           = "~/.local/share/darkroom/archive"
	defaultLogDir               = "~/.local/share/darkroom/logs"
	defaultUserAgent            = "darkroom/1.0"
	defaultDownloadMaxRetries   = 2
	defaultDownloadTimeout      = 30
	defaultForceRedownloadHours = 6
	defaultDownloadRateLimit    = 4.0
	defaultRemotePort           = 21
	defaultRemoteDirectory      = "/"
	defaultRemoteMaxRetries     = 2
	defaultRemoteTimeout        = 30
	defaultConcurrentUploads    = 5
	defaultDaysToKeep           = 14
	defaultArchiveDays          = 14
	defaultIntervalMinutes      = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultNotifyTimeout        = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DownloadDir:  defaultDownloadDir,
			ProcessedDir: defaultProcessedDir,
			ArchiveDir:   defaultArchiveDir,
			LogDir:       defaultLogDir,
		},
		Download: Download{
			UserAgent:            defaultUserAgent,
			MaxRetries:           defaultDownloadMaxRetries,
			Timeout:              defaultDownloadTimeout,
			ForceRedownloadHours: defaultForceRedownloadHours,
			RateLimit:            defaultDownloadRateLimit,
		},
		Processing: map[string]any{
			"max_processing_dimension": int64(4000),
			"resize_to":                []any{int64(1920), int64(1920)},
			"quality":                  int64(60),
		},
		Remote: Remote{
			Port:              defaultRemotePort,
			RemoteDirectory:   defaultRemoteDirectory,
			MaxRetries:        defaultRemoteMaxRetries,
			Timeout:           defaultRemoteTimeout,
			ConcurrentUploads: defaultConcurrentUploads,
		},
		Retention: Retention{
			DaysToKeep:        defaultDaysToKeep,
			ArchiveDays:       defaultArchiveDays,
			CleanupOnStart:    true,
			DeleteAfterUpload: true,
		},
		Schedule: Schedule{
			IntervalMinutes: defaultIntervalMinutes,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
	}
}
