package preflight

import (
	"context"

	"darkroom/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// The FTP check is only run when a remote host is configured.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Download directory", cfg.Paths.DownloadDir))
	results = append(results, CheckDirectoryAccess("Processed directory", cfg.Paths.ProcessedDir))
	results = append(results, CheckDirectoryAccess("Archive directory", cfg.Paths.ArchiveDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))

	results = append(results, CheckDiskSpace("Disk space", cfg.Paths.DownloadDir, minFreeBytes))

	if cfg.Remote.Host != "" {
		results = append(results, CheckRemoteReachable(ctx, cfg))
	}

	return results
}
