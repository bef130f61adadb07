// Package lifecycle manages artifact retention. Uploaded derivatives
// are archived under timestamped names, working directories are pruned
// of files older than the retention window, and the archive itself is
// swept on a separate schedule while sparing the ledger and failure
// log.
package lifecycle
