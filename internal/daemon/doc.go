// Package daemon runs the sync workflow on a schedule. It enforces
// single-instance execution through a lock file, triggers an immediate
// run on startup, repeats at the configured interval, and sweeps the
// archive shortly after midnight each day.
package daemon
