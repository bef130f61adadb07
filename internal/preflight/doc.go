// Package preflight verifies the local and remote environment before a
// sync run: directory permissions, free disk space, and FTP
// reachability.
package preflight
