// Package history records sync run outcomes in a SQLite database so
// past runs and per-image results can be inspected from the CLI.
package history
