// Package publish uploads processed derivatives to the remote host
// over FTP. Each upload dials a fresh session, ensures the remote
// directory exists, and stores the file, retrying transient failures
// with exponential backoff.
package publish
