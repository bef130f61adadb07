// Package fetch downloads source images over HTTP. Payloads are
// streamed to a temporary file while being hashed, compared against the
// fingerprint ledger, and promoted atomically into the download
// directory only when their content changed or the recheck window has
// lapsed. Failed downloads are retried with exponential backoff and
// recorded in an append-only failure log.
package fetch
