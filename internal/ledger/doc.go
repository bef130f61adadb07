// Package ledger persists content fingerprints for previously fetched
// images. The ledger maps each source URL to the SHA-256 digest of the
// last payload retrieved from it plus the time of that retrieval, which
// lets the fetch stage skip downloads whose content has not changed.
//
// Mutations are buffered in memory and written to disk in a single
// atomic flush at the end of a run.
package ledger
