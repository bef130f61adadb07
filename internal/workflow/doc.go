// Package workflow orchestrates a sync run: retention sweeps, item
// normalization, and the fetch, transform, publish pipeline executed by
// a bounded worker pool. Results are tallied into a run summary and
// recorded in history.
package workflow
