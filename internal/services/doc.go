// Package services defines the cross-cutting plumbing shared by pipeline
// stages: the sentinel error taxonomy used to classify failures, context
// annotations for run/item/stage correlation, and the exponential backoff
// retry policy applied to unreliable network operations.
package services
