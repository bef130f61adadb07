package history

import "time"

// ItemStatus describes the outcome of one image within a run.
type ItemStatus string

const (
	StatusUploaded  ItemStatus = "uploaded"
	StatusUnchanged ItemStatus = "unchanged"
	StatusFailed    ItemStatus = "failed"
)

// Run summarizes one sync run.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Finished   bool
	Total      int
	Succeeded  int
	Skipped    int
	Failed     int
}

// ItemRecord captures the outcome of a single image.
type ItemRecord struct {
	Name       string
	URL        string
	Status     ItemStatus
	Detail     string
	Hash       string
	Duration   time.Duration
	RecordedAt time.Time
}
