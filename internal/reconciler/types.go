// Package reconciler detects missing and stale star systems in the store
// and refreshes them from the remote dump API.
package reconciler

import (
	"time"
)

// Mode selects which candidate population a run reconciles.
type Mode string

const (
	// ModeMissing targets systems referenced by report tables but absent
	// from the store. Fetched documents are always accepted.
	ModeMissing Mode = "missing"

	// ModeIncomplete targets stored systems whose bodies_match flag is not
	// set. Fetched documents are accepted only when the body counts differ
	// from the stored summary.
	ModeIncomplete Mode = "incomplete"
)

// FetchStats summarizes one evaluation pass over a candidate page.
type FetchStats struct {
	Fetched     int // documents retrieved from the dump API
	Accepted    int // documents queued for upsert
	Unchanged   int // incomplete candidates whose counts matched the store
	Unavailable int // non-200 responses, skipped this run
	Skipped     int // skipped via the snapshot index without fetching
}

// UpsertStats summarizes one batched write.
type UpsertStats struct {
	SystemsInBatch int
	BodiesInBatch  int
	SystemsWritten int64 // affected rows as reported by the driver
	BodiesWritten  int64
}

// RunResult contains statistics and status for one reconciliation run.
type RunResult struct {
	RunID       string
	Mode        Mode
	DryRun      bool
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	Candidates  int
	Batches     int
	Fetch       FetchStats
	Upsert      UpsertStats
}
