// Package journal records the outcome of applied command batches and
// produces the human-facing summaries sent to the other parent.
package journal

import (
	"context"
	"time"
)

// Outcome classifies how a batch apply went.
type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	OutcomePartial Outcome = "partial"
	OutcomeFailed  Outcome = "failed"
)

// Entry is one audit record: a command, what it became, and how the
// apply went.
type Entry struct {
	ID          int64
	BatchID     string
	CommandText string
	Summary     string
	Outcome     Outcome
	Succeeded   int
	Failed      int
	CreatedAt   time.Time
}

// Store persists audit entries.
type Store interface {
	// Append records one entry, setting its ID.
	Append(ctx context.Context, e *Entry) error

	// List returns the most recent entries, newest first, up to limit.
	// A non-positive limit returns everything.
	List(ctx context.Context, limit int) ([]*Entry, error)

	// Clear removes all entries.
	Clear(ctx context.Context) error
}
