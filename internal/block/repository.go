package block

import (
	"context"
	"errors"
	"time"
)

// Store failure taxonomy. Implementations wrap their transport errors in
// one of these so callers can classify without knowing the backend.
var (
	ErrStoreUnavailable = errors.New("schedule store unavailable")
	ErrUnauthenticated  = errors.New("schedule store authentication failed")
	ErrQuotaExceeded    = errors.New("schedule store quota exceeded")
	ErrServerError      = errors.New("schedule store server error")
	ErrNotFound         = errors.New("time block not found")
)

// Repository defines the persistence collaborator for time blocks. It
// stores raw blocks only; templates come back unexpanded, and expansion
// is the caller's responsibility.
type Repository interface {
	// Save inserts or replaces a block and returns the stored copy.
	Save(ctx context.Context, b *TimeBlock) (*TimeBlock, error)

	// Delete removes a block by identity. Deleting an absent block
	// returns ErrNotFound.
	Delete(ctx context.Context, b *TimeBlock) error

	// BatchSave saves multiple blocks. It is not atomic: items are
	// attempted independently and the successfully stored subset is
	// returned alongside any accumulated error.
	BatchSave(ctx context.Context, blocks []*TimeBlock) ([]*TimeBlock, error)

	// ListByDateRange returns all stored blocks relevant to the
	// inclusive date range: concrete blocks anchored inside it plus
	// every template, since templates may fire anywhere at or after
	// their anchor.
	ListByDateRange(ctx context.Context, start, end time.Time) ([]*TimeBlock, error)

	// Close releases any resources held by the repository.
	Close() error
}
