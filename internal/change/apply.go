package change

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/johnh2o2/coparent-sub000/internal/block"
	"github.com/johnh2o2/coparent-sub000/internal/slot"
)

// ApplyResult aggregates per-item outcomes of one batch apply.
type ApplyResult struct {
	Deleted       []*block.TimeBlock
	FailedDeletes []*block.TimeBlock
	Saved         []*block.TimeBlock
	FailedSaves   []*block.TimeBlock

	// Err is set when a fatal error aborted the remaining apply steps.
	// Per-item failures are recorded above, never here.
	Err error
}

// TotalSucceeded returns the number of items that applied.
func (r *ApplyResult) TotalSucceeded() int {
	return len(r.Deleted) + len(r.Saved)
}

// TotalFailed returns the number of items that did not apply.
func (r *ApplyResult) TotalFailed() int {
	return len(r.FailedDeletes) + len(r.FailedSaves)
}

// IsFullSuccess reports that every item applied and no fatal error occurred.
func (r *ApplyResult) IsFullSuccess() bool {
	return r.TotalFailed() == 0 && r.Err == nil
}

// IsPartialSuccess reports that some items applied and some did not.
func (r *ApplyResult) IsPartialSuccess() bool {
	return r.TotalSucceeded() > 0 && (r.TotalFailed() > 0 || r.Err != nil)
}

// IsTotalFailure reports that nothing applied and something failed.
func (r *ApplyResult) IsTotalFailure() bool {
	return r.TotalSucceeded() == 0 && (r.TotalFailed() > 0 || r.Err != nil)
}

// AffectedRange returns the inclusive day span touched by the apply,
// for callers refreshing their view. ok is false when nothing applied.
func (r *ApplyResult) AffectedRange() (start, end time.Time, ok bool) {
	touch := func(day time.Time) {
		if !ok {
			start, end, ok = day, day, true
			return
		}
		if day.Before(start) {
			start = day
		}
		if day.After(end) {
			end = day
		}
	}
	for _, b := range r.Deleted {
		touch(b.Day)
	}
	for _, b := range r.Saved {
		touch(b.Day)
	}
	return start, end, ok
}

// Applier runs batches against the repository inside the configured
// care window.
type Applier struct {
	repo     block.Repository
	window   slot.CareWindow
	resolver *Resolver
}

// NewApplier creates an Applier.
func NewApplier(repo block.Repository, window slot.CareWindow) *Applier {
	return &Applier{
		repo:     repo,
		window:   window,
		resolver: NewResolver(repo),
	}
}

// ApplyAll applies a batch in order: delete every removal target, filter
// the proposed blocks to valid (positive-duration) ones, clamp them to
// the care window, resolve conflicts against post-delete stored state,
// then persist. Every delete and save is attempted independently; a
// per-item failure is recorded and does not stop sibling items. A fatal
// error outside the per-item calls (the snapshot fetch) aborts the
// remaining steps, with the result still reporting what succeeded
// beforehand.
func (a *Applier) ApplyAll(ctx context.Context, batch *Batch) *ApplyResult {
	result := &ApplyResult{}

	// Step 1: deletes. An already-absent block counts as deleted.
	for _, b := range batch.ToDelete() {
		err := a.repo.Delete(ctx, b)
		if err != nil && !errors.Is(err, block.ErrNotFound) {
			result.FailedDeletes = append(result.FailedDeletes, b)
			continue
		}
		result.Deleted = append(result.Deleted, b)
	}

	// Step 2: keep valid blocks; zero-duration proposals are dropped
	// silently. Blocks entirely outside the care window fail clamping
	// and are recorded as failed saves.
	var valid []*block.TimeBlock
	for _, b := range batch.ToSave() {
		if !b.IsValid() {
			continue
		}
		cs, ce, err := a.window.Clamp(b.StartSlot, b.EndSlot)
		if err != nil {
			result.FailedSaves = append(result.FailedSaves, b)
			continue
		}
		clamped := *b
		clamped.StartSlot = cs
		clamped.EndSlot = ce
		valid = append(valid, &clamped)
	}

	if len(valid) == 0 {
		a.markChanges(batch, result)
		return result
	}

	// Step 3: resolve conflicts against post-delete stored state. The
	// interpreter clears the conflicts it knows about; this catches
	// the rest.
	start, end := dateSpan(valid)
	stored, err := a.repo.ListByDateRange(ctx, start, end)
	if err != nil {
		result.Err = fmt.Errorf("fetching blocks for conflict resolution: %w", err)
		a.markChanges(batch, result)
		return result
	}
	deleted, failed := a.resolver.Resolve(ctx, stored, valid)
	result.Deleted = append(result.Deleted, deleted...)
	result.FailedDeletes = append(result.FailedDeletes, failed...)

	// Step 4: persist.
	for _, b := range valid {
		saved, err := a.repo.Save(ctx, b)
		if err != nil {
			result.FailedSaves = append(result.FailedSaves, b)
			continue
		}
		result.Saved = append(result.Saved, saved)
	}

	a.markChanges(batch, result)
	return result
}

// markChanges records per-change status from the result.
func (a *Applier) markChanges(batch *Batch, result *ApplyResult) {
	savedIDs := make(map[string]bool, len(result.Saved))
	for _, b := range result.Saved {
		savedIDs[b.ID] = true
	}
	deletedIDs := make(map[string]bool, len(result.Deleted))
	for _, b := range result.Deleted {
		deletedIDs[b.ID] = true
	}

	for _, c := range batch.Changes {
		switch c.Kind {
		case KindRemoveBlock:
			if c.Original == nil || deletedIDs[c.Original.ID] {
				c.Status = StatusApplied
			} else {
				c.Status = StatusFailed
			}
		default:
			c.Status = StatusApplied
			for _, b := range c.ProposedBlocks() {
				if b.IsValid() && !savedIDs[b.ID] {
					c.Status = StatusFailed
					break
				}
			}
		}
	}
}

// dateSpan returns the min and max anchor day across the blocks.
func dateSpan(blocks []*block.TimeBlock) (time.Time, time.Time) {
	start, end := blocks[0].Day, blocks[0].Day
	for _, b := range blocks[1:] {
		if b.Day.Before(start) {
			start = b.Day
		}
		if b.Day.After(end) {
			end = b.Day
		}
	}
	return start, end
}
