package change

import (
	"context"
	"errors"

	"github.com/johnh2o2/coparent-sub000/internal/block"
	"github.com/johnh2o2/coparent-sub000/internal/slot"
)

// Resolver removes stored blocks that collide with an incoming set
// before it is persisted.
//
// A stored block conflicts with an incoming block when its id differs,
// it applies to the incoming block's day (exact date for concrete
// blocks, recurrence match for templates), and the slot ranges
// intersect. Conflicting blocks are deleted through the repository and
// returned, deduplicated by id.
//
// Note the asymmetry with expansion: a template that conflicts on a
// single day is deleted in its entirety here, where the expansion
// engine would only suppress that day. Callers that want a single-day
// override must add the override block without routing the template
// through this resolver; that is what expansion-side suppression
// gives them.
type Resolver struct {
	repo block.Repository
}

// NewResolver creates a Resolver backed by the given repository.
func NewResolver(repo block.Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve deletes every stored block conflicting with the incoming set.
// Deletions are attempted independently: blocks removed successfully
// (or already gone) land in deleted, the rest in failed. The stored
// snapshot is scanned as given; callers fetch it after any batch
// deletes so resolution sees post-delete state.
func (r *Resolver) Resolve(ctx context.Context, stored, incoming []*block.TimeBlock) (deleted, failed []*block.TimeBlock) {
	conflicts := make(map[string]*block.TimeBlock)
	for _, in := range incoming {
		for _, st := range stored {
			if st.ID == in.ID {
				continue
			}
			if !st.AppliesOn(in.Day) {
				continue
			}
			if !slot.RangesOverlap(st.StartSlot, st.EndSlot, in.StartSlot, in.EndSlot) {
				continue
			}
			conflicts[st.ID] = st
		}
	}

	for _, st := range conflicts {
		err := r.repo.Delete(ctx, st)
		if err != nil && !errors.Is(err, block.ErrNotFound) {
			failed = append(failed, st)
			continue
		}
		deleted = append(deleted, st)
	}
	return deleted, failed
}
