// Package change defines schedule edits: the ScheduleChange produced by
// the interpreter, the batch that groups one command's changes, the
// conflict resolver, and the apply engine with per-item failure
// tracking. Changes are ephemeral; they live for one interpret→apply
// cycle and are never persisted.
package change

import (
	"time"

	"github.com/google/uuid"

	"github.com/johnh2o2/coparent-sub000/internal/block"
)

// Kind classifies a schedule change.
type Kind string

const (
	KindChangeTime  Kind = "change_time"
	KindSwap        Kind = "swap"
	KindAddBlock    Kind = "add_block"
	KindRemoveBlock Kind = "remove_block"
	KindReassign    Kind = "reassign"
)

// Status tracks a change through the apply cycle.
type Status string

const (
	StatusPending Status = "pending"
	StatusApplied Status = "applied"
	StatusFailed  Status = "failed"
)

// Change is one typed schedule edit. Original is the stored block the
// change touches (nil when absent); Proposed is the block to persist.
// Swap carries a secondary pair for the other side of the exchange.
type Change struct {
	Kind              Kind
	Original          *block.TimeBlock
	Proposed          *block.TimeBlock
	SecondaryOriginal *block.TimeBlock
	SecondaryProposed *block.TimeBlock
	AISuggested       bool
	Explanation       string
	RequestedBy       string
	ReviewedBy        string
	Status            Status
	CreatedAt         time.Time
}

// NewChange builds a pending change of the given kind.
func NewChange(kind Kind, original, proposed *block.TimeBlock) *Change {
	return &Change{
		Kind:      kind,
		Original:  original,
		Proposed:  proposed,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}
}

// ProposedBlocks returns the change's blocks headed for persistence:
// one for most kinds, two for a swap, none for a removal.
func (c *Change) ProposedBlocks() []*block.TimeBlock {
	if c.Kind == KindRemoveBlock {
		return nil
	}
	var out []*block.TimeBlock
	if c.Proposed != nil {
		out = append(out, c.Proposed)
	}
	if c.Kind == KindSwap && c.SecondaryProposed != nil {
		out = append(out, c.SecondaryProposed)
	}
	return out
}

// Batch is the ordered set of changes produced from one interpreted
// command, applied as one unit.
type Batch struct {
	ID          string
	Changes     []*Change
	Summary     string
	CommandText string
	CreatedAt   time.Time
}

// NewBatch creates an empty batch for the given command text.
func NewBatch(commandText string) *Batch {
	return &Batch{
		ID:          uuid.NewString(),
		CommandText: commandText,
		CreatedAt:   time.Now(),
	}
}

// ToSave derives the blocks to persist, in change order. Invalid
// (non-positive duration) blocks are included here; the apply engine
// filters them.
func (b *Batch) ToSave() []*block.TimeBlock {
	var out []*block.TimeBlock
	for _, c := range b.Changes {
		out = append(out, c.ProposedBlocks()...)
	}
	return out
}

// ToDelete derives the blocks to remove: only removeBlock originals.
func (b *Batch) ToDelete() []*block.TimeBlock {
	var out []*block.TimeBlock
	for _, c := range b.Changes {
		if c.Kind == KindRemoveBlock && c.Original != nil {
			out = append(out, c.Original)
		}
	}
	return out
}

// ItemSummary is one row of the lossless apply breakdown handed to the
// journal collaborator.
type ItemSummary struct {
	Kind      Kind
	Provider  block.Provider
	Day       time.Time
	StartSlot int
	EndSlot   int
	Recurring bool
}

// Breakdown returns one summary row per change, describing the block
// the change puts in place (or, for removals, the block it removes).
func (b *Batch) Breakdown() []ItemSummary {
	var out []ItemSummary
	for _, c := range b.Changes {
		blocks := c.ProposedBlocks()
		if c.Kind == KindRemoveBlock && c.Original != nil {
			blocks = []*block.TimeBlock{c.Original}
		}
		for _, blk := range blocks {
			out = append(out, ItemSummary{
				Kind:      c.Kind,
				Provider:  blk.Provider,
				Day:       blk.Day,
				StartSlot: blk.StartSlot,
				EndSlot:   blk.EndSlot,
				Recurring: blk.IsTemplate(),
			})
		}
	}
	return out
}
