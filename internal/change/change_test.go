package change

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/johnh2o2/coparent-sub000/internal/block"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

// fakeRepo is an in-memory block.Repository with per-call failure
// injection, shared by the resolver and apply tests.
type fakeRepo struct {
	blocks map[string]*block.TimeBlock

	saveErr   func(b *block.TimeBlock) error
	deleteErr func(b *block.TimeBlock) error
	listErr   error

	deletes []string
	saves   []string
}

func newFakeRepo(seed ...*block.TimeBlock) *fakeRepo {
	r := &fakeRepo{blocks: make(map[string]*block.TimeBlock)}
	for _, b := range seed {
		r.blocks[b.ID] = b
	}
	return r
}

func (r *fakeRepo) Save(_ context.Context, b *block.TimeBlock) (*block.TimeBlock, error) {
	if r.saveErr != nil {
		if err := r.saveErr(b); err != nil {
			return nil, err
		}
	}
	stored := *b
	r.blocks[b.ID] = &stored
	r.saves = append(r.saves, b.ID)
	return &stored, nil
}

func (r *fakeRepo) Delete(_ context.Context, b *block.TimeBlock) error {
	if r.deleteErr != nil {
		if err := r.deleteErr(b); err != nil {
			return err
		}
	}
	if _, ok := r.blocks[b.ID]; !ok {
		return block.ErrNotFound
	}
	delete(r.blocks, b.ID)
	r.deletes = append(r.deletes, b.ID)
	return nil
}

func (r *fakeRepo) BatchSave(ctx context.Context, blocks []*block.TimeBlock) ([]*block.TimeBlock, error) {
	var out []*block.TimeBlock
	var errs error
	for _, b := range blocks {
		saved, err := r.Save(ctx, b)
		if err != nil {
			errs = err
			continue
		}
		out = append(out, saved)
	}
	return out, errs
}

func (r *fakeRepo) ListByDateRange(_ context.Context, start, end time.Time) ([]*block.TimeBlock, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []*block.TimeBlock
	for _, b := range r.blocks {
		if b.IsTemplate() {
			out = append(out, b)
			continue
		}
		if !b.Day.Before(start) && !b.Day.After(end) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeRepo) Close() error { return nil }

func TestProposedBlocks(t *testing.T) {
	mon := day(2026, time.March, 2)
	a := block.New(mon, 32, 48, block.ProviderMom)
	b := block.New(mon, 48, 64, block.ProviderDad)

	t.Run("add carries one block", func(t *testing.T) {
		c := NewChange(KindAddBlock, nil, a)
		if got := c.ProposedBlocks(); len(got) != 1 || got[0] != a {
			t.Fatalf("ProposedBlocks() = %v, want [a]", got)
		}
	})

	t.Run("swap carries both sides", func(t *testing.T) {
		c := NewChange(KindSwap, a, a)
		c.SecondaryProposed = b
		if got := c.ProposedBlocks(); len(got) != 2 {
			t.Fatalf("ProposedBlocks() = %d blocks, want 2", len(got))
		}
	})

	t.Run("removal carries none", func(t *testing.T) {
		c := NewChange(KindRemoveBlock, a, nil)
		if got := c.ProposedBlocks(); got != nil {
			t.Fatalf("ProposedBlocks() = %v, want nil", got)
		}
	})
}

func TestBatchDerivations(t *testing.T) {
	mon := day(2026, time.March, 2)
	keep := block.New(mon, 32, 48, block.ProviderMom)
	gone := block.New(mon, 48, 64, block.ProviderDad)

	batch := NewBatch("mom takes the morning")
	batch.Changes = append(batch.Changes,
		NewChange(KindAddBlock, nil, keep),
		NewChange(KindRemoveBlock, gone, nil),
		NewChange(KindRemoveBlock, nil, nil), // absent original, nothing to delete
	)

	if got := batch.ToSave(); len(got) != 1 || got[0] != keep {
		t.Errorf("ToSave() = %v, want [keep]", got)
	}
	if got := batch.ToDelete(); len(got) != 1 || got[0] != gone {
		t.Errorf("ToDelete() = %v, want [gone]", got)
	}

	rows := batch.Breakdown()
	if len(rows) != 2 {
		t.Fatalf("Breakdown() = %d rows, want 2", len(rows))
	}
	if rows[0].Kind != KindAddBlock || rows[0].Provider != block.ProviderMom {
		t.Errorf("row 0 = %+v, want add_block/mom", rows[0])
	}
	if rows[1].Kind != KindRemoveBlock || rows[1].Provider != block.ProviderDad {
		t.Errorf("row 1 = %+v, want remove_block/dad", rows[1])
	}
}

func TestBatchIdentity(t *testing.T) {
	a := NewBatch("cmd")
	b := NewBatch("cmd")
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("batch ids %q and %q should be distinct and non-empty", a.ID, b.ID)
	}
	if a.CommandText != "cmd" {
		t.Errorf("CommandText = %q, want %q", a.CommandText, "cmd")
	}
}

var errBoom = fmt.Errorf("boom: %w", block.ErrServerError)
