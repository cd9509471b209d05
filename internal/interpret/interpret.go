package interpret

import (
	"sort"
	"strings"
	"time"

	"github.com/johnh2o2/coparent-sub000/internal/block"
	"github.com/johnh2o2/coparent-sub000/internal/change"
	"github.com/johnh2o2/coparent-sub000/internal/dateutil"
)

// Interpreter maps structured operations onto typed schedule changes
// against a snapshot of the stored blocks. It is a pure, synchronous
// transformation of its inputs and holds no locks.
type Interpreter struct {
	requestedBy string
}

// New creates an Interpreter attributing changes to the given requester.
func New(requestedBy string) *Interpreter {
	return &Interpreter{requestedBy: requestedBy}
}

// BuildBatch interprets a full response into one batch. All free text
// is concatenated, in arrival order, into the batch summary. A response
// whose operations yield no change at all fails with
// ErrNoActionRecognized; an unrecognized or malformed operation fails
// the whole response with an OpError.
func (it *Interpreter) BuildBatch(resp Response, snapshot []*block.TimeBlock, commandText string) (*change.Batch, error) {
	batch := change.NewBatch(commandText)
	batch.Summary = strings.TrimSpace(strings.Join(resp.Texts, " "))

	for _, op := range resp.Operations {
		changes, err := it.Interpret(op, snapshot)
		if err != nil {
			return nil, err
		}
		batch.Changes = append(batch.Changes, changes...)
	}

	if len(batch.Changes) == 0 {
		return nil, ErrNoActionRecognized
	}
	return batch, nil
}

// Interpret maps one operation to zero or more changes.
func (it *Interpreter) Interpret(op Operation, snapshot []*block.TimeBlock) ([]*change.Change, error) {
	switch op.Name {
	case OpChangeTime:
		args, err := DecodeChangeTime(op)
		if err != nil {
			return nil, err
		}
		return it.changeTime(args, snapshot)
	case OpSwapDays:
		args, err := DecodeSwapDays(op)
		if err != nil {
			return nil, err
		}
		return it.swapDays(args, snapshot)
	case OpAddBlock:
		args, err := DecodeAddBlock(op)
		if err != nil {
			return nil, err
		}
		return it.addBlock(args)
	case OpRemoveBlock:
		args, err := DecodeRemoveBlock(op)
		if err != nil {
			return nil, err
		}
		return it.removeBlock(args, snapshot)
	case OpSetDaySchedule:
		args, err := DecodeSetDaySchedule(op)
		if err != nil {
			return nil, err
		}
		return it.setDaySchedule(args)
	case OpClearDay:
		args, err := DecodeClearDay(op)
		if err != nil {
			return nil, err
		}
		return it.clearDay(args, snapshot)
	case OpSetWeeklySchedule:
		args, err := DecodeSetWeeklySchedule(op)
		if err != nil {
			return nil, err
		}
		return it.setWeeklySchedule(args, snapshot)
	default:
		d, derr := newDecoder(op.Name, op.Args)
		if derr != nil {
			return nil, &OpError{Op: op.Name, Reason: "unsupported operation"}
		}
		return nil, d.fail("unsupported operation")
	}
}

// changeTime rewrites a provider's block on a date to new slots. The
// original may be absent, in which case the change degrades to a plain
// addition of the proposed block.
func (it *Interpreter) changeTime(args *ChangeTimeArgs, snapshot []*block.TimeBlock) ([]*change.Change, error) {
	original := findByDayProvider(snapshot, args.Date, args.Provider)

	proposed := block.New(args.Date, args.Start, args.End, args.Provider)
	proposed.Notes = args.Notes
	if original != nil {
		// Keep the stored identity so the save replaces the block
		// instead of leaving the old one beside the new.
		proposed.ID = original.ID
		proposed.CreatedAt = original.CreatedAt
		if proposed.Notes == "" {
			proposed.Notes = original.Notes
		}
	}
	proposed.ModifiedBy = it.requestedBy

	c := change.NewChange(change.KindChangeTime, original, proposed)
	it.stamp(c)
	return []*change.Change{c}, nil
}

// swapDays exchanges the providers of the first block on each of two
// days. Both sides must exist. Tie-break when a day has several blocks:
// lowest start slot, then creation time.
func (it *Interpreter) swapDays(args *SwapDaysArgs, snapshot []*block.TimeBlock) ([]*change.Change, error) {
	a := firstOnDay(snapshot, args.DateA)
	if a == nil {
		return nil, &OpError{Op: OpSwapDays, Keys: []string{"date_a", "date_b"},
			Reason: "no block on " + dateutil.DayKey(args.DateA)}
	}
	b := firstOnDay(snapshot, args.DateB)
	if b == nil {
		return nil, &OpError{Op: OpSwapDays, Keys: []string{"date_a", "date_b"},
			Reason: "no block on " + dateutil.DayKey(args.DateB)}
	}

	proposedA := *a
	proposedA.Provider = b.Provider
	proposedA.ModifiedBy = it.requestedBy
	proposedB := *b
	proposedB.Provider = a.Provider
	proposedB.ModifiedBy = it.requestedBy

	c := change.NewChange(change.KindSwap, a, &proposedA)
	c.SecondaryOriginal = b
	c.SecondaryProposed = &proposedB
	it.stamp(c)
	return []*change.Change{c}, nil
}

func (it *Interpreter) addBlock(args *AddBlockArgs) ([]*change.Change, error) {
	proposed := block.New(args.Date, args.Start, args.End, args.Provider)
	proposed.Notes = args.Notes
	proposed.Recurrence = args.Recurrence
	proposed.RecurrenceEnd = args.RecurrenceEnd
	proposed.ModifiedBy = it.requestedBy

	c := change.NewChange(change.KindAddBlock, nil, proposed)
	it.stamp(c)
	return []*change.Change{c}, nil
}

// removeBlock finds the exact (date, provider, start) match. An absent
// original still yields one removeBlock change, which applies as a
// no-op.
func (it *Interpreter) removeBlock(args *RemoveBlockArgs, snapshot []*block.TimeBlock) ([]*change.Change, error) {
	var original *block.TimeBlock
	for _, b := range snapshot {
		if !b.IsTemplate() && dateutil.SameDay(b.Day, args.Date) &&
			b.Provider == args.Provider && b.StartSlot == args.Start {
			original = b
			break
		}
	}

	c := change.NewChange(change.KindRemoveBlock, original, nil)
	it.stamp(c)
	return []*change.Change{c}, nil
}

// setDaySchedule emits one addBlock per valid entry; entries that were
// missing required fields are skipped silently.
func (it *Interpreter) setDaySchedule(args *SetDayScheduleArgs) ([]*change.Change, error) {
	var out []*change.Change
	for _, entry := range args.Entries {
		if !entry.Valid {
			continue
		}
		proposed := block.New(args.Date, entry.Start, entry.End, entry.Provider)
		proposed.Notes = entry.Notes
		proposed.ModifiedBy = it.requestedBy
		c := change.NewChange(change.KindAddBlock, nil, proposed)
		it.stamp(c)
		out = append(out, c)
	}
	return out, nil
}

// clearDay emits one removeBlock per stored block matching the date
// exactly, plus, when ClearRecurring is set, templates anchored on the
// same weekday. Templates are never touched otherwise.
func (it *Interpreter) clearDay(args *ClearDayArgs, snapshot []*block.TimeBlock) ([]*change.Change, error) {
	var out []*change.Change
	for _, b := range snapshot {
		if args.HasProvider && b.Provider != args.Provider {
			continue
		}
		remove := false
		if b.IsTemplate() {
			remove = args.ClearRecurring && b.Day.Weekday() == args.Date.Weekday()
		} else {
			remove = dateutil.SameDay(b.Day, args.Date)
		}
		if remove {
			c := change.NewChange(change.KindRemoveBlock, b, nil)
			it.stamp(c)
			out = append(out, c)
		}
	}
	return out, nil
}

// setWeeklySchedule replaces the whole stored schedule: one removeBlock
// per currently stored block, then one weekly addBlock per valid entry,
// anchored at the entry weekday's first occurrence at or after the
// start date and ending after the requested number of weeks.
func (it *Interpreter) setWeeklySchedule(args *SetWeeklyScheduleArgs, snapshot []*block.TimeBlock) ([]*change.Change, error) {
	var out []*change.Change
	for _, b := range snapshot {
		c := change.NewChange(change.KindRemoveBlock, b, nil)
		it.stamp(c)
		out = append(out, c)
	}

	endDate := dateutil.TruncateToDay(args.StartDate).AddDate(0, 0, 7*args.Weeks)
	for _, entry := range args.Entries {
		if !entry.Valid {
			continue
		}
		anchor := dateutil.NextWeekdayOnOrAfter(args.StartDate, entry.Weekday)
		proposed := block.New(anchor, entry.Start, entry.End, entry.Provider)
		proposed.Notes = entry.Notes
		proposed.Recurrence = block.RecurrenceWeekly
		proposed.RecurrenceEnd = &endDate
		proposed.ModifiedBy = it.requestedBy
		c := change.NewChange(change.KindAddBlock, nil, proposed)
		it.stamp(c)
		out = append(out, c)
	}
	return out, nil
}

func (it *Interpreter) stamp(c *change.Change) {
	c.AISuggested = true
	c.RequestedBy = it.requestedBy
}

// findByDayProvider returns the first concrete block matching date and
// provider.
func findByDayProvider(snapshot []*block.TimeBlock, date time.Time, provider block.Provider) *block.TimeBlock {
	for _, b := range snapshot {
		if !b.IsTemplate() && dateutil.SameDay(b.Day, date) && b.Provider == provider {
			return b
		}
	}
	return nil
}

// firstOnDay returns the day's earliest concrete block, breaking ties
// by creation time.
func firstOnDay(snapshot []*block.TimeBlock, date time.Time) *block.TimeBlock {
	var candidates []*block.TimeBlock
	for _, b := range snapshot {
		if !b.IsTemplate() && dateutil.SameDay(b.Day, date) {
			candidates = append(candidates, b)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].StartSlot != candidates[j].StartSlot {
			return candidates[i].StartSlot < candidates[j].StartSlot
		}
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})
	return candidates[0]
}
