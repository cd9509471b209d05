// Package block defines the core domain types for the shared childcare
// schedule: the TimeBlock entity, its recurrence evaluation, and the
// storage interface.
package block

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/johnh2o2/coparent-sub000/internal/dateutil"
	"github.com/johnh2o2/coparent-sub000/internal/slot"
)

// Validation errors.
var (
	ErrInvalidProvider   = errors.New("unknown care provider")
	ErrInvalidRecurrence = errors.New("unknown recurrence kind")
	ErrInvalidSlotRange  = errors.New("end slot must be after start slot")
)

// Provider identifies who covers a time block.
type Provider string

// The fixed provider roster. ProviderNone marks an unassigned block.
const (
	ProviderMom         Provider = "mom"
	ProviderDad         Provider = "dad"
	ProviderNanny       Provider = "nanny"
	ProviderGrandparent Provider = "grandparent"
	ProviderNone        Provider = "none"
)

// ParseProvider validates a provider name. Empty input maps to ProviderNone.
func ParseProvider(s string) (Provider, error) {
	switch Provider(s) {
	case ProviderMom, ProviderDad, ProviderNanny, ProviderGrandparent, ProviderNone:
		return Provider(s), nil
	case "":
		return ProviderNone, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidProvider, s)
	}
}

// Recurrence describes how a block repeats.
type Recurrence string

const (
	RecurrenceNone    Recurrence = "none"
	RecurrenceDaily   Recurrence = "daily"
	RecurrenceWeekly  Recurrence = "weekly"
	RecurrenceMonthly Recurrence = "monthly"
	RecurrenceYearly  Recurrence = "yearly"
)

// ParseRecurrence validates a recurrence kind. Empty input maps to
// RecurrenceNone.
func ParseRecurrence(s string) (Recurrence, error) {
	switch Recurrence(s) {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly, RecurrenceYearly:
		return Recurrence(s), nil
	case "":
		return RecurrenceNone, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRecurrence, s)
	}
}

// TimeBlock is one care assignment: a slot range on an anchor day,
// optionally repeating. A block with Recurrence != none is a template;
// dated copies of a template are produced only by expansion and never
// persisted.
type TimeBlock struct {
	ID            string
	Day           time.Time // anchor date, midnight local
	StartSlot     int       // [0, 95]
	EndSlot       int       // [0, 96], half-open
	Provider      Provider
	Notes         string
	Recurrence    Recurrence
	RecurrenceEnd *time.Time
	CreatedAt     time.Time
	ModifiedAt    time.Time
	ModifiedBy    string
}

// New creates a TimeBlock with a fresh identity. Slots are clamped into
// the legal domain; validity (end > start) is checked separately with
// IsValid so callers can drop zero-duration blocks silently.
func New(day time.Time, startSlot, endSlot int, provider Provider) *TimeBlock {
	now := time.Now()
	return &TimeBlock{
		ID:         uuid.NewString(),
		Day:        dateutil.TruncateToDay(day),
		StartSlot:  slot.ClampStart(startSlot),
		EndSlot:    slot.ClampEnd(endSlot),
		Provider:   provider,
		Recurrence: RecurrenceNone,
		CreatedAt:  now,
		ModifiedAt: now,
	}
}

// IsValid reports whether the block has positive duration.
func (b *TimeBlock) IsValid() bool {
	return b.EndSlot > b.StartSlot
}

// IsTemplate reports whether the block is a recurrence template.
func (b *TimeBlock) IsTemplate() bool {
	return b.Recurrence != RecurrenceNone && b.Recurrence != ""
}

// DurationMinutes returns the block length in minutes.
func (b *TimeBlock) DurationMinutes() int {
	return slot.DurationMinutes(b.StartSlot, b.EndSlot)
}

// TimeRange renders the slot range as "HH:MM-HH:MM".
func (b *TimeBlock) TimeRange() string {
	return slot.Format(b.StartSlot) + "-" + slot.Format(b.EndSlot)
}

// MatchesRecurrence reports whether this template produces an occurrence
// on target. Always false for non-recurring blocks. The anchor day bounds
// the pattern below; RecurrenceEnd, when set, bounds it above (inclusive).
func (b *TimeBlock) MatchesRecurrence(target time.Time) bool {
	if !b.IsTemplate() {
		return false
	}

	target = dateutil.TruncateToDay(target)
	anchor := dateutil.TruncateToDay(b.Day)
	if target.Before(anchor) {
		return false
	}
	if b.RecurrenceEnd != nil && target.After(dateutil.TruncateToDay(*b.RecurrenceEnd)) {
		return false
	}

	switch b.Recurrence {
	case RecurrenceDaily:
		return true
	case RecurrenceWeekly:
		return target.Weekday() == anchor.Weekday()
	case RecurrenceMonthly:
		return target.Day() == anchor.Day()
	case RecurrenceYearly:
		return target.Day() == anchor.Day() && target.Month() == anchor.Month()
	default:
		return false
	}
}

// AppliesOn reports whether the block covers the given day: an exact
// date match for concrete blocks, a recurrence match for templates.
func (b *TimeBlock) AppliesOn(day time.Time) bool {
	if b.IsTemplate() {
		return b.MatchesRecurrence(day)
	}
	return dateutil.SameDay(b.Day, day)
}

// Overlaps reports whether the two blocks collide: same calendar day and
// intersecting slot ranges (half-open comparison).
func (b *TimeBlock) Overlaps(other *TimeBlock) bool {
	if other == nil {
		return false
	}
	if !dateutil.SameDay(b.Day, other.Day) {
		return false
	}
	return slot.RangesOverlap(b.StartSlot, b.EndSlot, other.StartSlot, other.EndSlot)
}

// OnDay returns a dated copy of the block anchored on day. Used by the
// expansion engine to materialize template instances.
func (b *TimeBlock) OnDay(day time.Time) *TimeBlock {
	inst := *b
	inst.Day = dateutil.TruncateToDay(day)
	if b.RecurrenceEnd != nil {
		end := *b.RecurrenceEnd
		inst.RecurrenceEnd = &end
	}
	return &inst
}

// NextOccurrence returns the first occurrence of the template strictly
// after the given occurrence date, ignoring RecurrenceEnd. For monthly
// and yearly templates, months lacking the anchor's day-of-month are
// skipped, matching MatchesRecurrence exactly. Returns false for
// non-recurring blocks.
func (b *TimeBlock) NextOccurrence(after time.Time) (time.Time, bool) {
	after = dateutil.TruncateToDay(after)
	switch b.Recurrence {
	case RecurrenceDaily:
		return after.AddDate(0, 0, 1), true
	case RecurrenceWeekly:
		return after.AddDate(0, 0, 7), true
	case RecurrenceMonthly:
		return nextMonthWithDay(after, b.Day.Day(), 1), true
	case RecurrenceYearly:
		return nextMonthWithDay(after, b.Day.Day(), 12), true
	default:
		return time.Time{}, false
	}
}

// FirstOccurrenceOnOrAfter returns the template's first occurrence at or
// after from, honoring RecurrenceEnd. Returns false when the pattern has
// no occurrence in that span.
func (b *TimeBlock) FirstOccurrenceOnOrAfter(from time.Time) (time.Time, bool) {
	if !b.IsTemplate() {
		return time.Time{}, false
	}
	d := dateutil.TruncateToDay(from)
	anchor := dateutil.TruncateToDay(b.Day)
	if d.Before(anchor) {
		d = anchor
	}
	if b.MatchesRecurrence(d) {
		return d, true
	}
	// Step from the nearest occurrence at or before d.
	prev := anchor
	for {
		next, ok := b.NextOccurrence(prev)
		if !ok {
			return time.Time{}, false
		}
		if b.RecurrenceEnd != nil && next.After(dateutil.TruncateToDay(*b.RecurrenceEnd)) {
			return time.Time{}, false
		}
		if !next.Before(d) {
			return next, true
		}
		prev = next
	}
}

// nextMonthWithDay steps forward in increments of step months from the
// month containing "from" until it finds a month that has the given
// day-of-month, and returns that date.
func nextMonthWithDay(from time.Time, dayOfMonth, step int) time.Time {
	year, month := from.Year(), from.Month()
	for {
		month += time.Month(step)
		candidate := time.Date(year, month, dayOfMonth, 0, 0, 0, 0, from.Location())
		// time.Date normalizes overflows (Feb 30 -> Mar 2); a changed
		// Day() means the month is too short.
		if candidate.Day() == dayOfMonth {
			return candidate
		}
	}
}
