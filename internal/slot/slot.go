// Package slot provides 15-minute slot arithmetic for the daily schedule grid.
package slot

import (
	"errors"
	"fmt"
)

// SlotsPerDay is the number of 15-minute slots in one day.
// Slot 0 starts at midnight; 96 is the exclusive end-of-day bound.
const SlotsPerDay = 96

// MinutesPerSlot is the length of one slot.
const MinutesPerSlot = 15

// Validation errors.
var (
	ErrInvalidSlot  = errors.New("slot must be in [0, 96]")
	ErrInvalidRange = errors.New("slot range must satisfy 0 <= start < end <= 96")
)

// FromClock converts a wall-clock time to its slot index.
// FromClock(8, 0) == 32, FromClock(19, 30) == 78. Minutes are
// truncated to the containing slot.
func FromClock(hour, minute int) int {
	return hour*4 + minute/MinutesPerSlot
}

// Clock converts a slot index back to (hour, minute). It is the exact
// inverse of FromClock for slot-aligned times.
func Clock(s int) (hour, minute int) {
	return s / 4, (s % 4) * MinutesPerSlot
}

// Format renders a slot as "HH:MM".
func Format(s int) string {
	h, m := Clock(s)
	return fmt.Sprintf("%02d:%02d", h, m)
}

// IsValid returns true if s is a valid slot index, including the
// exclusive end-of-day value 96.
func IsValid(s int) bool {
	return s >= 0 && s <= SlotsPerDay
}

// IsValidRange returns true if [start, end) is a well-formed half-open
// slot range.
func IsValidRange(start, end int) bool {
	return start >= 0 && start < end && end <= SlotsPerDay
}

// DurationMinutes returns the length of the half-open range [start, end)
// in minutes. Returns 0 for empty or inverted ranges.
func DurationMinutes(start, end int) int {
	if end <= start {
		return 0
	}
	return (end - start) * MinutesPerSlot
}

// ClampStart clamps a start slot into [0, 95].
func ClampStart(s int) int {
	if s < 0 {
		return 0
	}
	if s > SlotsPerDay-1 {
		return SlotsPerDay - 1
	}
	return s
}

// ClampEnd clamps an end slot into [0, 96].
func ClampEnd(s int) int {
	if s < 0 {
		return 0
	}
	if s > SlotsPerDay {
		return SlotsPerDay
	}
	return s
}

// RangesOverlap reports whether two half-open slot ranges intersect.
func RangesOverlap(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && aEnd > bStart
}

// CareWindow is the configured sub-range of the day eligible for care
// assignments. It is a plain value constructed by the composition root
// and threaded through validation calls.
type CareWindow struct {
	Start int // first permitted slot, inclusive
	End   int // last permitted slot, exclusive
}

// ErrOutsideCareWindow is returned when a block does not intersect the
// care window at all.
var ErrOutsideCareWindow = errors.New("time block falls entirely outside the care window")

// NewCareWindow builds a window from slot bounds.
func NewCareWindow(start, end int) (CareWindow, error) {
	if !IsValidRange(start, end) {
		return CareWindow{}, ErrInvalidRange
	}
	return CareWindow{Start: start, End: end}, nil
}

// FullDay returns a window covering all 96 slots.
func FullDay() CareWindow {
	return CareWindow{Start: 0, End: SlotsPerDay}
}

// Clamp intersects [start, end) with the window. It returns
// ErrOutsideCareWindow when the two ranges are disjoint.
func (w CareWindow) Clamp(start, end int) (int, int, error) {
	cs := start
	if cs < w.Start {
		cs = w.Start
	}
	ce := end
	if ce > w.End {
		ce = w.End
	}
	if ce <= cs {
		return 0, 0, ErrOutsideCareWindow
	}
	return cs, ce, nil
}

// Contains reports whether [start, end) lies entirely inside the window.
func (w CareWindow) Contains(start, end int) bool {
	return start >= w.Start && end <= w.End
}

// String renders the window as "HH:MM-HH:MM".
func (w CareWindow) String() string {
	return Format(w.Start) + "-" + Format(w.End)
}
