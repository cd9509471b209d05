package block

import (
	"sort"
	"time"

	"github.com/johnh2o2/coparent-sub000/internal/dateutil"
	"github.com/johnh2o2/coparent-sub000/internal/slot"
)

// Expand flattens a mixed set of stored blocks (templates and concrete)
// into per-day instances covering [rangeStart, rangeEnd], inclusive.
//
// Concrete blocks inside the range pass through unchanged. Each template
// is walked day by day from max(anchor, rangeStart) to
// min(recurrence end, rangeEnd); days where the recurrence matches emit
// a dated copy unless a concrete block on that day overlaps the
// template's slot range, in which case the override suppresses the
// instance without touching the stored template.
//
// Expand is a pure function of its inputs: stored blocks are never
// mutated and repeated calls over overlapping ranges are idempotent.
// The result is sorted by day, then start slot.
func Expand(blocks []*TimeBlock, rangeStart, rangeEnd time.Time) []*TimeBlock {
	rangeStart = dateutil.TruncateToDay(rangeStart)
	rangeEnd = dateutil.TruncateToDay(rangeEnd)
	if rangeEnd.Before(rangeStart) {
		return nil
	}

	var concrete, templates []*TimeBlock
	for _, b := range blocks {
		if b.IsTemplate() {
			templates = append(templates, b)
		} else {
			concrete = append(concrete, b)
		}
	}

	// Index concrete blocks by calendar day for suppression lookups.
	byDay := make(map[string][]*TimeBlock, len(concrete))
	for _, b := range concrete {
		key := dateutil.DayKey(b.Day)
		byDay[key] = append(byDay[key], b)
	}

	var out []*TimeBlock
	for _, b := range concrete {
		if !b.Day.Before(rangeStart) && !b.Day.After(rangeEnd) {
			out = append(out, b)
		}
	}

	for _, tmpl := range templates {
		effectiveEnd := rangeEnd
		if tmpl.RecurrenceEnd != nil {
			end := dateutil.TruncateToDay(*tmpl.RecurrenceEnd)
			if end.Before(effectiveEnd) {
				effectiveEnd = end
			}
		}

		day := dateutil.TruncateToDay(tmpl.Day)
		if day.Before(rangeStart) {
			day = rangeStart
		}

		for ; !day.After(effectiveEnd); day = day.AddDate(0, 0, 1) {
			if !tmpl.MatchesRecurrence(day) {
				continue
			}
			if overridden(tmpl, byDay[dateutil.DayKey(day)]) {
				continue
			}
			out = append(out, tmpl.OnDay(day))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !dateutil.SameDay(out[i].Day, out[j].Day) {
			return out[i].Day.Before(out[j].Day)
		}
		return out[i].StartSlot < out[j].StartSlot
	})
	return out
}

// overridden reports whether any concrete block on the day intersects
// the template's slot range. The override wins for that day only; the
// template itself stays stored.
func overridden(tmpl *TimeBlock, sameDay []*TimeBlock) bool {
	for _, b := range sameDay {
		if slot.RangesOverlap(tmpl.StartSlot, tmpl.EndSlot, b.StartSlot, b.EndSlot) {
			return true
		}
	}
	return false
}

// Occurrences returns the dates on which the template produces an
// instance within [rangeStart, rangeEnd], walking occurrence to
// occurrence with NextOccurrence instead of scanning every day. It is
// used for aggregate statistics and agrees exactly with the day-by-day
// walk in Expand on which dates fire.
func Occurrences(tmpl *TimeBlock, rangeStart, rangeEnd time.Time) []time.Time {
	if !tmpl.IsTemplate() {
		return nil
	}

	rangeStart = dateutil.TruncateToDay(rangeStart)
	rangeEnd = dateutil.TruncateToDay(rangeEnd)
	if rangeEnd.Before(rangeStart) {
		return nil
	}

	effectiveEnd := rangeEnd
	if tmpl.RecurrenceEnd != nil {
		end := dateutil.TruncateToDay(*tmpl.RecurrenceEnd)
		if end.Before(effectiveEnd) {
			effectiveEnd = end
		}
	}

	first, ok := tmpl.FirstOccurrenceOnOrAfter(rangeStart)
	if !ok || first.After(effectiveEnd) {
		return nil
	}

	var dates []time.Time
	for d := first; !d.After(effectiveEnd); {
		dates = append(dates, d)
		next, ok := tmpl.NextOccurrence(d)
		if !ok {
			break
		}
		d = next
	}
	return dates
}

// ProviderMinutes aggregates expanded care time per provider over the
// range, using the occurrence-stepping walk for templates.
func ProviderMinutes(blocks []*TimeBlock, rangeStart, rangeEnd time.Time) map[Provider]int {
	totals := make(map[Provider]int)

	var concrete []*TimeBlock
	for _, b := range blocks {
		if b.IsTemplate() {
			for range Occurrences(b, rangeStart, rangeEnd) {
				totals[b.Provider] += b.DurationMinutes()
			}
		} else {
			concrete = append(concrete, b)
		}
	}

	rangeStart = dateutil.TruncateToDay(rangeStart)
	rangeEnd = dateutil.TruncateToDay(rangeEnd)
	for _, b := range concrete {
		if !b.Day.Before(rangeStart) && !b.Day.After(rangeEnd) {
			totals[b.Provider] += b.DurationMinutes()
		}
	}
	return totals
}
