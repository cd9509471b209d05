// Package interpret turns the structured operations emitted by the
// language-model collaborator into typed schedule changes.
package interpret

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/johnh2o2/coparent-sub000/internal/block"
	"github.com/johnh2o2/coparent-sub000/internal/dateutil"
	"github.com/johnh2o2/coparent-sub000/internal/slot"
)

// ErrNoActionRecognized is returned when a whole response produces no
// schedule change.
var ErrNoActionRecognized = errors.New("no action recognized")

// OpError is a hard interpretation failure. It carries the operation
// name and the argument keys the model actually supplied, for
// diagnosing drift in the upstream model's output.
type OpError struct {
	Op     string
	Keys   []string
	Reason string
}

func (e *OpError) Error() string {
	return fmt.Sprintf("operation %q: %s (supplied args: %s)",
		e.Op, e.Reason, strings.Join(e.Keys, ", "))
}

// Operation is one named instruction from the model, its arguments
// still raw. Decode turns it into a typed variant exactly once.
type Operation struct {
	Name string          `json:"op"`
	Args json.RawMessage `json:"args"`
}

// Response is a full interpretation response: free-text fragments in
// arrival order plus zero or more operations.
type Response struct {
	Texts      []string
	Operations []Operation
}

// Supported operation names.
const (
	OpChangeTime        = "change_time"
	OpSwapDays          = "swap_days"
	OpAddBlock          = "add_block"
	OpRemoveBlock       = "remove_block"
	OpSetDaySchedule    = "set_day_schedule"
	OpClearDay          = "clear_day"
	OpSetWeeklySchedule = "set_weekly_schedule"
)

// Typed argument variants, one per supported operation.

// ChangeTimeArgs moves a provider's block on a date to a new slot range.
type ChangeTimeArgs struct {
	Date     time.Time
	Provider block.Provider
	Start    int // slot
	End      int // slot
	Notes    string
}

// SwapDaysArgs exchanges providers between the first blocks of two days.
type SwapDaysArgs struct {
	DateA time.Time
	DateB time.Time
}

// AddBlockArgs creates a block, optionally recurring.
type AddBlockArgs struct {
	Date          time.Time
	Provider      block.Provider
	Start         int
	End           int
	Notes         string
	Recurrence    block.Recurrence
	RecurrenceEnd *time.Time
}

// RemoveBlockArgs removes the exact (date, provider, start) block.
type RemoveBlockArgs struct {
	Date     time.Time
	Provider block.Provider
	Start    int
}

// DayEntry is one assignment inside set_day_schedule.
type DayEntry struct {
	Provider block.Provider
	Start    int
	End      int
	Notes    string
	Valid    bool // false when required fields were missing or malformed; skipped silently
}

// SetDayScheduleArgs replaces nothing; it adds one block per entry.
type SetDayScheduleArgs struct {
	Date    time.Time
	Entries []DayEntry
}

// ClearDayArgs removes a day's blocks, optionally including templates
// whose weekday matches and optionally filtered by provider.
type ClearDayArgs struct {
	Date           time.Time
	Provider       block.Provider // ProviderNone means all providers
	HasProvider    bool
	ClearRecurring bool
}

// WeeklyEntry is one recurring assignment inside set_weekly_schedule.
type WeeklyEntry struct {
	Weekday  time.Weekday
	Provider block.Provider
	Start    int
	End      int
	Notes    string
	Valid    bool
}

// SetWeeklyScheduleArgs replaces the whole schedule with a repeating
// weekly pattern running for Weeks weeks from StartDate.
type SetWeeklyScheduleArgs struct {
	StartDate time.Time
	Weeks     int
	Entries   []WeeklyEntry
}

// decoder wraps the raw argument map with required/optional accessors
// that accumulate into an OpError on missing or malformed fields.
type decoder struct {
	op   string
	args map[string]json.RawMessage
}

func newDecoder(op string, raw json.RawMessage) (*decoder, error) {
	args := make(map[string]json.RawMessage)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, &OpError{Op: op, Reason: "arguments are not a JSON object"}
		}
	}
	return &decoder{op: op, args: args}, nil
}

func (d *decoder) keys() []string {
	keys := make([]string, 0, len(d.args))
	for k := range d.args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (d *decoder) fail(reason string) error {
	return &OpError{Op: d.op, Keys: d.keys(), Reason: reason}
}

func (d *decoder) optString(key string) (string, bool) {
	raw, ok := d.args[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func (d *decoder) reqString(key string) (string, error) {
	s, ok := d.optString(key)
	if !ok || s == "" {
		return "", d.fail(fmt.Sprintf("missing required argument %q", key))
	}
	return s, nil
}

func (d *decoder) reqDate(key string) (time.Time, error) {
	s, err := d.reqString(key)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, d.fail(fmt.Sprintf("argument %q is not a YYYY-MM-DD date", key))
	}
	return t, nil
}

func (d *decoder) optDate(key string) (*time.Time, error) {
	s, ok := d.optString(key)
	if !ok || s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return nil, d.fail(fmt.Sprintf("argument %q is not a YYYY-MM-DD date", key))
	}
	return &t, nil
}

func (d *decoder) reqClock(key string) (int, error) {
	s, err := d.reqString(key)
	if err != nil {
		return 0, err
	}
	sl, ok := parseClock(s)
	if !ok {
		return 0, d.fail(fmt.Sprintf("argument %q is not an HH:MM time", key))
	}
	return sl, nil
}

func (d *decoder) optBool(key string) bool {
	raw, ok := d.args[key]
	if !ok {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false
	}
	return b
}

func (d *decoder) optInt(key string) (int, bool) {
	raw, ok := d.args[key]
	if !ok {
		return 0, false
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, false
	}
	return n, true
}

func (d *decoder) reqProvider(key string) (block.Provider, error) {
	s, err := d.reqString(key)
	if err != nil {
		return "", err
	}
	p, perr := block.ParseProvider(s)
	if perr != nil {
		return "", d.fail(fmt.Sprintf("argument %q is not a known provider", key))
	}
	return p, nil
}

func (d *decoder) optRecurrence(key string) (block.Recurrence, error) {
	s, _ := d.optString(key)
	r, err := block.ParseRecurrence(s)
	if err != nil {
		return "", d.fail(fmt.Sprintf("argument %q is not a recurrence kind", key))
	}
	return r, nil
}

// parseClock converts "HH:MM" to a slot index. The end-of-day value
// "24:00" maps to slot 96.
func parseClock(s string) (int, bool) {
	if s == "24:00" {
		return slot.SlotsPerDay, true
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, false
	}
	return slot.FromClock(t.Hour(), t.Minute()), true
}

// DecodeChangeTime decodes change_time arguments.
func DecodeChangeTime(op Operation) (*ChangeTimeArgs, error) {
	d, err := newDecoder(op.Name, op.Args)
	if err != nil {
		return nil, err
	}
	date, err := d.reqDate("date")
	if err != nil {
		return nil, err
	}
	provider, err := d.reqProvider("provider")
	if err != nil {
		return nil, err
	}
	start, err := d.reqClock("start")
	if err != nil {
		return nil, err
	}
	end, err := d.reqClock("end")
	if err != nil {
		return nil, err
	}
	notes, _ := d.optString("notes")
	return &ChangeTimeArgs{Date: date, Provider: provider, Start: start, End: end, Notes: notes}, nil
}

// DecodeSwapDays decodes swap_days arguments.
func DecodeSwapDays(op Operation) (*SwapDaysArgs, error) {
	d, err := newDecoder(op.Name, op.Args)
	if err != nil {
		return nil, err
	}
	a, err := d.reqDate("date_a")
	if err != nil {
		return nil, err
	}
	b, err := d.reqDate("date_b")
	if err != nil {
		return nil, err
	}
	return &SwapDaysArgs{DateA: a, DateB: b}, nil
}

// DecodeAddBlock decodes add_block arguments.
func DecodeAddBlock(op Operation) (*AddBlockArgs, error) {
	d, err := newDecoder(op.Name, op.Args)
	if err != nil {
		return nil, err
	}
	date, err := d.reqDate("date")
	if err != nil {
		return nil, err
	}
	provider, err := d.reqProvider("provider")
	if err != nil {
		return nil, err
	}
	start, err := d.reqClock("start")
	if err != nil {
		return nil, err
	}
	end, err := d.reqClock("end")
	if err != nil {
		return nil, err
	}
	recurrenceEnd, err := d.optDate("recurrence_end")
	if err != nil {
		return nil, err
	}
	recurrence, err := d.optRecurrence("recurrence")
	if err != nil {
		return nil, err
	}
	notes, _ := d.optString("notes")
	return &AddBlockArgs{
		Date:          date,
		Provider:      provider,
		Start:         start,
		End:           end,
		Notes:         notes,
		Recurrence:    recurrence,
		RecurrenceEnd: recurrenceEnd,
	}, nil
}

// DecodeRemoveBlock decodes remove_block arguments.
func DecodeRemoveBlock(op Operation) (*RemoveBlockArgs, error) {
	d, err := newDecoder(op.Name, op.Args)
	if err != nil {
		return nil, err
	}
	date, err := d.reqDate("date")
	if err != nil {
		return nil, err
	}
	provider, err := d.reqProvider("provider")
	if err != nil {
		return nil, err
	}
	start, err := d.reqClock("start")
	if err != nil {
		return nil, err
	}
	return &RemoveBlockArgs{Date: date, Provider: provider, Start: start}, nil
}

// DecodeSetDaySchedule decodes set_day_schedule arguments. Entries with
// missing required fields come back with Valid=false and are skipped by
// the interpreter without error.
func DecodeSetDaySchedule(op Operation) (*SetDayScheduleArgs, error) {
	d, err := newDecoder(op.Name, op.Args)
	if err != nil {
		return nil, err
	}
	date, err := d.reqDate("date")
	if err != nil {
		return nil, err
	}

	raw, ok := d.args["entries"]
	if !ok {
		return nil, d.fail(`missing required argument "entries"`)
	}
	var rawEntries []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &rawEntries); err != nil {
		return nil, d.fail(`argument "entries" is not an array`)
	}

	out := &SetDayScheduleArgs{Date: date}
	for _, re := range rawEntries {
		entry := DayEntry{}
		provider, okP := providerField(re, "provider")
		start, okS := clockField(re, "start")
		end, okE := clockField(re, "end")
		if okP && okS && okE {
			entry.Provider = provider
			entry.Start = start
			entry.End = end
			entry.Notes, _ = stringField(re, "notes")
			entry.Valid = true
		}
		out.Entries = append(out.Entries, entry)
	}
	return out, nil
}

// DecodeClearDay decodes clear_day arguments.
func DecodeClearDay(op Operation) (*ClearDayArgs, error) {
	d, err := newDecoder(op.Name, op.Args)
	if err != nil {
		return nil, err
	}
	date, err := d.reqDate("date")
	if err != nil {
		return nil, err
	}
	out := &ClearDayArgs{
		Date:           date,
		ClearRecurring: d.optBool("clear_recurring"),
	}
	if s, ok := d.optString("provider"); ok && s != "" {
		p, perr := block.ParseProvider(s)
		if perr != nil {
			return nil, d.fail(`argument "provider" is not a known provider`)
		}
		out.Provider = p
		out.HasProvider = true
	}
	return out, nil
}

// DecodeSetWeeklySchedule decodes set_weekly_schedule arguments.
func DecodeSetWeeklySchedule(op Operation) (*SetWeeklyScheduleArgs, error) {
	d, err := newDecoder(op.Name, op.Args)
	if err != nil {
		return nil, err
	}
	start, err := d.reqDate("start_date")
	if err != nil {
		return nil, err
	}
	weeks, ok := d.optInt("weeks")
	if !ok || weeks <= 0 {
		return nil, d.fail(`missing or non-positive argument "weeks"`)
	}

	raw, okE := d.args["entries"]
	if !okE {
		return nil, d.fail(`missing required argument "entries"`)
	}
	var rawEntries []map[string]json.RawMessage
	if err := json.Unmarshal(raw, &rawEntries); err != nil {
		return nil, d.fail(`argument "entries" is not an array`)
	}

	out := &SetWeeklyScheduleArgs{StartDate: start, Weeks: weeks}
	for _, re := range rawEntries {
		entry := WeeklyEntry{}
		weekdayName, okW := stringField(re, "weekday")
		provider, okP := providerField(re, "provider")
		startSlot, okS := clockField(re, "start")
		endSlot, okEnd := clockField(re, "end")
		weekday, okParsed := dateutil.ParseWeekday(weekdayName)
		if okW && okP && okS && okEnd && okParsed {
			entry.Weekday = weekday
			entry.Provider = provider
			entry.Start = startSlot
			entry.End = endSlot
			entry.Notes, _ = stringField(re, "notes")
			entry.Valid = true
		}
		out.Entries = append(out.Entries, entry)
	}
	return out, nil
}

func stringField(m map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := m[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || s == "" {
		return "", false
	}
	return s, true
}

func clockField(m map[string]json.RawMessage, key string) (int, bool) {
	s, ok := stringField(m, key)
	if !ok {
		return 0, false
	}
	return parseClock(s)
}

func providerField(m map[string]json.RawMessage, key string) (block.Provider, bool) {
	s, ok := stringField(m, key)
	if !ok {
		return "", false
	}
	p, err := block.ParseProvider(s)
	if err != nil {
		return "", false
	}
	return p, true
}
