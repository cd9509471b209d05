package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/johnh2o2/coparent-sub000/internal/block"
	"github.com/johnh2o2/coparent-sub000/internal/dateutil"
	"github.com/johnh2o2/coparent-sub000/internal/slot"
)

func (a *App) addCmd() *cobra.Command {
	var (
		date     string
		start    string
		end      string
		provider string
		notes    string
		recur    string
		until    string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a care block",
		Long: `Add a care block to the schedule.

Times snap to the 15-minute grid and are clamped to the configured care
window. Overlapping blocks on the same day are replaced.

Example:
  coparent add --date=2026-03-02 --start=09:00 --end=13:00 --provider=mom
  coparent add --date=2026-03-02 --start=08:00 --end=17:00 --provider=nanny --recur=weekly --until=2026-06-01`,
		RunE: func(_ *cobra.Command, _ []string) error {
			day := time.Now()
			if date != "" {
				parsed, err := dateutil.ParseDate(date)
				if err != nil {
					return err
				}
				day = parsed
			}

			startSlot, err := parseClock(start)
			if err != nil {
				return fmt.Errorf("invalid --start: %w", err)
			}
			endSlot, err := parseClock(end)
			if err != nil {
				return fmt.Errorf("invalid --end: %w", err)
			}
			p, err := block.ParseProvider(provider)
			if err != nil {
				return err
			}
			rec, err := block.ParseRecurrence(recur)
			if err != nil {
				return err
			}

			b := block.New(day, startSlot, endSlot, p)
			b.Notes = notes
			b.Recurrence = rec
			if until != "" {
				endDate, err := dateutil.ParseDate(until)
				if err != nil {
					return fmt.Errorf("invalid --until: %w", err)
				}
				b.RecurrenceEnd = &endDate
			}
			if !b.IsValid() {
				return fmt.Errorf("end must be after start: %s", b.TimeRange())
			}

			svc, err := a.service(false)
			if err != nil {
				return err
			}

			result, err := svc.AddBlock(context.Background(), b)
			if err != nil {
				return err
			}

			recurSuffix := ""
			if b.IsTemplate() {
				recurSuffix = fmt.Sprintf(" (%s)", b.Recurrence)
			}
			fmt.Printf("Added %s %s %s%s\n",
				formatProvider(b.Provider, string(b.Provider)),
				b.Day.Format("2006-01-02"),
				b.TimeRange(),
				recurSuffix,
			)
			for _, d := range result.Deleted {
				fmt.Printf("  %s\n", formatMuted(fmt.Sprintf("replaced %s %s %s",
					d.Provider, d.Day.Format("2006-01-02"), d.TimeRange())))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Date (YYYY-MM-DD, default: today)")
	cmd.Flags().StringVar(&start, "start", "", "Start time (HH:MM, required)")
	cmd.Flags().StringVar(&end, "end", "", "End time (HH:MM, required; 24:00 for end of day)")
	cmd.Flags().StringVar(&provider, "provider", "", "Provider: mom, dad, nanny, or grandparent (required)")
	cmd.Flags().StringVar(&notes, "notes", "", "Free-text notes")
	cmd.Flags().StringVar(&recur, "recur", "", "Recurrence: daily, weekly, monthly, or yearly")
	cmd.Flags().StringVar(&until, "until", "", "Last date a recurring block applies (YYYY-MM-DD)")

	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	_ = cmd.MarkFlagRequired("provider")

	return cmd
}

// parseClock converts "HH:MM" to a slot index. "24:00" is the end of
// day; minutes must sit on the 15-minute grid.
func parseClock(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("want HH:MM, got %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("want HH:MM, got %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("want HH:MM, got %q", s)
	}
	if hour == 24 && minute == 0 {
		return slot.SlotsPerDay, nil
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("time out of range: %q", s)
	}
	if minute%15 != 0 {
		return 0, fmt.Errorf("minutes must be a multiple of 15: %q", s)
	}
	return slot.FromClock(hour, minute), nil
}
