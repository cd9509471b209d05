package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/johnh2o2/coparent-sub000/internal/block"
	"github.com/johnh2o2/coparent-sub000/internal/dateutil"
)

type weekOptions struct {
	date string // any day inside the wanted week; empty means today
}

func (a *App) weekCmd() *cobra.Command {
	var opts weekOptions

	cmd := &cobra.Command{
		Use:   "week",
		Short: "Show the care schedule for a week",
		Long: `Display the expanded care schedule for one week.

Shows Monday through Sunday with recurring blocks expanded into their
dated occurrences, per-provider totals, and the parental split.`,
		Example: `  coparent week
  coparent week --date=2026-03-04`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return a.runWeek(opts)
		},
	}

	cmd.Flags().StringVar(&opts.date, "date", "", "Any date inside the week (YYYY-MM-DD, default: today)")
	return cmd
}

func (a *App) runWeek(opts weekOptions) error {
	day := time.Now()
	if opts.date != "" {
		parsed, err := dateutil.ParseDate(opts.date)
		if err != nil {
			return err
		}
		day = parsed
	}

	svc, err := a.service(false)
	if err != nil {
		return err
	}

	ctx := context.Background()
	blocks, monday, sunday, err := svc.Week(ctx, day)
	if err != nil {
		return fmt.Errorf("building week view: %w", err)
	}

	header := fmt.Sprintf("WEEK: %s - %s", monday.Format("Mon Jan 2"), sunday.Format("Mon Jan 2, 2006"))
	fmt.Printf("\n  %s\n", formatHeader(header))
	fmt.Println(strings.Repeat("─", 74))

	if len(blocks) == 0 {
		fmt.Println("  No care blocks scheduled for this week.")
		fmt.Println()
		return nil
	}

	PrintDayGrouped(blocks, CalcMaxNotesWidth(30))

	minutes := minutesOf(blocks)
	fmt.Println(strings.Repeat("─", 74))
	PrintProviderStats(minutes)
	fmt.Printf("  Split: %s\n", ShareBar(minutes, 20))
	fmt.Println()
	return nil
}

// minutesOf totals care minutes per provider for already expanded blocks.
func minutesOf(blocks []*block.TimeBlock) map[block.Provider]int {
	minutes := make(map[block.Provider]int)
	for _, b := range blocks {
		minutes[b.Provider] += b.DurationMinutes()
	}
	return minutes
}
