package ui

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/johnh2o2/coparent-sub000/internal/block"
	"github.com/johnh2o2/coparent-sub000/internal/dateutil"
)

func (a *App) listCmd() *cobra.Command {
	var (
		startDate string
		endDate   string
		expand    bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List care blocks in a date range",
		Long: `List care blocks scheduled within a date range.

By default shows stored blocks: dated blocks anchored in the range plus
recurring templates, marked with ⟳ at their anchor date. With --expand,
recurring blocks are expanded into their dated occurrences instead.

If no dates are specified, lists today's blocks.
If only --start is specified, lists blocks for that single day.`,
		Example: `  coparent list
  coparent list --start=2026-03-02 --end=2026-03-08
  coparent list --start=2026-03-02 --end=2026-03-08 --expand`,
		RunE: func(_ *cobra.Command, _ []string) error {
			dateRange, err := dateutil.NewDateRange(startDate, endDate)
			if err != nil {
				return err
			}

			ctx := context.Background()
			var blocks []*block.TimeBlock
			if expand {
				svc, err := a.service(false)
				if err != nil {
					return err
				}
				blocks, err = svc.Expanded(ctx, dateRange.Start, dateRange.End)
				if err != nil {
					return fmt.Errorf("listing blocks: %w", err)
				}
			} else {
				store, err := a.repo()
				if err != nil {
					return err
				}
				blocks, err = store.ListByDateRange(ctx, dateRange.Start, dateRange.End)
				if err != nil {
					return fmt.Errorf("listing blocks: %w", err)
				}
			}

			if len(blocks) == 0 {
				fmt.Println("No care blocks found in the specified date range.")
				return nil
			}

			PrintDayGrouped(blocks, CalcMaxNotesWidth(30))
			return nil
		},
	}

	cmd.Flags().StringVar(&startDate, "start", "", "Start date (YYYY-MM-DD, defaults to today)")
	cmd.Flags().StringVar(&endDate, "end", "", "End date (YYYY-MM-DD, defaults to start date)")
	cmd.Flags().BoolVar(&expand, "expand", false, "Expand recurring blocks into dated occurrences")

	return cmd
}
