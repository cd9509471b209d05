package ui

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/johnh2o2/coparent-sub000/internal/block"
	"github.com/johnh2o2/coparent-sub000/internal/dateutil"
	"github.com/johnh2o2/coparent-sub000/internal/slot"
)

func (a *App) removeCmd() *cobra.Command {
	var (
		date     string
		start    string
		provider string
	)

	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove a care block",
		Long: `Remove the stored care block matching a date, provider, and start time.

Recurring blocks are removed entirely, use list to find them first.

Example:
  coparent remove --date=2026-03-02 --start=09:00 --provider=mom`,
		RunE: func(_ *cobra.Command, _ []string) error {
			day, err := dateutil.ParseDate(date)
			if err != nil {
				return err
			}
			startSlot, err := parseClock(start)
			if err != nil {
				return fmt.Errorf("invalid --start: %w", err)
			}
			p, err := block.ParseProvider(provider)
			if err != nil {
				return err
			}

			svc, err := a.service(false)
			if err != nil {
				return err
			}

			if err := svc.RemoveBlock(context.Background(), day, p, startSlot); err != nil {
				return fmt.Errorf("removing block: %w", err)
			}

			fmt.Printf("Removed %s %s starting %s\n",
				formatProvider(p, string(p)), day.Format("2006-01-02"), slot.Format(startSlot))
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Date (YYYY-MM-DD, required)")
	cmd.Flags().StringVar(&start, "start", "", "Start time (HH:MM, required)")
	cmd.Flags().StringVar(&provider, "provider", "", "Provider (required)")

	_ = cmd.MarkFlagRequired("date")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("provider")

	return cmd
}
