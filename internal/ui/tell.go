package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/johnh2o2/coparent-sub000/internal/change"
	"github.com/johnh2o2/coparent-sub000/internal/interpret"
	"github.com/johnh2o2/coparent-sub000/internal/schedule"
	"github.com/johnh2o2/coparent-sub000/internal/slot"
)

const tellMaxRetries = 3

func (a *App) tellCmd() *cobra.Command {
	var (
		dryRun  bool
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "tell [command]",
		Short: "Change the schedule with natural language",
		Long: `Use AI to turn a natural language command into schedule changes.

The LLM understands natural language dates like:
  - "today", "tomorrow", "next Monday"
  - "the week of March 2nd"
  - "2026-03-02" (explicit YYYY-MM-DD)

Examples:
  coparent tell "mom takes the kids next week"
  coparent tell "swap Tuesday and Thursday"
  coparent tell "the nanny covers weekday mornings 8 to 12" --dry-run`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			input := strings.Join(args, " ")

			svc, err := a.service(true)
			if err != nil {
				return err
			}

			ctx := context.Background()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			fmt.Println("Interpreting command...")
			result, err := svc.Tell(ctx, input, schedule.TellOptions{
				DryRun:     dryRun,
				MaxRetries: tellMaxRetries,
			})
			if err != nil {
				if errors.Is(err, interpret.ErrNoActionRecognized) {
					if result != nil && result.Text != "" {
						fmt.Println(result.Text)
					}
					fmt.Println(formatMuted("No schedule change recognized."))
					return nil
				}
				return err
			}

			if result.Text != "" {
				fmt.Printf("\n%s\n", result.Text)
			}

			displayBatch(result.Batch)

			if dryRun {
				fmt.Println("\n(Dry run - changes not applied)")
				return nil
			}

			displayApply(result.Apply)

			if result.Summary != nil {
				fmt.Println()
				fmt.Printf("  %s\n", formatHeader(result.Summary.Title))
				if result.Summary.NotificationMessage != "" {
					fmt.Printf("  %s\n", result.Summary.NotificationMessage)
				}
				if delta := FormatDelta(result.Summary.CareTimeDelta); delta != "" {
					fmt.Printf("  Care time: %s\n", formatStats(delta))
				}
			}

			if len(result.Schedule) > 0 {
				fmt.Printf("\n  %s\n", formatHeader("UPDATED SCHEDULE"))
				fmt.Println(strings.Repeat("─", 74))
				PrintDayGrouped(result.Schedule, CalcMaxNotesWidth(30))
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show proposed changes without applying them")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Give up if interpretation takes longer (0 to wait forever)")

	return cmd
}

// displayBatch prints one row per proposed change.
func displayBatch(batch *change.Batch) {
	if batch == nil || len(batch.Changes) == 0 {
		return
	}
	fmt.Println()
	for _, item := range batch.Breakdown() {
		verb := "?"
		switch item.Kind {
		case change.KindAddBlock:
			verb = "+"
		case change.KindRemoveBlock:
			verb = "-"
		case change.KindChangeTime, change.KindSwap, change.KindReassign:
			verb = "~"
		}
		recurSuffix := ""
		if item.Recurring {
			recurSuffix = " (recurring)"
		}
		fmt.Printf("  %s %s %s-%s %s%s\n",
			verb,
			item.Day.Format("Mon Jan 2"),
			slot.Format(item.StartSlot),
			slot.Format(item.EndSlot),
			formatProvider(item.Provider, string(item.Provider)),
			recurSuffix,
		)
	}
}

// displayApply prints the apply outcome, including partial failures.
func displayApply(result *change.ApplyResult) {
	if result == nil {
		return
	}
	switch {
	case result.IsFullSuccess():
		fmt.Printf("\n%s\n", formatStats(fmt.Sprintf("Applied %d changes.", result.TotalSucceeded())))
	case result.IsPartialSuccess():
		fmt.Printf("\n%s\n", formatWarn(fmt.Sprintf("Partially applied: %d succeeded, %d failed.",
			result.TotalSucceeded(), result.TotalFailed())))
	default:
		fmt.Printf("\n%s\n", formatWarn("No changes could be applied."))
	}
	if result.Err != nil {
		fmt.Printf("  %s\n", formatWarn(result.Err.Error()))
	}
	for _, b := range result.FailedSaves {
		fmt.Printf("  %s\n", formatMuted(fmt.Sprintf("could not save %s %s %s",
			b.Provider, b.Day.Format("2006-01-02"), b.TimeRange())))
	}
	for _, b := range result.FailedDeletes {
		fmt.Printf("  %s\n", formatMuted(fmt.Sprintf("could not remove %s %s %s",
			b.Provider, b.Day.Format("2006-01-02"), b.TimeRange())))
	}
}
