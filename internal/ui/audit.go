package ui

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/johnh2o2/coparent-sub000/internal/journal"
)

func (a *App) auditCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show past schedule commands and their outcomes",
		Long: `Show the audit log: every applied command, what it said,
how it was summarized, and whether it fully applied.`,
		Example: `  coparent audit
  coparent audit --limit=5
  coparent audit clear`,
		RunE: func(_ *cobra.Command, _ []string) error {
			svc, err := a.service(false)
			if err != nil {
				return err
			}

			entries, err := svc.Audit(context.Background(), limit)
			if err != nil {
				return fmt.Errorf("reading audit log: %w", err)
			}
			if len(entries) == 0 {
				fmt.Println("Audit log is empty.")
				return nil
			}

			for _, e := range entries {
				fmt.Printf("%s  %s  %s\n",
					formatMuted(e.CreatedAt.Format("2006-01-02 15:04")),
					formatOutcome(e.Outcome),
					e.CommandText,
				)
				if e.Summary != "" {
					fmt.Printf("    %s\n", e.Summary)
				}
				if e.Failed > 0 {
					fmt.Printf("    %s\n", formatMuted(fmt.Sprintf("%d applied, %d failed", e.Succeeded, e.Failed)))
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum entries to show (0 for all)")
	cmd.AddCommand(a.auditClearCmd())

	return cmd
}

func (a *App) auditClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all audit entries",
		RunE: func(_ *cobra.Command, _ []string) error {
			svc, err := a.service(false)
			if err != nil {
				return err
			}
			if err := svc.ClearAudit(context.Background()); err != nil {
				return fmt.Errorf("clearing audit log: %w", err)
			}
			fmt.Println("Audit log cleared.")
			return nil
		},
	}
}

func formatOutcome(o journal.Outcome) string {
	switch o {
	case journal.OutcomeApplied:
		return formatStats("applied")
	case journal.OutcomePartial:
		return formatWarn("partial")
	default:
		return formatWarn("failed ")
	}
}
