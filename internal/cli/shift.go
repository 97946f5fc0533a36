package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/tourdesk-shift-settlement/internal/api_gateway/service"
	"github.com/tourdesk-shift-settlement/internal/domain/shared"
)

// NewSummaryCommand creates the summary command.
func NewSummaryCommand(rootOpts *RootOptions) *cobra.Command {
	var day string

	cmd := &cobra.Command{
		Use:           "summary",
		Short:         "Print the cash summary of a business day",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			businessDay, err := parseDayFlag(day)
			if err != nil {
				return err
			}
			return rootOpts.withServices(cmd, func(ctx context.Context, s *Services) error {
				summary, err := s.Shifts.Summary(ctx, businessDay)
				if err != nil {
					return commandError("summary failed", err)
				}
				return writeJSON(cmd.OutOrStdout(), summary)
			})
		},
	}

	cmd.Flags().StringVar(&day, "day", "", "business day (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("day")

	return cmd
}

// NewCloseCommand creates the close command.
func NewCloseCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		day      string
		closedBy string
	)

	cmd := &cobra.Command{
		Use:   "close",
		Short: "Close a business day",
		Long: `Close a business day: withhold the weekly, season and dispatcher funds,
freeze the settlement snapshot and queue the report for archiving.

Closing an already closed day prints the stored snapshot with "created": false.
The command exits with status 1 while trips of the day are still open.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			businessDay, err := parseDayFlag(day)
			if err != nil {
				return err
			}
			return rootOpts.withServices(cmd, func(ctx context.Context, s *Services) error {
				result, err := s.Shifts.Close(ctx, businessDay, closedBy)
				if err != nil {
					return commandError("close failed", err)
				}
				return writeJSON(cmd.OutOrStdout(), result)
			})
		},
	}

	cmd.Flags().StringVar(&day, "day", "", "business day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&closedBy, "by", "", "operator recorded as closed_by")
	_ = cmd.MarkFlagRequired("day")
	_ = cmd.MarkFlagRequired("by")

	return cmd
}

// NewMotivationCommand creates the motivation command.
func NewMotivationCommand(rootOpts *RootOptions) *cobra.Command {
	var day string

	cmd := &cobra.Command{
		Use:           "motivation",
		Short:         "Print the points and payout breakdown of a business day",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			businessDay, err := parseDayFlag(day)
			if err != nil {
				return err
			}
			return rootOpts.withServices(cmd, func(ctx context.Context, s *Services) error {
				breakdown, err := s.Shifts.MotivationDay(ctx, businessDay)
				if err != nil {
					return commandError("motivation failed", err)
				}
				return writeJSON(cmd.OutOrStdout(), breakdown)
			})
		},
	}

	cmd.Flags().StringVar(&day, "day", "", "business day (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("day")

	return cmd
}

// NewAuditCommand creates the audit command.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	var query service.InvariantsQuery

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Check ledger invariants over a day, an ISO week or a season",
		Long: `Check ledger invariants over exactly one of --day, --week (YYYY-Www)
or --season (YYYY). The report is printed in every case; the command exits
with status 1 when any check fails.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withServices(cmd, func(ctx context.Context, s *Services) error {
				report, err := s.Shifts.Invariants(ctx, query)
				if err != nil {
					return commandError("audit failed", err)
				}
				if err := writeJSON(cmd.OutOrStdout(), report); err != nil {
					return err
				}
				if !report.OK {
					return NewExitError(ExitFailure, "ledger invariants violated")
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&query.Day, "day", "", "business day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&query.Week, "week", "", "ISO week (YYYY-Www)")
	cmd.Flags().StringVar(&query.Season, "season", "", "season year (YYYY)")
	cmd.Flags().StringVar(&query.Checks, "checks", "", "comma separated checks, all when empty")
	cmd.MarkFlagsMutuallyExclusive("day", "week", "season")
	cmd.MarkFlagsOneRequired("day", "week", "season")

	return cmd
}

func parseDayFlag(value string) (time.Time, error) {
	day, err := shared.ParseBusinessDay(value)
	if err != nil {
		return time.Time{}, WrapExitError(ExitCommandError, "invalid --day", err)
	}
	return day, nil
}

// commandError maps validation failures onto ExitCommandError and everything
// else, gating included, onto ExitFailure
func commandError(message string, err error) error {
	if errors.Is(err, shared.ValidationError{}) {
		return WrapExitError(ExitCommandError, message, err)
	}
	return WrapExitError(ExitFailure, message, err)
}
