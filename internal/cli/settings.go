package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// NewSettingsCommand creates the settings command group.
func NewSettingsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect motivation settings and day snapshots",
	}

	cmd.AddCommand(newSettingsShowCommand(rootOpts))
	cmd.AddCommand(newSnapshotDeleteCommand(rootOpts))

	return cmd
}

func newSettingsShowCommand(rootOpts *RootOptions) *cobra.Command {
	var day string

	cmd := &cobra.Command{
		Use:           "show",
		Short:         "Print the live settings, or the snapshot of --day",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if day == "" {
				return rootOpts.withServices(cmd, func(ctx context.Context, s *Services) error {
					live, err := s.Settings.GetLive(ctx)
					if err != nil {
						return commandError("failed to read live settings", err)
					}
					return writeJSON(cmd.OutOrStdout(), live)
				})
			}

			businessDay, err := parseDayFlag(day)
			if err != nil {
				return err
			}
			return rootOpts.withServices(cmd, func(ctx context.Context, s *Services) error {
				snapshot, err := s.Settings.GetSnapshot(ctx, businessDay)
				if err != nil {
					return commandError("failed to read settings snapshot", err)
				}
				return writeJSON(cmd.OutOrStdout(), snapshot)
			})
		},
	}

	cmd.Flags().StringVar(&day, "day", "", "business day (YYYY-MM-DD) of the snapshot")

	return cmd
}

func newSnapshotDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	var day string

	cmd := &cobra.Command{
		Use:           "snapshot-delete",
		Short:         "Drop the settings snapshot of an open day",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			businessDay, err := parseDayFlag(day)
			if err != nil {
				return err
			}
			return rootOpts.withServices(cmd, func(ctx context.Context, s *Services) error {
				if err := s.Settings.DeleteSnapshot(ctx, businessDay); err != nil {
					return commandError("failed to delete settings snapshot", err)
				}
				return writeJSON(cmd.OutOrStdout(), map[string]any{"business_day": day, "deleted": true})
			})
		},
	}

	cmd.Flags().StringVar(&day, "day", "", "business day (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("day")

	return cmd
}
