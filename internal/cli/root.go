// Package cli implements settlementctl, the operator command line for closing
// business days, auditing the ledger and administering motivation settings.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tourdesk-shift-settlement/internal/api_gateway/service"
)

// Services are the operations the commands drive
type Services struct {
	Shifts   service.ShiftService
	Settings service.SettingsService
}

// Connector opens the services for the named configuration. The returned
// release func is called once the command is done.
type Connector func(ctx context.Context, configName string) (*Services, func(), error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigName string
	connect    Connector
}

// NewRootCommand creates the root command of settlementctl.
func NewRootCommand(connect Connector) *cobra.Command {
	opts := &RootOptions{connect: connect}

	cmd := &cobra.Command{
		Use:   "settlementctl",
		Short: "Operate the tour desk shift settlement ledger",
		Long: `settlementctl closes business days, audits ledger invariants and
administers the motivation settings. Every command prints JSON on stdout.`,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigName, "config", "settlementctl", "config file base name looked up in ./configs and .")

	cmd.AddCommand(NewSummaryCommand(opts))
	cmd.AddCommand(NewCloseCommand(opts))
	cmd.AddCommand(NewMotivationCommand(opts))
	cmd.AddCommand(NewAuditCommand(opts))
	cmd.AddCommand(NewSettingsCommand(opts))

	return cmd
}

// withServices connects, runs fn and releases the connections
func (o *RootOptions) withServices(cmd *cobra.Command, fn func(ctx context.Context, s *Services) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	services, release, err := o.connect(ctx, o.ConfigName)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to connect", err)
	}
	defer release()

	return fn(ctx, services)
}
