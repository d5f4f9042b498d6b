package admin

import (
	"context"
	"fmt"

	"github.com/rongwang/billing-server/internal/config"
	"github.com/rongwang/billing-server/internal/repository"
	"github.com/spf13/cobra"
)

// OpenFunc connects the store the commands operate on
type OpenFunc func(ctx context.Context, cfg *config.Config) (repository.Repository, error)

// RootOptions holds state shared by all commands
type RootOptions struct {
	Config *config.Config
	Open   OpenFunc
	Driver string
}

// NewRootCommand creates the admin CLI reading config.yaml and the environment
func NewRootCommand() *cobra.Command {
	return NewRootCommandWith(&RootOptions{Open: repository.Open})
}

// NewRootCommandWith creates the admin CLI around preset options
func NewRootCommandWith(opts *RootOptions) *cobra.Command {
	if opts.Open == nil {
		opts.Open = repository.Open
	}

	cmd := &cobra.Command{
		Use:   "billing-admin",
		Short: "Maintenance tasks for the billing server",
		Long:  "Provision the owner, load sample invoices, wipe invoice data and apply schema migrations.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.Config == nil {
				cfg, err := config.LoadConfig()
				if err != nil {
					return err
				}
				opts.Config = cfg
			}
			if opts.Driver != "" {
				opts.Config.Storage.Driver = opts.Driver
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Driver, "driver", "", "storage driver override (postgres|mongo|memory)")

	cmd.AddCommand(NewSeedOwnerCommand(opts))
	cmd.AddCommand(NewSeedInvoicesCommand(opts))
	cmd.AddCommand(NewCleanCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))

	return cmd
}

// withRepository opens the store, runs fn and closes the store again
func withRepository(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, repo repository.Repository) error) error {
	ctx := cmd.Context()

	repo, err := opts.Open(ctx, opts.Config)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", opts.Config.Storage.Driver, err)
	}
	defer repo.Close()

	return fn(ctx, repo)
}
