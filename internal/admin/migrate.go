package admin

import (
	"context"
	"fmt"

	"github.com/rongwang/billing-server/internal/repository"
	"github.com/spf13/cobra"
)

// NewMigrateCommand applies pending schema migrations. Opening the store
// migrates it, so the command only has to connect and report.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepository(cmd, rootOpts, func(ctx context.Context, repo repository.Repository) error {
				if err := repo.Ping(ctx); err != nil {
					return fmt.Errorf("store unreachable after migration: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Schema is up to date (%s)\n", rootOpts.Config.Storage.Driver)
				return nil
			})
		},
	}
}
