package admin

import (
	"context"
	"fmt"

	"github.com/rongwang/billing-server/internal/models"
	"github.com/rongwang/billing-server/internal/repository"
	"github.com/spf13/cobra"
)

// NewCleanCommand deletes every invoice and resets the invoice number counter
func NewCleanCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Delete all invoices and reset invoice numbering",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepository(cmd, rootOpts, func(ctx context.Context, repo repository.Repository) error {
				deleted, err := repo.DeleteInvoices(ctx, "")
				if err != nil {
					return fmt.Errorf("failed to delete invoices: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d invoices\n", deleted)

				if err := repo.ResetSequence(ctx, models.InvoiceNumberSequence); err != nil {
					return fmt.Errorf("failed to reset invoice counter: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Reset invoice number counter")
				return nil
			})
		},
	}
}
