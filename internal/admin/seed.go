package admin

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rongwang/billing-server/internal/export"
	"github.com/rongwang/billing-server/internal/models"
	"github.com/rongwang/billing-server/internal/repository"
	"github.com/rongwang/billing-server/internal/service"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// ErrOwnerMissing is returned by seed-invoices before seed-owner has run
var ErrOwnerMissing = errors.New("owner not found, run seed-owner first")

// NewSeedOwnerCommand creates or updates the singleton owner from ACCESS_CODE_SEED
func NewSeedOwnerCommand(rootOpts *RootOptions) *cobra.Command {
	var accessCode string

	cmd := &cobra.Command{
		Use:   "seed-owner",
		Short: "Create the owner or replace its access code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			code := strings.TrimSpace(accessCode)
			if code == "" {
				code = strings.TrimSpace(rootOpts.Config.Seed.AccessCode)
			}
			if code == "" {
				return errors.New("ACCESS_CODE_SEED is required")
			}

			return withRepository(cmd, rootOpts, func(ctx context.Context, repo repository.Repository) error {
				return seedOwner(ctx, cmd, repo, code)
			})
		},
	}

	cmd.Flags().StringVar(&accessCode, "access-code", "", "access code to hash (defaults to ACCESS_CODE_SEED)")

	return cmd
}

func seedOwner(ctx context.Context, cmd *cobra.Command, repo repository.Repository, accessCode string) error {
	existing, err := repo.GetOwner(ctx)
	if err != nil {
		return fmt.Errorf("failed to load owner: %w", err)
	}

	hash, err := service.HashAccessCode(accessCode)
	if err != nil {
		return fmt.Errorf("failed to hash access code: %w", err)
	}

	owner, err := repo.SaveOwner(ctx, hash)
	if err != nil {
		return fmt.Errorf("failed to save owner: %w", err)
	}

	if existing == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Owner %s created with the seeded access code\n", owner.ID)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Owner %s updated with the seeded access code\n", owner.ID)
	}
	return nil
}

// NewSeedInvoicesCommand replaces the owner's invoices with the sample set
func NewSeedInvoicesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed-invoices",
		Short: "Replace the owner's invoices with sample data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepository(cmd, rootOpts, func(ctx context.Context, repo repository.Repository) error {
				return seedInvoices(ctx, cmd, repo)
			})
		},
	}
}

func seedInvoices(ctx context.Context, cmd *cobra.Command, repo repository.Repository) error {
	out := cmd.OutOrStdout()

	owner, err := repo.GetOwner(ctx)
	if err != nil {
		return fmt.Errorf("failed to load owner: %w", err)
	}
	if owner == nil {
		return ErrOwnerMissing
	}

	removed, err := repo.DeleteInvoices(ctx, owner.ID)
	if err != nil {
		return fmt.Errorf("failed to clear invoices: %w", err)
	}
	if removed > 0 {
		fmt.Fprintf(out, "Cleared %d existing invoices\n", removed)
	}

	invoices := SampleInvoices(owner.ID)
	for i := range invoices {
		number, err := repo.NextSequenceValue(ctx, models.InvoiceNumberSequence)
		if err != nil {
			return fmt.Errorf("failed to draw invoice number: %w", err)
		}
		invoices[i].InvoiceNumber = number
	}

	if err := repo.InsertInvoices(ctx, invoices); err != nil {
		return fmt.Errorf("failed to insert sample invoices: %w", err)
	}
	fmt.Fprintf(out, "Created %d sample invoices\n", len(invoices))

	agg, err := repo.AggregateInvoices(ctx, owner.ID, models.DateRange{})
	if err != nil {
		return fmt.Errorf("failed to summarise invoices: %w", err)
	}

	fmt.Fprintln(out, "Dashboard summary:")
	fmt.Fprintf(out, "  Invoices: %d\n", agg.Invoices)
	fmt.Fprintf(out, "  Total revenue: Rs. %s\n", export.FormatAmount(decimal.NewFromFloat(agg.TotalRevenue)))
	fmt.Fprintf(out, "  Total trucks: %d\n", agg.TotalTrucks)
	fmt.Fprintf(out, "  Avg rate/ton: Rs. %.0f\n", math.Round(agg.AvgRatePerTon))

	return nil
}

type sample struct {
	company, phone, address, gst, notes string
	rate                                float64
	trucks                              int64
	date                                string
}

var samples = []sample{
	{"ABC Transport Ltd", "+91-9876543210", "123 Transport Street, Mumbai, Maharashtra 400001", "27ABCDE1234F1Z5", "Regular delivery route", 850, 5, "2024-01-15"},
	{"XYZ Logistics Pvt Ltd", "+91-9876543211", "456 Logistics Hub, Delhi, Delhi 110001", "07XYZAB5678G1H9", "Express delivery service", 920, 8, "2024-02-20"},
	{"Prime Movers Co", "+91-9876543212", "789 Industrial Area, Pune, Maharashtra 411001", "27PRIME1234K1L8", "Bulk cargo transport", 750, 12, "2024-03-10"},
	{"Swift Cargo Services", "+91-9876543213", "321 Port Road, Chennai, Tamil Nadu 600001", "33SWIFT1234M1N7", "Port to warehouse delivery", 1000, 6, "2024-06-15"},
	{"Reliable Transport", "+91-9876543214", "654 Highway Junction, Bangalore, Karnataka 560001", "29RELBL1234P1Q6", "Interstate transportation", 880, 10, "2024-08-05"},
	{"Mega Freight Solutions", "+91-9876543215", "987 Freight Terminal, Kolkata, West Bengal 700001", "19MEGA123456R1S5", "Heavy cargo specialist", 950, 15, "2025-01-10"},
	{"Express Movers Ltd", "+91-9876543216", "147 Express Way, Hyderabad, Telangana 500001", "36EXPR123456T1U4", "Time-critical deliveries", 820, 7, "2025-08-18"},
}

// SampleInvoices returns the demo invoices for ownerID, oldest first and
// without invoice numbers. Dates are midnight UTC.
func SampleInvoices(ownerID string) []models.Invoice {
	invoices := make([]models.Invoice, 0, len(samples))
	for _, s := range samples {
		created, _ := time.Parse("2006-01-02", s.date)
		total, _ := service.InvoiceTotal(s.rate, s.trucks).Float64()

		invoices = append(invoices, models.Invoice{
			CompanyName:    s.company,
			CompanyPhone:   s.phone,
			CompanyAddress: s.address,
			CompanyGst:     s.gst,
			RatePerTon:     s.rate,
			Trucks:         s.trucks,
			Total:          total,
			Notes:          s.notes,
			OwnerID:        ownerID,
			CreatedAt:      created,
			UpdatedAt:      created,
		})
	}
	return invoices
}
