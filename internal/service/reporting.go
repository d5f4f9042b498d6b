package service

import (
	"context"
	"strings"

	ierr "github.com/rongwang/billing-server/internal/errors"
	"github.com/rongwang/billing-server/internal/models"
	"github.com/samber/lo"
)

// Summary returns the all-time rollup (optionally narrowed by from/to) and the
// current month, previous month and current year windows
func (s *DefaultService) Summary(ctx context.Context, ownerID, from, to string) (*models.SummaryResponse, error) {
	rng, err := parseRange(from, to, s.location)
	if err != nil {
		return nil, err
	}

	base, err := s.AggregateInvoices(ctx, ownerID, rng)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	prev := startOfMonth(now).AddDate(0, -1, 0)

	thisMonth, err := s.AggregateInvoices(ctx, ownerID, window(startOfMonth(now), endOfMonth(now)))
	if err != nil {
		return nil, err
	}

	prevMonth, err := s.AggregateInvoices(ctx, ownerID, window(prev, endOfMonth(prev)))
	if err != nil {
		return nil, err
	}

	thisYear, err := s.AggregateInvoices(ctx, ownerID, window(startOfYear(now), endOfYear(now)))
	if err != nil {
		return nil, err
	}

	return &models.SummaryResponse{
		Invoices:      base.Invoices,
		TotalRevenue:  base.TotalRevenue,
		TotalTrucks:   base.TotalTrucks,
		AvgRatePerTon: base.AvgRatePerTon,
		ThisMonth:     thisMonth,
		PrevMonth:     prevMonth,
		ThisYear:      thisYear,
	}, nil
}

// Daily lists the invoices created on one calendar day with totals folded from that list
func (s *DefaultService) Daily(ctx context.Context, ownerID, date string) (*models.DailyResponse, error) {
	day := s.Now()
	if strings.TrimSpace(date) != "" {
		t, _, err := parseDate(date, s.location)
		if err != nil {
			return nil, invalidDate("date", err)
		}
		day = t.In(s.location)
	}

	invoices, err := s.repo.FindInvoices(ctx, ownerID, window(startOfDay(day), endOfDay(day)))
	if err != nil {
		return nil, ierr.WithError(err).
			WithMessage("error fetching daily invoices").
			Mark(ierr.ErrDatabase)
	}

	if invoices == nil {
		invoices = []models.Invoice{}
	}

	return &models.DailyResponse{
		Date:     day.Format(dateLayout),
		Totals:   FoldTotals(invoices),
		Invoices: invoices,
	}, nil
}

// FoldTotals sums count, revenue and trucks over a list of invoices
func FoldTotals(invoices []models.Invoice) models.PeriodTotals {
	return lo.Reduce(invoices, func(acc models.PeriodTotals, inv models.Invoice, _ int) models.PeriodTotals {
		acc.Invoices++
		acc.TotalRevenue += inv.Total
		acc.TotalTrucks += inv.Trucks
		return acc
	}, models.PeriodTotals{})
}
