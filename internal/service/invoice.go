package service

import (
	"context"
	"strconv"
	"strings"

	ierr "github.com/rongwang/billing-server/internal/errors"
	"github.com/rongwang/billing-server/internal/models"
	"github.com/rongwang/billing-server/internal/validator"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Pagination bounds for invoice listings
const (
	DefaultPageLimit = 50
	MaxPageLimit     = 500
)

// CreateInvoice validates the request, draws the next invoice number and persists the invoice
func (s *DefaultService) CreateInvoice(
	ctx context.Context,
	ownerID string,
	req models.CreateInvoiceRequest,
) (*models.Invoice, error) {
	req.CompanyName = strings.TrimSpace(req.CompanyName)
	req.CompanyPhone = strings.TrimSpace(req.CompanyPhone)
	req.CompanyAddress = strings.TrimSpace(req.CompanyAddress)
	req.CompanyGst = strings.TrimSpace(req.CompanyGst)
	req.Notes = strings.TrimSpace(req.Notes)

	if err := validator.ValidateRequest(req); err != nil {
		return nil, err
	}

	total, _ := InvoiceTotal(*req.RatePerTon, *req.Trucks).Float64()

	number, err := s.repo.NextSequenceValue(ctx, models.InvoiceNumberSequence)
	if err != nil {
		return nil, ierr.WithError(err).
			WithMessage("error drawing invoice number").
			Mark(ierr.ErrDatabase)
	}

	invoice := &models.Invoice{
		InvoiceNumber:  number,
		CompanyName:    req.CompanyName,
		CompanyPhone:   req.CompanyPhone,
		CompanyAddress: req.CompanyAddress,
		CompanyGst:     req.CompanyGst,
		RatePerTon:     *req.RatePerTon,
		Trucks:         *req.Trucks,
		Total:          total,
		Notes:          req.Notes,
		OwnerID:        ownerID,
		CreatedAt:      s.now().UTC(),
	}

	if err := s.repo.CreateInvoice(ctx, invoice); err != nil {
		return nil, ierr.WithError(err).
			WithMessage("error creating invoice").
			Mark(ierr.ErrDatabase)
	}

	s.logger.Infow("invoice created", "invoice_number", invoice.InvoiceNumber, "invoice_id", invoice.ID)

	return invoice, nil
}

// InvoiceTotal is ratePerTon × trucks in exact decimal arithmetic
func InvoiceTotal(ratePerTon float64, trucks int64) decimal.Decimal {
	return decimal.NewFromFloat(ratePerTon).Mul(decimal.NewFromInt(trucks))
}

// GetInvoice returns an invoice only when it belongs to ownerID
func (s *DefaultService) GetInvoice(ctx context.Context, ownerID, invoiceID string) (*models.Invoice, error) {
	invoice, err := s.repo.GetInvoice(ctx, invoiceID, ownerID)
	if err != nil {
		return nil, ierr.WithError(err).
			WithMessage("error getting invoice").
			Mark(ierr.ErrDatabase)
	}

	if invoice == nil {
		return nil, ierr.NewError("invoice not found").
			WithHint("Not found").
			Mark(ierr.ErrNotFound)
	}

	return invoice, nil
}

// ListInvoices returns one page of the owner's invoices, newest first, with the total match count
func (s *DefaultService) ListInvoices(
	ctx context.Context,
	ownerID string,
	query models.ListInvoicesQuery,
) (*models.ListInvoicesResponse, error) {
	rng, err := parseRange(query.From, query.To, s.location)
	if err != nil {
		return nil, err
	}

	filter := models.InvoiceFilter{
		OwnerID: ownerID,
		Range:   rng,
		Page:    max(1, pagingValue(query.Page, 1)),
		Limit:   lo.Clamp(pagingValue(query.Limit, DefaultPageLimit), 1, MaxPageLimit),
	}

	invoices, total, err := s.repo.ListInvoices(ctx, filter)
	if err != nil {
		return nil, ierr.WithError(err).
			WithMessage("error listing invoices").
			Mark(ierr.ErrDatabase)
	}

	if invoices == nil {
		invoices = []models.Invoice{}
	}

	return &models.ListInvoicesResponse{
		Data:  invoices,
		Page:  filter.Page,
		Limit: filter.Limit,
		Total: total,
	}, nil
}

// pagingValue parses a page or limit parameter. Absent, unparsable and zero
// values fall back to def; out-of-range values are clamped by the caller.
func pagingValue(value string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n == 0 {
		return def
	}
	return n
}

// AggregateInvoices rolls up the owner's invoices inside rng
func (s *DefaultService) AggregateInvoices(ctx context.Context, ownerID string, rng models.DateRange) (models.Aggregate, error) {
	agg, err := s.repo.AggregateInvoices(ctx, ownerID, rng)
	if err != nil {
		return models.Aggregate{}, ierr.WithError(err).
			WithMessage("error aggregating invoices").
			Mark(ierr.ErrDatabase)
	}
	return agg, nil
}

// ExportInvoices returns every invoice in [from, to], newest first. Both bounds are required.
func (s *DefaultService) ExportInvoices(ctx context.Context, ownerID, from, to string) ([]models.Invoice, error) {
	if strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" {
		return nil, ierr.NewError("export range incomplete").
			WithHint("from and to date are required for export").
			Mark(ierr.ErrValidation)
	}

	rng, err := parseRange(from, to, s.location)
	if err != nil {
		return nil, err
	}

	invoices, err := s.repo.FindInvoices(ctx, ownerID, rng)
	if err != nil {
		return nil, ierr.WithError(err).
			WithMessage("error fetching invoices for export").
			Mark(ierr.ErrDatabase)
	}

	return invoices, nil
}
