package service

import (
	"context"
	"time"

	"github.com/rongwang/billing-server/internal/models"
	"github.com/rongwang/billing-server/internal/repository"
	"github.com/rongwang/billing-server/internal/utils"
)

// TokenDuration is the fixed validity of an issued bearer token
const TokenDuration = 12 * time.Hour

// Service defines all the business logic operations
type Service interface {
	// Authentication
	SignIn(ctx context.Context, req models.SignInRequest) (*models.AuthResponse, error)
	Authenticate(token string) (string, error)

	// Invoice operations
	CreateInvoice(ctx context.Context, ownerID string, req models.CreateInvoiceRequest) (*models.Invoice, error)
	GetInvoice(ctx context.Context, ownerID, invoiceID string) (*models.Invoice, error)
	ListInvoices(ctx context.Context, ownerID string, query models.ListInvoicesQuery) (*models.ListInvoicesResponse, error)
	AggregateInvoices(ctx context.Context, ownerID string, rng models.DateRange) (models.Aggregate, error)
	ExportInvoices(ctx context.Context, ownerID, from, to string) ([]models.Invoice, error)

	// Reporting
	Summary(ctx context.Context, ownerID, from, to string) (*models.SummaryResponse, error)
	Daily(ctx context.Context, ownerID, date string) (*models.DailyResponse, error)
}

// DefaultService implements the Service interface
type DefaultService struct {
	repo      repository.Repository
	jwtSecret []byte
	location  *time.Location
	now       func() time.Time
	logger    *utils.Logger
}

// Option customises a DefaultService
type Option func(*DefaultService)

// WithLocation sets the time zone used for calendar boundaries
func WithLocation(loc *time.Location) Option {
	return func(s *DefaultService) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithClock replaces time.Now, used by tests to pin "today"
func WithClock(now func() time.Time) Option {
	return func(s *DefaultService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the service logger
func WithLogger(logger *utils.Logger) Option {
	return func(s *DefaultService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewDefaultService creates a new DefaultService
func NewDefaultService(repo repository.Repository, jwtSecret string, opts ...Option) *DefaultService {
	s := &DefaultService{
		repo:      repo,
		jwtSecret: []byte(jwtSecret),
		location:  time.UTC,
		now:       time.Now,
		logger:    utils.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location returns the time zone used for calendar boundaries
func (s *DefaultService) Location() *time.Location {
	return s.location
}

// Now returns the service clock reading in the configured time zone
func (s *DefaultService) Now() time.Time {
	return s.now().In(s.location)
}
