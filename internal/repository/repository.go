package repository

import (
	"context"

	"github.com/rongwang/billing-server/internal/models"
)

// OwnerStore holds the singleton owner credential
type OwnerStore interface {
	// GetOwner returns nil, nil when no owner has been provisioned
	GetOwner(ctx context.Context) (*models.Owner, error)
	// SaveOwner creates the owner or replaces its access code hash
	SaveOwner(ctx context.Context, accessCodeHash string) (*models.Owner, error)
}

// SequenceStore hands out monotonically increasing numbers per key
type SequenceStore interface {
	// NextSequenceValue atomically increments the counter and returns the new value.
	// A missing counter starts at models.SequenceBase, so the first value is base+1.
	NextSequenceValue(ctx context.Context, key string) (int64, error)
	ResetSequence(ctx context.Context, key string) error
}

// InvoiceStore persists invoices and answers range queries over them
type InvoiceStore interface {
	CreateInvoice(ctx context.Context, invoice *models.Invoice) error
	InsertInvoices(ctx context.Context, invoices []models.Invoice) error
	// GetInvoice returns nil, nil when the invoice does not exist or belongs to another owner
	GetInvoice(ctx context.Context, id, ownerID string) (*models.Invoice, error)
	ListInvoices(ctx context.Context, filter models.InvoiceFilter) ([]models.Invoice, int64, error)
	FindInvoices(ctx context.Context, ownerID string, rng models.DateRange) ([]models.Invoice, error)
	AggregateInvoices(ctx context.Context, ownerID string, rng models.DateRange) (models.Aggregate, error)
	// DeleteInvoices removes the owner's invoices, or every invoice when ownerID is empty
	DeleteInvoices(ctx context.Context, ownerID string) (int64, error)
}

// Repository interface defines the methods that any repository implementation must satisfy
type Repository interface {
	OwnerStore
	SequenceStore
	InvoiceStore

	Ping(ctx context.Context) error
	Close() error
}
