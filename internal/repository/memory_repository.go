package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rongwang/billing-server/internal/models"
	"github.com/samber/lo"
)

// MemoryRepository is a process-local Repository used by tests and demo runs.
// It is not a system of record: counters and invoices vanish with the process.
type MemoryRepository struct {
	mu sync.RWMutex

	owner    *models.Owner
	counters map[string]int64
	invoices []models.Invoice
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		counters: make(map[string]int64),
	}
}

func (r *MemoryRepository) Ping(context.Context) error { return nil }

func (r *MemoryRepository) Close() error { return nil }

func (r *MemoryRepository) GetOwner(context.Context) (*models.Owner, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.owner == nil {
		return nil, nil
	}
	owner := *r.owner
	return &owner, nil
}

func (r *MemoryRepository) SaveOwner(_ context.Context, accessCodeHash string) (*models.Owner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	if r.owner == nil {
		r.owner = &models.Owner{ID: uuid.New().String(), CreatedAt: now}
	}
	r.owner.AccessCodeHash = accessCodeHash
	r.owner.UpdatedAt = now

	owner := *r.owner
	return &owner, nil
}

func (r *MemoryRepository) NextSequenceValue(_ context.Context, key string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	value, ok := r.counters[key]
	if !ok {
		value = models.SequenceBase
	}
	value++
	r.counters[key] = value

	return value, nil
}

func (r *MemoryRepository) ResetSequence(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.counters, key)
	return nil
}

// SetSequence positions a counter, so the next value is value+1
func (r *MemoryRepository) SetSequence(key string, value int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.counters[key] = value
}

func (r *MemoryRepository) CreateInvoice(_ context.Context, invoice *models.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if invoice.ID == "" {
		invoice.ID = uuid.New().String()
	}
	if invoice.CreatedAt.IsZero() {
		invoice.CreatedAt = time.Now().UTC()
	}
	invoice.UpdatedAt = invoice.CreatedAt

	r.invoices = append(r.invoices, *invoice)
	return nil
}

func (r *MemoryRepository) InsertInvoices(_ context.Context, invoices []models.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range invoices {
		if invoices[i].ID == "" {
			invoices[i].ID = uuid.New().String()
		}
		if invoices[i].CreatedAt.IsZero() {
			invoices[i].CreatedAt = time.Now().UTC()
		}
		if invoices[i].UpdatedAt.IsZero() {
			invoices[i].UpdatedAt = invoices[i].CreatedAt
		}
		r.invoices = append(r.invoices, invoices[i])
	}
	return nil
}

func (r *MemoryRepository) GetInvoice(_ context.Context, id, ownerID string) (*models.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	invoice, ok := lo.Find(r.invoices, func(inv models.Invoice) bool {
		return inv.ID == id && inv.OwnerID == ownerID
	})
	if !ok {
		return nil, nil
	}
	return &invoice, nil
}

func (r *MemoryRepository) ListInvoices(_ context.Context, filter models.InvoiceFilter) ([]models.Invoice, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := r.match(filter.OwnerID, filter.Range)
	total := int64(len(matched))

	offset := filter.Offset()
	if offset >= len(matched) {
		return []models.Invoice{}, total, nil
	}
	end := min(offset+filter.Limit, len(matched))

	return matched[offset:end], total, nil
}

func (r *MemoryRepository) FindInvoices(_ context.Context, ownerID string, rng models.DateRange) ([]models.Invoice, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.match(ownerID, rng), nil
}

func (r *MemoryRepository) AggregateInvoices(_ context.Context, ownerID string, rng models.DateRange) (models.Aggregate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := r.match(ownerID, rng)
	if len(matched) == 0 {
		return models.Aggregate{}, nil
	}

	agg := models.Aggregate{Invoices: int64(len(matched))}
	var rateSum float64
	for _, inv := range matched {
		agg.TotalRevenue += inv.Total
		agg.TotalTrucks += inv.Trucks
		rateSum += inv.RatePerTon
	}
	agg.AvgRatePerTon = rateSum / float64(len(matched))

	return agg, nil
}

func (r *MemoryRepository) DeleteInvoices(_ context.Context, ownerID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	before := len(r.invoices)
	if ownerID == "" {
		r.invoices = nil
	} else {
		r.invoices = lo.Reject(r.invoices, func(inv models.Invoice, _ int) bool {
			return inv.OwnerID == ownerID
		})
	}

	return int64(before - len(r.invoices)), nil
}

// match returns a sorted copy of the owner's invoices inside rng, newest first
func (r *MemoryRepository) match(ownerID string, rng models.DateRange) []models.Invoice {
	matched := lo.Filter(r.invoices, func(inv models.Invoice, _ int) bool {
		return inv.OwnerID == ownerID && rng.Contains(inv.CreatedAt)
	})

	slices.SortStableFunc(matched, func(a, b models.Invoice) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		switch {
		case a.InvoiceNumber > b.InvoiceNumber:
			return -1
		case a.InvoiceNumber < b.InvoiceNumber:
			return 1
		}
		return 0
	})

	return matched
}
