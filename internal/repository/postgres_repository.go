package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rongwang/billing-server/internal/models"
)

const invoiceColumns = `id, invoice_number, company_name, company_phone, company_address, company_gst,
	rate_per_ton, trucks, total, notes, owner_id, created_at, updated_at`

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
	}
}

// GetDB returns the underlying database connection
func (r *PostgresRepository) GetDB() *sqlx.DB {
	return r.db
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// Owner repository methods
func (r *PostgresRepository) GetOwner(ctx context.Context) (*models.Owner, error) {
	query := `SELECT id, access_code_hash, created_at, updated_at FROM owner LIMIT 1`

	var owner models.Owner
	err := r.db.GetContext(ctx, &owner, query)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Owner not provisioned
		}
		return nil, err
	}

	return &owner, nil
}

func (r *PostgresRepository) SaveOwner(ctx context.Context, accessCodeHash string) (*models.Owner, error) {
	// the singleton column is the primary key, so a second owner row cannot exist
	query := `
		INSERT INTO owner (singleton, id, access_code_hash, created_at, updated_at)
		VALUES (TRUE, $1, $2, $3, $3)
		ON CONFLICT (singleton) DO UPDATE
		SET access_code_hash = EXCLUDED.access_code_hash, updated_at = EXCLUDED.updated_at
		RETURNING id, access_code_hash, created_at, updated_at
	`

	var owner models.Owner
	err := r.db.GetContext(ctx, &owner, query, uuid.New().String(), accessCodeHash, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	return &owner, nil
}

// Sequence repository methods
func (r *PostgresRepository) NextSequenceValue(ctx context.Context, key string) (int64, error) {
	query := `
		INSERT INTO counters (key, value, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = counters.value + 1, updated_at = NOW()
		RETURNING value
	`

	var value int64
	if err := r.db.QueryRowContext(ctx, query, key, models.SequenceBase+1).Scan(&value); err != nil {
		return 0, err
	}

	return value, nil
}

func (r *PostgresRepository) ResetSequence(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM counters WHERE key = $1`, key)
	return err
}

// Invoice repository methods
func (r *PostgresRepository) CreateInvoice(ctx context.Context, invoice *models.Invoice) error {
	query := `
		INSERT INTO invoices (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	// Generate a new UUID if not provided
	if invoice.ID == "" {
		invoice.ID = uuid.New().String()
	}

	if invoice.CreatedAt.IsZero() {
		invoice.CreatedAt = time.Now().UTC()
	}
	invoice.UpdatedAt = invoice.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		invoice.ID, invoice.InvoiceNumber, invoice.CompanyName, invoice.CompanyPhone,
		invoice.CompanyAddress, invoice.CompanyGst, invoice.RatePerTon, invoice.Trucks,
		invoice.Total, invoice.Notes, invoice.OwnerID, invoice.CreatedAt, invoice.UpdatedAt)

	return err
}

func (r *PostgresRepository) InsertInvoices(ctx context.Context, invoices []models.Invoice) error {
	if len(invoices) == 0 {
		return nil
	}

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
	}

	query := `
		INSERT INTO invoices (` + invoiceColumns + `)
		VALUES (:id, :invoice_number, :company_name, :company_phone, :company_address, :company_gst,
			:rate_per_ton, :trucks, :total, :notes, :owner_id, :created_at, :updated_at)
	`

	_, err := r.db.NamedExecContext(ctx, query, invoices)
	return err
}

func (r *PostgresRepository) GetInvoice(ctx context.Context, id, ownerID string) (*models.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1 AND owner_id = $2`

	var invoice models.Invoice
	err := r.db.GetContext(ctx, &invoice, query, id, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Invoice not found
		}
		return nil, err
	}

	return &invoice, nil
}

func (r *PostgresRepository) ListInvoices(ctx context.Context, filter models.InvoiceFilter) ([]models.Invoice, int64, error) {
	where, args := rangeClause(filter.OwnerID, filter.Range)

	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM invoices WHERE `+where, args...); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(
		`SELECT %s FROM invoices WHERE %s ORDER BY created_at DESC, invoice_number DESC LIMIT $%d OFFSET $%d`,
		invoiceColumns, where, len(args)+1, len(args)+2,
	)
	args = append(args, filter.Limit, filter.Offset())

	invoices := []models.Invoice{}
	if err := r.db.SelectContext(ctx, &invoices, query, args...); err != nil {
		return nil, 0, err
	}

	return invoices, total, nil
}

func (r *PostgresRepository) FindInvoices(ctx context.Context, ownerID string, rng models.DateRange) ([]models.Invoice, error) {
	where, args := rangeClause(ownerID, rng)
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE ` + where + ` ORDER BY created_at DESC, invoice_number DESC`

	invoices := []models.Invoice{}
	if err := r.db.SelectContext(ctx, &invoices, query, args...); err != nil {
		return nil, err
	}

	return invoices, nil
}

func (r *PostgresRepository) AggregateInvoices(ctx context.Context, ownerID string, rng models.DateRange) (models.Aggregate, error) {
	where, args := rangeClause(ownerID, rng)
	query := `
		SELECT COUNT(*) AS invoices,
			COALESCE(SUM(total), 0) AS total_revenue,
			COALESCE(SUM(trucks), 0) AS total_trucks,
			COALESCE(AVG(rate_per_ton), 0) AS avg_rate_per_ton
		FROM invoices WHERE ` + where

	var agg models.Aggregate
	if err := r.db.GetContext(ctx, &agg, query, args...); err != nil {
		return models.Aggregate{}, err
	}

	return agg, nil
}

func (r *PostgresRepository) DeleteInvoices(ctx context.Context, ownerID string) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if ownerID == "" {
		res, err = r.db.ExecContext(ctx, `DELETE FROM invoices`)
	} else {
		res, err = r.db.ExecContext(ctx, `DELETE FROM invoices WHERE owner_id = $1`, ownerID)
	}
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

// rangeClause builds the owner and inclusive createdAt predicate shared by the invoice queries
func rangeClause(ownerID string, rng models.DateRange) (string, []interface{}) {
	where := "owner_id = $1"
	args := []interface{}{ownerID}

	if rng.From != nil {
		args = append(args, *rng.From)
		where += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if rng.To != nil {
		args = append(args, *rng.To)
		where += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}

	return where, args
}
