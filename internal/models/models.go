package models

import (
	"time"
)

// InvoiceNumberSequence is the counter key used for invoice numbers
const InvoiceNumberSequence = "invoiceNumber"

// SequenceBase is the value a counter holds before its first increment
const SequenceBase int64 = 1000

// Owner is the single principal of a deployment
type Owner struct {
	ID             string    `db:"id" json:"id"`
	AccessCodeHash string    `db:"access_code_hash" json:"-"` // bcrypt hash, never returned in JSON
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}

// Invoice represents one billed delivery
type Invoice struct {
	ID             string    `db:"id" json:"id"`
	InvoiceNumber  int64     `db:"invoice_number" json:"invoiceNumber"`
	CompanyName    string    `db:"company_name" json:"companyName"`
	CompanyPhone   string    `db:"company_phone" json:"companyPhone,omitempty"`
	CompanyAddress string    `db:"company_address" json:"companyAddress"`
	CompanyGst     string    `db:"company_gst" json:"companyGst"`
	RatePerTon     float64   `db:"rate_per_ton" json:"ratePerTon"`
	Trucks         int64     `db:"trucks" json:"trucks"`
	Total          float64   `db:"total" json:"total"`
	Notes          string    `db:"notes" json:"notes,omitempty"`
	OwnerID        string    `db:"owner_id" json:"ownerId"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}

// Aggregate is the count/sum/average rollup over a set of invoices
type Aggregate struct {
	Invoices      int64   `db:"invoices" json:"invoices"`
	TotalRevenue  float64 `db:"total_revenue" json:"totalRevenue"`
	TotalTrucks   int64   `db:"total_trucks" json:"totalTrucks"`
	AvgRatePerTon float64 `db:"avg_rate_per_ton" json:"avgRatePerTon"`
}

// DateRange bounds createdAt inclusively; a nil end is open
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// Contains reports whether t falls inside the range
func (r DateRange) Contains(t time.Time) bool {
	if r.From != nil && t.Before(*r.From) {
		return false
	}
	if r.To != nil && t.After(*r.To) {
		return false
	}
	return true
}

// InvoiceFilter selects a page of an owner's invoices
type InvoiceFilter struct {
	OwnerID string
	Range   DateRange
	Page    int
	Limit   int
}

// Offset returns the number of rows skipped before the page
func (f InvoiceFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}
