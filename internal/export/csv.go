package export

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/rongwang/billing-server/internal/models"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// isoMillis matches the millisecond UTC timestamps the frontend already parses
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// InvoiceCSV is one exported row; the column order is fixed
type InvoiceCSV struct {
	DateISO        string `csv:"DATE_ISO"`
	InvoiceNumber  int64  `csv:"INVOICE_NUMBER"`
	CompanyName    string `csv:"COMPANY_NAME"`
	CompanyPhone   string `csv:"COMPANY_PHONE"`
	CompanyAddress string `csv:"COMPANY_ADDRESS"`
	CompanyGst     string `csv:"COMPANY_GST"`
	RatePerTon     string `csv:"RATE_PER_TON"`
	Trucks         int64  `csv:"TRUCKS"`
	Total          string `csv:"TOTAL"`
	Notes          string `csv:"NOTES"`
}

// CSVRenderer writes invoice listings as CSV
type CSVRenderer struct {
	dir string
	now func() time.Time
}

// NewCSVRenderer creates a renderer writing temp files into dir (os.TempDir when empty)
func NewCSVRenderer(dir string) *CSVRenderer {
	return &CSVRenderer{dir: dir, now: time.Now}
}

// Write encodes a header row and one row per invoice, in the given order
func (r *CSVRenderer) Write(w io.Writer, invoices []models.Invoice) error {
	rows := lo.Map(invoices, func(inv models.Invoice, _ int) InvoiceCSV {
		return toCSVRow(inv)
	})
	return gocsv.Marshal(&rows, w)
}

// Render writes the invoices to a temp file named invoices_<unix-ms>.csv
func (r *CSVRenderer) Render(invoices []models.Invoice) (*TempFile, error) {
	name := fmt.Sprintf("invoices_%d.csv", r.now().UnixMilli())

	return writeTemp(r.dir, "invoices_*.csv", name, func(f *os.File) error {
		return r.Write(f, invoices)
	})
}

func toCSVRow(inv models.Invoice) InvoiceCSV {
	return InvoiceCSV{
		DateISO:        inv.CreatedAt.UTC().Format(isoMillis),
		InvoiceNumber:  inv.InvoiceNumber,
		CompanyName:    inv.CompanyName,
		CompanyPhone:   inv.CompanyPhone,
		CompanyAddress: inv.CompanyAddress,
		CompanyGst:     inv.CompanyGst,
		RatePerTon:     decimal.NewFromFloat(inv.RatePerTon).String(),
		Trucks:         inv.Trucks,
		Total:          decimal.NewFromFloat(inv.Total).String(),
		Notes:          inv.Notes,
	}
}
