package export

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/rongwang/billing-server/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testIssuer = Issuer{
	Name:    "Sand Delivery Services",
	Tagline: "Professional Sand Supply Solutions",
	Phone:   "+91 98765 43210",
	GST:     "22AAAAA0000A1Z5",
}

func sampleInvoice() models.Invoice {
	return models.Invoice{
		ID:             "inv-1",
		InvoiceNumber:  1001,
		CompanyName:    "ABC Transport Ltd",
		CompanyAddress: "123 Industrial Area, Sector 15, Mumbai",
		CompanyGst:     "27ABCDE1234F1Z5",
		RatePerTon:     850,
		Trucks:         5,
		Total:          4250,
		Notes:          "Regular customer - priority delivery",
		CreatedAt:      time.Date(2025, time.August, 20, 9, 15, 0, 0, time.UTC),
	}
}

func TestInvoiceTotals(t *testing.T) {
	tests := []struct {
		name                 string
		total                float64
		subtotal, tax, grand string
	}{
		{"five trucks at 850", 4250, "4250", "765", "5015"},
		{"exact tax", 2250, "2250", "405", "2655"},
		{"rounds half up", 2475, "2475", "446", "2921"},
		{"rounds fraction", 1234, "1234", "222", "1456"},
		{"fractional total", 99.5, "99.5", "18", "117.5"},
		{"zero", 0, "0", "0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subtotal, tax, grand := InvoiceTotals(tt.total)
			assert.Equal(t, tt.subtotal, subtotal.String())
			assert.Equal(t, tt.tax, tax.String())
			assert.Equal(t, tt.grand, grand.String())
		})
	}
}

func TestBuildInvoiceDocument(t *testing.T) {
	generated := time.Date(2025, time.August, 20, 13, 45, 0, 0, time.UTC)
	ist := time.FixedZone("IST", 5*3600+1800)

	doc := BuildInvoiceDocument(sampleInvoice(), testIssuer, generated, ist)

	assert.Equal(t, "SAND COMPANY INVOICE", doc.Title)
	assert.Equal(t, testIssuer, doc.Issuer)
	assert.Equal(t, int64(1001), doc.InvoiceNumber)
	assert.Equal(t, "20/08/2025", doc.IssueDate)
	assert.Equal(t, "02:45 PM", doc.IssueTime)
	assert.Equal(t, "N/A", doc.CustomerPhone)
	assert.Equal(t, "ABC Transport Ltd", doc.CustomerName)

	assert.Equal(t, LineItem{
		SerialNo:    "1",
		Description: "Sand Delivery",
		Quantity:    "5",
		Rate:        "850",
		Amount:      "4,250",
		Total:       "4,250",
	}, doc.Item)

	assert.True(t, doc.Subtotal.Equal(decimal.NewFromInt(4250)))
	assert.True(t, doc.Tax.Equal(decimal.NewFromInt(765)))
	assert.True(t, doc.GrandTotal.Equal(decimal.NewFromInt(5015)))
	assert.Equal(t, "Generated on: 20/08/2025 07:15 PM", doc.GeneratedOn)

	// Same input, same document
	assert.Equal(t, doc, BuildInvoiceDocument(sampleInvoice(), testIssuer, generated, ist))
}

func TestFormatAmount(t *testing.T) {
	tests := map[string]string{
		"0":        "0",
		"765":      "765",
		"4250":     "4,250",
		"100000":   "1,00,000",
		"12345678": "1,23,45,678",
		"5015.5":   "5,015.5",
		"-250000":  "-2,50,000",
	}

	for in, want := range tests {
		assert.Equal(t, want, FormatAmount(decimal.RequireFromString(in)), in)
	}
}

func TestPDFRendererWrite(t *testing.T) {
	r := NewPDFRenderer(testIssuer, time.UTC, t.TempDir())
	doc := BuildInvoiceDocument(sampleInvoice(), testIssuer, time.Date(2025, 8, 20, 10, 0, 0, 0, time.UTC), time.UTC)

	var withNotes bytes.Buffer
	require.NoError(t, r.Write(&withNotes, doc))
	assert.True(t, bytes.HasPrefix(withNotes.Bytes(), []byte("%PDF-")))

	// deterministic for a fixed document
	var again bytes.Buffer
	require.NoError(t, r.Write(&again, doc))
	assert.Equal(t, withNotes.Bytes(), again.Bytes())

	doc.Notes = ""
	var withoutNotes bytes.Buffer
	require.NoError(t, r.Write(&withoutNotes, doc))
	assert.True(t, bytes.HasPrefix(withoutNotes.Bytes(), []byte("%PDF-")))
}

func TestPDFRendererRender(t *testing.T) {
	dir := t.TempDir()
	r := NewPDFRenderer(testIssuer, time.UTC, dir)

	tmp, err := r.Render(sampleInvoice())
	require.NoError(t, err)
	defer tmp.Remove()

	assert.Equal(t, "Invoice_1001.pdf", tmp.Name)

	info, err := os.Stat(tmp.Path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func newMeasuringPDF() *fpdf.Fpdf {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetFont("Helvetica", "", 10)
	return pdf
}

func TestFitLines(t *testing.T) {
	pdf := newMeasuringPDF()

	// Test case 1: Short text is untouched
	lines := fitLines(pdf, "Regular customer", tableWidth, 3)
	assert.Equal(t, []string{"Regular customer"}, lines)

	// Test case 2: Long text is cut with an ellipsis and every line fits
	long := strings.Repeat("Deliver to the rear gate before noon. ", 200)
	lines = fitLines(pdf, long, tableWidth, 4)
	require.Len(t, lines, 4)
	assert.True(t, strings.HasSuffix(lines[3], "..."))
	for _, line := range lines {
		assert.LessOrEqual(t, pdf.GetStringWidth(line), tableWidth, line)
	}

	// Test case 3: Explicit line breaks count against the budget
	lines = fitLines(pdf, "one\ntwo\nthree", tableWidth, 2)
	assert.Equal(t, []string{"one", "two..."}, lines)
}

func TestNoteLineBudget(t *testing.T) {
	for _, top := range []float64{300, 398, 500, 660} {
		budget := noteLineBudget(top)
		assert.LessOrEqual(t, top+5+float64(budget)*lineHeight, footerTop-footerGap, top)
	}
	assert.Zero(t, noteLineBudget(footerTop))
}

func TestPDFRendererWriteLongNotes(t *testing.T) {
	r := NewPDFRenderer(testIssuer, time.UTC, t.TempDir())
	inv := sampleInvoice()
	inv.Notes = strings.Repeat("Handle with care, unload at site B only. ", 500)
	inv.CompanyAddress = strings.Repeat("Plot 42, Industrial Estate, ", 50)
	doc := BuildInvoiceDocument(inv, testIssuer, time.Date(2025, 8, 20, 10, 0, 0, 0, time.UTC), time.UTC)

	var out bytes.Buffer
	require.NoError(t, r.Write(&out, doc))
	assert.Contains(t, out.String(), "/Count 1")
}
