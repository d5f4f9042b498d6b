package export

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/rongwang/billing-server/internal/models"
	"github.com/shopspring/decimal"
)

// GSTRate is the tax applied on top of every invoice subtotal
var GSTRate = decimal.RequireFromString("0.18")

const (
	documentTitle = "SAND COMPANY INVOICE"
	itemLabel     = "Sand Delivery"
	systemLine    = "System: Sand Company Billing System"
	currency      = "Rs. "

	// A4 in points with 20mm margins
	pageHeight = 842.0
	left       = 57.0
	right      = 538.0
	rightCol   = 350.0
	tableWidth = right - left
	lineHeight = 13.0

	// the footer never moves, so notes and address are cut to fit above it
	footerTop       = pageHeight - 150
	footerGap       = 25.0
	maxAddressLines = 3
)

// Issuer is the static identity of the billing company
type Issuer struct {
	Name    string
	Tagline string
	Phone   string
	GST     string
}

// LineItem is the single table row of an invoice
type LineItem struct {
	SerialNo    string
	Description string
	Quantity    string
	Rate        string
	Amount      string
	Total       string
}

// InvoiceDocument is the complete textual content of an invoice PDF.
// Building it is pure, so the same invoice and generation time always yield
// the same document.
type InvoiceDocument struct {
	Title         string
	Issuer        Issuer
	InvoiceNumber int64
	IssueDate     string
	IssueTime     string

	CustomerName    string
	CustomerPhone   string
	CustomerGST     string
	CustomerAddress string

	Item LineItem

	Subtotal   decimal.Decimal
	Tax        decimal.Decimal
	GrandTotal decimal.Decimal

	Notes       string
	GeneratedAt time.Time
	GeneratedOn string
}

// InvoiceTotals returns subtotal, the rounded 18% GST and the grand total for an invoice total
func InvoiceTotals(total float64) (subtotal, tax, grandTotal decimal.Decimal) {
	subtotal = decimal.NewFromFloat(total)
	tax = subtotal.Mul(GSTRate).Round(0)
	return subtotal, tax, subtotal.Add(tax)
}

// BuildInvoiceDocument lays out the text of an invoice; dates are shown in loc
func BuildInvoiceDocument(inv models.Invoice, issuer Issuer, generatedAt time.Time, loc *time.Location) InvoiceDocument {
	if loc == nil {
		loc = time.UTC
	}
	created := inv.CreatedAt.In(loc)
	generated := generatedAt.In(loc)
	subtotal, tax, grand := InvoiceTotals(inv.Total)

	phone := inv.CompanyPhone
	if phone == "" {
		phone = "N/A"
	}

	return InvoiceDocument{
		Title:           documentTitle,
		Issuer:          issuer,
		InvoiceNumber:   inv.InvoiceNumber,
		IssueDate:       formatDate(created),
		IssueTime:       formatTime(created),
		CustomerName:    inv.CompanyName,
		CustomerPhone:   phone,
		CustomerGST:     inv.CompanyGst,
		CustomerAddress: inv.CompanyAddress,
		Item: LineItem{
			SerialNo:    "1",
			Description: itemLabel,
			Quantity:    fmt.Sprintf("%d", inv.Trucks),
			Rate:        FormatAmount(decimal.NewFromFloat(inv.RatePerTon)),
			Amount:      FormatAmount(subtotal),
			Total:       FormatAmount(subtotal),
		},
		Subtotal:    subtotal,
		Tax:         tax,
		GrandTotal:  grand,
		Notes:       inv.Notes,
		GeneratedAt: generatedAt,
		GeneratedOn: fmt.Sprintf("Generated on: %s %s", formatDate(generated), formatTime(generated)),
	}
}

// PDFRenderer draws invoice documents with fpdf
type PDFRenderer struct {
	issuer   Issuer
	location *time.Location
	dir      string
	now      func() time.Time
}

// NewPDFRenderer creates a renderer writing temp files into dir (os.TempDir when empty)
func NewPDFRenderer(issuer Issuer, loc *time.Location, dir string) *PDFRenderer {
	if loc == nil {
		loc = time.UTC
	}
	return &PDFRenderer{issuer: issuer, location: loc, dir: dir, now: time.Now}
}

// Document builds the invoice document stamped with the current time
func (r *PDFRenderer) Document(inv models.Invoice) InvoiceDocument {
	return BuildInvoiceDocument(inv, r.issuer, r.now(), r.location)
}

// Render writes the invoice to a temp file offered as Invoice_<number>.pdf
func (r *PDFRenderer) Render(inv models.Invoice) (*TempFile, error) {
	doc := r.Document(inv)
	name := fmt.Sprintf("Invoice_%d.pdf", inv.InvoiceNumber)

	return writeTemp(r.dir, "Invoice_*.pdf", name, func(f *os.File) error {
		return r.Write(f, doc)
	})
}

// Write draws doc as a single A4 page
func (r *PDFRenderer) Write(w io.Writer, doc InvoiceDocument) error {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(left, left, left)
	pdf.SetAutoPageBreak(false, left)
	pdf.SetCreationDate(doc.GeneratedAt)
	pdf.SetModificationDate(doc.GeneratedAt)
	pdf.SetTitle(doc.Title, false)
	pdf.SetCatalogSort(true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	// Header
	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetXY(left, left)
	pdf.CellFormat(tableWidth, 22, doc.Title, "", 1, "C", false, 0, "")

	top := pdf.GetY() + 14

	// Issuer block, left
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Text(left, top, tr(doc.Issuer.Name))
	pdf.SetFont("Helvetica", "", 10)
	pdf.Text(left, top+15, tr(doc.Issuer.Tagline))
	pdf.Text(left, top+30, tr("Phone: "+doc.Issuer.Phone))
	pdf.Text(left, top+45, tr("GST: "+doc.Issuer.GST))

	// Invoice details, right
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Text(rightCol, top, fmt.Sprintf("Invoice #: %d", doc.InvoiceNumber))
	pdf.Text(rightCol, top+15, "Date: "+doc.IssueDate)
	pdf.Text(rightCol, top+30, "Time: "+doc.IssueTime)

	y := top + 65
	pdf.Line(left, y, right, y)

	// Bill to
	y += 25
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Text(left, y, "BILL TO:")
	pdf.Line(left, y+5, 300, y+5)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Text(left, y+22, tr("Customer Name: "+doc.CustomerName))
	pdf.Text(left, y+37, tr("Phone: "+doc.CustomerPhone))
	pdf.Text(left, y+52, tr("GST Number: "+doc.CustomerGST))
	pdf.SetXY(left, y+57)
	address := fitLines(pdf, tr("Address: "+doc.CustomerAddress), tableWidth, maxAddressLines)
	pdf.MultiCell(tableWidth, lineHeight, strings.Join(address, "\n"), "", "L", false)

	// Line item table
	y = pdf.GetY() + 20
	widths := []float64{40, 120, 70, 80, 90, 81}
	headers := []string{"S.No.", "Description", "Trucks (Qty)", "Rate/Ton", "Amount", "Total"}
	cells := []string{doc.Item.SerialNo, doc.Item.Description, doc.Item.Quantity,
		currency + doc.Item.Rate, currency + doc.Item.Amount, currency + doc.Item.Total}
	aligns := []string{"C", "L", "L", "R", "R", "R"}

	pdf.SetXY(left, y)
	pdf.SetFont("Helvetica", "B", 9)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 30, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(30)
	pdf.SetFont("Helvetica", "", 9)
	for i, c := range cells {
		pdf.CellFormat(widths[i], 25, c, "1", 0, aligns[i], false, 0, "")
	}
	pdf.Ln(25)

	// Totals, right aligned under the amount columns
	totalsLeft := left + 310
	y = pdf.GetY() + 10
	totalRow := func(label, value string, rowY float64) {
		pdf.SetXY(totalsLeft, rowY)
		pdf.CellFormat(90, 15, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(81, 15, value, "", 0, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "", 10)
	totalRow("Sub Total:", currency+FormatAmount(doc.Subtotal), y)
	totalRow("GST (18%):", currency+FormatAmount(doc.Tax), y+15)
	pdf.SetFont("Helvetica", "B", 10)
	totalRow("TOTAL:", currency+FormatAmount(doc.GrandTotal), y+30)

	y += 60
	if budget := noteLineBudget(y); doc.Notes != "" && budget > 0 {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.Text(left, y, "Notes/Instructions:")
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetXY(left, y+5)
		notes := fitLines(pdf, tr(doc.Notes), tableWidth, budget)
		pdf.MultiCell(tableWidth, lineHeight, strings.Join(notes, "\n"), "", "L", false)
	}

	// Footer
	footer := footerTop
	pdf.SetFont("Helvetica", "", 10)
	pdf.Text(left, footer, "Payment Terms: As per agreement")
	pdf.Text(left, footer+15, "Due Date: Immediate")
	pdf.Line(left, footer+55, 200, footer+55)
	pdf.Text(left, footer+68, "Authorized Signature")

	pdf.SetFont("Helvetica", "", 8)
	pdf.Text(rightCol, footer+55, doc.GeneratedOn)
	pdf.Text(rightCol, footer+67, systemLine)

	return pdf.Output(w)
}

// noteLineBudget is the number of note lines that fit between a notes
// heading at top and the footer
func noteLineBudget(top float64) int {
	return max(0, int((footerTop-footerGap-(top+5))/lineHeight))
}

// fitLines wraps cp1252 text to the inner width of a cell and keeps at most
// maxLines lines, marking a cut with an ellipsis on the last kept line.
// Widths are measured per byte, which matches the core fonts.
func fitLines(pdf *fpdf.Fpdf, text string, width float64, maxLines int) []string {
	width -= 2 * pdf.GetCellMargin()

	var lines []string
	for _, para := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		lines = append(lines, wrapWords(pdf, para, width)...)
	}
	if len(lines) <= maxLines {
		return lines
	}

	lines = lines[:maxLines]
	last := strings.TrimRight(lines[maxLines-1], " ")
	for last != "" && pdf.GetStringWidth(last+"...") > width {
		last = last[:len(last)-1]
	}
	lines[maxLines-1] = last + "..."
	return lines
}

func wrapWords(pdf *fpdf.Fpdf, para string, width float64) []string {
	var lines []string
	line := ""
	for _, word := range strings.Fields(para) {
		// words wider than a line are hard broken
		for pdf.GetStringWidth(word) > width {
			n := len(word) - 1
			for n > 1 && pdf.GetStringWidth(word[:n]) > width {
				n--
			}
			if line != "" {
				lines = append(lines, line)
				line = ""
			}
			lines = append(lines, word[:n])
			word = word[n:]
		}

		switch {
		case line == "":
			line = word
		case pdf.GetStringWidth(line+" "+word) > width:
			lines = append(lines, line)
			line = word
		default:
			line += " " + word
		}
	}
	return append(lines, line)
}

// FormatAmount renders a value with Indian digit grouping (1,00,000) and
// without a fraction when the value is whole
func FormatAmount(d decimal.Decimal) string {
	s := d.String()
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, hasFrac := strings.Cut(s, ".")
	out := groupIndian(intPart)
	if hasFrac {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}

func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}

	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}

	return strings.Join(append(groups, tail), ",")
}

func formatDate(t time.Time) string {
	return t.Format("02/01/2006")
}

func formatTime(t time.Time) string {
	return t.Format("03:04 PM")
}
