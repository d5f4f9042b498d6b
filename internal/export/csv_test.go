package export

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/rongwang/billing-server/internal/models"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleInvoices() []models.Invoice {
	return []models.Invoice{
		{
			ID:             "b",
			InvoiceNumber:  1002,
			CompanyName:    "XYZ Logistics",
			CompanyAddress: "456 Transport Hub, Andheri East",
			CompanyGst:     "27XYZAB5678G2H6",
			RatePerTon:     920.5,
			Trucks:         8,
			Total:          7364,
			CreatedAt:      time.Date(2025, time.August, 20, 10, 30, 0, 0, time.UTC),
		},
		{
			ID:             "a",
			InvoiceNumber:  1001,
			CompanyName:    "ABC Transport Ltd",
			CompanyPhone:   "+91 98765 12345",
			CompanyAddress: "123 Industrial Area, Sector 15, Mumbai",
			CompanyGst:     "27ABCDE1234F1Z5",
			RatePerTon:     850,
			Trucks:         5,
			Total:          4250,
			Notes:          `Regular customer - "priority" delivery`,
			// rendered in UTC whatever the stored zone
			CreatedAt: time.Date(2024, time.January, 15, 14, 35, 7, 123000000, time.FixedZone("IST", 5*3600+1800)),
		},
	}
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestCSVRendererWrite(t *testing.T) {
	r := NewCSVRenderer(t.TempDir())

	var buf bytes.Buffer
	require.NoError(t, r.Write(&buf, sampleInvoices()))

	newGoldie(t).Assert(t, "invoices_csv", buf.Bytes())
}

func TestCSVRendererWriteEmpty(t *testing.T) {
	r := NewCSVRenderer(t.TempDir())

	var buf bytes.Buffer
	require.NoError(t, r.Write(&buf, nil))

	newGoldie(t).Assert(t, "empty_csv", buf.Bytes())
}

func TestCSVRendererRender(t *testing.T) {
	dir := t.TempDir()
	r := NewCSVRenderer(dir)
	r.now = func() time.Time { return time.UnixMilli(1755685800000) }

	tmp, err := r.Render(sampleInvoices())
	require.NoError(t, err)

	assert.Equal(t, "invoices_1755685800000.csv", tmp.Name)

	content, err := os.ReadFile(tmp.Path)
	require.NoError(t, err)
	assert.Equal(t, "DATE_ISO,", string(content[:9]))

	require.NoError(t, tmp.Remove())
	_, err = os.Stat(tmp.Path)
	assert.True(t, os.IsNotExist(err))

	// removing twice is fine
	assert.NoError(t, tmp.Remove())
}
