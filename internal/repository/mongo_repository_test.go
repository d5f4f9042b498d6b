package repository

import (
	"testing"
	"time"

	"github.com/rongwang/billing-server/internal/models"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestRangeFilter(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 31, 23, 59, 59, 0, time.UTC)

	assert.Equal(t, bson.M{"ownerId": "o"}, rangeFilter("o", models.DateRange{}))

	assert.Equal(t, bson.M{
		"ownerId":   "o",
		"createdAt": bson.M{"$gte": from},
	}, rangeFilter("o", models.DateRange{From: &from}))

	assert.Equal(t, bson.M{
		"ownerId":   "o",
		"createdAt": bson.M{"$gte": from, "$lte": to},
	}, rangeFilter("o", models.DateRange{From: &from, To: &to}))
}

func TestInvoiceDocRoundTrip(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	inv := models.Invoice{
		ID:             "inv-1",
		InvoiceNumber:  1001,
		CompanyName:    "ABC Transport Ltd",
		CompanyAddress: "Mumbai",
		CompanyGst:     "27ABCDE1234F1Z5",
		RatePerTon:     850,
		Trucks:         5,
		Total:          4250,
		OwnerID:        "owner-1",
		CreatedAt:      time.Date(2025, 8, 20, 16, 0, 0, 0, ist),
	}

	got := toInvoiceDoc(&inv).toModel()

	assert.Equal(t, inv.InvoiceNumber, got.InvoiceNumber)
	assert.Equal(t, inv.Total, got.Total)
	assert.Equal(t, time.UTC, got.CreatedAt.Location())
	assert.True(t, inv.CreatedAt.Equal(got.CreatedAt))
}

func TestNewestFirst(t *testing.T) {
	assert.Equal(t, bson.D{{Key: "createdAt", Value: -1}, {Key: "invoiceNumber", Value: -1}}, newestFirst())
}
