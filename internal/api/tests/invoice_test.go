package api_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/rongwang/billing-server/internal/api/testutils"
	"github.com/rongwang/billing-server/internal/models"
	"github.com/rongwang/billing-server/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createInvoice(t *testing.T, testCtx *testutils.TestContext, req map[string]any) models.Invoice {
	t.Helper()

	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/invoices",
		req,
		testutils.AuthHeaders(testCtx.OwnerJWT),
	)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var invoice models.Invoice
	testutils.DecodeJSON(t, w, &invoice)
	return invoice
}

func TestCreateInvoice(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	// Test case 1: Counter at its base, first invoice is 1001
	invoice := createInvoice(t, testCtx, testutils.SampleInvoiceRequest())

	assert.NotEmpty(t, invoice.ID)
	assert.Equal(t, int64(1001), invoice.InvoiceNumber)
	assert.Equal(t, 4250.0, invoice.Total)
	assert.Equal(t, "ABC Transport Ltd", invoice.CompanyName)
	assert.Equal(t, testCtx.OwnerID, invoice.OwnerID)
	assert.True(t, invoice.CreatedAt.Equal(testutils.TestNow))

	// The listing now holds exactly that invoice
	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/invoices",
		nil,
		testutils.AuthHeaders(testCtx.OwnerJWT),
	)
	require.Equal(t, http.StatusOK, w.Code)

	var list models.ListInvoicesResponse
	testutils.DecodeJSON(t, w, &list)
	assert.Equal(t, int64(1), list.Total)
	assert.Equal(t, 1, list.Page)
	assert.Equal(t, 50, list.Limit)
	require.Len(t, list.Data, 1)
	assert.Equal(t, invoice.ID, list.Data[0].ID)

	// Test case 2: Second invoice takes the next number
	second := createInvoice(t, testCtx, testutils.SampleInvoiceRequest())
	assert.Equal(t, int64(1002), second.InvoiceNumber)

	// Test case 3: Zero trucks is allowed
	req := testutils.SampleInvoiceRequest()
	req["trucks"] = 0
	zero := createInvoice(t, testCtx, req)
	assert.Equal(t, 0.0, zero.Total)
}

func TestCreateInvoiceValidation(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	cases := map[string]func(req map[string]any){
		"missing company name": func(req map[string]any) { delete(req, "companyName") },
		"blank company name":   func(req map[string]any) { req["companyName"] = "   " },
		"missing address":      func(req map[string]any) { delete(req, "companyAddress") },
		"missing gst":          func(req map[string]any) { delete(req, "companyGst") },
		"missing rate":         func(req map[string]any) { delete(req, "ratePerTon") },
		"negative rate":        func(req map[string]any) { req["ratePerTon"] = -1 },
		"missing trucks":       func(req map[string]any) { delete(req, "trucks") },
		"negative trucks":      func(req map[string]any) { req["trucks"] = -3 },
		"fractional trucks":    func(req map[string]any) { req["trucks"] = 2.5 },
		"rate as text":         func(req map[string]any) { req["ratePerTon"] = "850" },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := testutils.SampleInvoiceRequest()
			mutate(req)

			w := testutils.PerformRequest(
				testCtx.Router,
				http.MethodPost,
				"/api/invoices",
				req,
				testutils.AuthHeaders(testCtx.OwnerJWT),
			)

			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

			var errResp models.ErrorResponse
			testutils.DecodeJSON(t, w, &errResp)
			assert.Equal(t, "validation_error", errResp.Code)
		})
	}

	// Rejected requests must not consume invoice numbers
	invoice := createInvoice(t, testCtx, testutils.SampleInvoiceRequest())
	assert.Equal(t, int64(1001), invoice.InvoiceNumber)
}

func TestCreateInvoiceValidationDetails(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	req := testutils.SampleInvoiceRequest()
	delete(req, "companyName")

	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodPost,
		"/api/invoices",
		req,
		testutils.AuthHeaders(testCtx.OwnerJWT),
	)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var errResp models.ErrorResponse
	testutils.DecodeJSON(t, w, &errResp)
	assert.Equal(t, "Missing or invalid fields", errResp.Message)
	assert.Equal(t, "required", errResp.Details["companyName"])
}

func TestGetInvoice(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	invoice := createInvoice(t, testCtx, testutils.SampleInvoiceRequest())

	// Test case 1: Existing invoice
	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/invoices/"+invoice.ID,
		nil,
		testutils.AuthHeaders(testCtx.OwnerJWT),
	)
	require.Equal(t, http.StatusOK, w.Code)

	var got models.Invoice
	testutils.DecodeJSON(t, w, &got)
	assert.Equal(t, invoice.ID, got.ID)
	assert.Equal(t, invoice.InvoiceNumber, got.InvoiceNumber)

	// Test case 2: Unknown id
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/invoices/does-not-exist",
		nil,
		testutils.AuthHeaders(testCtx.OwnerJWT),
	)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var errResp models.ErrorResponse
	testutils.DecodeJSON(t, w, &errResp)
	assert.Equal(t, "not_found", errResp.Code)
	assert.Equal(t, "Not found", errResp.Message)

	// Test case 3: Another principal cannot see the invoice
	other := testutils.GenerateToken(t, "another-owner", testutils.TestNow.Add(service.TokenDuration))
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/invoices/"+invoice.ID,
		nil,
		testutils.AuthHeaders(other),
	)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/invoices",
		nil,
		testutils.AuthHeaders(other),
	)
	require.Equal(t, http.StatusOK, w.Code)

	var list models.ListInvoicesResponse
	testutils.DecodeJSON(t, w, &list)
	assert.Equal(t, int64(0), list.Total)
	assert.Empty(t, list.Data)
}

func TestListInvoicesPagination(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	for i := 0; i < 5; i++ {
		createInvoice(t, testCtx, testutils.SampleInvoiceRequest())
	}

	// Test case 1: Second page of two, newest first
	w := testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/invoices?page=2&limit=2",
		nil,
		testutils.AuthHeaders(testCtx.OwnerJWT),
	)
	require.Equal(t, http.StatusOK, w.Code)

	var list models.ListInvoicesResponse
	testutils.DecodeJSON(t, w, &list)
	assert.Equal(t, int64(5), list.Total)
	assert.Equal(t, 2, list.Page)
	assert.Equal(t, 2, list.Limit)
	require.Len(t, list.Data, 2)
	assert.Equal(t, int64(1003), list.Data[0].InvoiceNumber)
	assert.Equal(t, int64(1002), list.Data[1].InvoiceNumber)

	// Test case 2: Page past the end is empty but keeps the total
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/invoices?page=9&limit=2",
		nil,
		testutils.AuthHeaders(testCtx.OwnerJWT),
	)
	require.Equal(t, http.StatusOK, w.Code)
	testutils.DecodeJSON(t, w, &list)
	assert.Equal(t, int64(5), list.Total)
	assert.Empty(t, list.Data)

	// Test case 3: Out of range paging parameters are clamped
	clamped := []struct {
		query       string
		page, limit int
	}{
		{"page=0", 1, 50},
		{"limit=0", 1, 50},
		{"limit=501", 1, 500},
		{"page=abc&limit=xyz", 1, 50},
		{"page=-2&limit=-1", 1, 1},
	}
	for _, tt := range clamped {
		w = testutils.PerformRequest(
			testCtx.Router,
			http.MethodGet,
			"/api/invoices?"+tt.query,
			nil,
			testutils.AuthHeaders(testCtx.OwnerJWT),
		)
		require.Equal(t, http.StatusOK, w.Code, tt.query)
		testutils.DecodeJSON(t, w, &list)
		assert.Equal(t, tt.page, list.Page, tt.query)
		assert.Equal(t, tt.limit, list.Limit, tt.query)
		assert.Equal(t, int64(5), list.Total, tt.query)
	}

	// Test case 3b: Unparsable dates are still rejected
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/invoices?from=yesterday",
		nil,
		testutils.AuthHeaders(testCtx.OwnerJWT),
	)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Test case 4: Range that excludes everything
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/invoices?from=2024-01-01&to=2024-12-31",
		nil,
		testutils.AuthHeaders(testCtx.OwnerJWT),
	)
	require.Equal(t, http.StatusOK, w.Code)
	testutils.DecodeJSON(t, w, &list)
	assert.Equal(t, int64(0), list.Total)

	// Test case 5: Date-only "to" includes the whole day
	w = testutils.PerformRequest(
		testCtx.Router,
		http.MethodGet,
		"/api/invoices?from=2025-08-20&to=2025-08-20",
		nil,
		testutils.AuthHeaders(testCtx.OwnerJWT),
	)
	require.Equal(t, http.StatusOK, w.Code)
	testutils.DecodeJSON(t, w, &list)
	assert.Equal(t, int64(5), list.Total)
}

func TestConcurrentInvoiceCreation(t *testing.T) {
	testCtx := testutils.SetupTestContext(t)
	defer testutils.CleanupTestContext(testCtx)

	const workers = 25

	var wg sync.WaitGroup
	numbers := make(chan int64, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			req := testutils.SampleInvoiceRequest()
			req["companyName"] = fmt.Sprintf("Company %d", i)

			w := testutils.PerformRequest(
				testCtx.Router,
				http.MethodPost,
				"/api/invoices",
				req,
				testutils.AuthHeaders(testCtx.OwnerJWT),
			)
			if !assert.Equal(t, http.StatusCreated, w.Code) {
				return
			}

			var invoice models.Invoice
			if assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &invoice)) {
				numbers <- invoice.InvoiceNumber
			}
		}(i)
	}

	wg.Wait()
	close(numbers)

	seen := make(map[int64]bool)
	for n := range numbers {
		assert.False(t, seen[n], "duplicate invoice number %d", n)
		seen[n] = true
		assert.GreaterOrEqual(t, n, int64(1001))
		assert.LessOrEqual(t, n, int64(1000+workers))
	}
	assert.Len(t, seen, workers)
}
