package testutils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rongwang/billing-server/internal/api"
	"github.com/rongwang/billing-server/internal/export"
	"github.com/rongwang/billing-server/internal/models"
	"github.com/rongwang/billing-server/internal/repository"
	"github.com/rongwang/billing-server/internal/service"
	"github.com/stretchr/testify/require"
)

// Fixed values shared by the API tests
const (
	TestAccessCode = "testaccesscode"
	TestJWTSecret  = "test-secret-key"
)

// TestNow is the pinned clock of every test context: Wednesday 2025-08-20 10:30 UTC
var TestNow = time.Date(2025, time.August, 20, 10, 30, 0, 0, time.UTC)

// TestContext holds all dependencies for tests
type TestContext struct {
	Router     *gin.Engine
	Repository *repository.MemoryRepository
	Service    *service.DefaultService
	ExportDir  string
	OwnerID    string
	OwnerJWT   string
}

type setup struct {
	router    api.RouterOptions
	skipOwner bool
}

// Option tweaks the context built by SetupTestContext
type Option func(*setup)

// WithRateLimit overrides the per-IP request budget
func WithRateLimit(n int) Option {
	return func(s *setup) { s.router.RateLimit = n }
}

// WithBodyLimit overrides the body cap
func WithBodyLimit(n int64) Option {
	return func(s *setup) { s.router.BodyLimit = n }
}

// WithoutOwner leaves the store unprovisioned
func WithoutOwner() Option {
	return func(s *setup) { s.skipOwner = true }
}

// SetupTestContext creates a router backed by the memory store with a provisioned owner
func SetupTestContext(t *testing.T, opts ...Option) *TestContext {
	t.Helper()

	repo := repository.NewMemoryRepository()
	svc := service.NewDefaultService(repo, TestJWTSecret,
		service.WithClock(func() time.Time { return TestNow }),
	)

	dir := t.TempDir()
	handler := api.NewHandler(svc,
		export.NewCSVRenderer(dir),
		export.NewPDFRenderer(export.Issuer{
			Name:    "Sand Delivery Services",
			Tagline: "Professional Sand Supply Solutions",
			Phone:   "+91 98765 43210",
			GST:     "22AAAAA0000A1Z5",
		}, time.UTC, dir),
		nil,
	)

	cfg := setup{router: api.RouterOptions{
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:3002"},
		BodyLimit:      1 << 20,
		RateLimit:      2000,
	}}
	for _, opt := range opts {
		opt(&cfg)
	}

	gin.SetMode(gin.TestMode)
	testCtx := &TestContext{
		Router:     api.NewRouter(handler, cfg.router, nil),
		Repository: repo,
		Service:    svc,
		ExportDir:  dir,
	}

	if !cfg.skipOwner {
		owner := createTestOwner(t, repo)
		testCtx.OwnerID = owner.ID
		testCtx.OwnerJWT = GenerateToken(t, owner.ID, TestNow.Add(service.TokenDuration))
	}

	return testCtx
}

func createTestOwner(t *testing.T, repo repository.Repository) *models.Owner {
	t.Helper()

	hash, err := service.HashAccessCode(TestAccessCode)
	require.NoError(t, err, "Failed to hash access code")

	owner, err := repo.SaveOwner(context.Background(), hash)
	require.NoError(t, err, "Failed to create test owner")

	return owner
}

// GenerateToken signs a token for ownerID with the test secret
func GenerateToken(t *testing.T, ownerID string, expiresAt time.Time) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": ownerID,
		"exp": expiresAt.Unix(),
		"iat": expiresAt.Add(-service.TokenDuration).Unix(),
	})

	tokenString, err := token.SignedString([]byte(TestJWTSecret))
	require.NoError(t, err, "Failed to generate JWT token")

	return tokenString
}

// PerformRequest executes an HTTP request against the router
func PerformRequest(r http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer

	switch b := body.(type) {
	case nil:
		reqBody = bytes.NewBuffer(nil)
	case []byte:
		reqBody = bytes.NewBuffer(b)
	default:
		jsonBody, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// AuthHeaders returns headers with Authorization token
func AuthHeaders(token string) map[string]string {
	return map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", token),
	}
}

// DecodeJSON unmarshals a recorded response body
func DecodeJSON(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), "response body: %s", w.Body.String())
}

// SampleInvoiceRequest returns a valid create request
func SampleInvoiceRequest() map[string]any {
	return map[string]any{
		"companyName":    "ABC Transport Ltd",
		"companyPhone":   "+91 98765 12345",
		"companyAddress": "123 Industrial Area, Sector 15, Mumbai, Maharashtra 400001",
		"companyGst":     "27ABCDE1234F1Z5",
		"ratePerTon":     850,
		"trucks":         5,
		"notes":          "Regular customer - priority delivery",
	}
}

// CleanupTestContext drops every invoice and the invoice counter
func CleanupTestContext(t *TestContext) {
	ctx := context.Background()
	_, _ = t.Repository.DeleteInvoices(ctx, "")
	_ = t.Repository.ResetSequence(ctx, models.InvoiceNumberSequence)
}
