package api

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	ierr "github.com/rongwang/billing-server/internal/errors"
	"github.com/rongwang/billing-server/internal/export"
	"github.com/rongwang/billing-server/internal/models"
	"github.com/rongwang/billing-server/internal/service"
	"github.com/rongwang/billing-server/internal/utils"
)

// Handler handles API requests
type Handler struct {
	service service.Service
	csv     *export.CSVRenderer
	pdf     *export.PDFRenderer
	logger  *utils.Logger
}

// NewHandler creates a new Handler
func NewHandler(svc service.Service, csv *export.CSVRenderer, pdf *export.PDFRenderer, logger *utils.Logger) *Handler {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Handler{
		service: svc,
		csv:     csv,
		pdf:     pdf,
		logger:  logger,
	}
}

// SetupRoutes registers every route on the router
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.GET("/health", h.Health)

	api := router.Group("/api")
	api.GET("/health", h.APIHealth)

	auth := api.Group("/auth")
	{
		auth.POST("/sign-in", h.SignIn)
	}

	authorized := api.Group("", AuthMiddleware(h.service))

	invoices := authorized.Group("/invoices")
	{
		invoices.POST("", h.CreateInvoice)
		invoices.GET("", h.ListInvoices)
		invoices.GET("/export/csv", h.ExportCSV)
		invoices.GET("/:id", h.GetInvoice)
		invoices.GET("/:id/pdf", h.InvoicePDF)
	}

	dashboard := authorized.Group("/dashboard")
	{
		dashboard.GET("/summary", h.Summary)
		dashboard.GET("/daily", h.Daily)
	}

	router.NoRoute(h.NotFound)
}

// Health is the liveness probe
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{OK: true})
}

// APIHealth is the liveness probe under /api, stamped with the server time
func (h *Handler) APIHealth(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		OK:        true,
		Timestamp: time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	})
}

// NotFound answers every unmatched route
func (h *Handler) NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, models.ErrorResponse{
		Status:  "error",
		Code:    ierr.ErrCodeNotFound,
		Message: "Not found",
	})
}

// Authentication handlers
func (h *Handler) SignIn(c *gin.Context) {
	var req models.SignInRequest
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	resp, err := h.service.SignIn(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Invoice handlers
func (h *Handler) CreateInvoice(c *gin.Context) {
	var req models.CreateInvoiceRequest
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	invoice, err := h.service.CreateInvoice(c.Request.Context(), ownerID(c), req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, invoice)
}

func (h *Handler) ListInvoices(c *gin.Context) {
	var query models.ListInvoicesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		_ = c.Error(ierr.WithError(err).
			WithHint("Invalid query parameters").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.ListInvoices(c.Request.Context(), ownerID(c), query)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetInvoice(c *gin.Context) {
	invoice, err := h.service.GetInvoice(c.Request.Context(), ownerID(c), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, invoice)
}

func (h *Handler) ExportCSV(c *gin.Context) {
	invoices, err := h.service.ExportInvoices(c.Request.Context(), ownerID(c), c.Query("from"), c.Query("to"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	tmp, err := h.csv.Render(invoices)
	if err != nil {
		_ = c.Error(ierr.WithError(err).
			WithMessage("error rendering csv export").
			Mark(ierr.ErrSystem))
		return
	}
	defer h.remove(tmp)

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.FileAttachment(tmp.Path, tmp.Name)
}

func (h *Handler) InvoicePDF(c *gin.Context) {
	invoice, err := h.service.GetInvoice(c.Request.Context(), ownerID(c), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	tmp, err := h.pdf.Render(*invoice)
	if err != nil {
		_ = c.Error(ierr.WithError(err).
			WithMessage("error rendering invoice pdf").
			Mark(ierr.ErrSystem))
		return
	}
	defer h.remove(tmp)

	c.Header("Content-Type", "application/pdf")
	c.FileAttachment(tmp.Path, tmp.Name)
}

// Dashboard handlers
func (h *Handler) Summary(c *gin.Context) {
	resp, err := h.service.Summary(c.Request.Context(), ownerID(c), c.Query("from"), c.Query("to"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Daily(c *gin.Context) {
	resp, err := h.service.Daily(c.Request.Context(), ownerID(c), c.Query("date"))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) remove(tmp *export.TempFile) {
	if err := tmp.Remove(); err != nil {
		h.logger.Errorw("failed to remove export file", "path", tmp.Path, "error", err)
	}
}

func ownerID(c *gin.Context) string {
	return c.GetString(ContextKeyOwnerID)
}

// bindJSON decodes the body; an empty body decodes to the zero value
func bindJSON(c *gin.Context, obj any) error {
	err := c.ShouldBindJSON(obj)
	if err == nil || err == io.EOF {
		return nil
	}

	var maxErr *http.MaxBytesError
	if ierr.As(err, &maxErr) {
		return payloadTooLarge(maxErr.Limit)
	}

	return ierr.WithError(err).
		WithHint("Invalid request body").
		Mark(ierr.ErrValidation)
}
