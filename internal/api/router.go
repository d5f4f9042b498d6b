package api

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/rongwang/billing-server/internal/utils"
)

// PDFs are already deflated by fpdf
const pdfRoutePattern = `^/api/invoices/[^/]+/pdf$`

// RouterOptions configures the middleware chain
type RouterOptions struct {
	AllowedOrigins []string
	BodyLimit      int64
	RateLimit      int
}

// NewRouter builds the gin engine with the full middleware chain and all routes.
// The error handler sits inside CORS and compression so error bodies still
// carry CORS headers, and outside the rate and body limits so their
// rejections are rendered.
func NewRouter(h *Handler, opts RouterOptions, logger *utils.Logger) *gin.Engine {
	if logger == nil {
		logger = utils.NewNopLogger()
	}

	router := gin.New()
	router.Use(
		Recovery(logger),
		RequestID,
		AccessLogger(logger),
		SecurityHeaders,
		CORS(opts.AllowedOrigins),
		gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPathsRegexs([]string{pdfRoutePattern})),
		ErrorHandler(logger),
	)

	if opts.RateLimit > 0 {
		router.Use(NewRateLimiter(opts.RateLimit).Middleware())
	}
	if opts.BodyLimit > 0 {
		router.Use(BodyLimit(opts.BodyLimit))
	}

	h.SetupRoutes(router)
	return router
}
