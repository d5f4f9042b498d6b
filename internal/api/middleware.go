package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	ierr "github.com/rongwang/billing-server/internal/errors"
	"github.com/rongwang/billing-server/internal/models"
	"github.com/rongwang/billing-server/internal/service"
	"github.com/rongwang/billing-server/internal/utils"
	"github.com/samber/lo"
)

// Context keys and headers shared by the middleware chain
const (
	ContextKeyOwnerID   = "ownerId"
	ContextKeyRequestID = "requestId"
	HeaderRequestID     = "X-Request-ID"
)

type requestIDKey struct{}

const genericMessage = "An unexpected error occurred"

// AuthMiddleware verifies the bearer token and stores the owner id in the context
func AuthMiddleware(svc service.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			_ = c.Error(ierr.NewError("missing authorization header").
				WithHint("Authentication required").
				Mark(ierr.ErrUnauthorized))
			c.Abort()
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || scheme != "Bearer" || token == "" {
			_ = c.Error(ierr.NewError("malformed authorization header").
				WithHint("Invalid token format").
				Mark(ierr.ErrUnauthorized))
			c.Abort()
			return
		}

		ownerID, err := svc.Authenticate(token)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}

		c.Set(ContextKeyOwnerID, ownerID)
		c.Next()
	}
}

// ErrorHandler renders the last error pushed with c.Error as the JSON error body
func ErrorHandler(logger *utils.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		status := ierr.HTTPStatusFromErr(err)

		if status >= http.StatusInternalServerError {
			logger.Errorw("request failed",
				"error", err.Error(),
				"method", c.Request.Method,
				"path", c.FullPath(),
				"request_id", c.GetString(ContextKeyRequestID),
			)
		}

		if c.Writer.Written() {
			return
		}

		c.JSON(status, models.ErrorResponse{
			Status:  "error",
			Code:    ierr.CodeFromErr(err),
			Message: displayMessage(err),
			Details: safeDetails(err),
		})
	}
}

func displayMessage(err error) string {
	// GetAllHints is a post-order traversal, take the first non-empty one
	for _, hint := range errors.GetAllHints(err) {
		if hint = strings.TrimSpace(hint); hint != "" {
			return hint
		}
	}
	return genericMessage
}

func safeDetails(err error) map[string]any {
	details := make(map[string]any)

	for _, sdp := range errors.GetAllSafeDetails(err) {
		for _, payload := range sdp.SafeDetails {
			raw, ok := strings.CutPrefix(payload, "__json__:")
			if !ok {
				continue
			}
			var fields map[string]any
			if err := json.Unmarshal([]byte(raw), &fields); err == nil {
				for k, v := range fields {
					details[k] = v
				}
			}
		}
	}

	if len(details) == 0 {
		return nil
	}
	return details
}

// Recovery turns a panic into a 500 JSON response
func Recovery(logger *utils.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Errorw("panic recovered",
			"panic", recovered,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse{
			Status:  "error",
			Code:    ierr.ErrCodeSystemError,
			Message: genericMessage,
		})
	})
}

// RequestID propagates X-Request-ID or assigns a new one
func RequestID(c *gin.Context) {
	requestID := c.GetHeader(HeaderRequestID)
	if requestID == "" {
		requestID = uuid.New().String()
	}

	ctx := context.WithValue(c.Request.Context(), requestIDKey{}, requestID)
	c.Request = c.Request.WithContext(ctx)

	c.Set(ContextKeyRequestID, requestID)
	c.Header(HeaderRequestID, requestID)
	c.Next()
}

// AccessLogger writes one structured line per request
func AccessLogger(logger *utils.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Infow("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"ip", c.ClientIP(),
			"request_id", c.GetString(ContextKeyRequestID),
		)
	}
}

// SecurityHeaders sets the usual hardening headers on every response
func SecurityHeaders(c *gin.Context) {
	h := c.Writer.Header()
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
	h.Set("Referrer-Policy", "no-referrer")
	h.Set("Cross-Origin-Resource-Policy", "same-site")
	h.Set("X-DNS-Prefetch-Control", "off")
	h.Set("Strict-Transport-Security", "max-age=15552000; includeSubDomains")
	c.Next()
}

// CORS allows credentialed requests from the configured origins only
func CORS(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && lo.Contains(allowedOrigins, origin) {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
			h.Set("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID")
			h.Set("Access-Control-Max-Age", "86400")
			h.Add("Vary", "Origin")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// BodyLimit rejects bodies larger than limit bytes with 413
func BodyLimit(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > limit {
			_ = c.Error(payloadTooLarge(limit))
			c.Abort()
			return
		}

		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

func payloadTooLarge(limit int64) error {
	return ierr.NewError("request body too large").
		WithHint("Request body too large").
		WithReportableDetails(map[string]any{"limit": strconv.FormatInt(limit, 10)}).
		Mark(ierr.ErrPayloadTooLarge)
}
