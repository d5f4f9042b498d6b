package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	goCache "github.com/patrickmn/go-cache"
	ierr "github.com/rongwang/billing-server/internal/errors"
	"golang.org/x/time/rate"
)

// RateWindow is the window the per-client request budget applies to
const RateWindow = time.Minute

// RateLimiter keeps one token bucket per client IP. Idle buckets expire from
// the cache, which resets the budget of a client that went quiet.
type RateLimiter struct {
	buckets *goCache.Cache
	limit   rate.Limit
	burst   int
}

// NewRateLimiter allows requests per RateWindow for every client IP
func NewRateLimiter(requests int) *RateLimiter {
	return &RateLimiter{
		buckets: goCache.New(2*RateWindow, 5*RateWindow),
		limit:   rate.Every(RateWindow / time.Duration(requests)),
		burst:   requests,
	}
}

// Allow reports whether the client may make another request now
func (l *RateLimiter) Allow(clientIP string) bool {
	return l.bucket(clientIP).Allow()
}

func (l *RateLimiter) bucket(clientIP string) *rate.Limiter {
	if v, ok := l.buckets.Get(clientIP); ok {
		l.buckets.SetDefault(clientIP, v)
		return v.(*rate.Limiter)
	}

	limiter := rate.NewLimiter(l.limit, l.burst)
	// another request may have raced us to create the bucket
	if err := l.buckets.Add(clientIP, limiter, goCache.DefaultExpiration); err != nil {
		if v, ok := l.buckets.Get(clientIP); ok {
			return v.(*rate.Limiter)
		}
	}
	return limiter
}

// Middleware rejects requests over budget with 429
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			c.Header("Retry-After", strconv.Itoa(int(RateWindow.Seconds())))
			_ = c.Error(ierr.NewError("rate limit exceeded").
				WithHint("Too many requests, please try again later.").
				Mark(ierr.ErrRateLimited))
			c.Abort()
			return
		}
		c.Next()
	}
}
