package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/engram/engram/internal/ratelimit"
)

// routeToToolCategory maps an API route to the rate limiter's tool bucket.
func routeToToolCategory(path string) string {
	switch {
	case strings.HasSuffix(path, "/remember"):
		return "remember"
	case strings.HasSuffix(path, "/recall"):
		return "recall"
	case strings.HasSuffix(path, "/forget"):
		return "forget"
	case strings.HasSuffix(path, "/context/hydrate"):
		return "context_hydrate"
	default:
		return ""
	}
}

// RateLimitMiddleware rate-limits requests using the provided limiter.
func RateLimitMiddleware(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		toolCategory := routeToToolCategory(c.Request.URL.Path)
		if toolCategory == "" {
			toolCategory = "default"
		}

		result := limiter.Allow(toolCategory)
		if !result.Allowed {
			retryAfter := int(result.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			jsonError(c, http.StatusTooManyRequests, fmt.Sprintf("rate limit exceeded for %s, retry after %ds", result.LimitType, retryAfter))
			c.Abort()
			return
		}

		c.Next()
	}
}

const (
	// MaxContentLength is a size figure for remember's content field. No
	// handler checks content against it; content is bounded only by
	// DefaultBodyLimit on the whole request body.
	MaxContentLength = 100 * 1024
	// DefaultBodyLimit bounds every request body.
	DefaultBodyLimit = 1 * 1024 * 1024
)

// MaxBodySizeMiddleware limits request body size.
func MaxBodySizeMiddleware(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil && c.Request.ContentLength > maxBytes {
			jsonError(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body too large, maximum %d bytes", maxBytes))
			c.Abort()
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
