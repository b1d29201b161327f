package ratelimit

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// IPRateLimitMiddleware creates middleware for IP-based rate limiting
func (rl *RateLimiter) IPRateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		ip := c.ClientIP()

		result, err := rl.AllowIP(ctx, ip)
		if err != nil {
			// Never block requests on limiter failure
			slog.Error("Rate limit check failed", "ip", ip, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			if rl.metrics != nil {
				rl.metrics.IncrementRateLimitIPBlock()
			}

			c.Header("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded for IP",
				"message":     fmt.Sprintf("You have exceeded the rate limit of %d requests per minute", result.Limit),
				"retry_after": int(result.RetryAfter.Seconds()),
				"reset_at":    result.ResetAt.Unix(),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// ComputeRateLimitMiddleware limits how often a subject's composite score can
// be recomputed. It keys on the subject path parameter.
func (rl *RateLimiter) ComputeRateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		subjectID := c.Param("subject")
		if subjectID == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()

		result, err := rl.AllowCompute(ctx, subjectID)
		if err != nil {
			slog.Error("Compute rate limit check failed", "subject_id", subjectID, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Compute-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Compute-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Compute-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			if rl.metrics != nil {
				rl.metrics.IncrementRateLimitSubjectBlock()
			}

			c.Header("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "computation limit exceeded",
				"message":     fmt.Sprintf("Score recomputation is limited to %d per hour per subject", result.Limit),
				"retry_after": int(result.RetryAfter.Seconds()),
				"reset_at":    result.ResetAt.Unix(),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
