package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pixelgate/pixelgate/internal/config"
	"github.com/pixelgate/pixelgate/internal/models"
	"github.com/pixelgate/pixelgate/internal/ratelimit"
	"github.com/pixelgate/pixelgate/internal/service"
	"github.com/pixelgate/pixelgate/internal/storage"
)

// RateLimitPerMinute enforces the plan's per-minute rate after quota
// admission. Free-tier callers get the configured fallback rate.
func RateLimitPerMinute(redis *storage.RedisClient, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		keyVal, exists := c.Get(ContextProductKey)
		if !exists {
			c.Next()
			return
		}
		key := keyVal.(*models.ProductKey)

		limit := cfg.RateLimit.FreeTierPerMinute
		planName := service.FreeTierPlanName
		if subVal, ok := c.Get(ContextSubscription); ok {
			sub := subVal.(*models.Subscription)
			if sub.Status == models.SubscriptionStatusActive && sub.Plan != nil && sub.Plan.RateLimitPerMinute > 0 {
				limit = sub.Plan.RateLimitPerMinute
				planName = sub.Plan.Name
			}
		}

		limiter := ratelimit.NewLimiter(redis, cfg.RateLimit.Algorithm, limit, time.Minute)

		ctx := c.Request.Context()
		allowed, err := limiter.Allow(ctx, key.ID.String())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "rate limit check failed",
			})
			return
		}

		remaining, _ := limiter.Remaining(ctx, key.ID.String())
		resetTime, _ := limiter.Reset(ctx, key.ID.String())

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", limiter.Limit()))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", resetTime.Unix()))

		if !allowed {
			retryAfter := int(time.Until(resetTime).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}

			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"plan":        planName,
				"limit":       limit,
				"retry_after": resetTime.Unix(),
			})
			return
		}

		c.Next()
	}
}
