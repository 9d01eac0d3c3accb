package middlewares

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/billing_backend/utils"
	"github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed window request counter kept in Redis.
type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func NewRateLimiter(client *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// key counts per tenant once the tenant is resolved, per client ip otherwise.
func (rl *RateLimiter) key(c *gin.Context) string {
	if tenantId, ok := utils.GetTenantIdFromContext(c.Request.Context()); ok {
		return "ratelimit:tenant:" + tenantId
	}
	return "ratelimit:ip:" + c.ClientIP()
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		key := rl.key(c)

		count, err := rl.client.Incr(ctx, key).Result()
		if err != nil {
			c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		if count == 1 {
			if err := rl.client.Expire(ctx, key, rl.window).Err(); err != nil {
				c.AbortWithError(http.StatusInternalServerError, err)
				return
			}
		}

		if count > rl.limit {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": fmt.Sprintf("rate limit exceeded, try again in %d seconds", int(rl.window.Seconds())),
			})
			return
		}
		c.Next()
	}
}
