package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"vidtube/api/internal/apperr"
)

// RateLimit throttles a route per client IP using a fixed redis window.
// When redis is unreachable the request is allowed through; losing rate
// limiting is preferable to failing every login.
func RateLimit(cache *redis.Client, log zerolog.Logger, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cache == nil || limit <= 0 {
			c.Next()
			return
		}

		key := fmt.Sprintf("ratelimit:%s:%s", c.FullPath(), c.ClientIP())

		count, err := cache.Incr(c.Request.Context(), key).Result()
		if err != nil {
			log.Warn().Err(err).Msg("rate limit counter unavailable")
			c.Next()
			return
		}
		if count == 1 {
			cache.Expire(c.Request.Context(), key, window)
		}

		if count > int64(limit) {
			appErr := apperr.New(http.StatusTooManyRequests, "too many requests, try again later")
			c.AbortWithStatusJSON(appErr.StatusCode, appErr.Envelope(false))
			return
		}

		c.Next()
	}
}
