package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/gd-diary-api/pkg/errors"
	"github.com/noah-isme/gd-diary-api/pkg/response"
)

const rateLimitPrefix = "gd:ratelimit"

// NewLimiter builds a limiter for a formatted rate such as "30-M".
// A redis client shares counters across replicas; without one counters stay in process.
func NewLimiter(formatted string, client *redis.Client) (*limiter.Limiter, error) {
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		return nil, err
	}
	var store limiter.Store
	if client != nil {
		store, err = sredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: rateLimitPrefix})
		if err != nil {
			return nil, err
		}
	} else {
		store = memory.NewStoreWithOptions(limiter.StoreOptions{Prefix: rateLimitPrefix})
	}
	return limiter.New(store, rate), nil
}

// RateLimit throttles callers by user id, falling back to client IP for anonymous requests.
func RateLimit(l *limiter.Limiter, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		key := c.ClientIP()
		if claims := CurrentUser(c); claims != nil && claims.UserID != "" {
			key = "user:" + claims.UserID
		}

		ctx, err := l.Get(c.Request.Context(), key)
		if err != nil {
			// Fail open on store errors.
			logger.Warn("rate limit check failed", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(ctx.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(ctx.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(ctx.Reset, 10))

		if ctx.Reached {
			logger.Warn("rate limit exceeded", zap.String("key", key), zap.Int64("limit", ctx.Limit))
			response.Error(c, appErrors.ErrRateLimited)
			c.Abort()
			return
		}
		c.Next()
	}
}
