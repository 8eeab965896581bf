package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"pooltap.app/earnhub/pkg/apperror"
	"pooltap.app/earnhub/pkg/logger"
	"pooltap.app/earnhub/pkg/response"
)

func rateLimitKey(identifier, action string) string {
	return fmt.Sprintf("rate_limit:user:%s:%s", identifier, action)
}

// CheckAndSetRateLimit reports whether identifier may perform action now and,
// if so, blocks it for limit. A nil client allows everything.
func CheckAndSetRateLimit(ctx context.Context, rdb *redis.Client, identifier, action string, limit time.Duration) (bool, error) {
	if rdb == nil {
		return true, nil
	}

	wasSet, err := rdb.SetNX(ctx, rateLimitKey(identifier, action), "locked", limit).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit in redis: %w", err)
	}
	return wasSet, nil
}

func GetRateLimitTTL(ctx context.Context, rdb *redis.Client, identifier, action string) (time.Duration, error) {
	if rdb == nil {
		return 0, nil
	}
	return rdb.TTL(ctx, rateLimitKey(identifier, action)).Result()
}

// RateLimit allows one request per limit for the authenticated user. Redis
// failures let the request through.
func RateLimit(rdb *redis.Client, action string, limit time.Duration, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		identifier, err := response.GetUserID(c)
		if err != nil {
			abort(c, err)
			return
		}

		ctx := c.Request.Context()
		allowed, err := CheckAndSetRateLimit(ctx, rdb, identifier, action, limit)
		if err != nil {
			log.Warn("rate limit check failed", "action", action, "error", err)
			c.Next()
			return
		}
		if !allowed {
			if ttl, err := GetRateLimitTTL(ctx, rdb, identifier, action); err == nil && ttl > 0 {
				c.Header("Retry-After", strconv.Itoa(int(ttl.Round(time.Second).Seconds())))
			}
			abort(c, fmt.Errorf("too many %s requests: %w", action, apperror.ErrRateLimitExceeded))
			return
		}
		c.Next()
	}
}
