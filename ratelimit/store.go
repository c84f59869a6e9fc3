package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "boxoffice:ratelimit:"

// RedisStore is a fixed-window counter shared by every replica. It satisfies
// echo's middleware.RateLimiterStore.
type RedisStore struct {
	redis   redis.Cmdable
	scope   string
	limit   int64
	window  time.Duration
	timeout time.Duration
}

func NewRedisStore(client redis.Cmdable, scope string, limit int, window time.Duration) *RedisStore {
	return &RedisStore{
		redis:   client,
		scope:   scope,
		limit:   int64(limit),
		window:  window,
		timeout: time.Second,
	}
}

// Allow fails open when Redis is unreachable.
func (s *RedisStore) Allow(identifier string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	key := fmt.Sprintf("%s%s:%s", keyPrefix, s.scope, identifier)

	// INCR and EXPIRE NX run in one MULTI so a counter never outlives its window.
	var incr *redis.IntCmd
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, s.window)
		return nil
	})
	if err != nil {
		log.FromContext(ctx).WithError(err).Warn("Rate limiter unavailable, allowing request")
		return true, nil
	}

	return incr.Val() <= s.limit, nil
}

func Middleware(store middleware.RateLimiterStore) echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, errorBody("forbidden", "Could not identify client"))
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return c.JSON(http.StatusTooManyRequests, errorBody("rate_limited", "Too many requests, slow down"))
		},
	})
}

func errorBody(code, message string) map[string]any {
	return map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	}
}
