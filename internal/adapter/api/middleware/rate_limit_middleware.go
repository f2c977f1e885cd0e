package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"chatsync/internal/infrastructure/ratelimit"
	"chatsync/pkg/errors"
	"chatsync/pkg/logger"
	"chatsync/pkg/response"
)

type Limiter interface {
	Allow(key string, action ratelimit.Action) (bool, time.Duration)
}

// RateLimitByIP limits unauthenticated routes per client IP.
func RateLimitByIP(limiter Limiter, action ratelimit.Action) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if ok, retry := limiter.Allow("ip:"+ip, action); !ok {
				logger.Warn("RATE LIMIT: blocked %s from IP %s (retry in %v)", action, ip, retry)
				return response.Error(c, errors.TooManyRequests("Rate limit exceeded", retry))
			}
			return next(c)
		}
	}
}
