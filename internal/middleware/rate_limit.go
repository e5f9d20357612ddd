package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// Rate limit response headers.
const (
	HeaderRateLimitLimit     = "X-Ratelimit-Limit"
	HeaderRateLimitRemaining = "X-Ratelimit-Remaining"
)

// RateLimitStore counts requests per key in fixed windows.
type RateLimitStore interface {
	// Hit records one request for key and returns the count in the current
	// window and the time until that window closes.
	Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// RateLimitConfig configures RateLimit.
type RateLimitConfig struct {
	Logger *slog.Logger
	Store  RateLimitStore
	Limit  int
	Window time.Duration

	// ClientKey identifies the caller. Defaults to the real IP.
	ClientKey func(c echo.Context) string
}

// DefaultRateLimitConfig allows 60 requests a minute per route and client.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Logger: slog.Default(),
		Limit:  60,
		Window: time.Minute,
	}
}

// RateLimit gives every client a separate budget per route, so adding domains
// does not eat into the notification budget. When the store fails the request
// is let through.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultRateLimitConfig()
	if cfg.Limit <= 0 {
		cfg.Limit = def.Limit
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	clientKey := cfg.ClientKey
	if clientKey == nil {
		clientKey = func(c echo.Context) string { return c.RealIP() }
	}
	limit := int64(cfg.Limit)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Store == nil {
				return next(c)
			}

			req := c.Request()
			key := req.Method + " " + c.Path() + " " + clientKey(c)
			count, resetIn, err := cfg.Store.Hit(req.Context(), key, cfg.Window)
			if err != nil {
				logger.WarnContext(req.Context(), "rate limit store unavailable, request allowed",
					slog.String("key", key),
					slog.String("error", err.Error()),
				)
				return next(c)
			}

			h := c.Response().Header()
			h.Set(HeaderRateLimitLimit, strconv.FormatInt(limit, 10))
			h.Set(HeaderRateLimitRemaining, strconv.FormatInt(max(limit-count, 0), 10))

			if count > limit {
				logger.WarnContext(req.Context(), "rate limit exceeded",
					slog.String("key", key),
					slog.Int64("count", count),
				)
				return tooManyRequests(c, resetIn)
			}
			return next(c)
		}
	}
}

// tooManyRequests writes the API error envelope. Retry-After is rounded up to
// whole seconds and is never zero.
func tooManyRequests(c echo.Context, resetIn time.Duration) error {
	secs := int64((resetIn + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	c.Response().Header().Set(echo.HeaderRetryAfter, strconv.FormatInt(secs, 10))
	return c.JSON(http.StatusTooManyRequests, map[string]any{
		"success": false,
		"error": map[string]string{
			"code":    "RATE_LIMIT_EXCEEDED",
			"message": fmt.Sprintf("Too many requests, retry in %ds", secs),
		},
	})
}
