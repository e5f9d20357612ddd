package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

const requestIDKey = "request_id"

// LoggingConfig configures the access log.
type LoggingConfig struct {
	Logger *slog.Logger

	// SkipPaths are matched exactly, SkipPrefixes by prefix. Skipped requests
	// still get a request id.
	SkipPaths    []string
	SkipPrefixes []string
}

// DefaultLoggingConfig keeps health checks, metric scrapes and embedded assets out of the
// access log.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Logger:       slog.Default(),
		SkipPaths:    []string{"/health", "/health/details", "/ready", "/metrics", "/favicon.ico"},
		SkipPrefixes: []string{"/static/"},
	}
}

// Logging assigns every request an X-Request-ID (reusing the caller's) and
// writes one access log line per request once echo's error handler has
// settled the status.
func Logging(cfg LoggingConfig) echo.MiddlewareFunc {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	skipped := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skipped[p] = struct{}{}
	}
	prefixes := cfg.SkipPrefixes

	requestID := echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(c echo.Context, id string) {
			c.Set(requestIDKey, id)
		},
	})

	access := echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			if _, ok := skipped[path]; ok {
				return true
			}
			for _, p := range prefixes {
				if strings.HasPrefix(path, p) {
					return true
				}
			}
			return false
		},
		HandleError:     true,
		LogLatency:      true,
		LogRemoteIP:     true,
		LogMethod:       true,
		LogURIPath:      true,
		LogRoutePath:    true,
		LogRequestID:    true,
		LogStatus:       true,
		LogError:        true,
		LogResponseSize: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("request_id", v.RequestID),
				slog.String("method", v.Method),
				slog.String("path", v.URIPath),
				slog.String("route", v.RoutePath),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote_ip", v.RemoteIP),
				slog.Int64("bytes_out", v.ResponseSize),
			}
			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}
			logger.LogAttrs(context.WithoutCancel(c.Request().Context()), accessLevel(v.Status), "http request", attrs...)
			return nil
		},
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return requestID(access(next))
	}
}

// RequestID returns the id Logging assigned to the request, or "".
func RequestID(c echo.Context) string {
	id, _ := c.Get(requestIDKey).(string)
	return id
}

func accessLevel(status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
