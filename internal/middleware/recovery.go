package middleware

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

const defaultStackSize = 4 << 10

// ErrPanic wraps every recovered panic before it reaches the error handler.
var ErrPanic = errors.New("panic recovered")

// RecoveryConfig configures Recovery.
type RecoveryConfig struct {
	Logger *slog.Logger

	// StackSize caps the logged stack of the panicking goroutine. Zero uses 4KB,
	// negative disables the stack.
	StackSize int
}

// DefaultRecoveryConfig returns the config used by the server.
func DefaultRecoveryConfig() RecoveryConfig {
	return RecoveryConfig{
		Logger:    slog.Default(),
		StackSize: defaultStackSize,
	}
}

// Recovery logs a handler panic and passes it to echo's error handler as
// ErrPanic, so a page request gets the HTML error page and an API request gets
// the JSON envelope.
func Recovery(cfg RecoveryConfig) echo.MiddlewareFunc {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	size := cfg.StackSize
	if size == 0 {
		size = defaultStackSize
	}

	return echomw.RecoverWithConfig(echomw.RecoverConfig{
		StackSize:         max(size, 1),
		DisableStackAll:   true,
		DisablePrintStack: size < 0,
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			req := c.Request()
			attrs := []any{
				slog.String("request_id", RequestID(c)),
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.String("route", c.Path()),
				slog.String("panic", err.Error()),
			}
			if len(stack) > 0 {
				attrs = append(attrs, slog.String("stack", string(stack)))
			}
			logger.ErrorContext(req.Context(), "panic recovered", attrs...)
			return fmt.Errorf("%w: %w", ErrPanic, err)
		},
	})
}
