package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

const defaultCORSMaxAge = 12 * time.Hour

// CORSConfig controls which browser origins may call the JSON API.
type CORSConfig struct {
	// AllowOrigins lists the accepted origins. Empty allows any origin, but
	// without credentials.
	AllowOrigins []string
	MaxAge       time.Duration

	// PathPrefix limits CORS to requests under it. Pages and static assets
	// are same-origin and never carry CORS headers.
	PathPrefix string
}

// DefaultCORSConfig allows any origin without credentials.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{MaxAge: defaultCORSMaxAge}
}

// CORSConfigFor builds the config from the server.allowed_origins setting,
// dropping blank entries.
func CORSConfigFor(origins []string) CORSConfig {
	cfg := DefaultCORSConfig()
	for _, o := range origins {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowOrigins = append(cfg.AllowOrigins, o)
		}
	}
	return cfg
}

// CORS returns a global middleware, so preflights for routes that only
// register POST or DELETE are answered too. The admin client sends JSON bodies
// and reads the request id and the rate limit headers back.
func CORS(cfg CORSConfig) echo.MiddlewareFunc {
	origins := cfg.AllowOrigins
	credentials := len(origins) > 0
	if !credentials {
		origins = []string{"*"}
	}
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = defaultCORSMaxAge
	}

	prefix := cfg.PathPrefix

	return echomw.CORSWithConfig(echomw.CORSConfig{
		Skipper: func(c echo.Context) bool {
			return !strings.HasPrefix(c.Request().URL.Path, prefix)
		},
		AllowOrigins: origins,
		AllowMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
		},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAccept, echo.HeaderXRequestID},
		ExposeHeaders:    []string{echo.HeaderXRequestID, HeaderRateLimitRemaining, echo.HeaderRetryAfter},
		AllowCredentials: credentials,
		MaxAge:           int(maxAge / time.Second),
	})
}
