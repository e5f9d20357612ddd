package httpserver

import (
	"log/slog"
	"slices"

	"github.com/labstack/echo/v4"
	"github.com/lllypuk/collabfront/internal/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	// Logger is the structured logger for router events.
	Logger *slog.Logger

	// APIRateLimit, when set, guards the mutating JSON API routes.
	APIRateLimit echo.MiddlewareFunc

	// CORSConfig is the CORS configuration.
	CORSConfig middleware.CORSConfig

	// LoggingConfig is the logging middleware configuration.
	LoggingConfig middleware.LoggingConfig

	// RecoveryConfig is the recovery middleware configuration.
	RecoveryConfig middleware.RecoveryConfig

	// APIPrefix is the prefix for all API routes.
	// Default is "/api/v1".
	APIPrefix string
}

// DefaultRouterConfig returns a RouterConfig with sensible defaults.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		Logger:         slog.Default(),
		CORSConfig:     middleware.DefaultCORSConfig(),
		LoggingConfig:  middleware.DefaultLoggingConfig(),
		RecoveryConfig: middleware.DefaultRecoveryConfig(),
		APIPrefix:      "/api/v1",
	}
}

// Router owns the global middleware chain and the two route surfaces: the HTML
// pages at the root and the JSON API under APIPrefix.
type Router struct {
	echo   *echo.Echo
	config RouterConfig
	logger *slog.Logger

	api *echo.Group
}

// NewRouter creates a new router with the given configuration.
func NewRouter(e *echo.Echo, config RouterConfig) *Router {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.APIPrefix == "" {
		config.APIPrefix = "/api/v1"
	}

	r := &Router{
		echo:   e,
		config: config,
		logger: config.Logger,
	}

	cors := config.CORSConfig
	cors.PathPrefix = config.APIPrefix

	// Recovery first so panics in logging or CORS are caught too.
	e.Use(
		middleware.Recovery(config.RecoveryConfig),
		middleware.Logging(config.LoggingConfig),
		middleware.CORS(cors),
	)
	r.api = e.Group(config.APIPrefix)

	return r
}

// Echo returns the underlying Echo instance.
func (r *Router) Echo() *echo.Echo {
	return r.echo
}

// API returns the JSON API group.
func (r *Router) API() *echo.Group {
	return r.api
}

// Mutating returns a builder over the API group that carries the rate limit,
// if one is configured.
func (r *Router) Mutating() *RouteBuilder {
	rb := NewRouteBuilder(r.api)
	if r.config.APIRateLimit != nil {
		rb.Use(r.config.APIRateLimit)
	}
	return rb
}

// Page registers an HTML page route at the root.
func (r *Router) Page(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route {
	return r.echo.GET(path, h, m...)
}

// RouteBuilder registers routes on a group with a shared middleware stack.
type RouteBuilder struct {
	group      *echo.Group
	middleware []echo.MiddlewareFunc
}

// NewRouteBuilder creates a new route builder for the given group.
func NewRouteBuilder(group *echo.Group) *RouteBuilder {
	return &RouteBuilder{group: group}
}

// Use adds middleware to the route builder.
func (rb *RouteBuilder) Use(m ...echo.MiddlewareFunc) *RouteBuilder {
	rb.middleware = append(rb.middleware, m...)
	return rb
}

// with returns the builder's middleware followed by m.
func (rb *RouteBuilder) with(m []echo.MiddlewareFunc) []echo.MiddlewareFunc {
	return append(slices.Clip(rb.middleware), m...)
}

// Group creates a sub-group with the builder's middleware.
func (rb *RouteBuilder) Group(prefix string, m ...echo.MiddlewareFunc) *echo.Group {
	return rb.group.Group(prefix, rb.with(m)...)
}

func (rb *RouteBuilder) GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route {
	return rb.group.GET(path, h, rb.with(m)...)
}

func (rb *RouteBuilder) POST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route {
	return rb.group.POST(path, h, rb.with(m)...)
}

func (rb *RouteBuilder) PUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route {
	return rb.group.PUT(path, h, rb.with(m)...)
}

func (rb *RouteBuilder) DELETE(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route {
	return rb.group.DELETE(path, h, rb.with(m)...)
}

// RouteRegistrar defines the interface for registering routes.
type RouteRegistrar interface {
	RegisterRoutes(r *Router)
}

// RegisterAll registers all route registrars with the router.
func (r *Router) RegisterAll(registrars ...RouteRegistrar) {
	for _, registrar := range registrars {
		registrar.RegisterRoutes(r)
	}
}

// PrintRoutes logs all registered routes (for debugging).
func (r *Router) PrintRoutes() {
	for _, route := range r.echo.Routes() {
		r.logger.Debug("registered route",
			slog.String("method", route.Method),
			slog.String("path", route.Path),
			slog.String("name", route.Name),
		)
	}
}

// RegisterMetricsEndpoint registers the Prometheus metrics endpoint. A nil
// gatherer serves the default registry.
func (r *Router) RegisterMetricsEndpoint(gatherer prometheus.Gatherer) {
	handler := promhttp.Handler()
	if gatherer != nil {
		handler = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	}
	r.echo.GET("/metrics", echo.WrapHandler(handler))
}
