// Package main provides the API server entry point.
package main

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	httphandler "github.com/lllypuk/collabfront/internal/handler/http"
	"github.com/lllypuk/collabfront/internal/infrastructure/httpserver"
	"github.com/lllypuk/collabfront/internal/middleware"
	"github.com/lllypuk/collabfront/web"
)

// apiPrefix is the mount point of the JSON API.
const apiPrefix = "/api/v1"

// SetupRoutes configures all routes and middleware chains.
func SetupRoutes(c *Container) *httpserver.Router {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = httpserver.NewValidator()
	e.Renderer = c.TemplateRenderer
	e.HTTPErrorHandler = httpserver.NewErrorHandler(httpserver.ErrorHandlerConfig{
		Logger:    c.Logger,
		APIPrefix: apiPrefix,
	})

	if limit := c.Config.Server.BodyLimit; limit != "" {
		e.Use(echomw.BodyLimit(limit))
	}

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.Logger = c.Logger

	recoveryConfig := middleware.DefaultRecoveryConfig()
	recoveryConfig.Logger = c.Logger

	routerConfig := httpserver.RouterConfig{
		Logger:         c.Logger,
		APIRateLimit:   apiRateLimit(c),
		CORSConfig:     middleware.CORSConfigFor(c.Config.Server.AllowedOrigins),
		LoggingConfig:  loggingConfig,
		RecoveryConfig: recoveryConfig,
		APIPrefix:      apiPrefix,
	}

	router := httpserver.NewRouter(e, routerConfig)

	if err := httphandler.SetupStaticRoutes(e, web.StaticFS); err != nil {
		c.Logger.Error("failed to setup static routes", "error", err)
	}

	router.RegisterHealthEndpointsWithChecker(c)
	router.RegisterMetricsEndpoint(c.Registry)

	router.RegisterAll(
		c.PageHandler,
		c.DomainHandler,
		c.CollabHandler,
		c.NotificationHandler,
	)
	c.WSHandler.RegisterRoutes(e)

	if c.Config.IsDevelopment() {
		router.PrintRoutes()
	}

	return router
}

// apiRateLimit guards the mutating API routes, or returns nil when disabled.
func apiRateLimit(c *Container) echo.MiddlewareFunc {
	if !c.Config.RateLimit.Enabled || c.RateLimitStore == nil {
		return nil
	}

	rl := middleware.DefaultRateLimitConfig()
	rl.Logger = c.Logger
	rl.Store = c.RateLimitStore
	rl.Limit = c.Config.RateLimit.Requests
	rl.Window = c.Config.RateLimit.Window
	return middleware.RateLimit(rl)
}
