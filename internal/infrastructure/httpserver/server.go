package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Server timeouts used when the config leaves them unset.
const (
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultShutdownTimeout = 10 * time.Second

	maxHeaderBytes = 1 << 20
)

// ServerConfig is the listener side of the server settings.
type ServerConfig struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Server serves an echo instance built by the router until its context ends.
type Server struct {
	echo   *echo.Echo
	cfg    ServerConfig
	logger *slog.Logger
}

// NewServer applies the timeouts to e. Routes and middleware stay with the
// caller.
func NewServer(e *echo.Echo, cfg ServerConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}

	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.ReadTimeout
	e.Server.WriteTimeout = cfg.WriteTimeout
	e.Server.MaxHeaderBytes = maxHeaderBytes

	return &Server{echo: e, cfg: cfg, logger: logger}
}

// Run listens on the configured address until ctx is done, then waits up to
// ShutdownTimeout for in-flight requests. It returns nil after a clean
// shutdown and the listener error if serving stopped on its own.
func (s *Server) Run(ctx context.Context) error {
	served := make(chan error, 1)
	go func() {
		served <- s.echo.Start(s.cfg.Address)
	}()

	s.logger.InfoContext(ctx, "server listening",
		slog.String("address", s.cfg.Address),
		slog.Duration("read_timeout", s.cfg.ReadTimeout),
		slog.Duration("write_timeout", s.cfg.WriteTimeout),
	)

	select {
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve %s: %w", s.cfg.Address, err)
	case <-ctx.Done():
	}

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.InfoContext(stopCtx, "shutting down HTTP server", slog.Duration("timeout", s.cfg.ShutdownTimeout))
	if err := s.echo.Shutdown(stopCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	<-served

	s.logger.InfoContext(stopCtx, "HTTP server stopped")
	return nil
}

// Addr returns the bound listener address, or "" before Run has bound it.
func (s *Server) Addr() string {
	if addr := s.echo.ListenerAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
