package httpserver

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Default error page templates.
const (
	DefaultNotFoundTemplate = "pages/not_found.html"
	DefaultErrorTemplate    = "pages/error.html"
	DefaultAPIPrefix        = "/api"
)

// ErrorHandlerConfig configures NewErrorHandler.
type ErrorHandlerConfig struct {
	Logger *slog.Logger

	// APIPrefix marks paths that always get the JSON envelope.
	APIPrefix string

	NotFoundTemplate string
	ErrorTemplate    string
}

// ErrorPage is the data passed to the error page templates.
type ErrorPage struct {
	Title   string
	Status  int
	Code    string
	Message string
	Path    string
}

// NewErrorHandler returns an echo.HTTPErrorHandler that renders an HTML page for
// browser navigation and the JSON envelope for everything else. HTML is only
// attempted when the echo instance has a Renderer.
func NewErrorHandler(cfg ErrorHandlerConfig) echo.HTTPErrorHandler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = DefaultAPIPrefix
	}
	if cfg.NotFoundTemplate == "" {
		cfg.NotFoundTemplate = DefaultNotFoundTemplate
	}
	if cfg.ErrorTemplate == "" {
		cfg.ErrorTemplate = DefaultErrorTemplate
	}

	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, apiErr := mapError(err)
		req := c.Request()

		if status >= http.StatusInternalServerError {
			cfg.Logger.ErrorContext(req.Context(), "request failed",
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.Int("status", status),
				slog.String("error", err.Error()),
			)
		}

		if req.Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}

		if c.Echo().Renderer != nil && wantsHTML(req, cfg.APIPrefix) {
			tmpl := cfg.ErrorTemplate
			if status == http.StatusNotFound {
				tmpl = cfg.NotFoundTemplate
			}
			page := ErrorPage{
				Title:   http.StatusText(status),
				Status:  status,
				Code:    apiErr.Code,
				Message: apiErr.Message,
				Path:    req.URL.Path,
			}
			renderErr := c.Render(status, tmpl, page)
			if renderErr == nil {
				return
			}
			cfg.Logger.ErrorContext(req.Context(), "failed to render error page",
				slog.String("template", tmpl),
				slog.String("error", renderErr.Error()),
			)
			if c.Response().Committed {
				return
			}
		}

		_ = c.JSON(status, Response{Success: false, Error: apiErr})
	}
}

func wantsHTML(req *http.Request, apiPrefix string) bool {
	if strings.HasPrefix(req.URL.Path, apiPrefix) {
		return false
	}
	return strings.Contains(req.Header.Get(echo.HeaderAccept), echo.MIMETextHTML)
}
