// Package httphandler serves the HTML pages and the JSON API.
package httphandler

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"path"
	"sync"

	"github.com/labstack/echo/v4"
)

// templatesRoot is the directory of the template tree inside the filesystem.
const templatesRoot = "templates"

// TemplateRenderer implements echo.Renderer for HTML template rendering.
type TemplateRenderer struct {
	templates *template.Template
	mu        sync.RWMutex
	logger    *slog.Logger
	devMode   bool
	fs        fs.FS
}

// TemplateRendererConfig holds configuration for the template renderer.
type TemplateRendererConfig struct {
	// FS contains a "templates" directory. web.TemplatesFS in production.
	FS fs.FS
	// Logger is the structured logger.
	Logger *slog.Logger
	// DevMode enables template reloading on each request.
	DevMode bool
}

// NewTemplateRenderer creates a new template renderer.
func NewTemplateRenderer(cfg TemplateRendererConfig) (*TemplateRenderer, error) {
	r := &TemplateRenderer{
		logger:  cfg.Logger,
		devMode: cfg.DevMode,
		fs:      cfg.FS,
	}

	if r.logger == nil {
		r.logger = slog.Default()
	}

	if err := r.loadTemplates(); err != nil {
		return nil, err
	}

	return r, nil
}

// loadTemplates parses all templates. Each template is named by its path
// relative to the templates directory, e.g. "pages/home.html".
func (r *TemplateRenderer) loadTemplates() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tmpl := template.New("").Funcs(TemplateFuncs())

	err := fs.WalkDir(r.fs, templatesRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ".html" {
			return nil
		}

		content, readErr := fs.ReadFile(r.fs, p)
		if readErr != nil {
			return readErr
		}

		name := p[len(templatesRoot)+1:]
		if _, parseErr := tmpl.New(name).Parse(string(content)); parseErr != nil {
			r.logger.Error("failed to parse template",
				slog.String("path", p),
				slog.String("error", parseErr.Error()))
			return parseErr
		}

		r.logger.Debug("loaded template", slog.String("name", name))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}

	r.templates = tmpl
	return nil
}

// Render implements echo.Renderer.
func (r *TemplateRenderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	if r.devMode {
		if err := r.loadTemplates(); err != nil {
			r.logger.Error("failed to reload templates", slog.String("error", err.Error()))
			return fmt.Errorf("failed to reload templates: %w", err)
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.templates.ExecuteTemplate(w, name, data)
}

// Has reports whether a template with the given name was loaded.
func (r *TemplateRenderer) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.templates.Lookup(name) != nil
}

// SetupStaticRoutes serves the "static" directory of staticFS under /static.
func SetupStaticRoutes(e *echo.Echo, staticFS fs.FS) error {
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return err
	}

	e.StaticFS("/static", staticSub)

	return nil
}
