package httpserver_test

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lllypuk/collabfront/internal/domain/errs"
	"github.com/lllypuk/collabfront/internal/infrastructure/httpserver"
)

// pageRenderer writes "<template>|<status>" for every render.
type pageRenderer struct {
	fail bool
}

func (r pageRenderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	if r.fail {
		return errors.New("template missing")
	}
	page, _ := data.(httpserver.ErrorPage)
	_, err := fmt.Fprintf(w, "%s|%d|%s", name, page.Status, page.Path)
	return err
}

// newFrontEcho wires echo the way cmd/api does: validator plus the HTML/JSON
// error handler with the API under /api/v1.
func newFrontEcho() *echo.Echo {
	e := echo.New()
	e.Validator = httpserver.NewValidator()
	e.HTTPErrorHandler = httpserver.NewErrorHandler(httpserver.ErrorHandlerConfig{APIPrefix: "/api/v1"})
	return e
}

func newErrorServer(renderer echo.Renderer) *echo.Echo {
	e := newFrontEcho()
	e.Renderer = renderer
	e.GET("/boom", func(_ echo.Context) error {
		return errors.New("boom")
	})
	e.GET("/api/v1/domains/:index", func(_ echo.Context) error {
		return fmt.Errorf("lookup: %w", errs.ErrNotFound)
	})
	return e
}

func TestErrorHandler_HTMLNotFound(t *testing.T) {
	e := newErrorServer(pageRenderer{})

	req := httptest.NewRequest(http.MethodGet, "/nowhere", nil)
	req.Header.Set(echo.HeaderAccept, "text/html,application/xhtml+xml")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "pages/not_found.html|404|/nowhere", rec.Body.String())
}

func TestErrorHandler_HTMLInternalError(t *testing.T) {
	e := newErrorServer(pageRenderer{})

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(echo.HeaderAccept, "text/html")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "pages/error.html|500"))
}

func TestErrorHandler_APIAlwaysJSON(t *testing.T) {
	e := newErrorServer(pageRenderer{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/domains/9", nil)
	req.Header.Set(echo.HeaderAccept, "text/html")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t,
		`{"success":false,"error":{"code":"NOT_FOUND","message":"The requested resource was not found"}}`,
		rec.Body.String())
}

func TestErrorHandler_FallsBackToJSON(t *testing.T) {
	tests := []struct {
		name     string
		renderer echo.Renderer
		accept   string
	}{
		{name: "no renderer", renderer: nil, accept: "text/html"},
		{name: "render failure", renderer: pageRenderer{fail: true}, accept: "text/html"},
		{name: "json client", renderer: pageRenderer{}, accept: echo.MIMEApplicationJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newErrorServer(tt.renderer)

			req := httptest.NewRequest(http.MethodGet, "/nowhere", nil)
			req.Header.Set(echo.HeaderAccept, tt.accept)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			require.Equal(t, http.StatusNotFound, rec.Code)
			assert.JSONEq(t, `{"success":false,"error":{"code":"NOT_FOUND","message":"Not Found"}}`, rec.Body.String())
		})
	}
}

func TestErrorHandler_Head(t *testing.T) {
	e := newErrorServer(pageRenderer{})

	req := httptest.NewRequest(http.MethodHead, "/nowhere", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Body.String())
}

type createDomainBody struct {
	Host string `json:"host" validate:"required,hostname"`
}

func TestValidator(t *testing.T) {
	v := httpserver.NewValidator()

	require.NoError(t, v.Validate(&createDomainBody{Host: "oast.example.com"}))

	err := v.Validate(&createDomainBody{})
	var verr *httpserver.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "host", verr.Field)
	assert.Equal(t, "host is a required field", verr.Message)

	err = v.Validate(&createDomainBody{Host: "not a host"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "host", verr.Field)
}

func TestValidator_RespondsWithEnvelope(t *testing.T) {
	e := newFrontEcho()
	e.POST("/api/v1/domains/create", func(c echo.Context) error {
		var body createDomainBody
		if err := c.Bind(&body); err != nil {
			return err
		}
		if err := c.Validate(&body); err != nil {
			return httpserver.RespondError(c, err)
		}
		return httpserver.RespondCreated(c, body)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/domains/create", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t,
		`{"success":false,"error":{"code":"VALIDATION_FAILED","message":"host is a required field"}}`,
		rec.Body.String())
}
