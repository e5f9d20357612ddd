package middleware_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/lllypuk/collabfront/internal/infrastructure/httpserver"
)

// pageRenderer stands in for the template renderer and records which error
// page was rendered.
type pageRenderer struct {
	rendered []string
}

func (r *pageRenderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	r.rendered = append(r.rendered, name)
	page, _ := data.(httpserver.ErrorPage)
	_, err := fmt.Fprintf(w, "<h1>%d %s</h1>", page.Status, page.Title)
	return err
}

// testApp is the front-end's middleware chain: the router's global stack,
// the HTML/JSON error handler and an API group under /api/v1.
type testApp struct {
	e      *echo.Echo
	router *httpserver.Router
	logs   *bytes.Buffer
	pages  *pageRenderer
}

func newTestApp(t *testing.T, configure func(*httpserver.RouterConfig)) *testApp {
	t.Helper()

	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	e := echo.New()
	pages := &pageRenderer{}
	e.Renderer = pages
	e.HTTPErrorHandler = httpserver.NewErrorHandler(httpserver.ErrorHandlerConfig{
		Logger:    logger,
		APIPrefix: "/api/v1",
	})

	cfg := httpserver.DefaultRouterConfig()
	cfg.Logger = logger
	cfg.LoggingConfig.Logger = logger
	cfg.RecoveryConfig.Logger = logger
	if configure != nil {
		configure(&cfg)
	}

	return &testApp{
		e:      e,
		router: httpserver.NewRouter(e, cfg),
		logs:   logs,
		pages:  pages,
	}
}

// do sends a request; header holds name/value pairs.
func (a *testApp) do(method, target string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

// records decodes the JSON log lines with the given message.
func (a *testApp) records(t *testing.T, msg string) []map[string]any {
	t.Helper()

	var out []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(a.logs.Bytes()))
	sc.Buffer(make([]byte, 0, 64<<10), 1<<20)
	for sc.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		if rec["msg"] == msg {
			out = append(out, rec)
		}
	}
	require.NoError(t, sc.Err())
	return out
}

type envelope struct {
	Success bool `json:"success"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func ok(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func newRequest(method, target string) (*http.Request, *httptest.ResponseRecorder) {
	return httptest.NewRequest(method, target, nil), httptest.NewRecorder()
}
