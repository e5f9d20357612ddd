package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lllypuk/collabfront/internal/config"
	"github.com/lllypuk/collabfront/internal/infrastructure/httpserver"
)

func setupTestServer(t *testing.T, cfg *config.Config) (*echo.Echo, *Container) {
	t.Helper()
	c := newTestContainer(t, cfg)
	startContainer(t, c)
	return SetupRoutes(c).Echo(), c
}

func doRequest(e *echo.Echo, method, target, body string, header ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSetupRoutes_HealthEndpoints(t *testing.T) {
	e, _ := setupTestServer(t, mockConfig())

	rec := doRequest(e, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), httpserver.StatusHealthy)

	rec = doRequest(e, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), httpserver.StatusReady)

	rec = doRequest(e, http.MethodGet, "/health/details", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp httpserver.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Components, 4)
}

func TestSetupRoutes_ReadyWithoutHub(t *testing.T) {
	c := newTestContainer(t, mockConfig())
	e := SetupRoutes(c).Echo()

	rec := doRequest(e, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), httpserver.StatusNotReady)
}

func TestSetupRoutes_RegisteredRoutes(t *testing.T) {
	e, _ := setupTestServer(t, mockConfig())

	routes := make(map[string]bool)
	for _, r := range e.Routes() {
		routes[r.Method+" "+r.Path] = true
	}

	for _, want := range []string{
		"GET /",
		"GET /domain/:id",
		"GET /paths/:id",
		"GET /dns/:id",
		"GET /ws",
		"GET /metrics",
		"GET /api/v1/domains",
		"POST /api/v1/domains",
		"POST /api/v1/domains/create",
		"DELETE /api/v1/domains/:index",
		"GET /api/v1/domains/:index/info",
		"PUT /api/v1/domains/:index/dns/:id",
		"POST /api/v1/notifications",
		"DELETE /api/v1/notifications/:id",
	} {
		assert.True(t, routes[want], "route %s not registered", want)
	}
}

func TestSetupRoutes_CreateDomainFlow(t *testing.T) {
	e, c := setupTestServer(t, mockConfig())

	rec := doRequest(e, http.MethodPost, "/api/v1/domains/create", `{"host":"smoke.collab.test","name":"smoke"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 1, c.Store.Len())

	rec = doRequest(e, http.MethodGet, "/api/v1/domains/index?name=smoke", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"index":0`)

	// The created domain's access key is known to the mock backend.
	rec = doRequest(e, http.MethodGet, "/api/v1/domains/0/info", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "smoke.collab.test")

	rec = doRequest(e, http.MethodGet, "/domain/0", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "smoke.collab.test")

	rec = doRequest(e, http.MethodDelete, "/api/v1/domains/0", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, c.Store.Len())
}

func TestSetupRoutes_HomePage(t *testing.T) {
	e, _ := setupTestServer(t, mockConfig())

	rec := doRequest(e, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No domains yet.")
	assert.Contains(t, rec.Body.String(), "/static/js/notifications.js")

	rec = doRequest(e, http.MethodGet, "/static/js/notifications.js", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSetupRoutes_NotFound(t *testing.T) {
	e, _ := setupTestServer(t, mockConfig())

	rec := doRequest(e, http.MethodGet, "/nowhere", "", echo.HeaderAccept, "text/html")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), echo.MIMETextHTML)

	rec = doRequest(e, http.MethodGet, "/api/v1/nowhere", "", echo.HeaderAccept, "text/html")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)
}

func TestSetupRoutes_PanicRendersErrorPage(t *testing.T) {
	e, _ := setupTestServer(t, mockConfig())
	e.GET("/domain/:id/preview", func(c echo.Context) error {
		panic("no template for domain " + c.Param("id"))
	})
	e.GET("/api/v1/domains/:index/preview", func(_ echo.Context) error {
		panic("preview")
	})

	rec := doRequest(e, http.MethodGet, "/domain/2/preview", "", echo.HeaderAccept, "text/html")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), echo.MIMETextHTML)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
	assert.NotContains(t, rec.Body.String(), "no template for domain")
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	rec = doRequest(e, http.MethodGet, "/api/v1/domains/2/preview", "", echo.HeaderAccept, "text/html")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":{"code":"INTERNAL_ERROR","message":"An internal error occurred"}}`, rec.Body.String())
}

func TestSetupRoutes_ServedByServer(t *testing.T) {
	e, _ := setupTestServer(t, mockConfig())
	srv := httpserver.NewServer(e, httpserver.ServerConfig{Address: "127.0.0.1:0"}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()
	require.Eventually(t, func() bool { return srv.Addr() != "" }, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get("http://" + srv.Addr() + "/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(echo.HeaderXRequestID))

	req, err := http.NewRequest(http.MethodGet, "http://"+srv.Addr()+"/nowhere", nil)
	require.NoError(t, err)
	req.Header.Set(echo.HeaderAccept, "text/html")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(echo.HeaderContentType), echo.MIMETextHTML)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestSetupRoutes_Notifications(t *testing.T) {
	e, c := setupTestServer(t, mockConfig())

	rec := doRequest(e, http.MethodPost, "/api/v1/notifications", `{"type":"info","title":"Hello"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"id":`)

	rec = doRequest(e, http.MethodPost, "/api/v1/notifications", `{"type":"loud","title":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(e, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "collabfront_notifications_shown_total")
	assert.Contains(t, rec.Body.String(), "collabfront_store_domains")
	assert.NotNil(t, c.Registry)
}

func TestSetupRoutes_RateLimit(t *testing.T) {
	cfg := mockConfig()
	cfg.RateLimit.Requests = 1

	e, _ := setupTestServer(t, cfg)

	var last *httptest.ResponseRecorder
	for range 5 {
		last = doRequest(e, http.MethodPost, "/api/v1/notifications", `{"type":"info","title":"x"}`)
	}
	assert.Equal(t, http.StatusTooManyRequests, last.Code)

	// Reads are not limited.
	for range 5 {
		last = doRequest(e, http.MethodGet, "/api/v1/domains", "")
	}
	assert.Equal(t, http.StatusOK, last.Code)
}

func TestSetupRoutes_BodyLimit(t *testing.T) {
	cfg := mockConfig()
	cfg.Server.BodyLimit = "1K"

	e, _ := setupTestServer(t, cfg)

	big := `{"type":"info","title":"x","message":"` + strings.Repeat("a", 2048) + `"}`
	rec := doRequest(e, http.MethodPost, "/api/v1/notifications", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
