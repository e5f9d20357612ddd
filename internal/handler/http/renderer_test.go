package httphandler_test

import (
	"bytes"
	"io"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httphandler "github.com/lllypuk/collabfront/internal/handler/http"
)

func testTemplateFS() fstest.MapFS {
	return fstest.MapFS{
		"templates/layouts/header.html": {Data: []byte(`{{define "header"}}<h1>{{.Title}}</h1>{{end}}`)},
		"templates/pages/home.html":     {Data: []byte(`{{template "header" .}}{{len .Data}} {{pluralize (len .Data) "domain" "domains"}}`)},
		"templates/README.md":           {Data: []byte(`ignored`)},
		"static/css/app.css":            {Data: []byte(`body{}`)},
	}
}

func TestTemplateRenderer(t *testing.T) {
	r, err := httphandler.NewTemplateRenderer(httphandler.TemplateRendererConfig{FS: testTemplateFS()})
	require.NoError(t, err)

	assert.True(t, r.Has("pages/home.html"))
	assert.True(t, r.Has("layouts/header.html"))
	assert.False(t, r.Has("README.md"))

	var buf bytes.Buffer
	err = r.Render(&buf, "pages/home.html", httphandler.PageData{Title: "Domains", Data: []int{1, 2}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "<h1>Domains</h1>2 domains", buf.String())

	err = r.Render(io.Discard, "pages/missing.html", nil, nil)
	assert.Error(t, err)
}

func TestTemplateRenderer_DevModeReloads(t *testing.T) {
	fsys := testTemplateFS()
	r, err := httphandler.NewTemplateRenderer(httphandler.TemplateRendererConfig{FS: fsys, DevMode: true})
	require.NoError(t, err)

	fsys["templates/pages/home.html"] = &fstest.MapFile{Data: []byte(`v2`)}

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, "pages/home.html", nil, nil))
	assert.Equal(t, "v2", buf.String())
}

func TestTemplateRenderer_ParseError(t *testing.T) {
	fsys := fstest.MapFS{
		"templates/pages/bad.html": {Data: []byte(`{{if}}`)},
	}
	_, err := httphandler.NewTemplateRenderer(httphandler.TemplateRendererConfig{FS: fsys})
	assert.Error(t, err)
}

func TestSetupStaticRoutes(t *testing.T) {
	e := echo.New()
	require.NoError(t, httphandler.SetupStaticRoutes(e, testTemplateFS()))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodGet, "/static/css/app.css", nil))
	assert.Equal(t, stdhttp.StatusOK, rec.Code)
	assert.Equal(t, "body{}", rec.Body.String())
}
