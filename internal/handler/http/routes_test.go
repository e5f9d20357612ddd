package httphandler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httphandler "github.com/lllypuk/collabfront/internal/handler/http"
)

func TestPageRoutes(t *testing.T) {
	routes := httphandler.PageRoutes()
	require.Len(t, routes, 4)

	views := make(map[string]string, len(routes))
	for _, r := range routes {
		views[r.Path] = r.View
		assert.NotEmpty(t, r.Template, r.Path)
	}
	assert.Equal(t, map[string]string{
		"/":           httphandler.ViewHome,
		"/domain/:id": httphandler.ViewDomain,
		"/paths/:id":  httphandler.ViewPaths,
		"/dns/:id":    httphandler.ViewDNS,
	}, views)
}

func TestMatchRoute(t *testing.T) {
	tests := []struct {
		path   string
		view   string
		params map[string]string
		ok     bool
	}{
		{path: "/", view: httphandler.ViewHome, params: map[string]string{}, ok: true},
		{path: "/domain/3", view: httphandler.ViewDomain, params: map[string]string{"id": "3"}, ok: true},
		{path: "/domain/abc", view: httphandler.ViewDomain, params: map[string]string{"id": "abc"}, ok: true},
		{path: "/paths/0/", view: httphandler.ViewPaths, params: map[string]string{"id": "0"}, ok: true},
		{path: "/dns/12", view: httphandler.ViewDNS, params: map[string]string{"id": "12"}, ok: true},
		{path: "/domain", ok: false},
		{path: "/domain/1/extra", ok: false},
		{path: "/unknown", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			route, params, ok := httphandler.MatchRoute(tt.path)
			assert.Equal(t, tt.ok, ok)
			if !tt.ok {
				return
			}
			assert.Equal(t, tt.view, route.View)
			assert.Equal(t, tt.params, params)
		})
	}
}
