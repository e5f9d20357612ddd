package httphandler

import "strings"

// View names of the page routes.
const (
	ViewHome   = "home"
	ViewDomain = "domain"
	ViewPaths  = "paths"
	ViewDNS    = "dns"
)

// PageRoute maps a URL path pattern to the view that renders it. Patterns use
// echo syntax; ":id" is an opaque path parameter.
type PageRoute struct {
	Path     string
	View     string
	Title    string
	Template string
}

// PageRoutes returns the page route table. There is no catch-all entry;
// unmatched paths reach the server error handler.
func PageRoutes() []PageRoute {
	return []PageRoute{
		{Path: "/", View: ViewHome, Title: "Domains", Template: "pages/home.html"},
		{Path: "/domain/:id", View: ViewDomain, Title: "Domain", Template: "pages/domain.html"},
		{Path: "/paths/:id", View: ViewPaths, Title: "Paths", Template: "pages/paths.html"},
		{Path: "/dns/:id", View: ViewDNS, Title: "DNS", Template: "pages/dns.html"},
	}
}

// MatchRoute resolves urlPath against the route table and returns the matched
// route with its path parameters.
func MatchRoute(urlPath string) (PageRoute, map[string]string, bool) {
	segments := splitPath(urlPath)
	for _, route := range PageRoutes() {
		if params, ok := matchSegments(splitPath(route.Path), segments); ok {
			return route, params, true
		}
	}
	return PageRoute{}, nil, false
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func matchSegments(pattern, segments []string) (map[string]string, bool) {
	if len(pattern) != len(segments) {
		return nil, false
	}
	params := make(map[string]string)
	for i, part := range pattern {
		if name, ok := strings.CutPrefix(part, ":"); ok {
			if segments[i] == "" {
				return nil, false
			}
			params[name] = segments[i]
			continue
		}
		if part != segments[i] {
			return nil, false
		}
	}
	return params, true
}
