package metrics

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// skipPaths are never counted; the scrape endpoint would otherwise count itself.
var skipPaths = map[string]struct{}{Path: {}}

func isSkipPath(r *http.Request) bool {
	_, ok := skipPaths[r.URL.Path]
	return ok
}

// routePattern labels a request with its matched chi route, so unknown paths
// collapse into a single "unmatched" series.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
