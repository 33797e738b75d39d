package server

import (
	"net/http"
	"strings"

	"github.com/ternarybob/sellersync/internal/handlers"
)

// RouteHandler is a function type for HTTP handlers
type RouteHandler func(http.ResponseWriter, *http.Request)

// MethodRouter maps HTTP methods to handlers
type MethodRouter map[string]RouteHandler

// RouteByMethod routes requests based on HTTP method with standardized error handling
func RouteByMethod(w http.ResponseWriter, r *http.Request, routes MethodRouter) {
	handler, ok := routes[r.Method]
	if !ok {
		handlers.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	handler(w, r)
}

// RouteCollectionOrItem dispatches "/prefix" (or "/prefix/") to collection and
// "/prefix/{id}" to item
func RouteCollectionOrItem(w http.ResponseWriter, r *http.Request, prefix string, collection, item RouteHandler) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
	if rest == "" {
		collection(w, r)
		return
	}
	item(w, r)
}
