package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ChiRouter implements [Router] on top of a chi mux.
type ChiRouter struct {
	mux chi.Router
}

// NewChiRouter creates a new [ChiRouter] instance.
func NewChiRouter() *ChiRouter {
	return &ChiRouter{mux: chi.NewRouter()}
}

// Use adds [Middleware] to the router's stack, applied in the order it's added.
//
// It panics if routes were already registered, as chi does.
func (r *ChiRouter) Use(middleware ...Middleware) {
	for _, mw := range middleware {
		r.mux.Use(mw)
	}
}

// With returns a router sharing this one's routes whose registrations are additionally wrapped by middleware.
func (r *ChiRouter) With(middleware ...Middleware) *ChiRouter {
	mws := make([]func(http.Handler) http.Handler, len(middleware))
	for i, mw := range middleware {
		mws[i] = mw
	}
	return &ChiRouter{mux: r.mux.With(mws...)}
}

// Handle registers handler for the specified HTTP method and path. Path parameters use chi's {name} syntax.
func (r *ChiRouter) Handle(method, path string, handler http.Handler) {
	r.mux.Method(method, path, handler)
}

// Handler registers a custom Handler implementation for every method on each of its routes.
func (r *ChiRouter) Handler(handler Handler) {
	for _, route := range handler.Routes() {
		r.mux.Handle(route, handler)
	}
}

// ServeHTTP implements [http.Handler] for the entire router.
func (r *ChiRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Param returns the named path parameter of the matched route.
func Param(req *http.Request, name string) string {
	return chi.URLParam(req, name)
}
