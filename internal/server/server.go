package server

import "net/http"

// Middleware decorates a handler. chi's and go-chi's middleware have this shape.
type Middleware func(http.Handler) http.Handler

// Handler serves a fixed set of paths, such as an OAuth callback.
type Handler interface {
	http.Handler
	Routes() []string
}

// Router registers routes and middleware. [ChiRouter] is the implementation used by the CLI and the web service.
type Router interface {
	http.Handler
	Use(middleware ...Middleware)
	Handle(method, path string, handler http.Handler)
	Handler(handler Handler)
}

var _ Router = (*ChiRouter)(nil)
