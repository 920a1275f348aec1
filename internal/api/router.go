package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
//
// Routes accept any method: the chompy front end POSTs to /dispense while
// browsers and curl use GET.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)

	routes := map[string]http.HandlerFunc{
		"/status":   s.adapt(s.handleStatus),
		"/dispense": s.adapt(s.handleDispense),
		"/":         s.adapt(s.handleRoot),
	}
	for path, h := range routes {
		r.HandleFunc(path, h)
	}

	notFound := s.adapt(s.handleNotFound)
	r.NotFound(notFound)

	// chi only registers the standard methods, so PURGE and friends land
	// here before path matching.
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		if h, ok := routes[req.URL.Path]; ok {
			h(w, req)
			return
		}
		notFound(w, req)
	})

	return r
}
