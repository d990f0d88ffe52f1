package api

import (
	"github.com/go-chi/chi/v5"
)

// NewRouter builds the HTTP router with all routes registered. Middleware is
// left to the caller.
func NewRouter(s *Server) chi.Router {
	r := chi.NewRouter()

	r.Get("/ping", s.Ping)
	r.Get("/health", s.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Post("/nodes", s.CreateNode)
		r.Get("/nodes/{id}", s.GetNode)
		r.Patch("/nodes/{id}", s.RenameNode)
		r.Delete("/nodes/{id}", s.DeleteNode)
		r.Get("/nodes/{id}/path", s.NodePath)
		r.Get("/nodes/{id}/children", s.NodeChildren)
		r.Post("/relations", s.CreateRelation)
		r.Delete("/relations", s.DeleteRelation)
	})

	// Everything else is a graph path: trailing slash lists a segment,
	// no trailing slash serves content.
	r.Get("/", s.ServePath)
	r.Get("/*", s.ServePath)

	return r
}
