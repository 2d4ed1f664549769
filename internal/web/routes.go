package web

import (
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"
)

const (
	uploadsPrefix   = "/static/uploads/"
	processedPrefix = "/static/processed/"
)

func (s *Server) setupRoutes() {
	s.router.Get("/api/health", HealthCheck)
	s.router.Post("/generate", s.Generate)

	s.router.Route("/static", func(r chi.Router) {
		r.Handle("/uploads/*", http.StripPrefix(uploadsPrefix, http.FileServer(http.Dir(s.config.Server.UploadDir))))
		r.Handle("/processed/*", http.StripPrefix(processedPrefix, http.FileServer(http.Dir(s.config.Server.ProcessedDir))))
	})
}

// staticURL returns the public URL of a file name stored under prefix.
func staticURL(prefix, name string) string {
	return path.Join(prefix, path.Base(name))
}
