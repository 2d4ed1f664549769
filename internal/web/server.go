package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/menta2k/face-meme/internal/config"
	"github.com/menta2k/face-meme/pkg/compose"
	"github.com/robfig/cron/v3"
)

// Composer turns an image file into a meme file.
type Composer interface {
	ComposeFile(ctx context.Context, source, outputPath string) (*compose.Result, error)
}

// Server represents the web server
type Server struct {
	config     *config.Config
	composer   Composer
	router     *chi.Mux
	httpServer *http.Server
	cron       *cron.Cron
}

// NewServer creates a new web server
func NewServer(cfg *config.Config, composer Composer) *Server {
	r := chi.NewRouter()

	s := &Server{
		config:   cfg,
		composer: composer,
		router:   r,
	}

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(2 * time.Minute))

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 3 * time.Minute, // classifiers and caption model run inside the request
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start schedules the retention sweep and starts the HTTP server
func (s *Server) Start() error {
	if err := s.startSweeper(); err != nil {
		return err
	}

	log.Printf("Starting web server on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down web server...")

	if s.cron != nil {
		<-s.cron.Stop().Done()
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}
