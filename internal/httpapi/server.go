// Package httpapi exposes a session over JSON HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"asamanthinks/internal/session"
)

const (
	maxJSONBody  = 64 << 10
	maxChunkBody = 8 << 20

	shutdownTimeout = 10 * time.Second
)

type Recorder interface {
	Toggle(ctx context.Context) (recording bool, audio string, err error)
	Recording() bool
}

type ChunkSink interface {
	Push(chunk []byte) error
}

type Deps struct {
	Session  *session.Session
	Recorder Recorder
	Chunks   ChunkSink
	Log      *slog.Logger
}

type Server struct {
	router   chi.Router
	session  *session.Session
	recorder Recorder
	chunks   ChunkSink
	log      *slog.Logger
}

func NewServer(d Deps) (*Server, error) {
	if d.Session == nil {
		return nil, errors.New("httpapi: session must not be nil")
	}
	if d.Recorder == nil {
		return nil, errors.New("httpapi: recorder must not be nil")
	}
	if d.Chunks == nil {
		return nil, errors.New("httpapi: chunk sink must not be nil")
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}

	s := &Server{
		router:   chi.NewRouter(),
		session:  d.Session,
		recorder: d.Recorder,
		chunks:   d.Chunks,
		log:      d.Log,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(withCorrelationID)
	s.router.Use(withRequestLogging(s.log))
	s.router.Use(middleware.Recoverer)
}

func (s *Server) setupRoutes() {
	s.router.Post("/checkins", s.handleCheckIn)
	s.router.Post("/checkins/{category}", s.handleSelectState)
	s.router.Get("/state", s.handleState)
	s.router.Get("/history", s.handleHistory)
	s.router.Get("/journal", s.handleJournal)

	s.router.Route("/music", func(r chi.Router) {
		r.Get("/", s.handleGetMusic)
		r.Post("/", s.handleRegenerateMusic)
	})

	s.router.Route("/recording", func(r chi.Router) {
		r.Post("/toggle", s.handleToggleRecording)
		r.Post("/chunks", s.handleChunk)
	})

	s.router.Get("/logs", s.handleLogs)
	s.router.Get("/objects", s.handleObjects)
	s.router.Delete("/objects", s.handleReleaseObjects)
	s.router.Get("/insights", s.handleInsights)
	s.router.Get("/categories", s.handleCategories)

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeNotFound(w, "route_not_found")
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.log.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("httpapi: shutdown: %w", err)
	}
	s.log.Info("server stopped")
	return nil
}
