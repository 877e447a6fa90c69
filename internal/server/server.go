// Package server exposes editing sessions over HTTP. Every session is an
// independent session.Session addressed by a UUID and serialised by its own
// mutex.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/example/memeshot/internal/imagesource"
	"github.com/example/memeshot/internal/session"
)

// DefaultMaxImageBytes bounds uploaded images.
const DefaultMaxImageBytes = 32 << 20

const shutdownTimeout = 5 * time.Second

var errUnknownSession = errors.New("unknown session")

type entry struct {
	mu   sync.Mutex
	sess *session.Session
}

// Server holds the live sessions.
type Server struct {
	newSession    Factory
	maxImageBytes int64
	maxPixels     int64

	mu       sync.Mutex
	sessions map[uuid.UUID]*entry

	router chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithMaxImageBytes limits upload size.
func WithMaxImageBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxImageBytes = n
		}
	}
}

// Factory builds the session behind a new id.
type Factory func() (*session.Session, error)

// WithMaxImagePixels limits the decoded size of uploads.
func WithMaxImagePixels(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxPixels = n
		}
	}
}

// New creates a Server whose sessions are built by factory.
func New(factory Factory, opts ...Option) *Server {
	s := &Server{
		newSession:    factory,
		maxImageBytes: DefaultMaxImageBytes,
		maxPixels:     imagesource.DefaultMaxPixels,
		sessions:      map[uuid.UUID]*entry{},
	}
	for _, o := range opts {
		o(s)
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/sessions", s.handleCreate)
	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", s.withSession(s.handleGet))
		r.Delete("/", s.handleDelete)
		r.Put("/image", s.withSession(s.handleImage))
		r.Put("/settings", s.withSession(s.handleSettings))
		r.Post("/annotations", s.withSession(s.handleAdd))
		r.Patch("/annotations/{aid}", s.withSession(s.handleUpdate))
		r.Delete("/annotations/{aid}", s.withSession(s.handleDeleteAnnotation))
		r.Post("/annotations/{aid}/nudge", s.withSession(s.handleNudge))
		r.Post("/select/{aid}", s.withSession(s.handleSelect))
		r.Delete("/select", s.withSession(s.handleClearSelection))
		r.Post("/checkpoint", s.withSession(s.handleCheckpoint))
		r.Post("/undo", s.withSession(s.handleUndo))
		r.Get("/preview.png", s.withSession(s.handlePreview))
		r.Get("/export.png", s.withSession(s.handleExport))
		r.Post("/save", s.withSession(s.handleSave))
		r.Post("/share", s.withSession(s.handleShare))
	})
	return r
}

// Len returns the number of live sessions.
func (s *Server) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) lookup(raw string) (uuid.UUID, *entry, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("%w %q", errUnknownSession, raw)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return uuid.Nil, nil, fmt.Errorf("%w %s", errUnknownSession, id)
	}
	return id, e, nil
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, id uuid.UUID, sess *session.Session)

// withSession resolves {id} and runs h with the session locked.
func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, e, err := s.lookup(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		e.mu.Lock()
		defer e.mu.Unlock()
		h(w, r, id, e.sess)
	}
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
