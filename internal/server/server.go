package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lazypower/rote/internal/scheduler"
	"github.com/lazypower/rote/internal/store"
)

// Server is the rote HTTP API server.
type Server struct {
	db      *store.DB
	sched   *scheduler.Service
	router  chi.Router
	version string
	started time.Time
}

// New creates a new Server with the given database, scheduling
// service, and version string.
func New(db *store.DB, sched *scheduler.Service, version string) *Server {
	s := &Server{
		db:      db,
		sched:   sched,
		version: version,
		started: time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/items", s.handleInitializeItem)
		r.Post("/items/{itemID}/review", s.handleSubmitReview)
		r.Get("/items/{itemID}/preview", s.handlePreview)

		r.Get("/queue/due", s.handleDue)
		r.Get("/queue/new", s.handleNew)
		r.Get("/queue/learning", s.handleLearning)

		r.Get("/stats", s.handleStats)
		r.Get("/params", s.handleParams)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.Ping(); err != nil {
		dbOK = false
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
		"db_path": s.db.Path,
	})
}
