// Package server exposes project storage and sprite detection over HTTP.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"sprite-suite/internal/detect"
	"sprite-suite/internal/store"
)

// userHeader identifies the caller. It is trusted as sent.
const userHeader = "x-user-id"

// DefaultMaxBody bounds request bodies when no limit is configured.
const DefaultMaxBody = 32 << 20

// envelope is the shape of every JSON response.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

// Server routes the REST API.
type Server struct {
	projects  *store.Projects
	detector  *detect.Service
	defaults  detect.Config
	maxBody   int64
	maxPixels int64
	mux       *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithDetectDefaults sets the detection options used when a request does
// not override them.
func WithDetectDefaults(cfg detect.Config) Option {
	return func(s *Server) { s.defaults = cfg }
}

// WithMaxBody bounds request bodies.
func WithMaxBody(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBody = n
		}
	}
}

// WithMaxPixels bounds the width*height of images accepted by
// /api/detect.
func WithMaxPixels(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxPixels = n
		}
	}
}

// New creates a server over a project repository and a detection service.
func New(projects *store.Projects, detector *detect.Service, opts ...Option) *Server {
	s := &Server{
		projects:  projects,
		detector:  detector,
		defaults:  detect.DefaultConfig(),
		maxBody:   DefaultMaxBody,
		maxPixels: detect.DefaultMaxPixels,
		mux:       http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/projects", s.handleListProjects)
	s.mux.HandleFunc("POST /api/projects", s.handleSaveProject)
	s.mux.HandleFunc("GET /api/projects/{id}", s.handleGetProject)
	s.mux.HandleFunc("DELETE /api/projects/{id}", s.handleDeleteProject)
	s.mux.HandleFunc("POST /api/log", s.handleLog)
	s.mux.HandleFunc("POST /api/detect", s.handleDetect)
	s.mux.HandleFunc("GET /api/version", s.handleVersion)
}

// Handler returns the routed API with request logging.
func (s *Server) Handler() http.Handler {
	return logRequests(s.mux)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Warn().Err(err).Msg("write response")
	}
}

func ok(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

func fail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, envelope{Success: false, Error: msg})
}

// statusRecorder captures the status code for the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(p []byte) (int, error) {
	n, err := r.ResponseWriter.Write(p)
	r.bytes += n
	return n, err
}

// logRequests tags each request with an id, attaches a logger carrying it
// to the context and writes one access log line.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		logger := log.With().Str("request_id", id).Logger()
		r = r.WithContext(logger.WithContext(r.Context()))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		ev := logger.Info()
		if rec.status >= 500 {
			ev = logger.Error()
		}
		ev.Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Int("bytes", rec.bytes).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

// reqLog returns the request-scoped logger.
func reqLog(r *http.Request) *zerolog.Logger {
	return zerolog.Ctx(r.Context())
}
