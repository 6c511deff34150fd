// Package searchd is the search daemon's JSON surface (spec.md sec 6):
// POST /query, GET /stats, GET /healthz, translating the error kinds of
// spec.md sec 7 into the daemon-level Codes of codes.go. Structured like the
// teacher's internal/api.Server: a chi router, a middleware stack, and a
// thin http.Server wrapper with Start/Shutdown.
package searchd

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/texmath/mathsearch/internal/analytics"
	"github.com/texmath/mathsearch/internal/blobstore"
	"github.com/texmath/mathsearch/internal/config"
	"github.com/texmath/mathsearch/internal/textindex"
	"github.com/texmath/mathsearch/pkg/mathindex"
)

type requestIDKey struct{}

// Server wires the math index, text index, blob store, and optional
// analytics sink behind an HTTP API.
type Server struct {
	cfg    config.ServerConfig
	idx    *mathindex.Index
	text   *textindex.Index
	blobs  *blobstore.Store
	stats  *analytics.Sink
	logger *slog.Logger

	router chi.Router
	server *http.Server
}

// NewServer builds a Server over an already-opened read-mode math index.
// text, blobs, and stats may be nil when a run doesn't need them (e.g. a
// math-only test harness).
func NewServer(cfg config.ServerConfig, idx *mathindex.Index, text *textindex.Index, blobs *blobstore.Store, stats *analytics.Sink, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{cfg: cfg, idx: idx, text: text, blobs: blobs, stats: stats, logger: logger}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(middleware.RealIP)
	r.Use(s.logRequest)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Post("/query", s.handleQuery)
	r.Get("/stats", s.handleStats)
	r.Get("/healthz", s.handleHealth)

	s.router = r
	s.server = &http.Server{Addr: cfg.Addr, Handler: r}
	return s
}

// requestIDMiddleware stamps every request with a uuid-based correlation
// id, threaded through logs the same role chi's sequential request ids
// play in the teacher's middleware stack, but globally unique across
// daemon restarts.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()
		w.Header().Set("X-Request-Id", id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (s *Server) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"request_id", requestIDFrom(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}

// Start begins serving. It blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("search daemon listening", "addr", s.cfg.Addr)
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
