package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/esungul/UniveralValidator/internal/engine"
	"github.com/esungul/UniveralValidator/internal/rules"
	"github.com/esungul/UniveralValidator/internal/store"
)

// DefaultRequestTimeout bounds a single request when WithRequestTimeout is
// not given.
const DefaultRequestTimeout = 30 * time.Second

// maxBodyBytes caps request bodies; a batch of a few thousand snapshots
// fits comfortably.
const maxBodyBytes = 32 << 20

// Server exposes validation over HTTP.
type Server struct {
	registry  *rules.Registry
	engine    *engine.Engine
	store     *store.Store
	rulesPath string
	logger    *slog.Logger
	timeout   time.Duration
	router    chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and lifecycle logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRulesPath sets the file POST /v1/rules/reload reads.
func WithRulesPath(path string) Option {
	return func(s *Server) { s.rulesPath = path }
}

// WithStore enables persisting batch runs with ?save=true.
func WithStore(st *store.Store) Option {
	return func(s *Server) { s.store = st }
}

// WithRequestTimeout bounds each request.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// New builds a server validating with eng against the rules held by reg.
// eng must read its rules from reg so a reload takes effect.
func New(reg *rules.Registry, eng *engine.Engine, opts ...Option) *Server {
	s := &Server{
		registry: reg,
		engine:   eng,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		timeout:  DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.timeout))

	r.Get("/healthz", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/rules", s.handleRules)
		r.Post("/rules/reload", s.handleReload)
		r.Post("/validate", s.handleValidate)
		r.Post("/validate/batch", s.handleBatch)
	})

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: s.timeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr)
		errc <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("server shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
