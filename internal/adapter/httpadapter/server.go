// Package httpadapter exposes the service's operational HTTP surface:
// liveness, readiness, and Prometheus metrics.
package httpadapter

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server wraps the operational HTTP endpoints for the tracking service.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server serving /healthz, /readyz, and /metrics.
// Readiness is delegated to the tracker: the service reports ready once at
// least one frame has been processed.
func NewServer(addr string, ready sharedobs.ReadinessChecker, logger *slog.Logger) *Server {
	s := &Server{
		httpServer: &http.Server{
			Addr:              addr,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: logger,
	}
	s.httpServer.Handler = s.routes(ready)
	return s
}

func (s *Server) routes(ready sharedobs.ReadinessChecker) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(s.loggedReadiness(ready)))
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// loggedReadiness records the first transition to ready, so operators can see
// in the logs when the tracker started making progress.
func (s *Server) loggedReadiness(inner sharedobs.ReadinessChecker) sharedobs.ReadinessChecker {
	return &readinessLogger{inner: inner, logger: s.logger}
}

type readinessLogger struct {
	inner  sharedobs.ReadinessChecker
	logger *slog.Logger
	once   sync.Once
}

func (r *readinessLogger) CheckReadiness(ctx context.Context) error {
	err := r.inner.CheckReadiness(ctx)
	if err == nil {
		r.once.Do(func() { r.logger.Info("tracker ready") })
	}
	return err
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}
