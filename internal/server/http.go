// Package server assembles the HTTP router and owns the lifecycle of the
// listening server.
package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"campusbook/auth/internal/auth/handler"
	"campusbook/auth/internal/server/middleware"
	"campusbook/auth/internal/server/response"
	"campusbook/auth/internal/telemetry/otel"
)

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// NewRouter builds the full route table: auth endpoints behind the
// authentication gate, plus the health endpoint.
func NewRouter(authHandler *handler.Handler, verifier middleware.Verifier, metrics *otel.AuthMetrics, health HealthCheck) *mux.Router {
	r := mux.NewRouter()
	r.Use(requestMetrics(metrics))
	r.Use(middleware.Gate(verifier))
	authHandler.Register(r)
	r.HandleFunc("/healthz", healthHandler(health)).Methods(http.MethodGet)
	return r
}

func healthHandler(health HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if health != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := health(ctx); err != nil {
				log.Printf("healthz: %v", err)
				response.Fail(w, http.StatusServiceUnavailable, "unhealthy", "Dependency check failed")
				return
			}
		}
		response.OK(w, http.StatusOK, "ok", nil)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func requestMetrics(metrics *otel.AuthMetrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			route := r.URL.Path
			if cur := mux.CurrentRoute(r); cur != nil {
				if tpl, err := cur.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			metrics.RecordRequest(r.Context(), route, rec.status)
		})
	}
}

// Server wraps http.Server with sane timeouts and graceful shutdown.
type Server struct {
	srv *http.Server
}

// New returns a Server listening on addr once Run is called.
func New(addr string, router http.Handler) *Server {
	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}}
}

// Run serves until the listener fails or Shutdown is called. Returns nil
// after a clean shutdown.
func (s *Server) Run() error {
	log.Printf("http server listening on %s", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
