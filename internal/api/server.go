package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/JakeFAU/roof-estimate/internal/blog"
	"github.com/JakeFAU/roof-estimate/internal/cms"
	"github.com/JakeFAU/roof-estimate/internal/config"
	"github.com/JakeFAU/roof-estimate/internal/estimate"
	"github.com/JakeFAU/roof-estimate/internal/id/uuid"
	"github.com/JakeFAU/roof-estimate/internal/metrics"
)

// Enqueuer accepts jobs without blocking the request.
type Enqueuer interface {
	TryEnqueue(item blog.QueueItem) error
}

// Canceler stops a running job.
type Canceler interface {
	Cancel(jobID string) bool
}

// ReadinessCheck reports whether a downstream dependency is usable.
type ReadinessCheck func(ctx context.Context) error

// Dependencies are the collaborators the handlers use. Posts, Keywords and
// Canceler are optional.
type Dependencies struct {
	Calculator *estimate.Calculator
	Jobs       blog.JobStore
	Queue      Enqueuer
	Canceler   Canceler
	Posts      cms.Source
	Keywords   blog.KeywordSource
	IDs        blog.IDGenerator
	Clock      blog.Clock
	Ready      map[string]ReadinessCheck
}

// Server wires HTTP handlers to the calculator, CMS and automation pipeline.
type Server struct {
	router chi.Router
	deps   Dependencies
	cfg    config.Config
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(deps Dependencies, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Calculator == nil {
		deps.Calculator = estimate.NewCalculator(estimate.Config{})
	}
	s := &Server{
		deps:   deps,
		cfg:    cfg,
		logger: logger.Named("api"),
	}

	timeout := cfg.RequestTimeout()
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(timeoutMiddleware(timeout))
		r.Route("/v1", func(r chi.Router) {
			r.Get("/materials", s.listMaterials)
			r.Get("/pitches", s.listPitches)
			r.Get("/regions", s.listRegions)
			r.Post("/estimates", s.createEstimate)

			r.Get("/locations", s.listLocations)
			r.Get("/locations/{slug}", s.getLocation)
			r.Get("/locations/{slug}/estimate", s.locationEstimate)

			r.Get("/posts", s.listPosts)
			r.Get("/posts/{slug}", s.getPost)

			r.Route("/blog", func(r chi.Router) {
				if cfg.Auth.Enabled {
					r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
				}
				r.Get("/keywords", s.listKeywords)
				r.Post("/jobs", s.submitJob)
				r.Get("/jobs", s.listJobs)
				r.Route("/jobs/{job_id}", func(r chi.Router) {
					r.Get("/", s.getJob)
					r.Get("/draft", s.getDraft)
					r.Post("/cancel", s.cancelJob)
				})
			})
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	failures := map[string]string{}
	for name, check := range s.deps.Ready {
		if err := check(ctx); err != nil {
			failures[name] = err.Error()
		}
	}
	if len(failures) > 0 {
		s.logger.Warn("readiness check failed", zap.Any("failures", failures))
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "checks": failures})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(middleware.RequestIDHeader)
		if !uuid.Valid(reqID) {
			var err error
			if reqID, err = uuid.New().NewID(); err != nil {
				reqID = ""
			}
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set(middleware.RequestIDHeader, reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestID returns the request id stored by the middleware.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.logger.Info("request completed",
			zap.String("request_id", RequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.logger.Error("panic recovered",
					zap.String("request_id", RequestID(r.Context())),
					zap.Any("panic", rec),
					zap.Stack("stack"),
				)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, `{"error":"request timed out"}`)
	}
}

type requestIDKey struct{}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if subtle.ConstantTimeCompare([]byte(key), []byte(expected)) != 1 {
				writeError(w, http.StatusForbidden, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
