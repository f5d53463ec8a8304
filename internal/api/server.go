// Package api exposes the complaint orchestrator over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/complaint-cli/internal/dispatch"
	"github.com/sells-group/complaint-cli/internal/model"
	"github.com/sells-group/complaint-cli/internal/monitoring"
	"github.com/sells-group/complaint-cli/internal/pipeline"
	"github.com/sells-group/complaint-cli/internal/resilience"
	"github.com/sells-group/complaint-cli/internal/store"
)

// Service is the orchestrator surface the API reads and submits through.
type Service interface {
	Submit(ctx context.Context, rec *model.ComplaintRecord) (*pipeline.Submission, error)
	GetState(ctx context.Context, id string) (*model.WorkflowState, error)
	ListPending(ctx context.Context, filter store.StateFilter) ([]model.WorkflowState, error)
	Events(ctx context.Context, id string, limit int) ([]model.AuditEvent, error)
}

// Dispatcher runs orchestrator operations in the background.
type Dispatcher interface {
	Go(ctx context.Context, req dispatch.Request)
	InFlight(id string) (dispatch.Op, bool)
	Active() int
	Limit() int
}

var (
	_ Service    = (*pipeline.Orchestrator)(nil)
	_ Dispatcher = (*dispatch.Dispatcher)(nil)
)

// Stats produces workflow metrics.
type Stats interface {
	Collect(ctx context.Context) (*monitoring.MetricsSnapshot, error)
}

// Server holds the API dependencies. Background runs started by requests
// use the base context, not the request context.
type Server struct {
	base     context.Context
	svc      Service
	disp     Dispatcher
	stats    Stats
	alerter  *monitoring.Alerter
	origins  []string
	started  time.Time
	maxLimit int
}

// Option configures a Server.
type Option func(*Server)

// WithCORSOrigins sets the allowed CORS origins.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) { s.origins = origins }
}

// WithAlerter exposes the alert state on /health.
func WithAlerter(a *monitoring.Alerter) Option {
	return func(s *Server) { s.alerter = a }
}

// New creates a Server. base bounds the lifetime of dispatched runs.
func New(base context.Context, svc Service, disp Dispatcher, stats Stats, opts ...Option) *Server {
	s := &Server{
		base:     base,
		svc:      svc,
		disp:     disp,
		stats:    stats,
		origins:  []string{"*"},
		started:  time.Now().UTC(),
		maxLimit: 500,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Get("/stats", s.getStats)

	r.Route("/complaints", func(r chi.Router) {
		r.Post("/", s.submit)
		r.Get("/", s.listPending)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getState)
			r.Get("/events", s.listEvents)
			r.Post("/resume", s.resume)
			r.Post("/reprocess", s.reprocess)
		})
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

// writeError maps orchestrator errors onto status codes.
func writeError(w http.ResponseWriter, err error) {
	var ve *resilience.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: ve.Reason, Field: ve.Field})
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "complaint not found"})
	case errors.Is(err, dispatch.ErrInFlight):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	default:
		zap.L().Error("api: request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}
