// Package server exposes the HTTP API: natural-language queries, analysis
// triggers, CSV exports and health/metrics endpoints.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/mkaravel/cryptotrends/internal/analysis"
	"github.com/mkaravel/cryptotrends/internal/domain"
	"github.com/mkaravel/cryptotrends/internal/query"
)

// Version is reported in every response envelope and on /health.
const Version = "1.0.0"

// QueryExecutor runs one natural-language query end to end.
type QueryExecutor interface {
	Execute(ctx context.Context, queryText string, filters query.Filters) (*query.Result, error)
}

// AnalysisRunner triggers one full analysis run.
type AnalysisRunner interface {
	Run(ctx context.Context) (*analysis.Summary, error)
}

// RunLister reads recent analysis run records.
type RunLister interface {
	Recent(ctx context.Context, limit int) ([]domain.AnalysisRun, error)
}

// Config holds server configuration.
type Config struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Log          zerolog.Logger
	DB           *sqlx.DB
	Queries      QueryExecutor
	Analysis     AnalysisRunner
	Runs         RunLister
	Exporter     CSVExporter
}

// Server is the HTTP server.
type Server struct {
	router   *chi.Mux
	server   *http.Server
	log      zerolog.Logger
	db       *sqlx.DB
	queries  QueryExecutor
	analysis AnalysisRunner
	runs     RunLister
	exporter CSVExporter

	analysisBusy atomic.Bool
}

// New creates the HTTP server.
func New(cfg Config) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		log:      cfg.Log.With().Str("component", "server").Logger(),
		db:       cfg.DB,
		queries:  cfg.Queries,
		analysis: cfg.Analysis,
		runs:     cfg.Runs,
		exporter: cfg.Exporter,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware() {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(requestIDMiddleware)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Timeout
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	s.router.Use(middleware.Compress(5))
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/query", func(r chi.Router) {
			r.Post("/", s.handleQuery)
			r.Get("/examples", s.handleQueryExamples)
		})

		r.Route("/analysis", func(r chi.Router) {
			r.Post("/run", s.handleAnalysisRun)
			r.Get("/runs", s.handleAnalysisRuns)
		})

		r.Route("/export", func(r chi.Router) {
			r.Get("/trends.csv", s.handleExportTrends)
			r.Get("/signals.csv", s.handleExportSignals)
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

type ctxKey string

const requestIDKey ctxKey = "request_id"

// requestIDMiddleware tags every request with an ID, honoring one supplied
// by the caller.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func requestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", requestID(r.Context())).
			Msg("HTTP request")
	})
}
