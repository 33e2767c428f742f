package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/KaramelBytes/corrmatrix/internal/analysis"
)

// Config holds server configuration.
type Config struct {
	Addr         string
	CORSOrigins  []string
	MaxBodyBytes int64
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	Analysis     analysis.Options
}

// DefaultConfig listens on :8081 and allows any origin.
func DefaultConfig() Config {
	return Config{
		Addr:         ":8081",
		CORSOrigins:  []string{"*"},
		MaxBodyBytes: 10 << 20,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
		Analysis:     analysis.DefaultOptions(),
	}
}

// Server exposes the correlation engine over HTTP.
type Server struct {
	cfg     Config
	log     zerolog.Logger
	router  *mux.Router
	handler http.Handler
	metrics *Metrics
	srv     *http.Server
}

// New wires routes, middleware and metrics. A nil registry gets a private one.
func New(cfg Config, log zerolog.Logger, reg *prometheus.Registry) *Server {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultConfig().MaxBodyBytes
	}
	s := &Server{
		cfg:     cfg,
		log:     log,
		router:  mux.NewRouter(),
		metrics: NewMetrics(reg),
	}
	s.setupRoutes(reg)
	s.handler = s.requestIDMiddleware(s.recoverMiddleware(s.requestLoggingMiddleware(s.corsMiddleware(s.router))))
	s.srv = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

func (s *Server) setupRoutes(reg *prometheus.Registry) {
	s.router.Use(s.metricsMiddleware)

	s.router.HandleFunc("/analysis", s.handleAnalysis).Methods(http.MethodPost)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	// mux skips router middleware for these, so wrap them directly.
	s.router.NotFoundHandler = s.metricsMiddleware(http.HandlerFunc(s.handleNotFound))
	s.router.MethodNotAllowedHandler = s.metricsMiddleware(http.HandlerFunc(s.handleMethodNotAllowed))
}

// Handler returns the fully wrapped handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.handler }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr).Msg("starting HTTP server")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}
