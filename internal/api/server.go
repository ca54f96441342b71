package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/edvin/searchvault/internal/api/handler"
	mw "github.com/edvin/searchvault/internal/api/middleware"
	"github.com/edvin/searchvault/internal/config"
)

// Pinger checks a dependency for readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	router         chi.Router
	logger         zerolog.Logger
	queue          handler.Queue
	endpoints      handler.EndpointChecker
	db             Pinger
	temporalClient temporalclient.Client
	registry       *prometheus.Registry
	cfg            *config.Config
}

func NewServer(logger zerolog.Logger, q handler.Queue, endpoints handler.EndpointChecker, db Pinger, temporalClient temporalclient.Client, cfg *config.Config) *Server {
	s := &Server{
		router:         chi.NewRouter(),
		logger:         logger,
		queue:          q,
		endpoints:      endpoints,
		db:             db,
		temporalClient: temporalClient,
		registry:       prometheus.NewRegistry(),
		cfg:            cfg,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics(s.registry))
}

func (s *Server) setupRoutes() {
	s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	s.router.Route("/v1", func(r chi.Router) {
		r.Use(mw.Auth(s.cfg.OperatorAPIKeys))

		snapshot := handler.NewSnapshot(s.queue, s.endpoints, s.cfg.BackupQueue, s.cfg.RestoreQueue)
		r.Post("/restores", snapshot.CreateRestore)
		r.Post("/backups", snapshot.CreateBackup)

		sweep := handler.NewSweep(s.temporalClient)
		r.Post("/sweeps", sweep.Start)

		queues := handler.NewQueues(s.queue, s.cfg.BackupQueue, s.cfg.RestoreQueue)
		r.Get("/queues", queues.List)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if err := s.db.Ping(ctx); err != nil {
		checks["queue_db"] = err.Error()
		healthy = false
	} else {
		checks["queue_db"] = "ok"
	}

	if _, err := s.temporalClient.CheckHealth(ctx, &temporalclient.CheckHealthRequest{}); err != nil {
		checks["temporal"] = err.Error()
		healthy = false
	} else {
		checks["temporal"] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(checks)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
