package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/raaihank/data-sentinel/internal/config"
	"github.com/raaihank/data-sentinel/internal/detect"
	"github.com/raaihank/data-sentinel/internal/events"
	"github.com/raaihank/data-sentinel/internal/logger"
	"github.com/raaihank/data-sentinel/internal/pipeline"
	"github.com/raaihank/data-sentinel/internal/policy"
)

// Server exposes the scrub pipeline over HTTP.
type Server struct {
	config       *config.Config
	logger       *logger.Logger
	orchestrator *pipeline.Orchestrator
	registry     *detect.Registry
	policies     *policy.Store
	hub          *events.Hub
	router       *mux.Router
	server       *http.Server
	limiter      *clientLimiter
	started      time.Time
}

// New wires the HTTP surface around an orchestrator.
func New(cfg *config.Config, orch *pipeline.Orchestrator, registry *detect.Registry, policies *policy.Store, hub *events.Hub, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{
		config:       cfg,
		logger:       log.WithComponent("server"),
		orchestrator: orch,
		registry:     registry,
		policies:     policies,
		hub:          hub,
		router:       mux.NewRouter(),
		started:      time.Now(),
	}
	if cfg.Server.RateLimit.Enabled {
		s.limiter = newClientLimiter(cfg.Server.RateLimit)
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/info", s.handleInfo).Methods("GET")

	if s.hub != nil && s.config.Events.Enabled {
		path := s.config.Events.Path
		if path == "" {
			path = "/ws"
		}
		s.router.HandleFunc(path, s.hub.HandleWebSocket).Methods("GET")
	}

	api := s.router.PathPrefix("/v1").Subrouter()
	api.Use(s.loggingMiddleware)
	api.Use(s.rateLimitMiddleware)
	api.HandleFunc("/scrub", s.handleScrub).Methods("POST")
	api.HandleFunc("/policy", s.handlePolicy).Methods("GET")
}

// Start runs the event hub and serves until the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting data-sentinel server",
		zap.Int("port", s.config.Server.Port),
		zap.String("policy", s.policies.Current().Fingerprint()))

	if s.hub != nil {
		s.hub.SetStatus(s.systemStatus)
		go s.hub.Run(ctx)
	}
	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping data-sentinel server")
	return s.server.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.router }
