package http

// this is entry point of the http request handlers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"gitlab.com/fbworkers.net/internal/core/ports/primary"
	"gitlab.com/fbworkers.net/internal/core/ports/secondary"
	"gitlab.com/fbworkers.net/internal/core/services/discovery"
	"gitlab.com/fbworkers.net/internal/core/services/settings"
	"gitlab.com/fbworkers.net/internal/core/services/worker"
	"gitlab.com/fbworkers.net/internal/handlers"
	settingshdl "gitlab.com/fbworkers.net/internal/handlers/settings"
	"gitlab.com/fbworkers.net/internal/handlers/workers"
)

type ServiceProvider struct {
	discoveryService discovery.IDiscoveryService
	localWorker      worker.ILocalWorkerService
	settingsService  settings.ISettingsService
	history          secondary.DiscoveryHistoryRepository
	jwt              primary.JWTService
	metrics          http.Handler
}

// NewServiceProvider bundles what the handlers need. history and metrics may
// be nil.
func NewServiceProvider(
	discoveryService discovery.IDiscoveryService,
	localWorker worker.ILocalWorkerService,
	settingsService settings.ISettingsService,
	history secondary.DiscoveryHistoryRepository,
	jwt primary.JWTService,
	metrics http.Handler,
) *ServiceProvider {
	return &ServiceProvider{
		discoveryService: discoveryService,
		localWorker:      localWorker,
		settingsService:  settingsService,
		history:          history,
		jwt:              jwt,
		metrics:          metrics,
	}
}

type Server struct {
	router          *mux.Router
	srv             *http.Server
	Port            int
	ServiceName     string
	ServiceProvider ServiceProvider
	logger          primary.Logger
}

func NewServer(port int, serviceName string, serviceProvider ServiceProvider, logger primary.Logger) *Server {
	return &Server{
		Port:            port,
		ServiceName:     serviceName,
		ServiceProvider: serviceProvider,
		logger:          logger,
	}
}

func (s *Server) Init() error {
	if s.ServiceProvider.discoveryService == nil || s.ServiceProvider.settingsService == nil {
		return errors.New("http server needs discovery and settings services")
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		handlers.ResponseWithJson(w, http.StatusOK, map[string]string{"service": s.ServiceName, "status": "ok"})
	}).Methods("GET")

	workers.NewHandler(
		s.ServiceProvider.discoveryService,
		s.ServiceProvider.localWorker,
		s.ServiceProvider.history,
		s.logger,
	).Register(r)

	middleware := handlers.New(s.ServiceProvider.jwt, s.logger)
	settingshdl.NewSettingsHandler(s.ServiceProvider.settingsService, middleware, s.logger).RegisterRoutes(r)

	if s.ServiceProvider.metrics != nil {
		r.Handle("/metrics", s.ServiceProvider.metrics).Methods("GET")
	}

	s.router = r
	return nil
}

// Handler returns the router built by Init.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start(ctx context.Context) {
	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		BaseContext:  func(_ net.Listener) context.Context { return ctx },
	}

	go func() {
		s.logger.Info("Server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Server error", "error", err)
		}
	}()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down http server...")
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
