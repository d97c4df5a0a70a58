package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/apambalik/RR-Traffic-Analysis-System/internal/api/handlers"
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/config"
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/services"
)

type Server struct {
	config    *config.Config
	router    *gin.Engine
	server    *http.Server
	container *services.ServiceContainer

	healthHandler     *handlers.HealthHandler
	systemHandler     *handlers.SystemHandler
	sessionHandler    *handlers.SessionHandler
	cameraHandler     *handlers.CameraHandler
	statisticsHandler *handlers.StatisticsHandler
	streamHandler     *handlers.StreamHandler
}

// NewServer builds every service and the HTTP API on top of them
func NewServer(cfg *config.Config) (*Server, error) {
	container, err := services.NewServiceContainer(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	return NewServerWithContainer(cfg, container), nil
}

// NewServerWithContainer wires the API onto an existing container
func NewServerWithContainer(cfg *config.Config, container *services.ServiceContainer) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		config:            cfg,
		router:            gin.New(),
		container:         container,
		cameraHandler:     handlers.NewCameraHandler(container.CameraManager),
		statisticsHandler: handlers.NewStatisticsHandler(container.CameraManager),
	}

	// typed nils must not leak into the handler interfaces
	var tracker handlers.TrackerHealth
	if container.DetectionSvc != nil {
		tracker = container.DetectionSvc
	}
	s.healthHandler = handlers.NewHealthHandler(cfg, tracker)

	var clients handlers.ClientCounter
	if container.Hub != nil {
		clients = container.Hub
		s.streamHandler = handlers.NewStreamHandler(container.Hub)
	}
	var sinks handlers.SinkLister
	if container.Publisher != nil {
		sinks = container.Publisher
	}
	s.systemHandler = handlers.NewSystemHandler(cfg.WorkerID, sinks, clients)

	var history handlers.SessionHistory
	if container.Store != nil {
		history = container.Store
	}
	var cache handlers.SnapshotCache
	if container.Snapshots != nil {
		cache = container.Snapshots
	}
	s.sessionHandler = handlers.NewSessionHandler(container.CameraManager, history, cache)

	s.setupMiddleware()
	s.setupRoutes()
	s.setupSwagger()

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Start() error {
	log.Info().Int("port", s.config.Port).Msg("Starting counting worker API")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, then shuts the services down
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Stopping counting worker API")
	httpErr := s.server.Shutdown(ctx)
	svcErr := s.container.Shutdown(ctx)
	if httpErr != nil {
		return httpErr
	}
	return svcErr
}

func (s *Server) Handler() http.Handler {
	return s.router
}
