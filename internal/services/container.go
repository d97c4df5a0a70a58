package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/apambalik/RR-Traffic-Analysis-System/internal/config"
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/db"
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/metrics"
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/services/broadcast"
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/services/camera"
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/services/capacity"
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/services/detection"
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/services/messaging"
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/services/publisher"
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/services/snapshot"
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/services/streamcapture"
)

// ServiceContainer holds all services
type ServiceContainer struct {
	Config        *config.Config
	DetectionSvc  *detection.Service
	CaptureSvc    *streamcapture.Service
	Messaging     *messaging.Service
	Hub           *broadcast.Hub
	Store         *db.DB
	Snapshots     *snapshot.Cache
	Metrics       *metrics.Metrics
	Publisher     *publisher.Service
	CameraManager *camera.Manager
}

// NewServiceContainer creates a new service container
func NewServiceContainer(cfg *config.Config) (*ServiceContainer, error) {
	sc := &ServiceContainer{Config: cfg}

	detectionSvc, err := detection.NewService(cfg.TrackerGRPCURL, cfg.TrackerTimeout, cfg.MinConfidence)
	if err != nil {
		return nil, err
	}
	sc.DetectionSvc = detectionSvc
	sc.CaptureSvc = streamcapture.NewService(cfg)

	store, err := db.NewDB(cfg.DatabasePath)
	if err != nil {
		sc.Shutdown(context.Background())
		return nil, fmt.Errorf("open database: %w", err)
	}
	sc.Store = store

	sc.Publisher = publisher.NewService(cfg)
	sc.Hub = broadcast.NewHub(cfg)
	sc.Publisher.Register("websocket", sc.Hub)
	sc.Publisher.Register("sqlite", sc.Store)

	if cfg.NatsEnabled {
		natsSvc, err := messaging.NewService(cfg)
		if err != nil {
			// counting keeps working without the broker
			log.Warn().Err(err).Str("url", cfg.NatsURL).Msg("NATS unavailable, broadcast disabled")
		} else {
			sc.Messaging = natsSvc
			sc.Publisher.Register("nats", natsSvc)
		}
	}

	if cfg.RedisAddr != "" {
		cache, err := snapshot.NewCache(cfg)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, snapshot cache disabled")
		} else {
			sc.Snapshots = cache
			sc.Publisher.Register("redis", cache)
		}
	}

	deps := camera.ManagerDeps{
		Opener:    sc.CaptureSvc,
		Grabber:   sc.CaptureSvc,
		Tracker:   sc.DetectionSvc,
		Capacity:  capacity.Default(),
		Publisher: sc.Publisher,
	}
	if cfg.MetricsEnabled {
		sc.Metrics = metrics.New()
		sc.Publisher.Register("metrics", sc.Metrics)
		deps.Observer = sc.Metrics
	}

	cameraManager, err := camera.NewManager(cfg, deps)
	if err != nil {
		sc.Shutdown(context.Background())
		return nil, err
	}
	sc.CameraManager = cameraManager

	return sc, nil
}

// Shutdown gracefully shuts down all services. Jobs stop first so their
// final envelopes still reach every sink.
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if sc.CameraManager != nil {
		keep(sc.CameraManager.Shutdown(ctx))
	}
	if sc.Hub != nil {
		keep(sc.Hub.Shutdown(ctx))
	}
	if sc.Messaging != nil {
		keep(sc.Messaging.Shutdown(ctx))
	}
	if sc.Snapshots != nil {
		keep(sc.Snapshots.Shutdown(ctx))
	}
	if sc.Store != nil {
		keep(sc.Store.Shutdown(ctx))
	}
	if sc.DetectionSvc != nil {
		keep(sc.DetectionSvc.Shutdown(ctx))
	}
	return firstErr
}
