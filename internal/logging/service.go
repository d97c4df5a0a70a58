package logging

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/apambalik/RR-Traffic-Analysis-System/internal/config"
)

func NewServiceLogger(cfg *config.Config, service string) zerolog.Logger {
	return log.With().Str("worker_id", cfg.WorkerID).Str("service", service).Logger()
}

func WithCamera(base zerolog.Logger, role string) zerolog.Logger {
	return base.With().Str("camera_role", role).Logger()
}
