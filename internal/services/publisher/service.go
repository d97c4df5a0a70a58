package publisher

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/apambalik/RR-Traffic-Analysis-System/internal/config"
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/logging"
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/models"
)

type sink struct {
	name string
	pub  models.MessagePublisher
}

// Service fans every envelope out to the registered sinks in registration
// order. Sink failures are logged and swallowed.
type Service struct {
	mu     sync.RWMutex
	sinks  []sink
	logger zerolog.Logger
}

func NewService(cfg *config.Config) *Service {
	return &Service{
		logger: logging.NewServiceLogger(cfg, "publisher"),
	}
}

// Register adds a named sink
func (s *Service) Register(name string, pub models.MessagePublisher) {
	if pub == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks = append(s.sinks, sink{name: name, pub: pub})
	s.logger.Info().Str("sink", name).Msg("Publisher sink registered")
}

// Sinks returns the registered sink names
func (s *Service) Sinks() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, len(s.sinks))
	for i, sk := range s.sinks {
		names[i] = sk.name
	}
	return names
}

func (s *Service) Publish(ctx context.Context, env models.Envelope) error {
	s.mu.RLock()
	sinks := append([]sink(nil), s.sinks...)
	s.mu.RUnlock()

	for _, sk := range sinks {
		if err := s.publishOne(ctx, sk, env); err != nil {
			s.logger.Warn().
				Err(err).
				Str("sink", sk.name).
				Str("type", string(env.Type)).
				Str("camera_role", string(env.Role)).
				Msg("Sink publish failed")
		}
	}
	return nil
}

func (s *Service) publishOne(ctx context.Context, sk sink, env models.Envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panic: %v", r)
		}
	}()
	return sk.pub.Publish(ctx, env)
}
