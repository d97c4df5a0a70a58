package api

import (
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/api/middleware"
)

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recovery())
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.RequestContext())
	s.router.Use(middleware.Logger())
	s.router.Use(middleware.CORS())

	if s.container.Metrics != nil {
		s.router.Use(middleware.Metrics(s.container.Metrics))
	}
}
