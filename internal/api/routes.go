package api

import "github.com/gin-gonic/gin"

func (s *Server) setupRoutes() {
	s.router.GET("/", s.healthHandler.WorkerInfo)
	s.router.GET("/health", s.healthHandler.HealthCheck)

	sessions := s.router.Group("/sessions")
	{
		sessions.POST("", s.sessionHandler.NewSession)
		sessions.GET("/current", s.sessionHandler.CurrentSession)
		sessions.GET("/recent", s.sessionHandler.RecentSessions)
		sessions.GET("/recent/:id/statistics", s.sessionHandler.SessionStatistics)
		sessions.GET("/recent/:id/cameras/:role", s.sessionHandler.SessionCamera)
	}

	cameras := s.router.Group("/cameras")
	{
		cameras.GET("", s.cameraHandler.ListCameras)
		cameras.PUT("/:role/source", s.cameraHandler.AttachSource)
		cameras.PUT("/:role/line", s.cameraHandler.SetLine)
		cameras.GET("/:role/first-frame", s.cameraHandler.FirstFrame)
		cameras.POST("/:role/start", s.cameraHandler.StartCamera)
		cameras.POST("/:role/stop", s.cameraHandler.StopCamera)
		cameras.GET("/:role/status", s.cameraHandler.GetCameraStatus)
		cameras.GET("/:role/statistics", s.cameraHandler.GetCameraStatistics)
		cameras.GET("/:role/events", s.cameraHandler.GetCameraEvents)
	}

	statistics := s.router.Group("/statistics")
	{
		statistics.GET("", s.statisticsHandler.GetSiteStatistics)
		statistics.GET("/distribution", s.statisticsHandler.GetDistribution)
	}

	system := s.router.Group("/system")
	{
		system.GET("/stats", s.systemHandler.GetStats)
	}

	if s.streamHandler != nil {
		s.router.GET("/ws", s.streamHandler.ServeWS)
	}
	if s.container.Metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.container.Metrics.Handler()))
	}
}
