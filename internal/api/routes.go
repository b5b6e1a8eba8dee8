package api

func (s *Server) setupRoutes() {
	s.router.GET("/", s.healthHandler.WorkerInfo)
	s.router.GET("/health", s.healthHandler.HealthCheck)
	s.router.GET("/stats", s.systemHandler.GetStats)

	s.router.GET("/streams", s.streamHandler.ListStreams)
	s.router.GET("/stream/:id", s.streamHandler.Stream)
	s.router.POST("/exit", s.streamHandler.Exit)

	gallery := s.router.Group("/gallery")
	{
		gallery.GET("", s.galleryHandler.GetGallery)
		gallery.PUT("/limit", s.galleryHandler.SetLimit)
		gallery.DELETE("", s.galleryHandler.ResetGallery)
	}
}
