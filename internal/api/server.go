package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"reid-worker-go/internal/api/handlers"
	"reid-worker-go/internal/config"
	"reid-worker-go/internal/services/publisher"
)

// Pipeline is what the API reads from the running loop
type Pipeline interface {
	handlers.RunState
	handlers.StatsProvider
}

type Deps struct {
	Pipeline Pipeline
	Streams  handlers.StreamSource
	Gallery  handlers.GalleryStore
}

type Server struct {
	config *config.Config
	router *gin.Engine
	server *http.Server

	healthHandler  *handlers.HealthHandler
	systemHandler  *handlers.SystemHandler
	streamHandler  *handlers.StreamHandler
	galleryHandler *handlers.GalleryHandler
}

func NewServer(cfg *config.Config, deps Deps) *Server {
	if cfg.Environment == "development" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		config:         cfg,
		router:         gin.New(),
		healthHandler:  handlers.NewHealthHandler(cfg.WorkerID, cfg.Version, deps.Pipeline),
		systemHandler:  handlers.NewSystemHandler(cfg.WorkerID, deps.Pipeline),
		streamHandler:  handlers.NewStreamHandler(deps.Streams, publisher.CompositeStream, publisher.EntryStream, publisher.ExitStream),
		galleryHandler: handlers.NewGalleryHandler(deps.Gallery),
	}

	s.setupMiddleware()
	s.setupRoutes()
	s.setupSwagger()

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: s.router,
	}
	return s
}

// Start serves HTTP until Shutdown is called
func (s *Server) Start() error {
	log.Info().Int("port", s.config.Port).Msg("Starting re-identification worker API")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("Stopping re-identification worker API")
	return s.server.Shutdown(ctx)
}

// Handler exposes the router for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}
