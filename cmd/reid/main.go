package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"reid-worker-go/internal/api"
	"reid-worker-go/internal/config"
	"reid-worker-go/internal/logging"
	"reid-worker-go/internal/services"
	"reid-worker-go/internal/services/videosource"
)

func main() {
	logging.Setup("info")

	// Load configuration
	cfg := config.Load()

	var extra []io.Writer
	if cfg.LogdyEnabled {
		w, url, err := logging.StartLogdy(cfg)
		if err != nil {
			log.Warn().Err(err).Msg("Logdy UI unavailable")
		} else {
			extra = append(extra, w)
			log.Info().Str("url", url).Msg("Teeing logs to Logdy")
		}
	}
	logging.Setup(cfg.LogLevel, extra...)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("worker_id", cfg.WorkerID).
		Str("version", cfg.Version).
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Str("entry_video", cfg.EntryVideo).
		Str("exit_video", cfg.ExitVideo).
		Msg("Starting re-identification worker")

	container, err := services.NewServiceContainer(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise services")
	}

	server := api.NewServer(cfg, api.Deps{
		Pipeline: container.Runner,
		Streams:  container.Streamer,
		Gallery:  container.ReIDSvc,
	})
	go func() {
		if err := server.Start(); err != nil {
			log.Error().Err(err).Msg("API server stopped with error")
		}
	}()

	var grpcHealth *api.HealthServer
	if cfg.GRPCHealthPort > 0 {
		grpcHealth = api.NewHealthServer(cfg.GRPCHealthPort)
		lis, err := grpcHealth.Listen()
		if err != nil {
			log.Warn().Err(err).Msg("gRPC health service disabled")
			grpcHealth = nil
		} else {
			go func() {
				if err := grpcHealth.Serve(lis); err != nil {
					log.Error().Err(err).Msg("gRPC health service stopped with error")
				}
			}()
		}
	}

	// SIGINT and SIGTERM stop the loop like a viewer exit
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if grpcHealth != nil {
		grpcHealth.SetServing(true)
	}
	runErr := container.Runner.Run(ctx)
	if grpcHealth != nil {
		grpcHealth.SetServing(false)
	}

	switch {
	case runErr == nil:
	case errors.Is(runErr, videosource.ErrEndOfStream):
		log.Info().Msg("Video ended")
		runErr = nil
	default:
		log.Error().Err(runErr).Msg("Re-identification loop failed")
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if grpcHealth != nil {
		grpcHealth.Stop()
	}
	if err := container.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Service shutdown reported errors")
	} else {
		log.Info().Msg("Shutdown complete")
	}

	if runErr != nil {
		os.Exit(1)
	}
}
