package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"reid-worker-go/internal/config"
	"reid-worker-go/internal/logging"
	"reid-worker-go/internal/models"
	"reid-worker-go/internal/pipeline"
	"reid-worker-go/internal/services/detection"
	"reid-worker-go/internal/services/fps"
	"reid-worker-go/internal/services/messaging"
	"reid-worker-go/internal/services/publisher"
	"reid-worker-go/internal/services/recorder"
	"reid-worker-go/internal/services/reid"
	"reid-worker-go/internal/services/render"
	"reid-worker-go/internal/services/tracking"
	"reid-worker-go/internal/services/videosource"
)

// ServiceContainer holds all services
type ServiceContainer struct {
	Config *config.Config
	RunID  string

	DetectionSvc *detection.Service
	ReIDSvc      *reid.Service
	Streamer     *publisher.Streamer
	Messaging    *messaging.Service
	Recorder     *recorder.Service
	EntryVideo   *videosource.FileVideoStream
	ExitVideo    *videosource.FileVideoStream
	Runner       *pipeline.Runner
}

// NewServiceContainer loads the models, opens both videos and wires the
// loop. Anything already created is released if a later step fails.
func NewServiceContainer(cfg *config.Config) (sc *ServiceContainer, err error) {
	sc = &ServiceContainer{Config: cfg, RunID: uuid.NewString()}
	defer func() {
		if err != nil {
			sc.Shutdown(context.Background())
			sc = nil
		}
	}()

	if err = sc.initReID(); err != nil {
		return sc, err
	}
	if err = sc.initDetection(); err != nil {
		return sc, err
	}

	sc.Streamer = publisher.NewStreamer(cfg.OutputQuality, logging.NewServiceLogger(cfg, "publisher"))

	var events models.EventPublisher
	if cfg.NatsEnabled {
		msgSvc, merr := messaging.NewService(cfg, sc.RunID, logging.NewServiceLogger(cfg, "messaging"))
		if merr != nil {
			log.Warn().Err(merr).Msg("NATS unavailable, identity events disabled")
		} else {
			sc.Messaging = msgSvc
			events = msgSvc
		}
	}

	var loopRecorder pipeline.Recorder
	if cfg.RecordEnabled {
		var chunks recorder.ChunkPublisher
		if sc.Messaging != nil {
			chunks = sc.Messaging
		}
		sc.Recorder = recorder.NewService(recorder.Options{
			Dir:           cfg.RecordDir,
			Codec:         cfg.RecordCodec,
			FPS:           cfg.RecordFPS,
			ChunkDuration: cfg.RecordChunkDuration,
			MaxChunks:     cfg.RecordMaxChunks,
			Subject:       cfg.RecordSubject,
		}, sc.RunID, chunks, logging.NewServiceLogger(cfg, "recorder"))
		loopRecorder = sc.Recorder
	}

	videoLogger := logging.NewServiceLogger(cfg, "video")
	sc.EntryVideo = videosource.NewFileVideoStream(cfg.EntryVideo, cfg.VideoQueueSize, cfg.VideoOpenRetry, logging.WithStream(videoLogger, "entry", 0))
	sc.ExitVideo = videosource.NewFileVideoStream(cfg.ExitVideo, cfg.VideoQueueSize, cfg.VideoOpenRetry, logging.WithStream(videoLogger, "exit", 1))
	if err = sc.EntryVideo.Start(); err != nil {
		return sc, fmt.Errorf("start entry video: %w", err)
	}
	if err = sc.ExitVideo.Start(); err != nil {
		return sc, fmt.Errorf("start exit video: %w", err)
	}

	annotator := render.NewAnnotator(render.DefaultOptions())
	stageLogger := logging.NewServiceLogger(cfg, "pipeline").With().Str("run_id", sc.RunID).Logger()

	newStage := func(name string, index int, role pipeline.Role) *pipeline.Stage {
		return pipeline.NewStage(pipeline.StageOptions{
			Name:       name,
			Index:      index,
			Role:       role,
			Confidence: float32(cfg.DetectionThreshold),
			Labels:     cfg.TrackLabels,
		}, pipeline.StageDeps{
			Detector:   sc.DetectionSvc,
			NewTracker: sc.trackerFactory(),
			ReID:       sc.ReIDSvc,
			Annotator:  annotator,
			Events:     events,
			Logger:     stageLogger,
		})
	}

	sc.Runner = pipeline.NewRunner(pipeline.RunnerConfig{
		Entry:      sc.EntryVideo,
		Exit:       sc.ExitVideo,
		EntryStage: newStage(publisher.EntryStream, 0, pipeline.RoleGallery),
		ExitStage:  newStage(publisher.ExitStream, 1, pipeline.RoleQuery),
		Sink:       sc.Streamer,
		Recorder:   loopRecorder,
		Annotator:  annotator,
		FPS:        fps.New(),
		ShowFPS:    cfg.ShowFPS,
		Logger:     stageLogger,
	})

	return sc, nil
}

func (sc *ServiceContainer) initReID() error {
	cfg := sc.Config
	logger := logging.NewServiceLogger(cfg, "reid")

	embedder, err := reid.NewDNNEmbedder(reid.EmbedderOptions{
		Model:   cfg.ReIDModel,
		Width:   cfg.ReIDInputWidth,
		Height:  cfg.ReIDInputHeight,
		Backend: cfg.DNNBackend,
		Target:  cfg.DNNTarget,
	})
	if err != nil {
		return fmt.Errorf("load re-identification model: %w", err)
	}

	gallery, err := reid.NewGallery(cfg.GalleryLimit, reid.DropMethod(cfg.GalleryDropMethod), nil)
	if err != nil {
		embedder.Close()
		return fmt.Errorf("create gallery: %w", err)
	}

	sc.ReIDSvc = reid.NewService(embedder, gallery, cfg.ReIDModelID, logger)
	if err := sc.ReIDSvc.SetPerIDGalleryLimit(cfg.GalleryLimit, cfg.GalleryDropMethod); err != nil {
		return err
	}

	logModel(logger, sc.ReIDSvc.Engine(), sc.ReIDSvc.Accelerator(), sc.ReIDSvc.ModelID(), nil)
	return nil
}

func (sc *ServiceContainer) initDetection() error {
	cfg := sc.Config
	logger := logging.NewServiceLogger(cfg, "detection")

	labels := detection.DefaultLabels()
	if cfg.DetectorLabelsFile != "" {
		loaded, err := detection.LoadLabels(cfg.DetectorLabelsFile)
		if err != nil {
			return err
		}
		labels = loaded
	}

	svc, err := detection.NewService(detection.Options{
		ModelID:   cfg.DetectorModelID,
		Model:     cfg.DetectorModel,
		Config:    cfg.DetectorConfig,
		Labels:    labels,
		InputSize: cfg.DetectorInputSize,
		Backend:   cfg.DNNBackend,
		Target:    cfg.DNNTarget,
	}, logger)
	if err != nil {
		return fmt.Errorf("load object detection model: %w", err)
	}
	sc.DetectionSvc = svc

	logModel(logger, svc.Engine(), svc.Accelerator(), svc.ModelID(), svc.Labels())
	return nil
}

func logModel(logger zerolog.Logger, engine, accelerator, modelID string, labels []string) {
	e := logger.Info().
		Str("engine", engine).
		Str("accelerator", accelerator).
		Str("model", modelID)
	if labels != nil {
		e = e.Int("labels", len(labels)).Strs("label_names", labels)
	}
	e.Msg("Model loaded")
}

// trackerFactory builds one independent centroid tracker per stage
func (sc *ServiceContainer) trackerFactory() pipeline.TrackerFactory {
	cfg := sc.Config
	return func(onEnter, onExit tracking.Callback) pipeline.Tracker {
		return tracking.NewCentroidTracker(tracking.Options{
			MinInertia:       cfg.TrackerMinInertia,
			DeregisterFrames: cfg.TrackerDeregisterFrames,
			MaxDistance:      cfg.TrackerMaxDistance,
			OnEnter:          onEnter,
			OnExit:           onExit,
		})
	}
}

// Shutdown releases what the runner does not own. The runner stops the
// videos and closes the streamer itself; both are idempotent.
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	var errs []error

	if sc.EntryVideo != nil {
		errs = append(errs, sc.EntryVideo.Stop())
	}
	if sc.ExitVideo != nil {
		errs = append(errs, sc.ExitVideo.Stop())
	}
	if sc.Streamer != nil {
		errs = append(errs, sc.Streamer.Close())
	}
	if sc.Recorder != nil {
		errs = append(errs, sc.Recorder.Close())
	}
	if sc.Messaging != nil {
		errs = append(errs, sc.Messaging.Shutdown(ctx))
	}
	if sc.DetectionSvc != nil {
		errs = append(errs, sc.DetectionSvc.Shutdown())
	}
	if sc.ReIDSvc != nil {
		errs = append(errs, sc.ReIDSvc.Close())
	}

	return errors.Join(errs...)
}
