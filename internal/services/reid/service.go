package reid

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"reid-worker-go/internal/models"
)

// Service is the re-identifier: it embeds crops, stores them in the gallery
// under a tracking id and matches query crops against the gallery.
type Service struct {
	embedder Embedder
	gallery  *Gallery
	modelID  string
	logger   zerolog.Logger
}

func NewService(embedder Embedder, gallery *Gallery, modelID string, logger zerolog.Logger) *Service {
	return &Service{
		embedder: embedder,
		gallery:  gallery,
		modelID:  modelID,
		logger:   logger,
	}
}

// AddToGallery registers crop as a reference sample for id. Empty crops are
// skipped.
func (s *Service) AddToGallery(crop gocv.Mat, id int) error {
	feature, err := s.embedder.Embed(crop)
	if errors.Is(err, ErrEmptyCrop) {
		s.logger.Debug().Int("id", id).Msg("Skipping empty crop for gallery")
		return nil
	}
	if err != nil {
		return fmt.Errorf("gallery embedding for id %d: %w", id, err)
	}

	if !s.gallery.Add(id, L2Normalize(feature)) {
		s.logger.Debug().Int("id", id).Msg("Gallery full for id, sample rejected")
	}
	return nil
}

// ReIDImage ranks gallery identities against crop. An empty crop or an empty
// gallery gives a result without predictions.
func (s *Service) ReIDImage(crop gocv.Mat) (*models.ReIDResult, error) {
	start := time.Now()

	feature, err := s.embedder.Embed(crop)
	if errors.Is(err, ErrEmptyCrop) {
		return &models.ReIDResult{Duration: time.Since(start)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query embedding: %w", err)
	}

	return &models.ReIDResult{
		Predictions: s.gallery.Query(L2Normalize(feature)),
		Duration:    time.Since(start),
	}, nil
}

// SetPerIDGalleryLimit bounds the samples kept per identity
func (s *Service) SetPerIDGalleryLimit(count int, dropMethod string) error {
	method, err := ParseDropMethod(dropMethod)
	if err != nil {
		return err
	}
	return s.gallery.SetLimit(count, method)
}

func (s *Service) Gallery() *Gallery { return s.gallery }

func (s *Service) ModelID() string { return s.modelID }

// Engine and Accelerator describe the inference setup for startup logging
func (s *Service) Engine() string { return "DNN" }

func (s *Service) Accelerator() string {
	if d, ok := s.embedder.(*DNNEmbedder); ok {
		return d.Backend() + "/" + d.Target()
	}
	return "unknown"
}

func (s *Service) Close() error {
	if s.embedder == nil {
		return nil
	}
	return s.embedder.Close()
}
