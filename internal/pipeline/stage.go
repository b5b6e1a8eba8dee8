package pipeline

import (
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"reid-worker-go/internal/helpers"
	"reid-worker-go/internal/models"
	"reid-worker-go/internal/services/detection"
)

// Role decides what a stage does with the people it tracks
type Role int

const (
	// RoleGallery adds every tracked person to the gallery under its track id
	RoleGallery Role = iota
	// RoleQuery re-identifies every tracked person against the gallery
	RoleQuery
)

func (r Role) String() string {
	switch r {
	case RoleGallery:
		return "gallery"
	case RoleQuery:
		return "query"
	}
	return fmt.Sprintf("role(%d)", int(r))
}

const unknownLabel = "object unknown"

type StageOptions struct {
	Name       string
	Index      int
	Role       Role
	Confidence float32
	Labels     []string
}

type StageDeps struct {
	Detector   Detector
	NewTracker TrackerFactory
	ReID       ReIdentifier
	Annotator  Annotator
	Events     models.EventPublisher
	Logger     zerolog.Logger
}

// StageStats are running totals for one stream
type StageStats struct {
	Frames       int64 `json:"frames"`
	Detections   int64 `json:"detections"`
	Tracked      int64 `json:"tracked"`
	Active       int   `json:"active"`
	Entered      int64 `json:"entered"`
	Exited       int64 `json:"exited"`
	GalleryAdds  int64 `json:"gallery_adds,omitempty"`
	Reidentified int64 `json:"reidentified,omitempty"`
	Unknown      int64 `json:"unknown,omitempty"`
}

// Stage runs detect, filter, track, crop and gallery work for one stream
type Stage struct {
	opts      StageOptions
	detector  Detector
	tracker   Tracker
	reid      ReIdentifier
	annotator Annotator
	events    models.EventPublisher
	logger    zerolog.Logger

	frames       atomic.Int64
	detections   atomic.Int64
	tracked      atomic.Int64
	entered      atomic.Int64
	exited       atomic.Int64
	galleryAdds  atomic.Int64
	reidentified atomic.Int64
	unknown      atomic.Int64
}

func NewStage(opts StageOptions, deps StageDeps) *Stage {
	if len(opts.Labels) == 0 {
		opts.Labels = []string{"person"}
	}
	s := &Stage{
		opts:      opts,
		detector:  deps.Detector,
		reid:      deps.ReID,
		annotator: deps.Annotator,
		events:    deps.Events,
		logger:    deps.Logger.With().Str("stream", opts.Name).Int("stream_index", opts.Index).Str("role", opts.Role.String()).Logger(),
	}
	s.tracker = deps.NewTracker(s.onEnter, s.onExit)
	return s
}

func (s *Stage) Name() string { return s.opts.Name }

// Process annotates frame in place and returns the relabelled predictions
func (s *Stage) Process(frame *gocv.Mat) ([]models.Prediction, error) {
	s.frames.Add(1)

	results, err := s.detector.DetectObjects(*frame, s.opts.Confidence)
	if err != nil {
		return nil, fmt.Errorf("%s: detect objects: %w", s.opts.Name, err)
	}
	var found []models.Prediction
	if results != nil {
		found = results.Predictions
	}
	s.detections.Add(int64(len(found)))

	people := detection.FilterPredictionsByLabel(found, s.opts.Labels)
	tracked := s.tracker.Update(people)
	s.tracked.Add(int64(len(tracked)))

	predictions := make([]models.Prediction, 0, len(tracked))
	for _, obj := range tracked {
		pred, err := s.identify(*frame, obj)
		if err != nil {
			return nil, err
		}
		predictions = append(predictions, pred)
	}

	s.annotator.Markup(frame, predictions)
	return predictions, nil
}

func (s *Stage) identify(frame gocv.Mat, obj models.TrackedObject) (models.Prediction, error) {
	crop := helpers.CropBox(frame, obj.Prediction.Box)
	defer crop.Close()

	pred := obj.Prediction

	switch s.opts.Role {
	case RoleGallery:
		if err := s.reid.AddToGallery(crop, obj.ID); err != nil {
			return pred, fmt.Errorf("%s: add object %d to gallery: %w", s.opts.Name, obj.ID, err)
		}
		s.galleryAdds.Add(1)
		pred.Label = fmt.Sprintf("object %d", obj.ID)
		pred.Index = obj.ID

	case RoleQuery:
		result, err := s.reid.ReIDImage(crop)
		if err != nil {
			return pred, fmt.Errorf("%s: re-identify object %d: %w", s.opts.Name, obj.ID, err)
		}

		best, ok := result.Best()
		if !ok {
			s.unknown.Add(1)
			s.logger.Debug().Int("track_id", obj.ID).Msg("No gallery match")
			pred.Label = unknownLabel
			pred.Index = -1
			break
		}

		s.reidentified.Add(1)
		s.logger.Info().
			Int("track_id", obj.ID).
			Int("gallery_id", best.ID).
			Float32("similarity", best.Similarity).
			Msgf("RE IDENTIFIED %s %d -> %d", obj.Prediction.Label, obj.ID, best.ID)

		pred.Label = fmt.Sprintf("object %d", best.ID)
		pred.Index = best.ID

		event := models.NewIdentityEvent(models.IdentityEventReID, s.opts.Name, s.opts.Index, obj)
		galleryID, similarity := best.ID, best.Similarity
		event.GalleryID = &galleryID
		event.Similarity = &similarity
		s.publish(event)
	}

	return pred, nil
}

func (s *Stage) onEnter(id int, obj models.TrackedObject) {
	s.entered.Add(1)
	s.logger.Info().Int("track_id", id).Msgf("Frame%d %d: %s enters", s.opts.Index, id, obj.Prediction.Label)
	s.publish(models.NewIdentityEvent(models.IdentityEventEnter, s.opts.Name, s.opts.Index, obj))
}

func (s *Stage) onExit(id int, obj models.TrackedObject) {
	s.exited.Add(1)
	s.logger.Info().Int("track_id", id).Msgf("Frame%d %s exits", s.opts.Index, obj.Prediction.Label)
	s.publish(models.NewIdentityEvent(models.IdentityEventExit, s.opts.Name, s.opts.Index, obj))
}

func (s *Stage) publish(event models.IdentityEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishEvent(event); err != nil {
		s.logger.Warn().Err(err).Str("type", string(event.Type)).Msg("Failed to publish identity event")
	}
}

func (s *Stage) Stats() StageStats {
	return StageStats{
		Frames:       s.frames.Load(),
		Detections:   s.detections.Load(),
		Tracked:      s.tracked.Load(),
		Active:       s.tracker.Count(),
		Entered:      s.entered.Load(),
		Exited:       s.exited.Load(),
		GalleryAdds:  s.galleryAdds.Load(),
		Reidentified: s.reidentified.Load(),
		Unknown:      s.unknown.Load(),
	}
}
