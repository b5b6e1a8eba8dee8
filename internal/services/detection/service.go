package detection

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"reid-worker-go/internal/models"
)

var (
	ErrModelNotLoaded = errors.New("detection model not loaded")
	ErrBadOutput      = errors.New("unexpected detector output shape")
)

// ssdRowSize is the width of one SSD detection row:
// [batch, class, confidence, left, top, right, bottom]
const ssdRowSize = 7

// Options configures the DNN detector
type Options struct {
	ModelID   string
	Model     string
	Config    string
	Labels    []string
	InputSize int
	Backend   string
	Target    string
}

// Service is an SSD object detector on OpenCV DNN. The network is shared by
// both video streams, calls are serialised.
type Service struct {
	mu     sync.Mutex
	net    gocv.Net
	opts   Options
	logger zerolog.Logger
}

// NewService loads the network described by opts
func NewService(opts Options, logger zerolog.Logger) (*Service, error) {
	logger.Info().Str("model", opts.Model).Str("config", opts.Config).Msg("Loading object detection model")

	net := gocv.ReadNet(opts.Model, opts.Config)
	if net.Empty() {
		net.Close()
		return nil, fmt.Errorf("%w: %s", ErrModelNotLoaded, opts.Model)
	}

	if len(opts.Labels) == 0 {
		opts.Labels = DefaultLabels()
	}
	if opts.InputSize <= 0 {
		opts.InputSize = 300
	}

	if opts.Backend == "" {
		opts.Backend = "default"
	}
	if opts.Target == "" {
		opts.Target = "cpu"
	}
	net.SetPreferableBackend(gocv.ParseNetBackend(opts.Backend))
	net.SetPreferableTarget(gocv.ParseNetTarget(opts.Target))

	return &Service{
		net:    net,
		opts:   opts,
		logger: logger,
	}, nil
}

// DetectObjects runs the network on frame and returns predictions with
// confidence >= threshold, boxes in frame pixels
func (s *Service) DetectObjects(frame gocv.Mat, confidence float32) (*models.DetectionResults, error) {
	if frame.Empty() {
		return nil, fmt.Errorf("detect: empty frame")
	}

	start := time.Now()
	size := image.Pt(s.opts.InputSize, s.opts.InputSize)

	s.mu.Lock()
	blob := gocv.BlobFromImage(frame, 1.0, size, gocv.NewScalar(0, 0, 0, 0), true, false)
	s.net.SetInput(blob, "")
	out := s.net.Forward("")
	blob.Close()
	s.mu.Unlock()
	defer out.Close()

	raw, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}

	preds, err := ParseSSDOutput(raw, s.opts.Labels, frame.Cols(), frame.Rows())
	if err != nil {
		return nil, err
	}

	return &models.DetectionResults{
		Predictions: FilterPredictionsByConfidence(preds, confidence),
		Duration:    time.Since(start),
		ImageWidth:  frame.Cols(),
		ImageHeight: frame.Rows(),
	}, nil
}

// ParseSSDOutput decodes the flattened [1,1,N,7] SSD tensor. Coordinates are
// normalised and get scaled to width x height. Rows are kept regardless of
// score.
func ParseSSDOutput(raw []float32, labels []string, width, height int) ([]models.Prediction, error) {
	if len(raw)%ssdRowSize != 0 {
		return nil, fmt.Errorf("%w: %d values", ErrBadOutput, len(raw))
	}

	var preds []models.Prediction
	for i := 0; i+ssdRowSize <= len(raw); i += ssdRowSize {
		score := raw[i+2]
		class := int(raw[i+1])
		label := "???"
		if class >= 0 && class < len(labels) {
			label = labels[class]
		}

		preds = append(preds, models.Prediction{
			Box: models.NewBox(
				int(raw[i+3]*float32(width)),
				int(raw[i+4]*float32(height)),
				int(raw[i+5]*float32(width)),
				int(raw[i+6]*float32(height)),
			),
			Confidence: score,
			Label:      label,
			Index:      class,
		})
	}
	return preds, nil
}

func (s *Service) ModelID() string  { return s.opts.ModelID }
func (s *Service) Labels() []string { return s.opts.Labels }
func (s *Service) Engine() string   { return "DNN" }

// Accelerator names the DNN backend and target in use
func (s *Service) Accelerator() string {
	return fmt.Sprintf("%s/%s", s.opts.Backend, s.opts.Target)
}

func (s *Service) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info().Msg("Releasing object detection model")
	return s.net.Close()
}
