package pipeline

import (
	"gocv.io/x/gocv"

	"reid-worker-go/internal/models"
	"reid-worker-go/internal/services/recorder"
	"reid-worker-go/internal/services/tracking"
	"reid-worker-go/internal/services/videosource"
)

// VideoSource yields frames in order. Read returns an owned Mat.
type VideoSource interface {
	Read() (gocv.Mat, error)
	Stop() error
}

type Detector interface {
	DetectObjects(frame gocv.Mat, confidence float32) (*models.DetectionResults, error)
}

type Tracker interface {
	Update(predictions []models.Prediction) []models.TrackedObject
	// Count is the number of people currently reported
	Count() int
}

// TrackerFactory builds a tracker bound to a stage's enter/exit handlers
type TrackerFactory func(onEnter, onExit tracking.Callback) Tracker

type ReIdentifier interface {
	AddToGallery(crop gocv.Mat, id int) error
	ReIDImage(crop gocv.Mat) (*models.ReIDResult, error)
}

type Annotator interface {
	Markup(img *gocv.Mat, predictions []models.Prediction)
	Text(img *gocv.Mat, lines ...string)
}

// Sink receives the composite frame and tells the loop when to stop
type Sink interface {
	SendData(frame gocv.Mat, text []string) error
	CheckExit() bool
	Close() error
}

// StreamPublisher is optionally implemented by a Sink that can also show
// each annotated stream on its own
type StreamPublisher interface {
	PublishStream(id string, frame gocv.Mat) error
}

// SinkReporter is optionally implemented by a Sink that keeps delivery stats
type SinkReporter interface {
	FramesSent() int64
	Text() []string
}

// Recorder optionally persists composite frames
type Recorder interface {
	WriteFrame(frame gocv.Mat) error
	Close() error
}

// RecorderReporter is optionally implemented by a Recorder
type RecorderReporter interface {
	Status() recorder.Status
}

// VideoReporter is optionally implemented by a VideoSource
type VideoReporter interface {
	Properties() videosource.Properties
}
