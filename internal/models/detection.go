package models

import (
	"fmt"
	"image"
	"math"
	"time"
)

// Box is a pixel bounding box, end coordinates are exclusive
type Box struct {
	StartX int `json:"start_x"`
	StartY int `json:"start_y"`
	EndX   int `json:"end_x"`
	EndY   int `json:"end_y"`
}

// NewBox builds a box from corner coordinates
func NewBox(startX, startY, endX, endY int) Box {
	return Box{StartX: startX, StartY: startY, EndX: endX, EndY: endY}
}

func (b Box) Width() int  { return b.EndX - b.StartX }
func (b Box) Height() int { return b.EndY - b.StartY }

// Area is zero for degenerate boxes
func (b Box) Area() int {
	if b.Width() <= 0 || b.Height() <= 0 {
		return 0
	}
	return b.Width() * b.Height()
}

// Center returns the centroid of the box in float pixels
func (b Box) Center() (float64, float64) {
	return float64(b.StartX+b.EndX) / 2, float64(b.StartY+b.EndY) / 2
}

// Rect converts the box to an image.Rectangle
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.StartX, b.StartY, b.EndX, b.EndY)
}

// DistanceTo is the euclidean distance between two box centroids
func (b Box) DistanceTo(other Box) float64 {
	ax, ay := b.Center()
	bx, by := other.Center()
	return math.Hypot(ax-bx, ay-by)
}

func (b Box) String() string {
	return fmt.Sprintf("(%d, %d), (%d, %d)", b.StartX, b.StartY, b.EndX, b.EndY)
}

// Prediction is a single labelled detection
type Prediction struct {
	Box        Box     `json:"box"`
	Confidence float32 `json:"confidence"`
	Label      string  `json:"label"`
	Index      int     `json:"index"`
}

func (p Prediction) String() string {
	return fmt.Sprintf("label: %s, confidence: %.2f, box: %s", p.Label, p.Confidence, p.Box)
}

// DetectionResults is what the detector returns for a frame
type DetectionResults struct {
	Predictions []Prediction  `json:"predictions"`
	Duration    time.Duration `json:"duration"`
	ImageWidth  int           `json:"image_width"`
	ImageHeight int           `json:"image_height"`
}

// TrackedObject is a prediction held by a tracker under a stable id
type TrackedObject struct {
	ID         int        `json:"id"`
	Prediction Prediction `json:"prediction"`
}

func (t TrackedObject) String() string {
	return fmt.Sprintf("TrackedObject(id=%d, %s)", t.ID, t.Prediction)
}

// ReIDPrediction is one gallery identity scored against a query crop
type ReIDPrediction struct {
	ID         int     `json:"id"`
	Similarity float32 `json:"similarity"`
}

// ReIDResult holds gallery identities ordered best match first
type ReIDResult struct {
	Predictions []ReIDPrediction `json:"predictions"`
	Duration    time.Duration    `json:"duration"`
}

// Best returns the top match; false when the gallery had nothing to offer
func (r *ReIDResult) Best() (ReIDPrediction, bool) {
	if r == nil || len(r.Predictions) == 0 {
		return ReIDPrediction{}, false
	}
	return r.Predictions[0], true
}
