package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gocv.io/x/gocv"

	"reid-worker-go/internal/models"
)

func blank() gocv.Mat {
	return gocv.NewMatWithSize(200, 200, gocv.MatTypeCV8UC3)
}

func TestMarkupDrawsBoxes(t *testing.T) {
	img := blank()
	defer img.Close()
	img.SetTo(gocv.NewScalar(0, 0, 0, 0))

	a := NewAnnotator(Options{Font: DefaultFont(), LineThickness: 1})
	a.Markup(&img, []models.Prediction{{Box: models.NewBox(50, 60, 150, 180), Index: 0}})

	// left edge of the box is painted in BGR order
	px := img.GetVecbAt(120, 50)
	clr := ColorFor(0)
	assert.Equal(t, []uint8{clr.B, clr.G, clr.R}, px[:3])

	// inside stays untouched
	assert.Equal(t, []uint8{0, 0, 0}, img.GetVecbAt(120, 100)[:3])
}

func TestMarkupEmptyFrame(t *testing.T) {
	img := gocv.NewMat()
	defer img.Close()

	assert.NotPanics(t, func() {
		NewAnnotator(DefaultOptions()).Markup(&img, []models.Prediction{{Box: models.NewBox(0, 0, 10, 10)}})
	})
}

func TestLabelText(t *testing.T) {
	p := models.Prediction{Label: "object 3", Confidence: 0.876}

	tests := []struct {
		name string
		opts Options
		want string
	}{
		{"label", Options{ShowLabels: true}, "object 3"},
		{"both", Options{ShowLabels: true, ShowConfidences: true}, "object 3 0.88"},
		{"confidence", Options{ShowConfidences: true}, "0.88"},
		{"none", Options{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewAnnotator(tt.opts).labelText(p))
		})
	}
}

func TestColorFor(t *testing.T) {
	assert.Equal(t, Gray, ColorFor(-1))
	assert.Equal(t, ColorFor(1), ColorFor(1+len(labelColors)))
}

func TestTextOverlay(t *testing.T) {
	img := blank()
	defer img.Close()
	img.SetTo(gocv.NewScalar(255, 255, 255, 0))

	NewAnnotator(DefaultOptions()).Text(&img, "FPS 12.5")

	// backing box is black in the corner
	assert.Equal(t, []uint8{0, 0, 0}, img.GetVecbAt(1, 1)[:3])
	assert.Equal(t, []uint8{255, 255, 255}, img.GetVecbAt(199, 199)[:3])
}
