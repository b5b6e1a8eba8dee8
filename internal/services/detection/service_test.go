package detection

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reid-worker-go/internal/models"
)

func TestParseSSDOutput(t *testing.T) {
	raw := []float32{
		0, 1, 0.9, 0.1, 0.2, 0.3, 0.8, // person
		0, 3, 0.7, 0.5, 0.5, 0.6, 0.6, // car
		0, 1, 0.3, 0.0, 0.0, 0.1, 0.1, // low confidence person
		0, 500, 0.8, 0.0, 0.0, 0.5, 0.5, // unknown class
	}

	all, err := ParseSSDOutput(raw, DefaultLabels(), 640, 480)
	require.NoError(t, err)
	require.Len(t, all, 4)

	preds := FilterPredictionsByConfidence(all, 0.5)
	require.Len(t, preds, 3)

	assert.Equal(t, "person", preds[0].Label)
	assert.Equal(t, models.NewBox(64, 96, 192, 384), preds[0].Box)
	assert.InDelta(t, 0.9, preds[0].Confidence, 1e-6)
	assert.Equal(t, "car", preds[1].Label)
	assert.Equal(t, "???", preds[2].Label)

	_, err = ParseSSDOutput(raw[:5], DefaultLabels(), 640, 480)
	assert.ErrorIs(t, err, ErrBadOutput)
}

func TestFilterPredictions(t *testing.T) {
	preds := []models.Prediction{
		{Label: "person", Confidence: 0.9},
		{Label: "car", Confidence: 0.8},
		{Label: "person", Confidence: 0.4},
	}

	people := FilterPredictionsByLabel(preds, []string{"person"})
	assert.Len(t, people, 2)

	confident := FilterPredictionsByConfidence(people, 0.5)
	require.Len(t, confident, 1)
	assert.InDelta(t, 0.9, confident[0].Confidence, 1e-6)

	assert.Empty(t, FilterPredictionsByLabel(preds, nil))
}

func TestLabels(t *testing.T) {
	labels := DefaultLabels()
	assert.Equal(t, "person", labels[1])
	assert.Equal(t, "toothbrush", labels[len(labels)-1])

	path := filepath.Join(t.TempDir(), "labels.txt")
	require.NoError(t, os.WriteFile(path, []byte("background\nperson\n\ncar\n"), 0o644))

	loaded, err := LoadLabels(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"background", "person", "???", "car"}, loaded)

	_, err = LoadLabels(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}
