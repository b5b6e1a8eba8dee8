package tracking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reid-worker-go/internal/models"
)

func person(x, y int) models.Prediction {
	return models.Prediction{
		Box:        models.NewBox(x, y, x+40, y+100),
		Confidence: 0.9,
		Label:      "person",
	}
}

type recorder struct {
	enters []int
	exits  []int
}

func (r *recorder) options(minInertia, deregister int) Options {
	return Options{
		MinInertia:       minInertia,
		DeregisterFrames: deregister,
		MaxDistance:      50,
		OnEnter:          func(id int, _ models.TrackedObject) { r.enters = append(r.enters, id) },
		OnExit:           func(id int, _ models.TrackedObject) { r.exits = append(r.exits, id) },
	}
}

func TestMinInertiaDelaysEnter(t *testing.T) {
	rec := &recorder{}
	ct := NewCentroidTracker(rec.options(3, 5))

	assert.Empty(t, ct.Update([]models.Prediction{person(100, 100)}))
	assert.Empty(t, ct.Update([]models.Prediction{person(105, 100)}))
	assert.Empty(t, rec.enters)

	tracked := ct.Update([]models.Prediction{person(110, 100)})
	require.Len(t, tracked, 1)
	assert.Equal(t, 0, tracked[0].ID)
	assert.Equal(t, 110, tracked[0].Prediction.Box.StartX)
	assert.Equal(t, []int{0}, rec.enters)

	// entering happens once
	ct.Update([]models.Prediction{person(112, 100)})
	assert.Equal(t, []int{0}, rec.enters)
}

func TestDeregisterAfterMissedFrames(t *testing.T) {
	rec := &recorder{}
	ct := NewCentroidTracker(rec.options(1, 2))

	require.Len(t, ct.Update([]models.Prediction{person(0, 0)}), 1)

	// still reported with its last box while missing
	tracked := ct.Update(nil)
	require.Len(t, tracked, 1)
	assert.Equal(t, 0, tracked[0].ID)
	ct.Update(nil)
	assert.Empty(t, rec.exits)

	assert.Empty(t, ct.Update(nil))
	assert.Equal(t, []int{0}, rec.exits)
	assert.Zero(t, ct.Count())
}

func TestCandidatesExitSilently(t *testing.T) {
	rec := &recorder{}
	ct := NewCentroidTracker(rec.options(5, 0))

	ct.Update([]models.Prediction{person(0, 0)})
	ct.Update(nil)

	assert.Empty(t, rec.enters)
	assert.Empty(t, rec.exits)
}

func TestMaxDistanceSplitsIdentities(t *testing.T) {
	rec := &recorder{}
	ct := NewCentroidTracker(rec.options(1, 5))

	ct.Update([]models.Prediction{person(0, 0)})
	tracked := ct.Update([]models.Prediction{person(200, 0)})

	require.Len(t, tracked, 2)
	assert.Equal(t, 0, tracked[0].ID)
	assert.Equal(t, 1, tracked[1].ID)
	assert.Equal(t, []int{0, 1}, rec.enters)
}

func TestNearestAssignmentKeepsIDs(t *testing.T) {
	ct := NewCentroidTracker(Options{MinInertia: 1, DeregisterFrames: 5, MaxDistance: 50})

	ct.Update([]models.Prediction{person(0, 0), person(300, 0)})
	// same people, listed in reverse order and slightly moved
	tracked := ct.Update([]models.Prediction{person(310, 5), person(8, 2)})

	require.Len(t, tracked, 2)
	assert.Equal(t, 0, tracked[0].ID)
	assert.Equal(t, 8, tracked[0].Prediction.Box.StartX)
	assert.Equal(t, 1, tracked[1].ID)
	assert.Equal(t, 310, tracked[1].Prediction.Box.StartX)
}

func TestUpdateReturnsCopies(t *testing.T) {
	ct := NewCentroidTracker(Options{MinInertia: 1, DeregisterFrames: 5, MaxDistance: 50})

	tracked := ct.Update([]models.Prediction{person(0, 0)})
	tracked[0].Prediction.Label = "object 0"

	again := ct.Update(nil)
	require.Len(t, again, 1)
	assert.Equal(t, "person", again[0].Prediction.Label)
}

func TestIndependentTrackersHaveIndependentIDs(t *testing.T) {
	a := NewCentroidTracker(Options{MinInertia: 1})
	b := NewCentroidTracker(Options{MinInertia: 1})

	a.Update([]models.Prediction{person(0, 0), person(200, 0)})
	tracked := b.Update([]models.Prediction{person(0, 0)})

	require.Len(t, tracked, 1)
	assert.Equal(t, 0, tracked[0].ID)
}
