package reid

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unit(v ...float32) []float64 { return L2Normalize(v) }

func TestParseDropMethod(t *testing.T) {
	for _, name := range []string{"drop_random", "drop_oldest", "drop_none"} {
		m, err := ParseDropMethod(name)
		require.NoError(t, err)
		assert.Equal(t, DropMethod(name), m)
	}

	_, err := ParseDropMethod("drop_everything")
	assert.ErrorIs(t, err, ErrInvalidDropMethod)
}

func TestGalleryQueryOrdersBySimilarity(t *testing.T) {
	g, err := NewGallery(10, DropRandom, nil)
	require.NoError(t, err)

	g.Add(1, unit(1, 0, 0))
	g.Add(2, unit(0, 1, 0))
	g.Add(2, unit(0.9, 0.1, 0))
	g.Add(3, unit(0, 0, 1))

	preds := g.Query(unit(1, 0.05, 0))
	require.Len(t, preds, 3)
	assert.Equal(t, 1, preds[0].ID)
	assert.Equal(t, 2, preds[1].ID)
	assert.Equal(t, 3, preds[2].ID)
	assert.Greater(t, preds[0].Similarity, preds[1].Similarity)
}

func TestGalleryEmptyQuery(t *testing.T) {
	g, err := NewGallery(10, DropRandom, nil)
	require.NoError(t, err)
	assert.Empty(t, g.Query(unit(1, 0)))
}

func TestGalleryDropRandomKeepsLimit(t *testing.T) {
	g, err := NewGallery(3, DropRandom, rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		assert.True(t, g.Add(7, unit(float32(i+1), 1)))
	}

	assert.Equal(t, map[int]int{7: 3}, g.Counts())
	added, dropped := g.Stats()
	assert.EqualValues(t, 10, added)
	assert.EqualValues(t, 7, dropped)
}

func TestGalleryDropOldest(t *testing.T) {
	g, err := NewGallery(2, DropOldest, nil)
	require.NoError(t, err)

	g.Add(1, unit(1, 0))
	g.Add(1, unit(0, 1))
	g.Add(1, unit(-1, 0))

	// the (1,0) sample is gone so an exact query no longer scores 1
	preds := g.Query(unit(1, 0))
	require.Len(t, preds, 1)
	assert.InDelta(t, 0.0, preds[0].Similarity, 1e-6)
}

func TestGalleryDropNoneRejects(t *testing.T) {
	g, err := NewGallery(1, DropNone, nil)
	require.NoError(t, err)

	assert.True(t, g.Add(1, unit(1, 0)))
	assert.False(t, g.Add(1, unit(0, 1)))
	assert.Equal(t, 1, g.Counts()[1])
}

func TestGallerySetLimitTrims(t *testing.T) {
	g, err := NewGallery(5, DropOldest, nil)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		g.Add(4, unit(1, float32(i)))
	}

	require.NoError(t, g.SetLimit(2, DropRandom))
	assert.Equal(t, 2, g.Counts()[4])

	limit, method := g.Limit()
	assert.Equal(t, 2, limit)
	assert.Equal(t, DropRandom, method)

	assert.ErrorIs(t, g.SetLimit(0, DropRandom), ErrInvalidLimit)
}

func TestSimilarityHelpers(t *testing.T) {
	a := unit(3, 4)
	assert.InDelta(t, 0.6, a[0], 1e-9)
	assert.InDelta(t, 1.0, CosineSimilarity(a, a), 1e-9)
	assert.Zero(t, CosineSimilarity(a, unit(1, 2, 3)))
	assert.Equal(t, []float64{0, 0}, L2Normalize([]float32{0, 0}))
}
