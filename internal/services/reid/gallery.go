package reid

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"

	"reid-worker-go/internal/config"
	"reid-worker-go/internal/models"
)

var (
	ErrInvalidDropMethod = errors.New("invalid gallery drop method")
	ErrInvalidLimit      = errors.New("gallery limit must be at least 1")
)

// DropMethod selects which sample leaves an identity's gallery once it is full
type DropMethod string

const (
	DropRandom DropMethod = config.DropRandom
	DropOldest DropMethod = config.DropOldest
	DropNone   DropMethod = config.DropNone
)

// ParseDropMethod validates a configured drop method name
func ParseDropMethod(name string) (DropMethod, error) {
	switch m := DropMethod(name); m {
	case DropRandom, DropOldest, DropNone:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDropMethod, name)
	}
}

// Gallery stores reference embeddings per identity. Each identity keeps at
// most limit samples.
type Gallery struct {
	mu      sync.RWMutex
	entries map[int][][]float64
	limit   int
	drop    DropMethod
	rng     *rand.Rand
	added   int64
	dropped int64
}

// NewGallery creates an empty gallery
func NewGallery(limit int, drop DropMethod, rng *rand.Rand) (*Gallery, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	if _, err := ParseDropMethod(string(drop)); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	return &Gallery{
		entries: make(map[int][][]float64),
		limit:   limit,
		drop:    drop,
		rng:     rng,
	}, nil
}

// SetLimit changes the per-identity bound. Identities above the new bound are
// trimmed using the drop method (drop_none trims the newest samples).
func (g *Gallery) SetLimit(limit int, drop DropMethod) error {
	if limit < 1 {
		return ErrInvalidLimit
	}
	if _, err := ParseDropMethod(string(drop)); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.limit = limit
	g.drop = drop
	for id, samples := range g.entries {
		for len(samples) > g.limit {
			samples = g.evict(samples)
		}
		g.entries[id] = samples
	}
	return nil
}

// Add stores an embedding under id, evicting a sample if the identity is
// full. It reports whether the embedding was kept.
func (g *Gallery) Add(id int, embedding []float64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	samples := g.entries[id]
	if len(samples) >= g.limit {
		if g.drop == DropNone {
			g.dropped++
			return false
		}
		samples = g.evict(samples)
	}

	g.entries[id] = append(samples, embedding)
	g.added++
	return true
}

// evict removes one sample according to the drop method
func (g *Gallery) evict(samples [][]float64) [][]float64 {
	g.dropped++

	switch g.drop {
	case DropRandom:
		i := g.rng.IntN(len(samples))
		samples[i] = samples[len(samples)-1]
		return samples[:len(samples)-1]
	case DropOldest:
		return append(samples[:0], samples[1:]...)
	default:
		return samples[:len(samples)-1]
	}
}

// Query scores every identity by its best matching sample and returns them
// highest similarity first. Ties resolve to the lower id.
func (g *Gallery) Query(embedding []float64) []models.ReIDPrediction {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]models.ReIDPrediction, 0, len(g.entries))
	for id, samples := range g.entries {
		best := -2.0
		for _, s := range samples {
			if sim := CosineSimilarity(embedding, s); sim > best {
				best = sim
			}
		}
		out = append(out, models.ReIDPrediction{ID: id, Similarity: float32(best)})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Counts returns the number of samples held per identity
func (g *Gallery) Counts() map[int]int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make(map[int]int, len(g.entries))
	for id, samples := range g.entries {
		out[id] = len(samples)
	}
	return out
}

// Len is the number of identities in the gallery
func (g *Gallery) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.entries)
}

// Stats reports lifetime add and eviction totals
func (g *Gallery) Stats() (added, dropped int64) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.added, g.dropped
}

// Limit returns the per-identity bound and drop method
func (g *Gallery) Limit() (int, DropMethod) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.limit, g.drop
}

// Reset empties the gallery
func (g *Gallery) Reset() {
	g.mu.Lock()
	g.entries = make(map[int][][]float64)
	g.mu.Unlock()
}
