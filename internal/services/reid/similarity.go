package reid

import (
	"gonum.org/v1/gonum/floats"
)

// L2Normalize returns v scaled to unit length as float64. A zero vector is
// returned unchanged.
func L2Normalize(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}

	norm := floats.Norm(out, 2)
	if norm == 0 {
		return out
	}
	floats.Scale(1/norm, out)
	return out
}

// CosineSimilarity of two L2-normalised vectors is their dot product.
// Vectors of different length score 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	return floats.Dot(a, b)
}
