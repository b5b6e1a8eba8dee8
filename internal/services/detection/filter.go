package detection

import "reid-worker-go/internal/models"

// FilterPredictionsByLabel keeps predictions whose label is in labels
func FilterPredictionsByLabel(predictions []models.Prediction, labels []string) []models.Prediction {
	keep := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		keep[l] = struct{}{}
	}

	out := make([]models.Prediction, 0, len(predictions))
	for _, p := range predictions {
		if _, ok := keep[p.Label]; ok {
			out = append(out, p)
		}
	}
	return out
}

// FilterPredictionsByConfidence keeps predictions at or above threshold
func FilterPredictionsByConfidence(predictions []models.Prediction, threshold float32) []models.Prediction {
	out := make([]models.Prediction, 0, len(predictions))
	for _, p := range predictions {
		if p.Confidence >= threshold {
			out = append(out, p)
		}
	}
	return out
}
