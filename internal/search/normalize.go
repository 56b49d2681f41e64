package search

// minMaxNormalize rescales scores to [0, 1] within a single result list.
// Each source produces scores on its own scale, so normalization happens
// per list before fusion.
//
// When the list holds fewer than two distinct values there is no spread to
// rescale against, so every entry maps to 1.0. A lone result is a full-
// confidence match within its source rather than an arbitrary midpoint.
func minMaxNormalize(scores []float64) []float64 {
	if len(scores) == 0 {
		return []float64{}
	}

	minScore, maxScore := scores[0], scores[0]
	for _, s := range scores[1:] {
		if s < minScore {
			minScore = s
		}
		if s > maxScore {
			maxScore = s
		}
	}

	normalized := make([]float64, len(scores))
	if maxScore == minScore {
		for i := range normalized {
			normalized[i] = 1.0
		}
		return normalized
	}

	spread := maxScore - minScore
	for i, s := range scores {
		normalized[i] = (s - minScore) / spread
	}
	return normalized
}
