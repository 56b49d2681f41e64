package embed

import "math"

// vectorMagnitude returns the Euclidean length of a vector.
func vectorMagnitude(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// cosineSimilarity returns the cosine of the angle between two vectors,
// or 0 for mismatched dimensions or zero vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	magA, magB := vectorMagnitude(a), vectorMagnitude(b)
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (magA * magB)
}
