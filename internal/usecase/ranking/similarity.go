package ranking

import "math"

// SimilarityFloor is the lowest similarity the distance mapping returns.
const SimilarityFloor = 0.10

// Cosine returns the cosine similarity of a and b clamped to [0,1]. Vectors of different
// length or zero magnitude score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return clamp01(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// DistanceToSimilarity maps a cosine distance to a similarity with a piecewise-linear
// curve that keeps resolution among close matches:
//
//	[0, 0.5)   0.95 → 0.85
//	[0.5, 1.0) 0.85 → 0.65
//	[1.0, 1.5) 0.65 → 0.50
//	[1.5, ∞)   0.50 → 0.10 (reached at 2.0), then flat
func DistanceToSimilarity(d float64) float64 {
	if math.IsNaN(d) {
		return 0
	}
	d = math.Max(d, 0)

	var s float64
	switch {
	case d < 0.5:
		s = 0.95 - (d/0.5)*0.10
	case d < 1.0:
		s = 0.85 - ((d-0.5)/0.5)*0.20
	case d < 1.5:
		s = 0.65 - ((d-1.0)/0.5)*0.15
	default:
		s = math.Max(0.50-(d-1.5)*0.80, SimilarityFloor)
	}
	return clamp01(s)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
