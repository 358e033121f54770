package database

import "math"

// CosineDistance returns 1 - cosine similarity of two template vectors, the
// measure the pgvector <=> operator uses. Vectors of different length or
// zero norm are at the maximum distance 2.
func CosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2
	}

	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 2
	}

	sim := math.Max(-1, math.Min(1, dot/(math.Sqrt(na)*math.Sqrt(nb))))
	return 1 - sim
}
