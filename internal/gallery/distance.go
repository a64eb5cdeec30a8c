package gallery

import "math"

// EuclideanDistance computes the Euclidean distance between two embeddings.
// Vectors of different lengths are compared over the shorter prefix.
func EuclideanDistance(a, b Embedding) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var sum float64
	for i := 0; i < n; i++ {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

func euclidean(a Embedding, b []float32) float64 {
	return EuclideanDistance(a, Embedding(b))
}
