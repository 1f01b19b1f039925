// Package embeddings provides utilities for embedding vectors (L2 normalization, cosine similarity).
package embeddings

import (
	"math"
)

// NormalizeL2 scales vector to unit length in place. A zero vector is left unchanged.
// Stored and query embeddings are both normalized so that cosine distance in the store
// equals 1 - dot product.
func NormalizeL2(vector []float32) {
	var sumSquares float64

	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}

	if sumSquares == 0 {
		return
	}

	magnitude := math.Sqrt(sumSquares)

	for i := range vector {
		vector[i] = float32(float64(vector[i]) / magnitude)
	}
}

// Normalized returns a unit-length copy of vector, leaving the input untouched.
func Normalized(vector []float32) []float32 {
	out := make([]float32, len(vector))
	copy(out, vector)
	NormalizeL2(out)

	return out
}

// CosineSimilarity returns the cosine similarity of a and b. It returns 0 when the
// lengths differ or either vector is zero.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64

	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// ClampSimilarity converts a raw score (e.g. 1 - cosine distance, which can drift
// slightly outside the range through float error or halfvec rounding) into [0,1].
func ClampSimilarity(score float64) float64 {
	switch {
	case math.IsNaN(score), score < 0:
		return 0
	case score > 1:
		return 1
	default:
		return score
	}
}
