package models

import (
	"time"

	"github.com/google/uuid"
)

// ExampleKind identifies where a training example came from.
type ExampleKind string

const (
	// ExampleKindSeed marks examples inserted by the bootstrap loader.
	ExampleKindSeed ExampleKind = "seed"
	// ExampleKindUserQuery marks examples written back after a high-confidence answer.
	ExampleKindUserQuery ExampleKind = "user_query"
)

// IsValid reports whether k is one of the known kinds.
func (k ExampleKind) IsValid() bool {
	return k == ExampleKindSeed || k == ExampleKindUserQuery
}

// TrainingExample is a stored (question, SQL, explanation) triple. Examples are
// append-only: they are never updated or deleted once stored.
type TrainingExample struct {
	ID          uuid.UUID   `json:"id"`
	Question    string      `json:"question"`
	SQL         string      `json:"sql"`
	Explanation string      `json:"explanation"`
	Kind        ExampleKind `json:"kind"`
	CreatedAt   time.Time   `json:"created_at"`
}

// SimilarityMatch is a training example ranked against a question.
// Similarity is cosine similarity in [0,1] (1 - cosine distance).
type SimilarityMatch struct {
	Question    string  `json:"question"`
	SQL         string  `json:"sql"`
	Explanation string  `json:"explanation"`
	Similarity  float64 `json:"similarity"`
}
