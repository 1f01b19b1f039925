package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/flowbit/nlsql/internal/models"
)

// ErrDimensionMismatch is returned when an embedding does not match the column dimensions.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// TrainingExamplesRepository stores training examples and their question embeddings in
// PostgreSQL using a pgvector halfvec column.
type TrainingExamplesRepository struct {
	db         *pgxpool.Pool
	dimensions int
}

// NewTrainingExamplesRepository creates a repository for embeddings of the given dimensions.
func NewTrainingExamplesRepository(db *pgxpool.Pool, dimensions int) *TrainingExamplesRepository {
	return &TrainingExamplesRepository{db: db, dimensions: dimensions}
}

// EnsureSchema creates the training_examples table if it does not exist. The vector
// extension must already be installed.
func (r *TrainingExamplesRepository) EnsureSchema(ctx context.Context) error {
	// seq gives a total insertion order used to break exact distance ties.
	_, err := r.db.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS training_examples (
			seq         BIGSERIAL PRIMARY KEY,
			id          UUID NOT NULL UNIQUE,
			question    TEXT NOT NULL,
			sql         TEXT NOT NULL,
			explanation TEXT NOT NULL DEFAULT '',
			kind        TEXT NOT NULL,
			embedding   halfvec(%d) NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL
		)`, r.dimensions))
	if err != nil {
		return fmt.Errorf("create training_examples table: %w", err)
	}

	return nil
}

// Add inserts example with its embedding. Halfvec stores 2 bytes per dimension;
// pgvector-go converts float32 to float16 when encoding.
func (r *TrainingExamplesRepository) Add(ctx context.Context, example models.TrainingExample, embedding []float32) error {
	if len(embedding) != r.dimensions {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(embedding), r.dimensions)
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO training_examples (id, question, sql, explanation, kind, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		example.ID, example.Question, example.SQL, example.Explanation, string(example.Kind),
		pgvector.NewHalfVector(embedding), example.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert training example: %w", err)
	}

	return nil
}

// Nearest returns the k examples closest to embedding by cosine distance (<=>), with
// similarity = 1 - distance. Exact ties are ordered by insertion (seq).
func (r *TrainingExamplesRepository) Nearest(
	ctx context.Context, embedding []float32, k int,
) ([]models.SimilarityMatch, error) {
	if k <= 0 {
		return []models.SimilarityMatch{}, nil
	}

	if len(embedding) != r.dimensions {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(embedding), r.dimensions)
	}

	rows, err := r.db.Query(ctx, `
		SELECT question, sql, explanation, (1 - (embedding <=> $1)) AS similarity
		FROM training_examples
		ORDER BY embedding <=> $1, seq
		LIMIT $2`,
		pgvector.NewHalfVector(embedding), k,
	)
	if err != nil {
		return nil, fmt.Errorf("nearest training examples: %w", err)
	}
	defer rows.Close()

	matches := make([]models.SimilarityMatch, 0, k)

	for rows.Next() {
		var m models.SimilarityMatch
		if err := rows.Scan(&m.Question, &m.SQL, &m.Explanation, &m.Similarity); err != nil {
			return nil, fmt.Errorf("scan training example: %w", err)
		}

		matches = append(matches, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating training examples: %w", err)
	}

	return matches, nil
}

// Count returns the number of stored examples.
func (r *TrainingExamplesRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM training_examples`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count training examples: %w", err)
	}

	return n, nil
}
