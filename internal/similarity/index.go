// Package similarity implements the knowledge store of past question/SQL pairs and
// nearest-neighbour lookup over their question embeddings.
package similarity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/flowbit/nlsql/internal/models"
	"github.com/flowbit/nlsql/internal/observability"
	"github.com/flowbit/nlsql/pkg/cache"
	"github.com/flowbit/nlsql/pkg/embeddings"
)

const questionEmbeddingCacheName = "question_embedding"

// ErrEmptyQuestion is returned when Insert or QueryNearest receives a blank question.
var ErrEmptyQuestion = errors.New("similarity: question is empty")

// Store persists training examples with their embeddings and answers nearest-neighbour queries.
// Nearest returns at most k matches ordered by similarity descending; ties are broken by
// insertion order, earlier first. An empty store yields an empty slice.
type Store interface {
	Add(ctx context.Context, example models.TrainingExample, embedding []float32) error
	Nearest(ctx context.Context, embedding []float32, k int) ([]models.SimilarityMatch, error)
	Count(ctx context.Context) (int, error)
}

// EmbeddingClient turns text into a vector.
type EmbeddingClient interface {
	CreateEmbedding(ctx context.Context, input string) ([]float32, error)
}

// Index embeds questions and delegates storage and lookup to a Store.
type Index struct {
	store        Store
	embedder     EmbeddingClient
	cache        *cache.Memo[[]float32]
	cacheMetrics observability.CacheMetrics
	logger       *slog.Logger
	now          func() time.Time
}

// IndexParams configures an Index. CacheSize <= 0 disables the question-embedding cache.
// EmbedTimeout bounds a cached embedding load shared by concurrent callers; zero uses
// cache.DefaultLoadTimeout. CacheMetrics and Logger may be nil.
type IndexParams struct {
	Store        Store
	Embedder     EmbeddingClient
	CacheSize    int
	EmbedTimeout time.Duration
	CacheMetrics observability.CacheMetrics
	Logger       *slog.Logger
}

// NewIndex creates an Index.
func NewIndex(p IndexParams) (*Index, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	idx := &Index{
		store:        p.Store,
		embedder:     p.Embedder,
		cacheMetrics: p.CacheMetrics,
		logger:       logger,
		now:          time.Now,
	}

	if p.CacheSize > 0 {
		memo, err := cache.NewMemo(p.CacheSize, idx.embedUncached, cache.WithLoadTimeout(p.EmbedTimeout))
		if err != nil {
			return nil, fmt.Errorf("create question embedding cache: %w", err)
		}

		idx.cache = memo
	}

	return idx, nil
}

// Insert embeds question and appends the example. Duplicate questions are stored as
// separate entries.
func (i *Index) Insert(
	ctx context.Context, question, sql, explanation string, kind models.ExampleKind,
) (models.TrainingExample, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return models.TrainingExample{}, ErrEmptyQuestion
	}

	id, err := uuid.NewV7()
	if err != nil {
		return models.TrainingExample{}, fmt.Errorf("generate example id: %w", err)
	}

	embedding, err := i.embed(ctx, question)
	if err != nil {
		return models.TrainingExample{}, err
	}

	example := models.TrainingExample{
		ID:          id,
		Question:    question,
		SQL:         sql,
		Explanation: explanation,
		Kind:        kind,
		CreatedAt:   i.now().UTC(),
	}

	if err := i.store.Add(ctx, example, embedding); err != nil {
		return models.TrainingExample{}, fmt.Errorf("store training example: %w", err)
	}

	i.logger.Debug("training example inserted", "id", id.String(), "kind", string(kind))

	return example, nil
}

// QueryNearest returns up to k stored examples most similar to question, highest similarity first.
func (i *Index) QueryNearest(ctx context.Context, question string, k int) ([]models.SimilarityMatch, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	if k <= 0 {
		return []models.SimilarityMatch{}, nil
	}

	embedding, err := i.embed(ctx, question)
	if err != nil {
		return nil, err
	}

	matches, err := i.store.Nearest(ctx, embedding, k)
	if err != nil {
		return nil, fmt.Errorf("nearest training examples: %w", err)
	}

	for j := range matches {
		matches[j].Similarity = embeddings.ClampSimilarity(matches[j].Similarity)
	}

	return matches, nil
}

// Count returns the number of stored examples.
func (i *Index) Count(ctx context.Context) (int, error) {
	n, err := i.store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count training examples: %w", err)
	}

	return n, nil
}

func (i *Index) embed(ctx context.Context, question string) ([]float32, error) {
	if i.cache == nil {
		return i.embedUncached(ctx, question)
	}

	vec, hit, err := i.cache.Get(ctx, question)
	if err != nil {
		return nil, err
	}

	if i.cacheMetrics != nil {
		if hit {
			i.cacheMetrics.RecordHit(ctx, questionEmbeddingCacheName)
		} else {
			i.cacheMetrics.RecordMiss(ctx, questionEmbeddingCacheName)
		}
	}

	return vec, nil
}

// embedUncached returns a fresh unit-length vector. Cached vectors are shared, so stores must not mutate them.
func (i *Index) embedUncached(ctx context.Context, question string) ([]float32, error) {
	vec, err := i.embedder.CreateEmbedding(ctx, question)
	if err != nil {
		i.logger.Error("embed question failed", "error", err)

		return nil, fmt.Errorf("create embedding: %w", err)
	}

	return embeddings.Normalized(vec), nil
}
