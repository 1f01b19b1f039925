// Package vector provides an in-process similarity store backed by chromem-go.
package vector

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/philippgille/chromem-go"

	"github.com/flowbit/nlsql/internal/models"
)

const collectionName = "training_examples"

const (
	metaSQL         = "sql"
	metaExplanation = "explanation"
	metaKind        = "kind"
	metaCreatedAt   = "created_at"
)

// errEmbeddingRequired is returned by the collection's embedding func. Callers always supply
// precomputed embeddings, so chromem should never need to embed on its own.
var errEmbeddingRequired = errors.New("vector: embedding must be supplied by the caller")

// ChromemStore stores training examples in a chromem-go collection.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
}

// NewChromemStore opens a chromem collection. An empty dataDir keeps everything in memory;
// otherwise the collection is persisted under dataDir and reloaded on restart.
func NewChromemStore(dataDir string) (*ChromemStore, error) {
	var (
		db  *chromem.DB
		err error
	)

	if dataDir == "" {
		db = chromem.NewDB()
	} else {
		if err := os.MkdirAll(dataDir, 0o750); err != nil {
			return nil, fmt.Errorf("create vector dir: %w", err)
		}

		db, err = chromem.NewPersistentDB(dataDir, false)
		if err != nil {
			return nil, fmt.Errorf("create chromem db: %w", err)
		}
	}

	embed := func(context.Context, string) ([]float32, error) {
		return nil, errEmbeddingRequired
	}

	collection, err := db.GetOrCreateCollection(collectionName, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &ChromemStore{db: db, collection: collection}, nil
}

// Add stores example with its embedding.
func (s *ChromemStore) Add(ctx context.Context, example models.TrainingExample, embedding []float32) error {
	if len(embedding) == 0 {
		return errEmbeddingRequired
	}

	vec := make([]float32, len(embedding))
	copy(vec, embedding)

	doc := chromem.Document{
		ID:        example.ID.String(),
		Content:   example.Question,
		Embedding: vec,
		Metadata: map[string]string{
			metaSQL:         example.SQL,
			metaExplanation: example.Explanation,
			metaKind:        string(example.Kind),
			metaCreatedAt:   example.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}

	if err := s.collection.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add document: %w", err)
	}

	return nil
}

// Nearest returns up to k examples by cosine similarity, highest first. Exact ties keep
// insertion order (created_at, then the time-ordered v7 id).
func (s *ChromemStore) Nearest(ctx context.Context, embedding []float32, k int) ([]models.SimilarityMatch, error) {
	count := s.collection.Count()
	if k <= 0 || count == 0 {
		return []models.SimilarityMatch{}, nil
	}

	// chromem scans every document anyway; asking for all of them lets the tie-break see
	// every candidate that shares the k-th score.
	results, err := s.collection.QueryEmbedding(ctx, embedding, count, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query embedding: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}

		ci, cj := results[i].Metadata[metaCreatedAt], results[j].Metadata[metaCreatedAt]
		if ci != cj {
			return createdAt(ci).Before(createdAt(cj))
		}

		return results[i].ID < results[j].ID
	})

	if len(results) > k {
		results = results[:k]
	}

	matches := make([]models.SimilarityMatch, 0, len(results))
	for _, r := range results {
		matches = append(matches, models.SimilarityMatch{
			Question:    r.Content,
			SQL:         r.Metadata[metaSQL],
			Explanation: r.Metadata[metaExplanation],
			Similarity:  float64(r.Similarity),
		})
	}

	return matches, nil
}

// Count returns the number of stored examples.
func (s *ChromemStore) Count(_ context.Context) (int, error) {
	return s.collection.Count(), nil
}

func createdAt(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}

	return t
}
