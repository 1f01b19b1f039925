// Package bootstrap seeds an empty knowledge index with curated question/SQL pairs.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/flowbit/nlsql/internal/models"
)

// Index is the part of the similarity index the loader needs.
type Index interface {
	Count(ctx context.Context) (int, error)
	Insert(ctx context.Context, question, sql, explanation string, kind models.ExampleKind) (models.TrainingExample, error)
}

// Loader inserts the curated seed set when the index is empty.
type Loader struct {
	index  Index
	seeds  []Seed
	logger *slog.Logger
}

// NewLoader creates a loader for the curated seed set. logger may be nil.
func NewLoader(index Index, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}

	return &Loader{index: index, seeds: Seeds(), logger: logger}
}

// Seeds returns a copy of the curated seed set in load order.
func Seeds() []Seed {
	out := make([]Seed, len(curatedSeeds))
	copy(out, curatedSeeds)

	return out
}

// Run seeds the index if it is empty and returns how many examples were inserted.
// A non-empty index is left untouched. An insert failure stops the run and is returned;
// examples inserted before it stay, so a later run will see a non-empty index and skip.
func (l *Loader) Run(ctx context.Context) (int, error) {
	count, err := l.index.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count training examples: %w", err)
	}

	if count > 0 {
		l.logger.Info("knowledge index already populated, skipping seed", "examples", count)

		return 0, nil
	}

	inserted := 0

	for _, seed := range l.seeds {
		if _, err := l.index.Insert(ctx, seed.Question, seed.SQL, seed.Explanation, models.ExampleKindSeed); err != nil {
			l.logger.Error("seeding knowledge index failed", "inserted", inserted, "question", seed.Question, "error", err)

			return inserted, fmt.Errorf("insert seed %q: %w", seed.Question, err)
		}

		inserted++
	}

	l.logger.Info("knowledge index seeded", "examples", inserted)

	return inserted, nil
}
