package generation

import (
	"context"
	"errors"

	"github.com/flowbit/nlsql/internal/apperrors"
	"github.com/flowbit/nlsql/internal/models"
)

var errNoMatches = errors.New("no similar questions available")

// ExactRetrieval reuses the SQL of the closest stored question verbatim.
type ExactRetrieval struct{}

// NewExactRetrieval creates the exact retrieval strategy.
func NewExactRetrieval() *ExactRetrieval {
	return &ExactRetrieval{}
}

// Name returns the strategy name.
func (s *ExactRetrieval) Name() string {
	return StrategyExactRetrieval
}

// Generate returns matches[0]'s SQL and explanation with its similarity as confidence.
func (s *ExactRetrieval) Generate(_ context.Context, _ string, matches []models.SimilarityMatch) (Generation, error) {
	if len(matches) == 0 {
		return Generation{}, apperrors.NewGenerationError(s.Name(), errNoMatches)
	}

	best := matches[0]

	return Generation{
		SQL:         best.SQL,
		Confidence:  best.Similarity,
		Explanation: best.Explanation,
	}, nil
}
