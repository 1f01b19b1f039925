// Package generation implements the SQL generation strategies: exact retrieval,
// completion with retrieved examples, completion alone, and keyword pattern fallback.
package generation

import (
	"context"

	"github.com/flowbit/nlsql/internal/models"
)

// Strategy names as reported in metadata.strategy_used.
const (
	StrategyExactRetrieval  = "exact_retrieval"
	StrategyLLMWithContext  = "llm_with_context"
	StrategyLLMAlone        = "llm_alone"
	StrategyPatternFallback = "pattern_fallback"
)

// Fixed confidences for strategies that do not derive one from similarity.
const (
	ConfidenceLLMWithContext  = 0.7
	ConfidenceLLMAlone        = 0.6
	ConfidencePatternFallback = 0.4
)

// Generation is the output of a successful strategy.
type Generation struct {
	SQL         string
	Confidence  float64
	Explanation string
}

// Strategy turns a question (and the matches retrieved for it, possibly none) into SQL.
// Failures are returned as *apperrors.GenerationError.
type Strategy interface {
	Name() string
	Generate(ctx context.Context, question string, matches []models.SimilarityMatch) (Generation, error)
}

// Completer sends a prompt to a completion API and returns the raw text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
