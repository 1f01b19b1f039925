package generation

import (
	"context"
	"errors"
	"fmt"

	"github.com/flowbit/nlsql/internal/apperrors"
	"github.com/flowbit/nlsql/internal/models"
)

// contextExamples is how many retrieved matches are given to the model as worked examples.
const contextExamples = 2

var errEmptyCompletion = errors.New("completion returned no SQL")

// LLM generates SQL with a completion API, optionally grounding the prompt in retrieved examples.
type LLM struct {
	name        string
	completer   Completer
	confidence  float64
	withContext bool
}

// NewLLMWithContext creates the strategy that includes the top retrieved matches in the prompt.
// A nil completer makes every call fail with apperrors.ErrCompletionUnavailable.
func NewLLMWithContext(completer Completer) *LLM {
	return &LLM{
		name:        StrategyLLMWithContext,
		completer:   completer,
		confidence:  ConfidenceLLMWithContext,
		withContext: true,
	}
}

// NewLLMAlone creates the strategy that prompts with the schema and question only.
func NewLLMAlone(completer Completer) *LLM {
	return &LLM{
		name:       StrategyLLMAlone,
		completer:  completer,
		confidence: ConfidenceLLMAlone,
	}
}

// Name returns the strategy name.
func (s *LLM) Name() string {
	return s.name
}

// Generate prompts the completion API and returns the fence-stripped SQL.
func (s *LLM) Generate(ctx context.Context, question string, matches []models.SimilarityMatch) (Generation, error) {
	if s.completer == nil {
		return Generation{}, apperrors.NewGenerationError(s.name, apperrors.ErrCompletionUnavailable)
	}

	var examples []models.SimilarityMatch

	if s.withContext {
		if len(matches) == 0 {
			return Generation{}, apperrors.NewGenerationError(s.name, errNoMatches)
		}

		examples = matches[:min(contextExamples, len(matches))]
	}

	out, err := s.completer.Complete(ctx, BuildPrompt(question, examples))
	if err != nil {
		return Generation{}, apperrors.NewGenerationError(s.name, fmt.Errorf("complete: %w", err))
	}

	sql := StripFences(out)
	if sql == "" {
		return Generation{}, apperrors.NewGenerationError(s.name, errEmptyCompletion)
	}

	explanation := "Generated SQL query to answer: " + question
	if s.withContext {
		explanation = fmt.Sprintf("Generated SQL query from %d similar questions to answer: %s", len(examples), question)
	}

	return Generation{
		SQL:         sql,
		Confidence:  s.confidence,
		Explanation: explanation,
	}, nil
}
