package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinels(t *testing.T) {
	cause := errors.New("connection reset")

	tests := []struct {
		name     string
		err      error
		sentinel error
		msg      string
	}{
		{
			name:     "validation",
			err:      NewValidationError("question", "question is required"),
			sentinel: ErrValidation,
			msg:      "question is required",
		},
		{
			name:     "generation",
			err:      NewGenerationError("llm_alone", cause),
			sentinel: ErrGeneration,
			msg:      "llm_alone: sql generation failed: connection reset",
		},
		{
			name:     "execution",
			err:      NewExecutionError("SELECT 1", cause),
			sentinel: ErrExecution,
			msg:      "sql execution failed: connection reset",
		},
		{
			name:     "knowledge write",
			err:      NewKnowledgeWriteError(cause),
			sentinel: ErrKnowledgeWrite,
			msg:      "knowledge write-back failed: connection reset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("submit: %w", tt.err)

			assert.ErrorIs(t, wrapped, tt.sentinel)
			assert.Equal(t, tt.msg, tt.err.Error())
		})
	}
}

func TestUnwrapReachesCause(t *testing.T) {
	cause := errors.New("relation \"invoices\" does not exist")

	assert.ErrorIs(t, NewExecutionError("SELECT * FROM invoices", cause), cause)
	assert.ErrorIs(t, NewGenerationError("llm_with_context", cause), cause)
	assert.ErrorIs(t, NewKnowledgeWriteError(cause), cause)
	assert.NotErrorIs(t, NewExecutionError("SELECT 1", cause), ErrGeneration)
}

func TestValidationError_Fallbacks(t *testing.T) {
	assert.Equal(t, "validation failed for field: question", (&ValidationError{Field: "question"}).Error())
	assert.Equal(t, "validation error", (&ValidationError{}).Error())
}
