// Package apperrors provides sentinel and custom error types for the query pipeline.
package apperrors

import "errors"

// ErrValidation represents a validation error.
// Use when client input fails validation.
var ErrValidation = &ValidationError{}

// ValidationError is a sentinel error for validation failures.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a new ValidationError with a custom message.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	if e.Field != "" {
		return "validation failed for field: " + e.Field
	}

	return "validation error"
}

// Is implements the error interface for error comparison.
func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)

	return ok
}

// ErrGeneration is the sentinel for strategy failures (completion API unreachable,
// empty or malformed response, similarity store unavailable). The router recovers
// from these by moving to the next strategy.
var ErrGeneration = &GenerationError{}

// GenerationError records which strategy failed and why.
type GenerationError struct {
	Strategy string
	Err      error
}

// NewGenerationError wraps err as a failure of the named strategy.
func NewGenerationError(strategy string, err error) *GenerationError {
	return &GenerationError{Strategy: strategy, Err: err}
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	msg := "sql generation failed"
	if e.Strategy != "" {
		msg = e.Strategy + ": " + msg
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

// Unwrap returns the underlying cause.
func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Is implements the error interface for error comparison.
func (e *GenerationError) Is(target error) bool {
	_, ok := target.(*GenerationError)

	return ok
}

// ErrExecution is the sentinel for SQL execution failures. These are surfaced to
// the caller and never retried.
var ErrExecution = &ExecutionError{}

// ExecutionError is returned when the generated SQL fails against the database.
type ExecutionError struct {
	SQL string
	Err error
}

// NewExecutionError wraps a database error for the given statement.
func NewExecutionError(sql string, err error) *ExecutionError {
	return &ExecutionError{SQL: sql, Err: err}
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	if e.Err != nil {
		return "sql execution failed: " + e.Err.Error()
	}

	return "sql execution failed"
}

// Unwrap returns the underlying database error.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Is implements the error interface for error comparison.
func (e *ExecutionError) Is(target error) bool {
	_, ok := target.(*ExecutionError)

	return ok
}

// ErrKnowledgeWrite is the sentinel for failed write-backs into the similarity index.
// These are logged and swallowed.
var ErrKnowledgeWrite = &KnowledgeWriteError{}

// KnowledgeWriteError is returned when a self-improvement insert fails.
type KnowledgeWriteError struct {
	Err error
}

// NewKnowledgeWriteError wraps an index insert failure.
func NewKnowledgeWriteError(err error) *KnowledgeWriteError {
	return &KnowledgeWriteError{Err: err}
}

// Error implements the error interface.
func (e *KnowledgeWriteError) Error() string {
	if e.Err != nil {
		return "knowledge write-back failed: " + e.Err.Error()
	}

	return "knowledge write-back failed"
}

// Unwrap returns the underlying cause.
func (e *KnowledgeWriteError) Unwrap() error {
	return e.Err
}

// Is implements the error interface for error comparison.
func (e *KnowledgeWriteError) Is(target error) bool {
	_, ok := target.(*KnowledgeWriteError)

	return ok
}

// ErrCompletionUnavailable is returned by LLM strategies when no completion provider is configured.
var ErrCompletionUnavailable = errors.New("completion provider not configured")
