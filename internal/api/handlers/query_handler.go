package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/flowbit/nlsql/internal/api/response"
	"github.com/flowbit/nlsql/internal/api/validation"
	"github.com/flowbit/nlsql/internal/apperrors"
	"github.com/flowbit/nlsql/internal/models"
)

// QueryService answers natural-language questions.
type QueryService interface {
	Submit(ctx context.Context, question string) (*models.QueryResult, error)
}

// QueryHandler handles POST /v1/query.
type QueryHandler struct {
	service QueryService
}

// NewQueryHandler creates a new query handler.
func NewQueryHandler(service QueryService) *QueryHandler {
	return &QueryHandler{service: service}
}

// Submit handles POST /v1/query.
func (h *QueryHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest

	if err := validation.DecodeJSON(r, &req); err != nil {
		response.RespondBadRequest(w, "Invalid request body")

		return
	}

	if err := validation.ValidateStruct(req); err != nil {
		validation.RespondValidationError(w, err)

		return
	}

	result, err := h.service.Submit(r.Context(), req.Question)
	if err != nil {
		h.respondSubmitError(w, r, err)

		return
	}

	response.RespondJSON(w, http.StatusOK, result)
}

func (h *QueryHandler) respondSubmitError(w http.ResponseWriter, r *http.Request, err error) {
	var execErr *apperrors.ExecutionError

	switch {
	case errors.Is(err, apperrors.ErrValidation):
		response.RespondBadRequest(w, err.Error())
	case errors.As(err, &execErr):
		// The database message helps callers rephrase the question; the SQL is in the logs.
		detail := "generated SQL failed"
		if execErr.Err != nil {
			detail += ": " + execErr.Err.Error()
		}

		response.RespondUnprocessableEntity(w, detail)
	case errors.Is(err, context.Canceled):
		slog.InfoContext(r.Context(), "query cancelled by client")
	default:
		slog.ErrorContext(r.Context(), "query failed", "error", err)
		response.RespondInternalServerError(w, "An unexpected error occurred")
	}
}
