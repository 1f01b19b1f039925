package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/flowbit/nlsql/internal/api/response"
)

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ExampleCounter reports how many training examples the similarity index holds.
type ExampleCounter interface {
	Count(ctx context.Context) (int, error)
}

// StatusResponse is the body of GET /v1/status.
type StatusResponse struct {
	Database        string `json:"database"`
	SimilarityStore string `json:"similarity_store"`
	Capability      string `json:"capability"`
	Examples        *int   `json:"examples"`
}

// HealthHandlerParams configures HealthHandler. Examples is nil in degraded mode.
type HealthHandlerParams struct {
	DB              Pinger
	Examples        ExampleCounter
	SimilarityStore string
	Capability      string
}

// HealthHandler serves liveness and status.
type HealthHandler struct {
	db              Pinger
	examples        ExampleCounter
	similarityStore string
	capability      string
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(p HealthHandlerParams) *HealthHandler {
	return &HealthHandler{
		db:              p.DB,
		examples:        p.Examples,
		similarityStore: p.SimilarityStore,
		capability:      p.Capability,
	}
}

const statusCheckTimeout = 2 * time.Second

// Check handles GET /health.
func (h *HealthHandler) Check(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health check response", "error", err)
	}
}

// Status handles GET /v1/status. It responds 503 when the database is unreachable.
func (h *HealthHandler) Status(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), statusCheckTimeout)
	defer cancel()

	resp := StatusResponse{
		Database:        "ok",
		SimilarityStore: h.similarityStore,
		Capability:      h.capability,
	}
	code := http.StatusOK

	if h.db == nil {
		resp.Database = "unavailable"
		code = http.StatusServiceUnavailable
	} else if err := h.db.Ping(ctx); err != nil {
		slog.WarnContext(ctx, "status: database ping failed", "error", err)

		resp.Database = "unavailable"
		code = http.StatusServiceUnavailable
	}

	if h.examples != nil {
		n, err := h.examples.Count(ctx)
		if err != nil {
			slog.WarnContext(ctx, "status: count training examples failed", "error", err)
		} else {
			resp.Examples = &n
		}
	}

	response.RespondJSON(w, code, resp)
}
