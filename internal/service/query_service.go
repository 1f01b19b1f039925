package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/flowbit/nlsql/internal/apperrors"
	"github.com/flowbit/nlsql/internal/models"
	"github.com/flowbit/nlsql/internal/repository"
	"github.com/flowbit/nlsql/internal/router"
)

const tracerName = "github.com/flowbit/nlsql/internal/service"

// DefaultWriteBackThreshold is the confidence above which answered questions are stored.
const DefaultWriteBackThreshold = 0.8

// Router chooses the SQL for a question.
type Router interface {
	Route(ctx context.Context, question string) (router.Decision, error)
}

// Executor runs SQL against the analytics database.
type Executor interface {
	Execute(ctx context.Context, sql string) (repository.QueryResult, error)
}

// KnowledgeWriter stores answered questions for future retrieval.
type KnowledgeWriter interface {
	Insert(ctx context.Context, question, sql, explanation string, kind models.ExampleKind) (models.TrainingExample, error)
}

// QueryMetrics records query pipeline outcomes. Implementations must be safe for concurrent use.
type QueryMetrics interface {
	RecordQuery(ctx context.Context, strategy, outcome string, duration time.Duration)
	RecordWriteBack(ctx context.Context, outcome string)
}

// Query outcomes reported to QueryMetrics.
const (
	OutcomeSuccess         = "success"
	OutcomeGenerationError = "generation_error"
	OutcomeExecutionError  = "execution_error"
)

// QueryService answers natural-language questions: route to a strategy, execute the SQL,
// and write high-confidence answers back into the knowledge store.
type QueryService struct {
	router             Router
	executor           Executor
	knowledge          KnowledgeWriter
	writeBackThreshold float64
	metrics            QueryMetrics
	tracer             trace.Tracer
	logger             *slog.Logger
}

// QueryServiceParams configures QueryService. Knowledge may be nil (degraded mode: no write-back).
// A zero WriteBackThreshold means DefaultWriteBackThreshold. Metrics and Logger may be nil.
type QueryServiceParams struct {
	Router             Router
	Executor           Executor
	Knowledge          KnowledgeWriter
	WriteBackThreshold float64
	Metrics            QueryMetrics
	Logger             *slog.Logger
}

// NewQueryService creates a QueryService.
func NewQueryService(p QueryServiceParams) *QueryService {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	threshold := p.WriteBackThreshold
	if threshold <= 0 {
		threshold = DefaultWriteBackThreshold
	}

	return &QueryService{
		router:             p.Router,
		executor:           p.Executor,
		knowledge:          p.Knowledge,
		writeBackThreshold: threshold,
		metrics:            p.Metrics,
		tracer:             otel.Tracer(tracerName),
		logger:             logger,
	}
}

// Submit answers question. It returns a *apperrors.ValidationError for a blank question and
// a *apperrors.ExecutionError when the chosen SQL fails against the database.
func (s *QueryService) Submit(ctx context.Context, question string) (*models.QueryResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, apperrors.NewValidationError("question", "question is required and must be non-empty")
	}

	start := time.Now()

	ctx, span := s.tracer.Start(ctx, "QueryService.Submit")
	defer span.End()

	decision, err := s.router.Route(ctx, question)
	if err != nil {
		s.recordQuery(ctx, "none", OutcomeGenerationError, time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "routing failed")

		return nil, fmt.Errorf("route question: %w", err)
	}

	gen := decision.Generation
	span.SetAttributes(
		attribute.String("nlsql.strategy", decision.Strategy),
		attribute.Float64("nlsql.confidence", gen.Confidence),
	)

	res, err := s.executor.Execute(ctx, gen.SQL)
	if err != nil {
		s.recordQuery(ctx, decision.Strategy, OutcomeExecutionError, time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "sql execution failed")
		s.logger.WarnContext(ctx, "generated sql failed", "strategy", decision.Strategy, "error", err)

		return nil, apperrors.NewExecutionError(gen.SQL, err)
	}

	rows := toRows(res)
	elapsed := time.Since(start)

	if gen.Confidence > s.writeBackThreshold {
		s.writeBack(ctx, question, gen.SQL, gen.Explanation)
	}

	s.recordQuery(ctx, decision.Strategy, OutcomeSuccess, elapsed)
	span.SetAttributes(attribute.Int("nlsql.row_count", len(rows)))

	similar := decision.SimilarQuestions
	if similar == nil {
		similar = []string{}
	}

	return &models.QueryResult{
		Question:         question,
		SQL:              gen.SQL,
		Data:             rows,
		Confidence:       gen.Confidence,
		Explanation:      gen.Explanation,
		SimilarQuestions: similar,
		ExecutionTime:    elapsed.Seconds(),
		Metadata: models.QueryMetadata{
			StrategyUsed: decision.Strategy,
			RowCount:     len(rows),
		},
	}, nil
}

// writeBack is best-effort: failures are logged and counted, never returned.
func (s *QueryService) writeBack(ctx context.Context, question, sql, explanation string) {
	if s.knowledge == nil {
		return
	}

	_, err := s.knowledge.Insert(ctx, question, sql, explanation, models.ExampleKindUserQuery)
	if err != nil {
		werr := apperrors.NewKnowledgeWriteError(err)
		s.logger.WarnContext(ctx, "knowledge write-back failed", "error", werr)

		if s.metrics != nil {
			s.metrics.RecordWriteBack(ctx, "failed")
		}

		return
	}

	if s.metrics != nil {
		s.metrics.RecordWriteBack(ctx, "stored")
	}
}

func (s *QueryService) recordQuery(ctx context.Context, strategy, outcome string, d time.Duration) {
	if s.metrics != nil {
		s.metrics.RecordQuery(ctx, strategy, outcome, d)
	}
}

func toRows(res repository.QueryResult) []models.Row {
	rows := make([]models.Row, 0, len(res.Rows))

	for _, values := range res.Rows {
		row := make(models.Row, 0, len(res.Columns))
		for i, col := range res.Columns {
			var v any
			if i < len(values) {
				v = values[i]
			}

			row = append(row, models.Field{Column: col, Value: v})
		}

		rows = append(rows, row)
	}

	return rows
}
