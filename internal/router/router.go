// Package router picks a SQL generation strategy from retrieval similarity and falls
// through an ordered chain of cheaper strategies when one fails.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/flowbit/nlsql/internal/generation"
	"github.com/flowbit/nlsql/internal/models"
)

// Capability says whether the similarity index is available. It is fixed at startup.
type Capability int

const (
	// CapabilityFull routes on retrieval similarity.
	CapabilityFull Capability = iota
	// CapabilityDegraded never consults the index and starts at llm_alone.
	CapabilityDegraded
)

// String returns "full" or "degraded".
func (c Capability) String() string {
	if c == CapabilityDegraded {
		return "degraded"
	}

	return "full"
}

// Defaults for Thresholds.
const (
	DefaultHighThreshold = 0.8
	DefaultLowThreshold  = 0.5
	DefaultMatchLimit    = 3
)

// Thresholds is the routing policy. A best similarity above High selects exact retrieval;
// above Low, completion with context; otherwise completion alone.
type Thresholds struct {
	High       float64
	Low        float64
	MatchLimit int
}

// DefaultThresholds returns the standard policy (0.8 / 0.5, top 3 matches).
func DefaultThresholds() Thresholds {
	return Thresholds{High: DefaultHighThreshold, Low: DefaultLowThreshold, MatchLimit: DefaultMatchLimit}
}

// Retriever looks up stored questions similar to a question.
type Retriever interface {
	QueryNearest(ctx context.Context, question string, k int) ([]models.SimilarityMatch, error)
}

// Metrics records routing outcomes. Implementations must be safe for concurrent use.
type Metrics interface {
	RecordFallthrough(ctx context.Context, strategy string)
	RecordRetrievalFailure(ctx context.Context)
}

// Chain holds the strategies in fallthrough order.
type Chain struct {
	ExactRetrieval  generation.Strategy
	LLMWithContext  generation.Strategy
	LLMAlone        generation.Strategy
	PatternFallback generation.Strategy
}

// Decision is the routed result for one question.
type Decision struct {
	Generation       generation.Generation
	Strategy         string
	SimilarQuestions []string
}

// ErrChainExhausted is returned when every strategy in the chain fails.
var ErrChainExhausted = errors.New("all generation strategies failed")

// Router selects and runs generation strategies.
type Router struct {
	retriever  Retriever
	capability Capability
	thresholds Thresholds
	chain      []generation.Strategy
	metrics    Metrics
	logger     *slog.Logger
}

// Params configures a Router. Retriever may be nil only with CapabilityDegraded.
// A zero Thresholds means DefaultThresholds. Metrics and Logger may be nil.
type Params struct {
	Retriever  Retriever
	Capability Capability
	Thresholds Thresholds
	Chain      Chain
	Metrics    Metrics
	Logger     *slog.Logger
}

// New creates a Router. Unset strategies default to the standard implementations with no
// completion client, so the chain always ends at the pattern fallback.
func New(p Params) *Router {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	capability := p.Capability
	if p.Retriever == nil {
		capability = CapabilityDegraded
	}

	thresholds := p.Thresholds
	if thresholds.High <= 0 {
		thresholds.High = DefaultHighThreshold
		if thresholds.Low == 0 {
			thresholds.Low = DefaultLowThreshold
		}
	}

	if thresholds.MatchLimit <= 0 {
		thresholds.MatchLimit = DefaultMatchLimit
	}

	c := p.Chain
	if c.ExactRetrieval == nil {
		c.ExactRetrieval = generation.NewExactRetrieval()
	}

	if c.LLMWithContext == nil {
		c.LLMWithContext = generation.NewLLMWithContext(nil)
	}

	if c.LLMAlone == nil {
		c.LLMAlone = generation.NewLLMAlone(nil)
	}

	if c.PatternFallback == nil {
		c.PatternFallback = generation.NewPatternFallback()
	}

	return &Router{
		retriever:  p.Retriever,
		capability: capability,
		thresholds: thresholds,
		chain:      []generation.Strategy{c.ExactRetrieval, c.LLMWithContext, c.LLMAlone, c.PatternFallback},
		metrics:    p.Metrics,
		logger:     logger,
	}
}

// Capability returns the capability the router was built with.
func (r *Router) Capability() Capability {
	return r.capability
}

// chain positions
const (
	posExact = iota
	posWithContext
	posAlone
)

// Route retrieves similar questions, selects the starting strategy and runs the chain
// from there until one succeeds.
func (r *Router) Route(ctx context.Context, question string) (Decision, error) {
	matches := r.lookup(ctx, question)
	start := r.selectStart(matches)

	similar := make([]string, 0, len(matches))
	for _, m := range matches {
		similar = append(similar, m.Question)
	}

	var lastErr error

	for _, strategy := range r.chain[start:] {
		gen, err := strategy.Generate(ctx, question, matches)
		if err == nil {
			r.logger.Debug("strategy selected", "strategy", strategy.Name(), "confidence", gen.Confidence)

			return Decision{Generation: gen, Strategy: strategy.Name(), SimilarQuestions: similar}, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return Decision{}, fmt.Errorf("route cancelled: %w", ctxErr)
		}

		r.logger.Warn("generation strategy failed, falling through", "strategy", strategy.Name(), "error", err)

		if r.metrics != nil {
			r.metrics.RecordFallthrough(ctx, strategy.Name())
		}

		lastErr = err
	}

	return Decision{}, fmt.Errorf("%w: %w", ErrChainExhausted, lastErr)
}

func (r *Router) lookup(ctx context.Context, question string) []models.SimilarityMatch {
	if r.capability == CapabilityDegraded {
		return nil
	}

	matches, err := r.retriever.QueryNearest(ctx, question, r.thresholds.MatchLimit)
	if err != nil {
		r.logger.Warn("similarity lookup failed, routing without matches", "error", err)

		if r.metrics != nil {
			r.metrics.RecordRetrievalFailure(ctx)
		}

		return nil
	}

	return matches
}

func (r *Router) selectStart(matches []models.SimilarityMatch) int {
	if len(matches) == 0 {
		return posAlone
	}

	best := matches[0].Similarity

	switch {
	case best > r.thresholds.High:
		return posExact
	case best > r.thresholds.Low:
		return posWithContext
	default:
		return posAlone
	}
}
