// Package pipeline builds the question-answering pipeline from configuration: the analytics
// database pool, the similarity index and its store, the completion client, the router and
// the query service. The API server and the CLI share it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/flowbit/nlsql/internal/anthropic"
	"github.com/flowbit/nlsql/internal/bootstrap"
	"github.com/flowbit/nlsql/internal/completion"
	"github.com/flowbit/nlsql/internal/config"
	"github.com/flowbit/nlsql/internal/embeddings"
	"github.com/flowbit/nlsql/internal/generation"
	"github.com/flowbit/nlsql/internal/googleai"
	"github.com/flowbit/nlsql/internal/observability"
	"github.com/flowbit/nlsql/internal/openai"
	"github.com/flowbit/nlsql/internal/repository"
	"github.com/flowbit/nlsql/internal/router"
	"github.com/flowbit/nlsql/internal/service"
	"github.com/flowbit/nlsql/internal/similarity"
	"github.com/flowbit/nlsql/internal/vector"
	"github.com/flowbit/nlsql/pkg/database"
	"github.com/flowbit/nlsql/pkg/httpclient"
)

// Provider names accepted by EMBEDDING_PROVIDER and LLM_PROVIDER.
const (
	ProviderOpenAI    = "openai"
	ProviderGoogle    = "google"
	ProviderAnthropic = "anthropic"
	ProviderHash      = "hash"
)

var errUnsupportedProvider = errors.New("unsupported provider")

// Pipeline holds the wired components. Index is nil in degraded mode.
type Pipeline struct {
	DB        *pgxpool.Pool
	Executor  *repository.SQLExecutor
	Index     *similarity.Index
	Router    *router.Router
	Service   *service.QueryService
	StoreName string
	logger    *slog.Logger
}

// Options carries optional collaborators. Metrics and Logger may be nil.
type Options struct {
	Metrics observability.Metrics
	Logger  *slog.Logger
}

// Build connects to the database and wires every component. Call Close when done.
func Build(ctx context.Context, cfg *config.Config, opts Options) (*Pipeline, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	embedder, err := newEmbedder(ctx, cfg)
	if err != nil {
		return nil, err
	}

	poolOpts := []database.PoolOption{database.WithMaxConns(cfg.DatabaseMaxConns)}

	usePgvector := embedder != nil && cfg.SimilarityStore == config.SimilarityStorePostgres
	if usePgvector {
		// The halfvec type must exist before connections register it.
		if err := database.EnsureExtension(ctx, cfg.DatabaseURL, "vector"); err != nil {
			return nil, fmt.Errorf("ensure pgvector extension: %w", err)
		}

		poolOpts = append(poolOpts, database.WithVectorTypes())
	}

	db, err := database.NewPostgresPool(ctx, cfg.DatabaseURL, poolOpts...)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	p := &Pipeline{
		DB:       db,
		Executor: repository.NewSQLExecutor(db, cfg.QueryTimeout),
		logger:   logger,
	}

	if embedder != nil {
		store, name, err := newStore(ctx, cfg, db, usePgvector)
		if err != nil {
			db.Close()

			return nil, err
		}

		var cacheMetrics observability.CacheMetrics
		if opts.Metrics != nil {
			cacheMetrics = opts.Metrics
		}

		p.Index, err = similarity.NewIndex(similarity.IndexParams{
			Store:        store,
			Embedder:     embedder,
			CacheSize:    cfg.EmbeddingCacheSize,
			EmbedTimeout: cfg.LLMTimeout,
			CacheMetrics: cacheMetrics,
			Logger:       logger,
		})
		if err != nil {
			db.Close()

			return nil, fmt.Errorf("create similarity index: %w", err)
		}

		p.StoreName = name
	}

	completer, err := newCompleter(ctx, cfg)
	if err != nil {
		db.Close()

		return nil, err
	}

	p.Router = newRouter(cfg, p.Index, completer, opts.Metrics, logger)

	var queryMetrics service.QueryMetrics
	if opts.Metrics != nil {
		queryMetrics = opts.Metrics
	}

	sp := service.QueryServiceParams{
		Router:             p.Router,
		Executor:           p.Executor,
		WriteBackThreshold: cfg.WriteBackThreshold,
		Metrics:            queryMetrics,
		Logger:             logger,
	}
	if p.Index != nil {
		sp.Knowledge = p.Index
	}

	p.Service = service.NewQueryService(sp)

	logger.Info("query pipeline ready",
		"capability", p.Router.Capability().String(),
		"similarity_store", p.StoreName,
		"llm_provider", cfg.LLMProvider,
	)

	return p, nil
}

// Seed loads the curated examples into an empty index. It is a no-op in degraded mode.
func (p *Pipeline) Seed(ctx context.Context) (int, error) {
	if p.Index == nil {
		return 0, nil
	}

	n, err := bootstrap.NewLoader(p.Index, p.logger).Run(ctx)
	if err != nil {
		return n, fmt.Errorf("seed knowledge index: %w", err)
	}

	return n, nil
}

// Close releases the database pool.
func (p *Pipeline) Close() {
	p.DB.Close()
}

func providerHTTPClient(cfg *config.Config) *http.Client {
	return httpclient.NewRetrying(httpclient.Options{Timeout: cfg.LLMTimeout})
}

// newEmbedder returns nil (degraded mode) when EMBEDDING_PROVIDER is unset or unsupported.
func newEmbedder(ctx context.Context, cfg *config.Config) (similarity.EmbeddingClient, error) {
	switch cfg.EmbeddingProvider {
	case "":
		slog.Warn("similarity index disabled (EMBEDDING_PROVIDER empty or unset)")

		return nil, nil
	case ProviderOpenAI:
		return openai.NewClient(cfg.EmbeddingAPIKey,
			openai.WithEmbeddingModel(cfg.EmbeddingModel),
			openai.WithDimensions(cfg.EmbeddingDimensions),
			openai.WithHTTPClient(providerHTTPClient(cfg)),
		), nil
	case ProviderGoogle:
		client, err := googleai.NewClient(ctx, cfg.EmbeddingAPIKey,
			googleai.WithModel(cfg.EmbeddingModel),
			googleai.WithDimensions(cfg.EmbeddingDimensions),
			googleai.WithHTTPClient(providerHTTPClient(cfg)),
		)
		if err != nil {
			return nil, fmt.Errorf("create google embedding client: %w", err)
		}

		return client, nil
	case ProviderHash:
		return embeddings.NewHashingClient(cfg.EmbeddingDimensions), nil
	default:
		slog.Warn("similarity index disabled: unsupported EMBEDDING_PROVIDER", "provider", cfg.EmbeddingProvider)

		return nil, nil
	}
}

func newStore(
	ctx context.Context, cfg *config.Config, db *pgxpool.Pool, usePgvector bool,
) (similarity.Store, string, error) {
	if usePgvector {
		repo := repository.NewTrainingExamplesRepository(db, cfg.EmbeddingDimensions)
		if err := repo.EnsureSchema(ctx); err != nil {
			return nil, "", fmt.Errorf("ensure training_examples schema: %w", err)
		}

		return repo, config.SimilarityStorePostgres, nil
	}

	store, err := vector.NewChromemStore(cfg.ChromemPath)
	if err != nil {
		return nil, "", fmt.Errorf("open chromem store: %w", err)
	}

	return store, config.SimilarityStoreChromem, nil
}

// newCompleter returns nil when LLM_PROVIDER is unset; LLM strategies then fail fast and the
// chain ends at the pattern fallback.
func newCompleter(ctx context.Context, cfg *config.Config) (completion.Client, error) {
	var client completion.Client

	switch cfg.LLMProvider {
	case "":
		slog.Warn("LLM strategies disabled (LLM_PROVIDER empty or unset)")

		return nil, nil
	case ProviderOpenAI:
		client = openai.NewClient(cfg.LLMAPIKey,
			openai.WithChatModel(cfg.LLMModel),
			openai.WithTemperature(cfg.LLMTemperature),
			openai.WithBaseURL(cfg.LLMBaseURL),
			openai.WithHTTPClient(providerHTTPClient(cfg)),
		)
	case ProviderGoogle:
		gc, err := googleai.NewClient(ctx, cfg.LLMAPIKey,
			googleai.WithChatModel(cfg.LLMModel),
			googleai.WithTemperature(cfg.LLMTemperature),
			googleai.WithBaseURL(cfg.LLMBaseURL),
			googleai.WithHTTPClient(providerHTTPClient(cfg)),
		)
		if err != nil {
			return nil, fmt.Errorf("create google completion client: %w", err)
		}

		client = gc
	case ProviderAnthropic:
		client = anthropic.NewClient(cfg.LLMAPIKey,
			anthropic.WithModel(cfg.LLMModel),
			anthropic.WithTemperature(cfg.LLMTemperature),
			anthropic.WithBaseURL(cfg.LLMBaseURL),
			anthropic.WithHTTPClient(providerHTTPClient(cfg)),
		)
	default:
		return nil, fmt.Errorf("%w: LLM_PROVIDER=%s", errUnsupportedProvider, cfg.LLMProvider)
	}

	return completion.NewGuarded(client, completion.Options{
		RequestsPerSecond: cfg.LLMRateLimit,
		Timeout:           cfg.LLMTimeout,
	}), nil
}

func newRouter(
	cfg *config.Config, index *similarity.Index, completer completion.Client,
	metrics observability.Metrics, logger *slog.Logger,
) *router.Router {
	var gc generation.Completer
	if completer != nil {
		gc = completer
	}

	p := router.Params{
		Capability: router.CapabilityDegraded,
		Thresholds: router.Thresholds{
			High:       cfg.RouterHighThreshold,
			Low:        cfg.RouterLowThreshold,
			MatchLimit: cfg.RouterMatchLimit,
		},
		Chain: router.Chain{
			ExactRetrieval:  generation.NewExactRetrieval(),
			LLMWithContext:  generation.NewLLMWithContext(gc),
			LLMAlone:        generation.NewLLMAlone(gc),
			PatternFallback: generation.NewPatternFallback(),
		},
		Logger: logger,
	}

	if index != nil {
		p.Retriever = index
		p.Capability = router.CapabilityFull
	}

	if metrics != nil {
		p.Metrics = metrics
	}

	return router.New(p)
}
