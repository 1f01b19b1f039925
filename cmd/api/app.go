package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/flowbit/nlsql/internal/api/handlers"
	"github.com/flowbit/nlsql/internal/api/middleware"
	"github.com/flowbit/nlsql/internal/config"
	"github.com/flowbit/nlsql/internal/observability"
	"github.com/flowbit/nlsql/internal/pipeline"
)

// App holds all server dependencies and coordinates startup and shutdown.
type App struct {
	cfg            *config.Config
	pipeline       *pipeline.Pipeline
	server         *http.Server
	meterProvider  observability.MeterProviderShutdown
	tracerProvider *sdktrace.TracerProvider
}

// NewApp builds and wires all components and seeds the knowledge index. It does not start
// the HTTP server; call Run to start and block until shutdown or failure.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	tracerProvider, err := observability.NewTracerProvider(ctx, observability.TracerProviderConfig{
		Exporter:    cfg.OtelTracesExporter,
		SampleRatio: cfg.OtelSampleRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("create tracer provider: %w", err)
	}

	if tracerProvider == nil {
		slog.Warn("tracing not enabled (OTEL_TRACES_EXPORTER empty or unset)")
	} else {
		otel.SetTracerProvider(tracerProvider)
		otel.SetTextMapPropagator(propagation.TraceContext{})
	}

	// Installed unconditionally so request_id (and trace_id/span_id when tracing is on) appear in logs.
	slog.SetDefault(slog.New(observability.NewTraceContextHandler(slog.Default().Handler())))

	var (
		meterProvider  observability.MeterProviderShutdown
		metricsHandler http.Handler
		metrics        observability.Metrics
	)

	if cfg.MetricsEnabled {
		meterProvider, metricsHandler, metrics, err = observability.NewMeterProvider(ctx, observability.MeterProviderConfig{})
		if err != nil {
			logShutdownError(shutdownObservability(context.Background(), tracerProvider, nil))

			return nil, fmt.Errorf("create meter provider: %w", err)
		}
	} else {
		slog.Warn("metrics not enabled (METRICS_ENABLED=false)")
	}

	p, err := pipeline.Build(ctx, cfg, pipeline.Options{Metrics: metrics, Logger: slog.Default()})
	if err != nil {
		logShutdownError(shutdownObservability(context.Background(), tracerProvider, meterProvider))

		return nil, err
	}

	seeded, err := p.Seed(ctx)
	if err != nil {
		p.Close()
		logShutdownError(shutdownObservability(context.Background(), tracerProvider, meterProvider))

		return nil, err
	}

	if seeded > 0 {
		slog.Info("knowledge index seeded", "examples", seeded)
	}

	health := handlers.NewHealthHandler(healthParams(p))
	query := handlers.NewQueryHandler(p.Service)

	return &App{
		cfg:            cfg,
		pipeline:       p,
		server:         newHTTPServer(cfg, health, query, metrics, metricsHandler),
		meterProvider:  meterProvider,
		tracerProvider: tracerProvider,
	}, nil
}

func healthParams(p *pipeline.Pipeline) handlers.HealthHandlerParams {
	hp := handlers.HealthHandlerParams{
		DB:              p.Executor,
		SimilarityStore: p.StoreName,
		Capability:      p.Router.Capability().String(),
	}
	if p.Index != nil {
		hp.Examples = p.Index
	}

	return hp
}

// newHTTPServer builds the HTTP server and muxes (no auth on /health and /metrics, API key on /v1/).
// Handler chain: RequestID -> Metrics -> otelhttp(Logging(mux)) so access logs get trace_id/span_id.
func newHTTPServer(
	cfg *config.Config,
	health *handlers.HealthHandler,
	query *handlers.QueryHandler,
	metrics observability.Metrics,
	metricsHandler http.Handler,
) *http.Server {
	public := http.NewServeMux()
	public.HandleFunc("GET /health", health.Check)

	if metricsHandler != nil {
		public.Handle("GET /metrics", metricsHandler)
	}

	var bodyTooLarge middleware.RequestBodyTooLargeRecorder
	if metrics != nil {
		bodyTooLarge = metrics
	}

	protected := http.NewServeMux()
	protected.Handle("POST /v1/query", middleware.MaxBody(middleware.DefaultMaxBodyBytes, bodyTooLarge)(
		http.HandlerFunc(query.Submit)))
	protected.HandleFunc("GET /v1/status", health.Status)

	mux := http.NewServeMux()
	mux.Handle("/v1/", middleware.Auth(cfg.APIKey)(protected))
	mux.Handle("/", public)

	otelOpts := []otelhttp.Option{
		// Skip tracing for health checks and scrapes to reduce noise.
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health" && r.URL.Path != "/metrics"
		}),
	}

	// Logging runs inside otelhttp so r.Context() has the span when we log.
	handler := otelhttp.NewHandler(middleware.Logging(mux), "nlsql-api", otelOpts...)

	var requests middleware.RequestRecorder
	if metrics != nil {
		requests = metrics
	}

	handler = middleware.Metrics(requests)(handler)
	handler = middleware.RequestID(handler)

	const (
		readTimeout = 15 * time.Second
		idleTimeout = 60 * time.Second
	)

	return &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler,
		ReadTimeout: readTimeout,
		// Completion calls are bounded by LLM_TIMEOUT per strategy and there can be two of them.
		WriteTimeout: 2*cfg.LLMTimeout + cfg.QueryTimeout + readTimeout,
		IdleTimeout:  idleTimeout,
	}
}

// Run starts the HTTP server and blocks until ctx is cancelled (e.g. signal) or the server fails.
// Caller should then call Shutdown.
func (a *App) Run(ctx context.Context) error {
	runErr := make(chan error, 1)

	go func() {
		slog.Info("Starting server", "port", a.cfg.Port)

		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			runErr <- fmt.Errorf("server: %w", err)
		}
	}()

	select {
	case err := <-runErr:
		return err
	case <-ctx.Done():
		return nil
	}
}

// shutdownObservability shuts down tracer and meter providers. Logs secondary errors, returns the first.
func shutdownObservability(
	ctx context.Context, tracer *sdktrace.TracerProvider, meter observability.MeterProviderShutdown,
) error {
	var first error

	if err := observability.ShutdownTracerProvider(ctx, tracer); err != nil {
		first = err
	}

	if meter != nil {
		if err := meter.Shutdown(ctx); err != nil {
			if first == nil {
				first = fmt.Errorf("meter provider shutdown: %w", err)
			} else {
				slog.Error("shutdown meter provider", "error", err)
			}
		}
	}

	return first
}

func logShutdownError(err error) {
	if err != nil {
		slog.Error("shutdown observability after startup error", "error", err)
	}
}

// Shutdown stops the server and then closes the database pool. Observability is shut down
// last; its error is returned only when the server shut down cleanly.
func (a *App) Shutdown(ctx context.Context) (err error) {
	defer func() {
		obsErr := shutdownObservability(ctx, a.tracerProvider, a.meterProvider)
		if err == nil {
			err = obsErr
		} else if obsErr != nil {
			slog.Error("shutdown observability", "error", obsErr)
		}
	}()

	defer a.pipeline.Close()

	if err = a.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
