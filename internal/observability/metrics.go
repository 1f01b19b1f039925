package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	prometheusexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

const (
	meterScope         = "github.com/flowbit/nlsql/internal/observability"
	defaultServiceName = "nlsql-api"
	cardinalityLimit   = 2000
)

// latencyHistogramBoundaries are Prometheus-style buckets (seconds). Query latency is
// dominated by completion calls, so the upper buckets reach 30s.
var latencyHistogramBoundaries = []float64{0.005, 0.025, 0.1, 0.5, 1, 2.5, 5, 10, 30}

// Metrics is the single metrics interface for the API: HTTP requests, the query pipeline,
// and the question-embedding cache.
type Metrics interface {
	CacheMetrics
	RecordRequest(ctx context.Context, method, route, statusClass string, duration time.Duration)
	RecordRequestBodyTooLarge(ctx context.Context)
	RecordQuery(ctx context.Context, strategy, outcome string, duration time.Duration)
	RecordWriteBack(ctx context.Context, outcome string)
	RecordFallthrough(ctx context.Context, strategy string)
	RecordRetrievalFailure(ctx context.Context)
}

// MeterProviderShutdown is the subset of the SDK MeterProvider needed for shutdown.
type MeterProviderShutdown interface {
	Shutdown(ctx context.Context) error
}

// MeterProviderConfig holds configuration for creating the MeterProvider and metrics.
type MeterProviderConfig struct {
	// ServiceName is used in the resource (default: nlsql-api).
	ServiceName string
}

// NewMeterProvider creates a MeterProvider with Prometheus exporter and returns the provider,
// an HTTP handler for /metrics, and Metrics that use the provider's Meter.
// Caller must call provider.Shutdown on exit. When metrics are disabled, pass nil for metrics at call sites.
func NewMeterProvider(_ context.Context, cfg MeterProviderConfig) (provider MeterProviderShutdown, metricsHandler http.Handler, metrics Metrics, err error) {
	serviceNameVal := cfg.ServiceName
	if serviceNameVal == "" {
		serviceNameVal = defaultServiceName
	}

	// Use a single resource to avoid Schema URL conflicts when merging with resource.Default().
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceNameVal),
	)

	reg := prometheus.NewRegistry()

	exporter, err := prometheusexporter.New(
		prometheusexporter.WithRegisterer(reg),
	)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	buckets := sdkmetric.Stream{Aggregation: sdkmetric.AggregationExplicitBucketHistogram{Boundaries: latencyHistogramBoundaries}}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
		sdkmetric.WithCardinalityLimit(cardinalityLimit),
		sdkmetric.WithView(
			sdkmetric.NewView(sdkmetric.Instrument{Name: MetricNameRequestDuration}, buckets),
			sdkmetric.NewView(sdkmetric.Instrument{Name: MetricNameQueryDuration}, buckets),
		),
	)
	provider = mp

	metrics, err = NewMetrics(mp.Meter(meterScope))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create metrics instruments: %w", err)
	}

	metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})

	return provider, metricsHandler, metrics, nil
}

// NewMetrics creates all instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	requestCount, err := meter.Int64Counter(
		MetricNameRequestCount,
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("request_count: %w", err)
	}

	requestDuration, err := meter.Float64Histogram(
		MetricNameRequestDuration,
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("http.server.duration: %w", err)
	}

	bodyTooLarge, err := meter.Int64Counter(
		MetricNameRequestBodyTooLarge,
		metric.WithDescription("Requests rejected because the body exceeded the configured limit (413)"),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", MetricNameRequestBodyTooLarge, err)
	}

	queries, err := meter.Int64Counter(
		MetricNameQueries,
		metric.WithDescription("Answered questions by strategy and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", MetricNameQueries, err)
	}

	queryDuration, err := meter.Float64Histogram(
		MetricNameQueryDuration,
		metric.WithDescription("End-to-end question latency (routing, generation, execution) in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", MetricNameQueryDuration, err)
	}

	fallthroughs, err := meter.Int64Counter(
		MetricNameFallthroughs,
		metric.WithDescription("Generation strategy failures that fell through to the next strategy"),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", MetricNameFallthroughs, err)
	}

	retrievalFailures, err := meter.Int64Counter(
		MetricNameRetrievalFailures,
		metric.WithDescription("Similarity lookups that failed and were routed without matches"),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", MetricNameRetrievalFailures, err)
	}

	writeBacks, err := meter.Int64Counter(
		MetricNameWriteBacks,
		metric.WithDescription("High-confidence answers written back to the knowledge index, by outcome (stored, failed)"),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", MetricNameWriteBacks, err)
	}

	cache, err := newCacheMetrics(meter)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		cacheMetrics:      cache,
		requestCount:      requestCount,
		requestDuration:   requestDuration,
		bodyTooLarge:      bodyTooLarge,
		queries:           queries,
		queryDuration:     queryDuration,
		fallthroughs:      fallthroughs,
		retrievalFailures: retrievalFailures,
		writeBacks:        writeBacks,
	}, nil
}

type metricsImpl struct {
	*cacheMetrics
	requestCount      metric.Int64Counter
	requestDuration   metric.Float64Histogram
	bodyTooLarge      metric.Int64Counter
	queries           metric.Int64Counter
	queryDuration     metric.Float64Histogram
	fallthroughs      metric.Int64Counter
	retrievalFailures metric.Int64Counter
	writeBacks        metric.Int64Counter
}

func (m *metricsImpl) RecordRequest(ctx context.Context, method, route, statusClass string, duration time.Duration) {
	attrs := attribute.NewSet(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.String("status_class", statusClass),
	)
	m.requestCount.Add(ctx, 1, metric.WithAttributeSet(attrs))

	durAttrs := attribute.NewSet(
		attribute.String("method", method),
		attribute.String("route", route),
	)
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributeSet(durAttrs))
}

func (m *metricsImpl) RecordRequestBodyTooLarge(ctx context.Context) {
	m.bodyTooLarge.Add(ctx, 1)
}

func (m *metricsImpl) RecordQuery(ctx context.Context, strategy, outcome string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(AttrStrategy, normalize(strategy, allowedStrategies)),
		attribute.String(AttrOutcome, normalize(outcome, allowedQueryOutcomes)),
	)
	m.queries.Add(ctx, 1, attrs)
	m.queryDuration.Record(ctx, duration.Seconds(), attrs)
}

func (m *metricsImpl) RecordWriteBack(ctx context.Context, outcome string) {
	m.writeBacks.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrOutcome, normalize(outcome, allowedWriteBackOutcomes)),
	))
}

func (m *metricsImpl) RecordFallthrough(ctx context.Context, strategy string) {
	m.fallthroughs.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrStrategy, normalize(strategy, allowedStrategies)),
	))
}

func (m *metricsImpl) RecordRetrievalFailure(ctx context.Context) {
	m.retrievalFailures.Add(ctx, 1)
}
