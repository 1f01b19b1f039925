package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// Trace exporters accepted by NewTracerProvider.
const (
	TracesExporterOTLP   = "otlp"
	TracesExporterStdout = "stdout"
)

// TracerProviderConfig selects the span exporter and sampling for NewTracerProvider.
type TracerProviderConfig struct {
	// Exporter is "otlp" or "stdout". Empty disables tracing.
	Exporter string
	// ServiceName is used in the resource (default: nlsql-api).
	ServiceName string
	// SampleRatio is the parent-based trace ID ratio. Values outside (0,1] sample everything.
	SampleRatio float64
}

// NewTracerProvider creates a TracerProvider for the configured exporter.
// When cfg.Exporter is empty, returns (nil, nil).
func NewTracerProvider(ctx context.Context, cfg TracerProviderConfig) (*sdktrace.TracerProvider, error) {
	var (
		exp sdktrace.SpanExporter
		err error
	)

	switch cfg.Exporter {
	case "":
		//nolint:nilnil // intentional: tracing disabled, caller checks for nil
		return nil, nil
	case TracesExporterOTLP:
		// SDK reads OTEL_EXPORTER_OTLP_ENDPOINT (and scheme/insecure) from env.
		exp, err = otlptracehttp.New(ctx)
	case TracesExporterStdout:
		exp, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	default:
		return nil, fmt.Errorf("unknown traces exporter %q", cfg.Exporter)
	}

	if err != nil {
		return nil, fmt.Errorf("create %s trace exporter: %w", cfg.Exporter, err)
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = defaultServiceName
	}

	res := resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(serviceName))

	return sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(newSampler(cfg.SampleRatio)),
		sdktrace.WithBatcher(exp),
	), nil
}

func newSampler(ratio float64) sdktrace.Sampler {
	if ratio <= 0 || ratio >= 1 {
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}

	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}

// ShutdownTracerProvider flushes and shuts down the TracerProvider. Safe to call with nil.
func ShutdownTracerProvider(ctx context.Context, provider *sdktrace.TracerProvider) error {
	if provider == nil {
		return nil
	}

	if err := provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("tracer provider shutdown: %w", err)
	}

	return nil
}
