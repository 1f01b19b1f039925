package observability

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
)

func TestTraceContextHandler(t *testing.T) {
	var buf bytes.Buffer

	logger := slog.New(NewTraceContextHandler(slog.NewTextHandler(&buf, nil)))

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1, 2, 3},
		SpanID:     trace.SpanID{4, 5, 6},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	ctx = ContextWithRequestID(ctx, "req-123")

	logger.With("component", "router").InfoContext(ctx, "strategy failed")

	out := buf.String()
	assert.Contains(t, out, "request_id=req-123")
	assert.Contains(t, out, "trace_id="+sc.TraceID().String())
	assert.Contains(t, out, "span_id="+sc.SpanID().String())
	assert.Contains(t, out, "component=router")
}

func TestTraceContextHandler_NoContext(t *testing.T) {
	var buf bytes.Buffer

	logger := slog.New(NewTraceContextHandler(slog.NewTextHandler(&buf, nil)))
	logger.InfoContext(context.Background(), "plain")

	assert.NotContains(t, buf.String(), "request_id")
	assert.NotContains(t, buf.String(), "trace_id")
}

func TestRequestIDFromContext_Empty(t *testing.T) {
	assert.Empty(t, RequestIDFromContext(context.Background()))
}
