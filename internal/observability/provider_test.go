package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTracerProvider(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		tp, err := NewTracerProvider(t.Context(), TracerProviderConfig{})
		require.NoError(t, err)
		assert.Nil(t, tp)
		assert.NoError(t, ShutdownTracerProvider(t.Context(), tp))
	})

	t.Run("stdout", func(t *testing.T) {
		tp, err := NewTracerProvider(t.Context(), TracerProviderConfig{Exporter: TracesExporterStdout, SampleRatio: 0.5})
		require.NoError(t, err)
		require.NotNil(t, tp)
		assert.NoError(t, ShutdownTracerProvider(t.Context(), tp))
	})

	t.Run("unknown exporter", func(t *testing.T) {
		_, err := NewTracerProvider(t.Context(), TracerProviderConfig{Exporter: "zipkin"})
		assert.ErrorContains(t, err, "zipkin")
	})
}

func TestNewSampler(t *testing.T) {
	assert.Contains(t, newSampler(0).Description(), "AlwaysOnSampler")
	assert.Contains(t, newSampler(1).Description(), "AlwaysOnSampler")
	assert.Contains(t, newSampler(0.25).Description(), "TraceIDRatioBased{0.25}")
}
