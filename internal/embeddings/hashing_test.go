package embeddings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vecmath "github.com/flowbit/nlsql/pkg/embeddings"
)

func TestHashingClient_CreateEmbedding(t *testing.T) {
	ctx := context.Background()
	client := NewHashingClient(256)

	t.Run("empty input returns ErrEmptyInput", func(t *testing.T) {
		_, err := client.CreateEmbedding(ctx, "  ?! ")
		assert.ErrorIs(t, err, ErrEmptyInput)
	})

	t.Run("identical text is deterministic", func(t *testing.T) {
		a, err := client.CreateEmbedding(ctx, "What is the total revenue?")
		require.NoError(t, err)

		b, err := client.CreateEmbedding(ctx, "What is the total revenue?")
		require.NoError(t, err)

		assert.Equal(t, a, b)
		assert.Len(t, a, 256)
		assert.InDelta(t, 1.0, vecmath.CosineSimilarity(a, b), 1e-6)
	})

	t.Run("case and punctuation do not change the vector", func(t *testing.T) {
		a, err := client.CreateEmbedding(ctx, "What is the total revenue?")
		require.NoError(t, err)

		b, err := client.CreateEmbedding(ctx, "what IS the total revenue")
		require.NoError(t, err)

		assert.InDelta(t, 1.0, vecmath.CosineSimilarity(a, b), 1e-6)
	})

	t.Run("shared words score above unrelated text", func(t *testing.T) {
		base, err := client.CreateEmbedding(ctx, "total revenue from paid invoices")
		require.NoError(t, err)

		near, err := client.CreateEmbedding(ctx, "total revenue from invoices")
		require.NoError(t, err)

		far, err := client.CreateEmbedding(ctx, "weather tomorrow")
		require.NoError(t, err)

		assert.Greater(t, vecmath.CosineSimilarity(base, near), vecmath.CosineSimilarity(base, far))
	})

	t.Run("default dimensions", func(t *testing.T) {
		assert.Equal(t, 1536, NewHashingClient(0).Dimensions())
	})
}
