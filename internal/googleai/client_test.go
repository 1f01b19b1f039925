package googleai

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Complete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/gemini-2.0-flash:generateContent"), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"SELECT COUNT(*) FROM invoices;"}]}}]}`))
	}))
	defer server.Close()

	client, err := NewClient(t.Context(), "test-key", WithBaseURL(server.URL))
	require.NoError(t, err)

	out, err := client.Complete(t.Context(), "PostgreSQL query for: how many invoices")
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM invoices;", out)
}

func TestClient_Complete_EmptyPrompt(t *testing.T) {
	client, err := NewClient(t.Context(), "test-key")
	require.NoError(t, err)

	_, err = client.Complete(t.Context(), "")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestClient_CreateEmbedding_Validation(t *testing.T) {
	client, err := NewClient(t.Context(), "test-key", WithDimensions(0))
	require.NoError(t, err)

	_, err = client.CreateEmbedding(t.Context(), "revenue")
	assert.ErrorIs(t, err, ErrInvalidDims)

	_, err = client.CreateEmbedding(t.Context(), "  ")
	assert.ErrorIs(t, err, ErrEmptyInput)
}
