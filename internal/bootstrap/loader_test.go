package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowbit/nlsql/internal/embeddings"
	"github.com/flowbit/nlsql/internal/models"
	"github.com/flowbit/nlsql/internal/similarity"
	"github.com/flowbit/nlsql/internal/vector"
)

func newIndex(t *testing.T) *similarity.Index {
	t.Helper()

	store, err := vector.NewChromemStore("")
	require.NoError(t, err)

	idx, err := similarity.NewIndex(similarity.IndexParams{
		Store:    store,
		Embedder: embeddings.NewHashingClient(512),
	})
	require.NoError(t, err)

	return idx
}

func TestLoader_SeedsEmptyIndex(t *testing.T) {
	idx := newIndex(t)

	inserted, err := NewLoader(idx, nil).Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, len(Seeds()), inserted)

	count, err := idx.Count(t.Context())
	require.NoError(t, err)
	assert.Equal(t, len(Seeds()), count)
}

func TestLoader_RunTwiceIsNoOp(t *testing.T) {
	idx := newIndex(t)
	loader := NewLoader(idx, nil)

	_, err := loader.Run(t.Context())
	require.NoError(t, err)

	before, err := idx.Count(t.Context())
	require.NoError(t, err)

	inserted, err := loader.Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)

	after, err := idx.Count(t.Context())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestLoader_TotalRevenueSeedIsRetrievable(t *testing.T) {
	idx := newIndex(t)

	_, err := NewLoader(idx, nil).Run(t.Context())
	require.NoError(t, err)

	matches, err := idx.QueryNearest(t.Context(), "What is the total revenue?", 3)
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	assert.Equal(t, "What is the total revenue?", matches[0].Question)
	assert.Equal(t, "SELECT SUM(totalAmount) AS total_revenue FROM invoices;", matches[0].SQL)
	assert.Greater(t, matches[0].Similarity, 0.8)
}

func TestSeeds_ContainsRequiredPair(t *testing.T) {
	seeds := Seeds()
	require.NotEmpty(t, seeds)
	assert.Equal(t, Seed{
		Question:    "What is the total revenue?",
		SQL:         "SELECT SUM(totalAmount) AS total_revenue FROM invoices;",
		Explanation: "Sums the total amount of all invoices.",
	}, seeds[0])

	seen := map[string]bool{}
	for _, s := range seeds {
		assert.NotEmpty(t, s.SQL, s.Question)
		assert.False(t, seen[s.Question], "duplicate seed question %q", s.Question)
		seen[s.Question] = true
	}

	seeds[0].SQL = "mutated"
	assert.NotEqual(t, "mutated", Seeds()[0].SQL, "Seeds returns a copy")
}

type mockIndex struct {
	count     int
	countErr  error
	failAfter int
	inserted  []string
}

func (m *mockIndex) Count(context.Context) (int, error) { return m.count, m.countErr }

func (m *mockIndex) Insert(
	_ context.Context, question, _, _ string, kind models.ExampleKind,
) (models.TrainingExample, error) {
	if len(m.inserted) == m.failAfter {
		return models.TrainingExample{}, errors.New("store unavailable")
	}

	m.inserted = append(m.inserted, question)

	return models.TrainingExample{Question: question, Kind: kind}, nil
}

func TestLoader_PartialFailure(t *testing.T) {
	idx := &mockIndex{failAfter: 3}

	inserted, err := NewLoader(idx, nil).Run(t.Context())
	require.Error(t, err)
	assert.Equal(t, 3, inserted)
	assert.Equal(t, []string{Seeds()[0].Question, Seeds()[1].Question, Seeds()[2].Question}, idx.inserted)
}

func TestLoader_CountFailure(t *testing.T) {
	idx := &mockIndex{countErr: errors.New("db down"), failAfter: -1}

	_, err := NewLoader(idx, nil).Run(t.Context())
	require.Error(t, err)
	assert.Empty(t, idx.inserted)
}
