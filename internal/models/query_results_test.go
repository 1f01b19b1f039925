package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRow_MarshalJSONKeepsColumnOrder(t *testing.T) {
	row := Row{
		{Column: "vendor", Value: "Acme"},
		{Column: "invoiceNumber", Value: "INV-1"},
		{Column: "totalAmount", Value: 1234.5},
		{Column: "a", Value: nil},
	}

	b, err := json.Marshal(row)
	require.NoError(t, err)
	assert.JSONEq(t, `{"vendor":"Acme","invoiceNumber":"INV-1","totalAmount":1234.5,"a":null}`, string(b))
	assert.Equal(t, `{"vendor":"Acme","invoiceNumber":"INV-1","totalAmount":1234.5,"a":null}`, string(b))
}

func TestRow_MarshalJSONEmpty(t *testing.T) {
	b, err := json.Marshal(Row{})
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(b))
}

func TestRow_MarshalJSONUnsupportedValue(t *testing.T) {
	_, err := json.Marshal(Row{{Column: "ch", Value: make(chan int)}})
	assert.Error(t, err)
}

func TestRow_Get(t *testing.T) {
	row := Row{{Column: "total_revenue", Value: 10.0}}

	v, ok := row.Get("total_revenue")
	assert.True(t, ok)
	assert.InDelta(t, 10.0, v, 0)

	_, ok = row.Get("missing")
	assert.False(t, ok)
}

func TestQueryResult_JSONShape(t *testing.T) {
	res := QueryResult{
		Question:         "paid",
		SQL:              "SELECT 1;",
		Data:             []Row{{{Column: "paid_count", Value: int64(3)}}},
		Confidence:       0.4,
		SimilarQuestions: []string{},
		ExecutionTime:    0.012,
		Metadata:         QueryMetadata{StrategyUsed: "pattern_fallback", RowCount: 1},
	}

	b, err := json.Marshal(res)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(b, &decoded))

	for _, key := range []string{"question", "sql", "data", "confidence", "explanation", "similar_questions", "execution_time", "metadata"} {
		assert.Contains(t, decoded, key)
	}

	assert.Equal(t, map[string]any{"strategy_used": "pattern_fallback", "row_count": float64(1)}, decoded["metadata"])
}

func TestExampleKind_IsValid(t *testing.T) {
	assert.True(t, ExampleKindSeed.IsValid())
	assert.True(t, ExampleKindUserQuery.IsValid())
	assert.False(t, ExampleKind("other").IsValid())
}
