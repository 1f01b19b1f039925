package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// QueryRequest is the body of POST /v1/query.
type QueryRequest struct {
	Question string `json:"question" validate:"required,max=2000,no_null_bytes"`
}

// Field is one column/value pair of a result row.
type Field struct {
	Column string
	Value  any
}

// Row is a single result record. Fields keep the column order returned by the database;
// column names are expected to be unique (see repository.UniqueColumnNames).
type Row []Field

// MarshalJSON encodes the row as a JSON object whose keys appear in column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(f.Column)
		if err != nil {
			return nil, fmt.Errorf("marshal column %q: %w", f.Column, err)
		}

		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("marshal value for column %q: %w", f.Column, err)
		}

		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// Get returns the value for column and whether it was present.
func (r Row) Get(column string) (any, bool) {
	for _, f := range r {
		if f.Column == column {
			return f.Value, true
		}
	}

	return nil, false
}

// QueryMetadata describes how a result was produced.
type QueryMetadata struct {
	StrategyUsed string `json:"strategy_used"`
	RowCount     int    `json:"row_count"`
}

// QueryResult is the answer to a submitted question.
type QueryResult struct {
	Question         string        `json:"question"`
	SQL              string        `json:"sql"`
	Data             []Row         `json:"data"`
	Confidence       float64       `json:"confidence"`
	Explanation      string        `json:"explanation"`
	SimilarQuestions []string      `json:"similar_questions"`
	ExecutionTime    float64       `json:"execution_time"`
	Metadata         QueryMetadata `json:"metadata"`
}
