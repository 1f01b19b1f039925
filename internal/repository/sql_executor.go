package repository

import (
	"context"
	"fmt"
	"math"
	"net/netip"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QueryResult is the materialized output of an executed statement.
type QueryResult struct {
	Columns []string
	Rows    [][]any
}

// SQLExecutor runs generated SQL against the analytics database.
type SQLExecutor struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

// NewSQLExecutor creates an executor. timeout <= 0 means no per-statement deadline
// beyond the caller's context.
func NewSQLExecutor(db *pgxpool.Pool, timeout time.Duration) *SQLExecutor {
	return &SQLExecutor{db: db, timeout: timeout}
}

// Execute runs sql on a connection acquired for this call only and returns every row.
// The connection goes back to the pool on every exit path.
func (e *SQLExecutor) Execute(ctx context.Context, sql string) (QueryResult, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	conn, err := e.db.Acquire(ctx)
	if err != nil {
		return QueryResult{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, sql)
	if err != nil {
		return QueryResult{}, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()

	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}

	out := QueryResult{
		Columns: UniqueColumnNames(names),
		Rows:    [][]any{},
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return QueryResult{}, fmt.Errorf("read row: %w", err)
		}

		for i := range values {
			values[i] = NormalizeValue(values[i])
		}

		out.Rows = append(out.Rows, values)
	}

	if err := rows.Err(); err != nil {
		return QueryResult{}, fmt.Errorf("iterating rows: %w", err)
	}

	return out, nil
}

// Ping checks database connectivity.
func (e *SQLExecutor) Ping(ctx context.Context) error {
	if err := e.db.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}

	return nil
}

// UniqueColumnNames suffixes repeated column names so every row encodes as a JSON object
// with distinct keys. SELECT a.id, b.id yields "id" and "id_2".
func UniqueColumnNames(names []string) []string {
	out := make([]string, len(names))
	seen := make(map[string]struct{}, len(names))

	for i, name := range names {
		candidate := name
		for n := 2; ; n++ {
			if _, taken := seen[candidate]; !taken {
				break
			}

			candidate = name + "_" + strconv.Itoa(n)
		}

		seen[candidate] = struct{}{}
		out[i] = candidate
	}

	return out
}

// NormalizeValue converts pgx-decoded values into JSON-friendly Go values: numerics to
// float64, UUIDs to strings, timestamps to RFC 3339, intervals to their text form.
// Non-finite floats become "NaN", "Infinity" or "-Infinity", which JSON cannot carry as numbers.
func NormalizeValue(v any) any {
	switch val := v.(type) {
	case float64:
		return floatValue(val)
	case float32:
		if s, ok := floatValue(float64(val)).(string); ok {
			return s
		}

		return val
	case pgtype.Numeric:
		return numericValue(val)
	case [16]byte:
		return uuid.UUID(val).String()
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case pgtype.Interval:
		if s, err := val.Value(); err == nil && s != nil {
			return s
		}

		return nil
	case pgtype.Time:
		if s, err := val.Value(); err == nil && s != nil {
			return s
		}

		return nil
	case netip.Prefix:
		return val.String()
	case []byte:
		return string(val)
	default:
		return v
	}
}

func floatValue(f float64) any {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	default:
		return f
	}
}

func numericValue(n pgtype.Numeric) any {
	if !n.Valid {
		return nil
	}

	if n.NaN {
		return "NaN"
	}

	if n.InfinityModifier != pgtype.Finite {
		if n.InfinityModifier == pgtype.Infinity {
			return "Infinity"
		}

		return "-Infinity"
	}

	f, err := n.Float64Value()
	if err != nil || !f.Valid {
		if s, valErr := n.Value(); valErr == nil {
			return s
		}

		return nil
	}

	return f.Float64
}
