//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/flowbit/nlsql/internal/apperrors"
	"github.com/flowbit/nlsql/internal/models"
	"github.com/flowbit/nlsql/pkg/database"
)

const testDimensions = 3

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()

	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "pgvector/pgvector:pg16",
		tcpostgres.WithDatabase("flowbit_analytics"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, database.EnsureExtension(ctx, dsn, "vector"))

	pool, err := database.NewPostgresPool(ctx, dsn, database.WithVectorTypes(), database.WithMaxConns(4))
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool
}

func trainingExample(question, sql string, createdAt time.Time) models.TrainingExample {
	return models.TrainingExample{
		ID:        uuid.Must(uuid.NewV7()),
		Question:  question,
		SQL:       sql,
		Kind:      models.ExampleKindSeed,
		CreatedAt: createdAt,
	}
}

func TestPostgres_TrainingExamplesAndExecutor(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()

	repo := NewTrainingExamplesRepository(pool, testDimensions)
	require.NoError(t, repo.EnsureSchema(ctx))
	require.NoError(t, repo.EnsureSchema(ctx), "schema creation is idempotent")

	t.Run("empty store", func(t *testing.T) {
		n, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		matches, err := repo.Nearest(ctx, []float32{1, 0, 0}, 3)
		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("nearest orders by similarity then insertion", func(t *testing.T) {
		now := time.Now().UTC()

		require.NoError(t, repo.Add(ctx, trainingExample("revenue", "SELECT 1;", now), []float32{1, 0, 0}))
		require.NoError(t, repo.Add(ctx, trainingExample("revenue again", "SELECT 2;", now), []float32{1, 0, 0}))
		require.NoError(t, repo.Add(ctx, trainingExample("vendors", "SELECT 3;", now), []float32{0, 1, 0}))

		matches, err := repo.Nearest(ctx, []float32{1, 0, 0}, 3)
		require.NoError(t, err)
		require.Len(t, matches, 3)

		assert.Equal(t, "revenue", matches[0].Question)
		assert.Equal(t, "revenue again", matches[1].Question)
		assert.Equal(t, "vendors", matches[2].Question)
		assert.InDelta(t, 1.0, matches[0].Similarity, 1e-3)
		assert.InDelta(t, 0.0, matches[2].Similarity, 1e-3)

		n, err := repo.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		err := repo.Add(ctx, trainingExample("bad", "SELECT 1;", time.Now()), []float32{1, 0})
		require.ErrorIs(t, err, ErrDimensionMismatch)
	})

	t.Run("executor preserves column order and normalizes values", func(t *testing.T) {
		_, err := pool.Exec(ctx, `
			CREATE TABLE invoices (id UUID PRIMARY KEY, "totalAmount" NUMERIC(12,2), status TEXT, "issueDate" DATE);
			INSERT INTO invoices VALUES
				('0190f1c2-7b3a-7cde-8f00-112233445566', 100.50, 'PAID', '2024-01-10'),
				('0190f1c2-7b3a-7cde-8f00-112233445567', 49.50, 'PENDING', '2024-02-10');`)
		require.NoError(t, err)

		exec := NewSQLExecutor(pool, 5*time.Second)

		res, err := exec.Execute(ctx, `SELECT SUM("totalAmount") as total_revenue, COUNT(*) as invoice_count FROM invoices;`)
		require.NoError(t, err)
		assert.Equal(t, []string{"total_revenue", "invoice_count"}, res.Columns)
		require.Len(t, res.Rows, 1)
		assert.InDelta(t, 150.0, res.Rows[0][0], 1e-9)
		assert.Equal(t, int64(2), res.Rows[0][1])

		res, err = exec.Execute(ctx, `SELECT id, "issueDate" FROM invoices ORDER BY "issueDate" LIMIT 1;`)
		require.NoError(t, err)
		assert.Equal(t, "0190f1c2-7b3a-7cde-8f00-112233445566", res.Rows[0][0])
		assert.Equal(t, "2024-01-10T00:00:00Z", res.Rows[0][1])
	})

	t.Run("executor returns database errors", func(t *testing.T) {
		exec := NewSQLExecutor(pool, time.Second)

		_, err := exec.Execute(ctx, `SELECT SUM(totalAmount) AS total_revenue FROM invoices;`)
		require.Error(t, err)
		assert.NotErrorIs(t, err, apperrors.ErrExecution, "wrapping into ExecutionError happens in the service")
	})

	t.Run("ping", func(t *testing.T) {
		require.NoError(t, NewSQLExecutor(pool, 0).Ping(ctx))
	})
}
