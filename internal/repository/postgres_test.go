package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/telhawk-systems/schoolhub/migrations"
)

// setupTestDatabase starts a PostgreSQL container and applies the embedded
// migrations. Each call gets a fresh database.
func setupTestDatabase(t *testing.T) *PostgresRepository {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("schoolhub_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err, "failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	_, _, err = migrations.Up(connStr)
	require.NoError(t, err, "failed to run migrations")

	repo, err := NewPostgresRepository(ctx, connStr, PoolConfig{MaxConns: 10})
	require.NoError(t, err)
	t.Cleanup(repo.Close)

	return repo
}

func TestPostgresRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping PostgreSQL integration test in short mode")
	}

	runContract(t, func(t *testing.T) Repository {
		return setupTestDatabase(t)
	})
}

func TestMigrations_DownAndUp(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping PostgreSQL integration test in short mode")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("schoolhub_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	defer func() { _ = container.Terminate(ctx) }()

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	version, dirty, err := migrations.Up(connStr)
	require.NoError(t, err)
	require.Equal(t, uint(1), version)
	require.False(t, dirty)

	version, _, err = migrations.Down(connStr, 0)
	require.NoError(t, err)
	require.Equal(t, uint(0), version)

	version, _, err = migrations.Up(connStr)
	require.NoError(t, err)
	require.Equal(t, uint(1), version)
}
