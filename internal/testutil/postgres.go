//go:build integration

// internal/testutil/postgres.go
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"userstore/pkg/db"
)

const postgresImage = "postgres:16-alpine"

// StartPostgres runs a throwaway PostgreSQL container and returns a db.Config
// pointing at it. The container is terminated when the test finishes.
func StartPostgres(t *testing.T) db.Config {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, postgresImage,
		postgres.WithDatabase("userdb_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return db.Config{
		Driver:   db.DriverPQ,
		Host:     host,
		Port:     port.Int(),
		User:     "test",
		Password: "test",
		DBName:   "userdb_test",
		SSLMode:  "disable",
	}
}
