//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/alanyoungcy/marketgroups/internal/domain"
)

// setupTestDB starts a PostgreSQL container and returns a migrated Client.
func setupTestDB(t *testing.T) *Client {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("marketgroups"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	client, err := New(ctx, ClientConfig{DSN: dsn})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	require.NoError(t, client.RunMigrations(ctx))
	// A second run is a no-op.
	require.NoError(t, client.RunMigrations(ctx))
	return client
}

func TestOperatorSettingsStore(t *testing.T) {
	client := setupTestDB(t)
	store := NewOperatorSettingsStore(client.Pool())
	ctx := context.Background()

	_, err := store.Get(ctx, "acme")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	require.NoError(t, store.Upsert(ctx, domain.OperatorSettings{
		Operator:               "acme",
		UngroupedMarketTypeIDs: []string{"7", "12"},
	}))
	got, err := store.Get(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, []string{"7", "12"}, got.UngroupedMarketTypeIDs)
	assert.False(t, got.UpdatedAt.IsZero())

	require.NoError(t, store.Upsert(ctx, domain.OperatorSettings{Operator: "acme"}))
	got, err = store.Get(ctx, "acme")
	require.NoError(t, err)
	assert.Empty(t, got.UngroupedMarketTypeIDs)

	require.NoError(t, store.Upsert(ctx, domain.OperatorSettings{Operator: "beta", UngroupedMarketTypeIDs: []string{"1"}}))
	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "acme", all[0].Operator)
	assert.Equal(t, "beta", all[1].Operator)
}
