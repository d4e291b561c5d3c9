// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

//go:build testcontainers

package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/z5labs/drivethru/order"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:17-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "drivethru",
				"POSTGRES_PASSWORD": "drivethru",
				"POSTGRES_DB":       "drivethru",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, fmt.Sprintf("postgres://drivethru:drivethru@%s:%s/drivethru?sslmode=disable", host, port.Port()))
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, Migrate(ctx, pool))
	return pool
}

func TestPostgres(t *testing.T) {
	pool := startPostgres(t)

	testLedger(t, func(t *testing.T) Ledger {
		_, err := pool.Exec(context.Background(), `TRUNCATE history`)
		require.NoError(t, err)

		l := NewPostgres(pool)
		l.now = fixedClock
		return l
	})

	t.Run("will be idempotent to migrate twice", func(t *testing.T) {
		require.NoError(t, Migrate(context.Background(), pool))
	})

	t.Run("will serialize concurrent commands", func(t *testing.T) {
		_, err := pool.Exec(context.Background(), `TRUNCATE history`)
		require.NoError(t, err)
		l := NewPostgres(pool)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := l.Apply(context.Background(), PlaceOrder{Items: []order.Item{burger}})
				require.NoError(t, err)
			}()
		}
		wg.Wait()

		totals, err := l.Totals(context.Background())
		require.NoError(t, err)
		require.Equal(t, 10, totals.Burger)

		history, err := l.History(context.Background())
		require.NoError(t, err)
		require.Len(t, history, 10)
		require.Equal(t, 10, history[9].ID)
	})
}
