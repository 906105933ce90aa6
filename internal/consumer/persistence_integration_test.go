//go:build integration

package consumer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/exercisetracker/internal/persistence/postgres"
)

func TestPersistenceHandlerStoresEventOnce(t *testing.T) {
	ctx := context.Background()
	pool := setupPostgres(t, ctx)

	handler := NewPersistenceHandler(pool)

	payload := json.RawMessage(`{"user_id":"65a1f0c2e4b0a1b2c3d4e5f6","description":"run"}`)
	msg := Message{
		EventType:   "exercise.logged",
		AggregateID: "65a1f0c2e4b0a1b2c3d4e5f6",
		Key:         "65a1f0c2e4b0a1b2c3d4e5f6",
		Topic:       "exercise_events",
		Partition:   0,
		Offset:      5,
		Payload:     payload,
		Timestamp:   time.Now().UTC(),
	}

	require.NoError(t, handler.Handle(ctx, msg))
	require.NoError(t, handler.Handle(ctx, msg))

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM exercise_event_log`).Scan(&count))
	require.Equal(t, 1, count)

	var storedPayload []byte
	require.NoError(t, pool.QueryRow(ctx, `SELECT payload FROM exercise_event_log LIMIT 1`).Scan(&storedPayload))
	require.JSONEq(t, string(payload), string(storedPayload))
}

func setupPostgres(t *testing.T, ctx context.Context) *pgxpool.Pool {
	t.Helper()

	pg, err := postgrescontainer.Run(ctx, "postgres:16-alpine",
		postgrescontainer.WithDatabase("exercise"),
		postgrescontainer.WithUsername("platform"),
		postgrescontainer.WithPassword("platform"),
		postgrescontainer.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(context.Background()) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, postgres.NewRepository(pool).Migrate(ctx))
	return pool
}
