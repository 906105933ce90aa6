//go:build integration

package mongodb

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	mongocontainer "github.com/testcontainers/testcontainers-go/modules/mongodb"

	"example.com/exercisetracker/internal/domain"
	"example.com/exercisetracker/internal/persistence/storetest"
)

func TestStoreContract(t *testing.T) {
	ctx := context.Background()

	container, err := mongocontainer.Run(ctx, "mongo:7")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	storetest.Run(t, func(t *testing.T) domain.Store {
		database := "tracker_" + strings.ReplaceAll(uuid.NewString(), "-", "")
		store, err := Connect(ctx, uri, database)
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close(ctx) })
		return store
	})
}
