// Package storetest holds the behaviour every domain.Store implementation must satisfy.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/exercisetracker/internal/domain"
)

// Factory returns a fresh, empty store for a single subtest.
type Factory func(t *testing.T) domain.Store

// Run exercises the store contract against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("CreateUserAssignsIdentity", func(t *testing.T) {
		store := newStore(t)
		user, err := store.CreateUser(context.Background(), "alice")
		require.NoError(t, err)
		require.True(t, domain.ValidIdentity(user.ID), "identity %q", user.ID)
		require.Equal(t, "alice", user.Username)
		require.Empty(t, user.Exercises)
	})

	t.Run("CreateUserRejectsDuplicateUsername", func(t *testing.T) {
		store := newStore(t)
		_, err := store.CreateUser(context.Background(), "bob")
		require.NoError(t, err)

		_, err = store.CreateUser(context.Background(), "bob")
		require.ErrorIs(t, err, domain.ErrUsernameTaken)
	})

	t.Run("LookupsMissReturnNil", func(t *testing.T) {
		store := newStore(t)
		user, err := store.FindUserByUsername(context.Background(), "nobody")
		require.NoError(t, err)
		require.Nil(t, user)

		user, err = store.GetUser(context.Background(), domain.NewIdentity())
		require.NoError(t, err)
		require.Nil(t, user)
	})

	t.Run("FindUserByUsername", func(t *testing.T) {
		store := newStore(t)
		created, err := store.CreateUser(context.Background(), "carol")
		require.NoError(t, err)

		found, err := store.FindUserByUsername(context.Background(), "carol")
		require.NoError(t, err)
		require.NotNil(t, found)
		require.Equal(t, created.ID, found.ID)
	})

	t.Run("AppendExerciseUnknownUser", func(t *testing.T) {
		store := newStore(t)
		_, err := store.AppendExercise(context.Background(), domain.NewIdentity(), exerciseAt("run", 1))
		require.ErrorIs(t, err, domain.ErrUnknownUser)
	})

	t.Run("AppendExercisePreservesInsertionOrder", func(t *testing.T) {
		store := newStore(t)
		user, err := store.CreateUser(context.Background(), "dave")
		require.NoError(t, err)

		// Dates deliberately run backwards to show order is not re-sorted.
		const n = 5
		for i := 0; i < n; i++ {
			updated, err := store.AppendExercise(context.Background(), user.ID, exerciseAt(fmt.Sprintf("ex-%d", i), n-i))
			require.NoError(t, err)
			require.Len(t, updated.Exercises, i+1)
		}

		stored, err := store.GetUser(context.Background(), user.ID)
		require.NoError(t, err)
		require.Len(t, stored.Exercises, n)
		for i, ex := range stored.Exercises {
			want := exerciseAt(fmt.Sprintf("ex-%d", i), n-i)
			require.Equal(t, want.Description, ex.Description)
			require.Equal(t, want.Duration, ex.Duration)
			require.True(t, want.Date.Equal(ex.Date), "date %s != %s", ex.Date, want.Date)
		}
	})

	t.Run("ConcurrentAppendsAreNotLost", func(t *testing.T) {
		store := newStore(t)
		user, err := store.CreateUser(context.Background(), "erin")
		require.NoError(t, err)

		const workers = 16
		var wg sync.WaitGroup
		errs := make(chan error, workers)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if _, err := store.AppendExercise(context.Background(), user.ID, exerciseAt(fmt.Sprintf("c-%d", i), i+1)); err != nil {
					errs <- err
				}
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		stored, err := store.GetUser(context.Background(), user.ID)
		require.NoError(t, err)
		require.Len(t, stored.Exercises, workers)
	})

	t.Run("ConcurrentRegistrationHasOneWinner", func(t *testing.T) {
		store := newStore(t)

		const workers = 8
		var (
			wg    sync.WaitGroup
			mu    sync.Mutex
			wins  int
			taken int
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.CreateUser(context.Background(), "frank")
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					wins++
				case errors.Is(err, domain.ErrUsernameTaken):
					taken++
				}
			}()
		}
		wg.Wait()
		require.Equal(t, 1, wins)
		require.Equal(t, workers-1, taken)
	})

	t.Run("ListUsersInCreationOrder", func(t *testing.T) {
		store := newStore(t)
		for _, name := range []string{"gina", "hank", "ivy"} {
			_, err := store.CreateUser(context.Background(), name)
			require.NoError(t, err)
		}

		users, err := store.ListUsers(context.Background())
		require.NoError(t, err)
		require.Len(t, users, 3)
		require.Equal(t, "gina", users[0].Username)
		require.Equal(t, "hank", users[1].Username)
		require.Equal(t, "ivy", users[2].Username)
	})
}

func exerciseAt(description string, day int) domain.Exercise {
	return domain.Exercise{
		Description: description,
		Duration:    float64(10 * day),
		Date:        time.Date(2023, time.January, day, 7, 30, 0, 0, time.UTC),
	}
}
