package domain_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"example.com/exercisetracker/internal/domain"
	"example.com/exercisetracker/internal/persistence/memory"
)

var fixedNow = time.Date(2024, time.March, 15, 9, 30, 0, 0, time.UTC)

func newService(store domain.Store) *domain.Service {
	return domain.NewService(store, domain.WithClock(clockwork.NewFakeClockAt(fixedNow)))
}

func TestRegisterUserTrimsAndRejectsDuplicates(t *testing.T) {
	svc := newService(memory.NewStore())
	ctx := context.Background()

	user, err := svc.RegisterUser(ctx, "  alice ")
	require.NoError(t, err)
	require.Equal(t, "alice", user.Username)
	require.True(t, domain.ValidIdentity(user.ID))

	_, err = svc.RegisterUser(ctx, "alice")
	require.ErrorIs(t, err, domain.ErrUsernameTaken)

	_, err = svc.RegisterUser(ctx, "   ")
	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)
	require.Equal(t, "username", validation.Field)
}

func TestAppendExerciseDefaultsDateToNow(t *testing.T) {
	svc := newService(memory.NewStore())
	ctx := context.Background()

	user, err := svc.RegisterUser(ctx, "alice")
	require.NoError(t, err)

	updated, exercise, err := svc.AppendExercise(ctx, domain.AppendExerciseInput{
		UserID:      user.ID,
		Description: "run",
		Duration:    30,
	})
	require.NoError(t, err)
	require.Equal(t, fixedNow, exercise.Date)
	require.Len(t, updated.Exercises, 1)

	date := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
	updated, exercise, err = svc.AppendExercise(ctx, domain.AppendExerciseInput{
		UserID:      user.ID,
		Description: "swim",
		Duration:    45,
		Date:        &date,
	})
	require.NoError(t, err)
	require.Equal(t, date, exercise.Date)
	require.Len(t, updated.Exercises, 2)
	require.Equal(t, "swim", updated.Exercises[1].Description)
}

func TestAppendExerciseValidation(t *testing.T) {
	svc := newService(untouchableStore{t: t})
	ctx := context.Background()

	_, _, err := svc.AppendExercise(ctx, domain.AppendExerciseInput{UserID: "short", Description: "run", Duration: 1})
	require.ErrorIs(t, err, domain.ErrInvalidIdentity)

	_, _, err = svc.AppendExercise(ctx, domain.AppendExerciseInput{UserID: domain.NewIdentity(), Description: " ", Duration: 1})
	var validation *domain.ValidationError
	require.ErrorAs(t, err, &validation)
	require.Equal(t, "description", validation.Field)

	_, _, err = svc.AppendExercise(ctx, domain.AppendExerciseInput{UserID: domain.NewIdentity(), Description: "run", Duration: -1})
	require.ErrorAs(t, err, &validation)
	require.Equal(t, "duration", validation.Field)

	_, err = svc.Log(ctx, "not-hex-at-all-but-24-ch", domain.LogFilter{})
	require.ErrorIs(t, err, domain.ErrInvalidIdentity)
}

func TestUnknownUser(t *testing.T) {
	svc := newService(memory.NewStore())
	ctx := context.Background()

	_, _, err := svc.AppendExercise(ctx, domain.AppendExerciseInput{UserID: domain.NewIdentity(), Description: "run", Duration: 1})
	require.ErrorIs(t, err, domain.ErrUnknownUser)

	_, err = svc.Log(ctx, domain.NewIdentity(), domain.LogFilter{})
	require.ErrorIs(t, err, domain.ErrUnknownUser)
}

func TestStoreFailuresAreWrapped(t *testing.T) {
	cause := errors.New("disk on fire")
	svc := newService(failingStore{err: cause})
	ctx := context.Background()

	_, err := svc.RegisterUser(ctx, "alice")
	var storeErr *domain.StoreError
	require.ErrorAs(t, err, &storeErr)
	require.Equal(t, "find_user_by_username", storeErr.Op)
	require.ErrorIs(t, err, cause)

	_, err = svc.ListUsers(ctx)
	require.ErrorAs(t, err, &storeErr)
	require.Equal(t, "list_users", storeErr.Op)
}

func TestStoreCallsAreBounded(t *testing.T) {
	svc := domain.NewService(blockingStore{}, domain.WithStoreTimeout(20*time.Millisecond))

	_, err := svc.ListUsers(context.Background())
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLogAppliesFilter(t *testing.T) {
	svc := newService(memory.NewStore())
	ctx := context.Background()

	user, err := svc.RegisterUser(ctx, "alice")
	require.NoError(t, err)
	for _, raw := range []string{"2023-01-01", "2023-02-01", "2023-03-01"} {
		date, err := domain.ParseDate(raw)
		require.NoError(t, err)
		_, _, err = svc.AppendExercise(ctx, domain.AppendExerciseInput{UserID: user.ID, Description: raw, Duration: 10, Date: &date})
		require.NoError(t, err)
	}

	from, err := domain.ParseDateParam("2023-01-01")
	require.NoError(t, err)
	view, err := svc.Log(ctx, user.ID, domain.LogFilter{From: from})
	require.NoError(t, err)
	require.Equal(t, 2, view.Count)
	require.Equal(t, "2023-01-01", view.From)
	require.Equal(t, "Wed Feb 01 2023", view.Log[0].Date)
}

// untouchableStore fails the test if the service reaches the store.
type untouchableStore struct {
	t *testing.T
}

func (s untouchableStore) touched() {
	s.t.Helper()
	s.t.Fatalf("store must not be called for rejected input")
}

func (s untouchableStore) CreateUser(context.Context, string) (*domain.User, error) {
	s.touched()
	return nil, nil
}

func (s untouchableStore) FindUserByUsername(context.Context, string) (*domain.User, error) {
	s.touched()
	return nil, nil
}

func (s untouchableStore) GetUser(context.Context, string) (*domain.User, error) {
	s.touched()
	return nil, nil
}

func (s untouchableStore) ListUsers(context.Context) ([]domain.User, error) {
	s.touched()
	return nil, nil
}

func (s untouchableStore) AppendExercise(context.Context, string, domain.Exercise) (*domain.User, error) {
	s.touched()
	return nil, nil
}

type failingStore struct {
	err error
}

func (f failingStore) CreateUser(context.Context, string) (*domain.User, error) {
	return nil, f.err
}

func (f failingStore) FindUserByUsername(context.Context, string) (*domain.User, error) {
	return nil, f.err
}

func (f failingStore) GetUser(context.Context, string) (*domain.User, error) {
	return nil, f.err
}

func (f failingStore) ListUsers(context.Context) ([]domain.User, error) {
	return nil, f.err
}

func (f failingStore) AppendExercise(context.Context, string, domain.Exercise) (*domain.User, error) {
	return nil, f.err
}

// blockingStore waits for the caller's deadline.
type blockingStore struct {
	failingStore
}

func (blockingStore) ListUsers(ctx context.Context) ([]domain.User, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
