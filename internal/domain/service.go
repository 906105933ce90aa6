// Package domain defines the business logic for the exercise tracker.
package domain

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"example.com/exercisetracker/internal/observability"
)

const defaultStoreTimeout = 5 * time.Second

// Store captures the Record Store operations the service relies on.
// Lookups return (nil, nil) when nothing matches.
type Store interface {
	CreateUser(ctx context.Context, username string) (*User, error)
	FindUserByUsername(ctx context.Context, username string) (*User, error)
	GetUser(ctx context.Context, id string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	// AppendExercise atomically pushes one exercise onto the user's list and
	// returns the updated user, or ErrUnknownUser.
	AppendExercise(ctx context.Context, id string, exercise Exercise) (*User, error)
}

// Service orchestrates user registration, exercise logging and log queries.
type Service struct {
	store        Store
	clock        clockwork.Clock
	storeTimeout time.Duration
}

// Option configures optional behaviour for the Service.
type Option func(*Service)

// WithClock overrides the clock used to date exercises logged without a date.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// WithStoreTimeout bounds every store call.
func WithStoreTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.storeTimeout = d
		}
	}
}

// NewService constructs a Service.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:        store,
		clock:        clockwork.NewRealClock(),
		storeTimeout: defaultStoreTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterUser creates a user with a unique username.
func (s *Service) RegisterUser(ctx context.Context, username string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, &ValidationError{Field: "username", Message: "Username cannot be empty"}
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	existing, err := s.store.FindUserByUsername(ctx, username)
	if err != nil {
		return nil, s.fail("find_user_by_username", err)
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}

	// The store's uniqueness constraint rejects a concurrent duplicate that
	// slipped past the check above.
	user, err := s.store.CreateUser(ctx, username)
	if err != nil {
		return nil, s.fail("create_user", err)
	}
	observability.RecordUserRegistered()
	return user, nil
}

// AppendExerciseInput captures the payload from the API layer.
type AppendExerciseInput struct {
	UserID      string
	Description string
	Duration    float64
	Date        *time.Time
}

// AppendExercise validates the input and appends one exercise to the user.
func (s *Service) AppendExercise(ctx context.Context, input AppendExerciseInput) (*User, *Exercise, error) {
	if !ValidIdentity(input.UserID) {
		return nil, nil, ErrInvalidIdentity
	}
	if strings.TrimSpace(input.Description) == "" {
		return nil, nil, &ValidationError{Field: "description", Message: "description is required"}
	}
	if math.IsNaN(input.Duration) || math.IsInf(input.Duration, 0) || input.Duration < 0 {
		return nil, nil, &ValidationError{Field: "duration", Message: "duration must be a non-negative number"}
	}

	date := s.clock.Now().UTC()
	if input.Date != nil {
		date = input.Date.UTC()
	}
	exercise := Exercise{
		Description: input.Description,
		Duration:    input.Duration,
		Date:        date,
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	user, err := s.store.AppendExercise(ctx, input.UserID, exercise)
	if err != nil {
		return nil, nil, s.fail("append_exercise", err)
	}
	if user == nil {
		return nil, nil, ErrUnknownUser
	}
	observability.RecordExerciseAppended(date)
	return user, &exercise, nil
}

// GetUser fetches by identity.
func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	if !ValidIdentity(id) {
		return nil, ErrInvalidIdentity
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, s.fail("get_user", err)
	}
	if user == nil {
		return nil, ErrUnknownUser
	}
	return user, nil
}

// ListUsers returns every registered user in creation order.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, s.fail("list_users", err)
	}
	return users, nil
}

// Log loads the user and renders the filtered log view.
func (s *Service) Log(ctx context.Context, id string, filter LogFilter) (LogView, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return LogView{}, err
	}
	observability.RecordLogQuery()
	return FormatLog(*user, filter), nil
}

func (s *Service) fail(op string, err error) error {
	wrapped := storeErr(op, err)
	var se *StoreError
	if errors.As(wrapped, &se) {
		observability.RecordStoreError(op)
	}
	return wrapped
}
