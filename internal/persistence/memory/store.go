// Package memory provides an in-process Record Store for local development and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"example.com/exercisetracker/internal/domain"
)

// Store keeps users in memory. A single lock guards every read-modify-write
// so appends to the same user never lose entries.
type Store struct {
	mu         sync.RWMutex
	users      map[string]*domain.User
	byUsername map[string]string
	order      []string
	now        func() time.Time
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		users:      make(map[string]*domain.User),
		byUsername: make(map[string]string),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// CreateUser implements domain.Store.
func (s *Store) CreateUser(ctx context.Context, username string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byUsername[username]; taken {
		return nil, domain.ErrUsernameTaken
	}

	user := &domain.User{
		ID:        domain.NewIdentity(),
		Username:  username,
		Exercises: []domain.Exercise{},
		CreatedAt: s.now(),
	}
	s.users[user.ID] = user
	s.byUsername[username] = user.ID
	s.order = append(s.order, user.ID)
	return clone(user), nil
}

// FindUserByUsername implements domain.Store.
func (s *Store) FindUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[username]
	if !ok {
		return nil, nil
	}
	return clone(s.users[id]), nil
}

// GetUser implements domain.Store.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return clone(user), nil
}

// ListUsers implements domain.Store.
func (s *Store) ListUsers(ctx context.Context) ([]domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.User, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *clone(s.users[id]))
	}
	return out, nil
}

// AppendExercise implements domain.Store.
func (s *Store) AppendExercise(ctx context.Context, id string, exercise domain.Exercise) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUnknownUser
	}
	user.Exercises = append(user.Exercises, exercise)
	return clone(user), nil
}

// Close is a no-op kept for lifecycle symmetry with the database stores.
func (s *Store) Close(context.Context) error { return nil }

func clone(user *domain.User) *domain.User {
	out := *user
	out.Exercises = make([]domain.Exercise, len(user.Exercises))
	copy(out.Exercises, user.Exercises)
	return &out
}
