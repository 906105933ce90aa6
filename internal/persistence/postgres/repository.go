package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/exercisetracker/internal/domain"
	"example.com/exercisetracker/internal/events"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

//go:embed schema.sql
var schemaSQL string

// Repository provides Postgres-backed persistence for users, exercises and outbox events.
type Repository struct {
	pool   *pgxpool.Pool
	outbox bool
	now    func() time.Time
}

// Option configures a Repository.
type Option func(*Repository)

// WithOutbox records user.registered and exercise.logged events in the
// outbox table inside the mutating transaction.
func WithOutbox() Option {
	return func(r *Repository) {
		r.outbox = true
	}
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool, opts ...Option) *Repository {
	r := &Repository{
		pool: pool,
		now:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Migrate applies the embedded schema. Statements are idempotent.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close releases the pool.
func (r *Repository) Close(context.Context) error {
	r.pool.Close()
	return nil
}

// CreateUser inserts a user. The unique constraint on username settles races
// between concurrent registrations.
func (r *Repository) CreateUser(ctx context.Context, username string) (user *domain.User, err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	created := domain.User{
		ID:        domain.NewIdentity(),
		Username:  username,
		Exercises: []domain.Exercise{},
	}

	const insertUser = `INSERT INTO users (user_id, username) VALUES ($1, $2) RETURNING created_at`
	if err = tx.QueryRow(ctx, insertUser, created.ID, created.Username).Scan(&created.CreatedAt); err != nil {
		return nil, translate(err)
	}

	if r.outbox {
		payload := events.UserRegistered{
			EventID:    uuid.NewString(),
			UserID:     created.ID,
			Username:   created.Username,
			OccurredAt: created.CreatedAt.UTC(),
		}
		if err = insertOutbox(ctx, tx, created.ID, events.TypeUserRegistered, created.ID, payload); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &created, nil
}

// FindUserByUsername returns the user with the username, or nil.
func (r *Repository) FindUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	const query = `SELECT user_id FROM users WHERE username = $1`

	var id string
	if err := r.pool.QueryRow(ctx, query, username).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return r.GetUser(ctx, id)
}

// GetUser loads a user together with its exercises in insertion order.
func (r *Repository) GetUser(ctx context.Context, id string) (*domain.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	tx, err := conn.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	user, err := loadUser(ctx, tx, id, false)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, tx.Commit(ctx)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return user, nil
}

// ListUsers returns every user in creation order without exercises.
func (r *Repository) ListUsers(ctx context.Context) ([]domain.User, error) {
	const query = `SELECT user_id, username, created_at FROM users ORDER BY seq`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(&user.ID, &user.Username, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// AppendExercise inserts one exercise row for the user and returns the
// updated record. Each append is its own row so concurrent appends cannot
// overwrite one another.
func (r *Repository) AppendExercise(ctx context.Context, id string, exercise domain.Exercise) (user *domain.User, err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	const lockUser = `SELECT username FROM users WHERE user_id = $1 FOR SHARE`
	var username string
	if err = tx.QueryRow(ctx, lockUser, id).Scan(&username); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = domain.ErrUnknownUser
		}
		return nil, err
	}

	const insertExercise = `INSERT INTO exercises (user_id, description, duration_min, performed_at)
        VALUES ($1,$2,$3,$4) RETURNING exercise_id`

	var seq int64
	if err = tx.QueryRow(ctx, insertExercise, id, exercise.Description, exercise.Duration, exercise.Date.UTC()).Scan(&seq); err != nil {
		return nil, translate(err)
	}

	if r.outbox {
		payload := events.ExerciseLogged{
			EventID:     uuid.NewString(),
			UserID:      id,
			Username:    username,
			Description: exercise.Description,
			Duration:    exercise.Duration,
			Date:        exercise.Date.UTC(),
			Sequence:    seq,
			OccurredAt:  r.now(),
		}
		dedupe := fmt.Sprintf("%s:%d", id, seq)
		if err = insertOutbox(ctx, tx, id, events.TypeExerciseLogged, dedupe, payload); err != nil {
			return nil, err
		}
	}

	user, err = loadUser(ctx, tx, id, true)
	if err != nil {
		return nil, err
	}
	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}
	return user, nil
}

func loadUser(ctx context.Context, tx pgx.Tx, id string, mustExist bool) (*domain.User, error) {
	const userQuery = `SELECT user_id, username, created_at FROM users WHERE user_id = $1`

	var user domain.User
	if err := tx.QueryRow(ctx, userQuery, id).Scan(&user.ID, &user.Username, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			if mustExist {
				return nil, domain.ErrUnknownUser
			}
			return nil, nil
		}
		return nil, err
	}

	const exerciseQuery = `SELECT description, duration_min, performed_at
        FROM exercises WHERE user_id = $1 ORDER BY exercise_id`

	rows, err := tx.Query(ctx, exerciseQuery, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	user.Exercises = make([]domain.Exercise, 0)
	for rows.Next() {
		var ex domain.Exercise
		if err := rows.Scan(&ex.Description, &ex.Duration, &ex.Date); err != nil {
			return nil, err
		}
		ex.Date = ex.Date.UTC()
		user.Exercises = append(user.Exercises, ex)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &user, nil
}

func insertOutbox(ctx context.Context, tx pgx.Tx, aggregateID, eventType, dedupe string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	meta, ok := eventCatalog[eventType]
	if !ok {
		return fmt.Errorf("unknown event type: %s", eventType)
	}

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`

	_, err = tx.Exec(ctx, stmt,
		"user",
		aggregateID,
		eventType,
		meta.Topic,
		aggregateID,
		body,
		fmt.Sprintf("%s:%s", eventType, dedupe),
	)
	return err
}

// translate maps constraint violations onto domain errors.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			if pgErr.ConstraintName == "users_username_key" {
				return domain.ErrUsernameTaken
			}
		case foreignKeyViolation:
			return domain.ErrUnknownUser
		}
		return fmt.Errorf("%s: %w", pgErr.Message, err)
	}
	return err
}

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic string
}

var eventCatalog = map[string]EventMetadata{
	events.TypeUserRegistered: {Topic: "user_events"},
	events.TypeExerciseLogged: {Topic: "exercise_events"},
}
