// Package events defines the payloads published for tracker state changes.
package events

import "time"

const (
	TypeUserRegistered = "user.registered"
	TypeExerciseLogged = "exercise.logged"
)

// UserRegistered is emitted once a username has been claimed.
type UserRegistered struct {
	EventID    string    `json:"event_id"`
	UserID     string    `json:"user_id"`
	Username   string    `json:"username"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ExerciseLogged is emitted for every exercise appended to a user's log.
type ExerciseLogged struct {
	EventID     string    `json:"event_id"`
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	Description string    `json:"description"`
	Duration    float64   `json:"duration"`
	Date        time.Time `json:"date"`
	Sequence    int64     `json:"sequence"`
	OccurredAt  time.Time `json:"occurred_at"`
}
