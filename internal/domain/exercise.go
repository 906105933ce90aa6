package domain

import "time"

// Exercise is a single logged workout entry. It is owned by exactly one User
// and never changes after it is appended.
type Exercise struct {
	Description string
	Duration    float64
	Date        time.Time
}

// User is the canonical tracker record: a unique username and the ordered
// list of exercises appended to it.
type User struct {
	ID        string
	Username  string
	Exercises []Exercise
	CreatedAt time.Time
}
