package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUsernameTaken is returned when a username is already registered.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrInvalidIdentity is returned for identities that do not have the store's shape.
	ErrInvalidIdentity = errors.New("invalid user identity")
	// ErrUnknownUser is returned when a well-formed identity matches no user.
	ErrUnknownUser = errors.New("unknown user")
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// StoreError wraps a failure of the underlying Record Store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// storeErr passes domain errors through untouched and wraps everything else.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrUsernameTaken) || errors.Is(err, ErrUnknownUser) || errors.Is(err, ErrInvalidIdentity) {
		return err
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
