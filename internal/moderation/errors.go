package moderation

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a user has no warnings to operate on.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is returned when the caller lacks moderator capability.
	ErrUnauthorized = errors.New("moderator capability required")
	// ErrInvalidArgument covers empty users, empty reasons and bad policies.
	ErrInvalidArgument = errors.New("invalid argument")
)

// StoreError wraps a persistence failure with the operation and user it hit.
type StoreError struct {
	Op   string
	User string
	Err  error
}

func (e *StoreError) Error() string {
	if e.User == "" {
		return fmt.Sprintf("store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("store %s %s: %v", e.Op, e.User, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op, user string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	storeErrors.WithLabelValues(op).Inc()
	return &StoreError{Op: op, User: user, Err: err}
}

// IsStoreError reports whether err came from the persistence layer.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
