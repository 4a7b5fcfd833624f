package lock

import "errors"

var (
	// ErrLockTimeout is returned when a user's lock stays busy past the timeout.
	ErrLockTimeout = errors.New("lock acquisition timeout")
)
