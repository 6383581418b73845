package domain

import "errors"

var (
	// ErrUnauthorized is returned when no valid identity accompanies a request.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidInput is returned for malformed or semantically invalid requests.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned when an entity is absent or not owned by the caller.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState is returned when an operation is not permitted in the
	// session's current lifecycle state.
	ErrInvalidState = errors.New("invalid state")
	// ErrNoWords is returned when a test would start over an empty word set.
	ErrNoWords = errors.New("no words available")
	// ErrUsernameTaken is returned when registering a duplicate username.
	ErrUsernameTaken = errors.New("username already exists")
	// ErrBadCredentials is returned on a failed login.
	ErrBadCredentials = errors.New("invalid credentials")
)
