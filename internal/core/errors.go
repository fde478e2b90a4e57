package core

import "errors"

// Domain error taxonomy. The HTTP layer maps these to status codes in one
// place; everything below it wraps with %w and lets errors.Is do the work.
var (
	ErrInvalidURL        = errors.New("invalid url")
	ErrInvalidExpiration = errors.New("expiration must be in the future")
	ErrAliasInvalid      = errors.New("alias must be 3-20 letters or digits")
	ErrAliasTaken        = errors.New("alias already taken")
	ErrCapacityExhausted = errors.New("could not allocate a unique short code")
	ErrNotFound          = errors.New("url not found")
	ErrGone              = errors.New("url has expired")
	ErrForbidden         = errors.New("url belongs to another user")

	// ErrStorageUnavailable wraps durable-store I/O failures. Never retried
	// silently; the caller decides backoff policy.
	ErrStorageUnavailable = errors.New("storage unavailable")

	ErrUserExists         = errors.New("username already registered")
	ErrInvalidCredentials = errors.New("invalid username or password")
)
