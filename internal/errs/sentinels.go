// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import (
	"errors"
	"time"
)

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates input rejected before reaching storage.
	ErrValidation = errors.New("validation")

	// ErrUnauthorized indicates failed authentication/authorization.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates an authenticated caller without a required role.
	ErrForbidden = errors.New("forbidden")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., email taken).
	ErrAlreadyExists = errors.New("already exists")
)

// Session failures. Each one wraps ErrUnauthorized so the HTTP layer can
// answer with a single "unauthorized" while logs keep the precise cause.
var (
	// ErrInvalidCredentials covers both unknown email and wrong password.
	ErrInvalidCredentials = wrap("invalid credentials")

	// ErrInvalidToken means the token failed signature, expiry or format checks.
	ErrInvalidToken = wrap("invalid token")

	// ErrMalformedToken means a verified token lacks sub or jti.
	ErrMalformedToken = wrap("malformed token")

	// ErrTokenRevoked means the refresh jti is no longer active for the user.
	ErrTokenRevoked = wrap("token revoked")

	// ErrUserNotFound means the token subject does not match any account.
	ErrUserNotFound = wrap("user not found")
)

type authError struct{ msg string }

func wrap(msg string) error { return &authError{msg: msg} }

func (e *authError) Error() string { return e.msg }

func (e *authError) Unwrap() error { return ErrUnauthorized }

// RateLimitError is ErrRateLimited with the time left until the lock lifts.
type RateLimitError struct {
	RetryAfter time.Duration
}

// RateLimited returns an error matching ErrRateLimited that carries retryAfter.
func RateLimited(retryAfter time.Duration) error {
	return &RateLimitError{RetryAfter: retryAfter}
}

func (e *RateLimitError) Error() string { return ErrRateLimited.Error() }

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }
