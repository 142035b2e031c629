package domain

import "errors"

// Sentinel errors. Stores and services return these (wrapped with context);
// the gateway is the only place they become HTTP status codes.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")

	// ErrStorage marks a ledger/store backend failure: timeout, connection
	// loss, constraint trouble. Never caused by client input.
	ErrStorage = errors.New("storage failure")

	ErrInvalidEmail      = errors.New("invalid email address")
	ErrNotVerified       = errors.New("email not verified")
	ErrInvalidCode       = errors.New("invalid verification code")
	ErrCodeExpired       = errors.New("verification code expired")
	ErrInvalidCredential = errors.New("invalid credentials")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

func IsStorage(err error) bool { return errors.Is(err, ErrStorage) }
