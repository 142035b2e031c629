// Package identity owns user records and credentials and issues bearer
// tokens. Nothing outside this package sees password hashes or verification
// codes; the rest of the system consumes only signed tokens and public keys.
package identity

import (
	"context"
	"fmt"

	"github.com/wildrydes/dispatch/internal/domain"
)

// UserStore persists user records. Implementations: memory, postgres.
type UserStore interface {
	// CreateUser inserts a new user. Returns domain.ErrConflict when the
	// email (case-insensitive) is already registered.
	CreateUser(ctx context.Context, u *domain.User) error

	// GetUserByEmail looks up by lowercased email. Returns domain.ErrNotFound.
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// GetUserByID looks up by ID. Returns domain.ErrNotFound.
	GetUserByID(ctx context.Context, id string) (*domain.User, error)

	// SetEmailVerified flips the verification flag.
	SetEmailVerified(ctx context.Context, id string, verified bool) error

	// Ping checks backend liveness.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close()
}

// StoreConfig selects and parameterizes a UserStore driver.
type StoreConfig struct {
	Driver   string // "memory" | "postgres"
	DSN      string
	MaxConns int
	MinConns int
}

// NewUserStore builds the configured driver.
func NewUserStore(ctx context.Context, cfg StoreConfig) (UserStore, error) {
	switch cfg.Driver {
	case "postgres":
		return NewPGStore(ctx, cfg)
	case "memory", "":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("identity: unknown storage driver %q", cfg.Driver)
	}
}
