// Package cache provides a small TTL key-value abstraction used for
// short-lived state (verification codes). Two drivers: in-process memory for
// dev/test and Redis for multi-instance deployments.
package cache

import (
	"context"
	"time"
)

// Client is the cache contract.
type Client interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Set stores value under key. A zero ttl means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Ping checks backend liveness.
	Ping(ctx context.Context) error

	// Close releases the backend connection.
	Close() error
}

// Config selects and parameterizes a driver.
type Config struct {
	Kind       string // "memory" | "redis"
	Addr       string
	DB         int
	Prefix     string
	DefaultTTL time.Duration
}

var ErrNotFound = errNotFound{}

type errNotFound struct{}

func (errNotFound) Error() string { return "cache: key not found" }

// IsNotFound reports whether err means the key was absent.
func IsNotFound(err error) bool {
	_, ok := err.(errNotFound)
	return ok
}

// New builds a Client for the configured driver. Unknown kinds fall back to
// memory, matching the dev-first defaults of the rest of the config.
func New(cfg Config) (Client, error) {
	switch cfg.Kind {
	case "redis":
		return NewRedis(cfg)
	default:
		return NewMemory(cfg.Prefix, cfg.DefaultTTL), nil
	}
}
