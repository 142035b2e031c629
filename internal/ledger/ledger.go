// Package ledger is the durable key-value store of ride records, keyed by
// RideId. Writes are atomic per key; distinct keys never interfere; there are
// no cross-record transactions.
//
// Drivers report typed failures only: a failed or timed-out put is
// domain.ErrStorage, a missing key on get is domain.ErrNotFound. Raw
// transport errors stay wrapped underneath for logs.
package ledger

import (
	"context"
	"fmt"

	"github.com/wildrydes/dispatch/internal/domain"
)

// Store is the ride ledger contract.
type Store interface {
	// Put durably records one ride. The ride must not become partially
	// visible on failure.
	Put(ctx context.Context, ride *domain.Ride) error

	// Get returns the ride for rideID, or domain.ErrNotFound.
	Get(ctx context.Context, rideID string) (*domain.Ride, error)

	// Ping checks backend liveness.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close()
}

// Config selects and parameterizes a driver.
type Config struct {
	Driver string // "memory" | "postgres" | "redis"
	DSN    string // postgres
	Redis  struct {
		Addr   string
		DB     int
		Prefix string
	}
}

// New builds the configured driver.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "postgres":
		return NewPG(ctx, cfg.DSN)
	case "redis":
		return NewRedis(cfg)
	case "memory", "":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("ledger: unknown driver %q", cfg.Driver)
	}
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", domain.ErrStorage, op, err)
}
