package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	rdb "github.com/redis/go-redis/v9"

	"github.com/wildrydes/dispatch/internal/domain"
)

// Redis stores each ride as a JSON value under its RideId. SET is atomic per
// key, which is all the contract asks for.
type Redis struct {
	prefix string
	c      *rdb.Client
}

// NewRedis connects and pings the backend.
func NewRedis(cfg Config) (*Redis, error) {
	c := rdb.NewClient(&rdb.Options{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, err
	}
	prefix := cfg.Redis.Prefix
	if prefix == "" {
		prefix = "ride:"
	}
	return &Redis{prefix: prefix, c: c}, nil
}

func (r *Redis) key(rideID string) string { return r.prefix + rideID }

func (r *Redis) Put(ctx context.Context, ride *domain.Ride) error {
	b, err := json.Marshal(ride)
	if err != nil {
		return storageErr("put", err)
	}
	// rides are immutable; no TTL
	if err := r.c.Set(ctx, r.key(ride.RideID), b, 0).Err(); err != nil {
		return storageErr("put", err)
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, rideID string) (*domain.Ride, error) {
	b, err := r.c.Get(ctx, r.key(rideID)).Bytes()
	if errors.Is(err, rdb.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get", err)
	}
	var ride domain.Ride
	if err := json.Unmarshal(b, &ride); err != nil {
		return nil, storageErr("get", err)
	}
	return &ride, nil
}

func (r *Redis) Ping(ctx context.Context) error { return r.c.Ping(ctx).Err() }

func (r *Redis) Close() { _ = r.c.Close() }
