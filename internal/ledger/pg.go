package ledger

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wildrydes/dispatch/internal/domain"
)

// PG is the Postgres ledger. One row per ride; the primary key makes the put
// atomic per RideId.
type PG struct {
	pool *pgxpool.Pool
}

const rideSchema = `
CREATE TABLE IF NOT EXISTS ride (
    ride_id      TEXT PRIMARY KEY,
    rider_id     TEXT NOT NULL,
    pickup_lat   DOUBLE PRECISION NOT NULL,
    pickup_lon   DOUBLE PRECISION NOT NULL,
    unicorn_name TEXT NOT NULL,
    unicorn_color TEXT NOT NULL,
    request_time TIMESTAMPTZ NOT NULL
);
`

// NewPG opens a pool and ensures the ride table.
func NewPG(ctx context.Context, dsn string) (*PG, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}
	if _, err := pool.Exec(ctx, rideSchema); err != nil {
		pool.Close()
		return nil, err
	}
	return &PG{pool: pool}, nil
}

func (p *PG) Put(ctx context.Context, ride *domain.Ride) error {
	const q = `INSERT INTO ride (ride_id, rider_id, pickup_lat, pickup_lon, unicorn_name, unicorn_color, request_time)
	           VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := p.pool.Exec(ctx, q,
		ride.RideID, ride.RiderID,
		ride.PickupLocation.Latitude, ride.PickupLocation.Longitude,
		ride.Unicorn.Name, ride.Unicorn.Color,
		ride.RequestTime,
	)
	if err != nil {
		return storageErr("put", err)
	}
	return nil
}

func (p *PG) Get(ctx context.Context, rideID string) (*domain.Ride, error) {
	const q = `SELECT ride_id, rider_id, pickup_lat, pickup_lon, unicorn_name, unicorn_color, request_time
	           FROM ride WHERE ride_id = $1 LIMIT 1`
	var r domain.Ride
	err := p.pool.QueryRow(ctx, q, rideID).Scan(
		&r.RideID, &r.RiderID,
		&r.PickupLocation.Latitude, &r.PickupLocation.Longitude,
		&r.Unicorn.Name, &r.Unicorn.Color,
		&r.RequestTime,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, storageErr("get", err)
	}
	return &r, nil
}

func (p *PG) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }

func (p *PG) Close() { p.pool.Close() }
