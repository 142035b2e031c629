package identity

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wildrydes/dispatch/internal/domain"
)

// PGStore is the Postgres UserStore.
type PGStore struct {
	pool *pgxpool.Pool
}

const userSchema = `
CREATE TABLE IF NOT EXISTS app_user (
    id             TEXT PRIMARY KEY,
    email          TEXT NOT NULL,
    email_verified BOOLEAN NOT NULL DEFAULT FALSE,
    password_hash  TEXT NOT NULL,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS app_user_email_uq ON app_user (LOWER(email));
`

// NewPGStore opens a pgx pool and ensures the schema.
func NewPGStore(ctx context.Context, cfg StoreConfig) (*PGStore, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		pcfg.MinConns = int32(cfg.MinConns)
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}
	if _, err := pool.Exec(ctx, userSchema); err != nil {
		pool.Close()
		return nil, err
	}
	return &PGStore{pool: pool}, nil
}

func (s *PGStore) CreateUser(ctx context.Context, u *domain.User) error {
	const q = `INSERT INTO app_user (id, email, email_verified, password_hash, created_at)
	           VALUES ($1, LOWER($2), $3, $4, $5)`
	_, err := s.pool.Exec(ctx, q, u.ID, u.Email, u.EmailVerified, u.PasswordHash, u.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return domain.ErrConflict
	}
	return err
}

func (s *PGStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	const q = `SELECT id, email, email_verified, password_hash, created_at
	           FROM app_user WHERE LOWER(email) = LOWER($1) LIMIT 1`
	return s.scanOne(ctx, q, email)
}

func (s *PGStore) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	const q = `SELECT id, email, email_verified, password_hash, created_at
	           FROM app_user WHERE id = $1 LIMIT 1`
	return s.scanOne(ctx, q, id)
}

func (s *PGStore) scanOne(ctx context.Context, q string, arg any) (*domain.User, error) {
	var u domain.User
	err := s.pool.QueryRow(ctx, q, arg).Scan(
		&u.ID, &u.Email, &u.EmailVerified, &u.PasswordHash, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *PGStore) SetEmailVerified(ctx context.Context, id string, verified bool) error {
	const q = `UPDATE app_user SET email_verified = $2 WHERE id = $1`
	ct, err := s.pool.Exec(ctx, q, id, verified)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *PGStore) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *PGStore) Close() { s.pool.Close() }
