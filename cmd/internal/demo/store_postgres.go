package demo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
)

// PostgresStore is the production Store implementation.
//
// The pool is owned by the caller (the app); Close is a no-op.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore constructs a PostgresStore with the default schema
// "trymylook".
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, errors.New("demo: nil db pool")
	}
	return &PostgresStore{pool: pool, schema: "trymylook"}, nil
}

// EnsureSchema creates the schema and tables if they don't exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	q := fmt.Sprintf(`
		CREATE SCHEMA IF NOT EXISTS %[1]s;
		CREATE TABLE IF NOT EXISTS %[1]s.users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			demo_limit INT NOT NULL,
			demo_used INT NOT NULL DEFAULT 0,
			last_demo_reset TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS %[1]s.demos (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES %[1]s.users(id),
			input_image TEXT NOT NULL DEFAULT '',
			output_image TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
	`, s.schema)
	if _, err := s.pool.Exec(ctx, q); err != nil {
		return fmt.Errorf("demo: ensure schema: %w", err)
	}
	return nil
}

// UpsertUser provisions (or refreshes) a quota record, mirroring what the
// web tier does at sign-in. The limit only applies on first creation.
func (s *PostgresStore) UpsertUser(ctx context.Context, now time.Time, email string, limit int) (User, error) {
	var u User
	err := s.pool.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO %s.users (id, email, demo_limit, demo_used, last_demo_reset)
		VALUES ($1, $2, $3, 0, $4)
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING id, email, demo_limit, demo_used, last_demo_reset
	`, s.schema), ulid.Make().String(), email, limit, now).Scan(
		&u.ID, &u.Email, &u.DemoLimit, &u.DemoUsed, &u.LastDemoReset,
	)
	if err != nil {
		return User{}, fmt.Errorf("demo: upsert user: %w", err)
	}
	return u, nil
}

// Reserve implements the quota gate inside one transaction. The users row is
// locked FOR UPDATE so concurrent reservations for the same principal
// serialize and `used <= limit` holds across them.
func (s *PostgresStore) Reserve(ctx context.Context, now time.Time, email string, resetPeriod time.Duration) (Created, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Created{}, fmt.Errorf("demo: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	u, err := quotaForUpdateTx(ctx, tx, s.schema, email)
	if err != nil {
		return Created{}, err
	}

	decision, retryIn := evaluateQuota(now, u.DemoUsed, u.DemoLimit, u.LastDemoReset, resetPeriod)
	switch decision {
	case quotaDeny:
		return Created{}, &QuotaExceededError{RetryIn: retryIn}
	case quotaReset:
		if err := resetUsageTx(ctx, tx, s.schema, now, u.ID); err != nil {
			return Created{}, err
		}
		u.DemoUsed = 0
	}

	demoID := ulid.Make().String()
	if err := insertDemoTx(ctx, tx, s.schema, now, demoID, u.ID); err != nil {
		return Created{}, err
	}

	used, limit, err := incrementUsageTx(ctx, tx, s.schema, u.ID)
	if err != nil {
		return Created{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Created{}, fmt.Errorf("demo: commit: %w", err)
	}

	return Created{DemoID: demoID, Remaining: remaining(limit, used)}, nil
}

// Remaining reads the live counters; it deliberately does not apply a lazy
// reset view, matching what the next Reserve will persist anyway.
func (s *PostgresStore) Remaining(ctx context.Context, email string) (int, error) {
	var limit, used int
	err := s.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT demo_limit, demo_used FROM %s.users WHERE email = $1
	`, s.schema), email).Scan(&limit, &used)
	if isNoRows(err) {
		return 0, ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("demo: remaining: %w", err)
	}
	return remaining(limit, used), nil
}

// Complete records the terminal outcome of a demo row.
func (s *PostgresStore) Complete(ctx context.Context, now time.Time, demoID string, status Status, outputImage string) error {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`
		UPDATE %s.demos
		SET status = $2, output_image = $3, updated_at = $4
		WHERE id = $1
	`, s.schema), demoID, string(status), outputImage, now)
	if err != nil {
		return fmt.Errorf("demo: complete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("demo: complete: no demo row %s", demoID)
	}
	return nil
}

// Close is a no-op; the app owns the pool lifecycle.
func (s *PostgresStore) Close(_ context.Context) error { return nil }
