package demo

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Integration tests are enabled when TML_DATABASE_URL is set.

func mustPGXPool(ctx context.Context, t *testing.T, dbURL string) *pgxpool.Pool {
	t.Helper()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("pgxpool.New: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func newIntegrationStore(ctx context.Context, t *testing.T) *PostgresStore {
	t.Helper()

	dbURL := os.Getenv("TML_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TML_DATABASE_URL is not set; skipping Postgres integration test")
	}

	pool := mustPGXPool(ctx, t, dbURL)
	s, err := NewPostgresStore(pool)
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return s
}

func TestPostgresStore_ReserveDenyReset(t *testing.T) {
	ctx := context.Background()
	s := newIntegrationStore(ctx, t)

	now := time.Now().UTC()
	email := "itest-" + now.Format("20060102150405.000000000") + "@example.com"

	u, err := s.UpsertUser(ctx, now, email, 2)
	if err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	if u.DemoLimit != 2 || u.DemoUsed != 0 {
		t.Fatalf("unexpected provisioned record: %+v", u)
	}

	// Two reservations pass, charging quota and creating demo rows.
	first, err := s.Reserve(ctx, now, email, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("first Reserve: %v", err)
	}
	if first.Remaining != 1 {
		t.Fatalf("expected remaining=1, got %d", first.Remaining)
	}
	if _, err := s.Reserve(ctx, now, email, 30*24*time.Hour); err != nil {
		t.Fatalf("second Reserve: %v", err)
	}

	// Third is denied.
	_, err = s.Reserve(ctx, now, email, 30*24*time.Hour)
	var qe *QuotaExceededError
	if !errors.As(err, &qe) {
		t.Fatalf("expected QuotaExceededError, got %v", err)
	}

	remaining, err := s.Remaining(ctx, email)
	if err != nil {
		t.Fatalf("Remaining: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("expected remaining=0, got %d", remaining)
	}

	// After the window elapses the next reservation resets and passes.
	later := now.Add(31 * 24 * time.Hour)
	reset, err := s.Reserve(ctx, later, email, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("Reserve after window: %v", err)
	}
	if reset.Remaining != 1 {
		t.Fatalf("expected remaining=1 after reset+charge, got %d", reset.Remaining)
	}

	if err := s.Complete(ctx, later, reset.DemoID, StatusCompleted, "https://cdn.example/out.png"); err != nil {
		t.Fatalf("Complete: %v", err)
	}
}

func TestPostgresStore_UnknownPrincipal(t *testing.T) {
	ctx := context.Background()
	s := newIntegrationStore(ctx, t)

	if _, err := s.Reserve(ctx, time.Now().UTC(), "nobody@example.com", time.Hour); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
