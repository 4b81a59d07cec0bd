package demo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func quotaForUpdateTx(ctx context.Context, tx pgx.Tx, schema, email string) (User, error) {
	var u User
	err := tx.QueryRow(ctx, fmt.Sprintf(`
		SELECT id, email, demo_limit, demo_used, last_demo_reset
		FROM %s.users
		WHERE email = $1
		FOR UPDATE
	`, schema), email).Scan(
		&u.ID, &u.Email, &u.DemoLimit, &u.DemoUsed, &u.LastDemoReset,
	)
	if isNoRows(err) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("demo: load quota record: %w", err)
	}
	return u, nil
}

func resetUsageTx(ctx context.Context, tx pgx.Tx, schema string, now time.Time, userID string) error {
	_, err := tx.Exec(ctx, fmt.Sprintf(`
		UPDATE %s.users
		SET demo_used = 0, last_demo_reset = $2
		WHERE id = $1
	`, schema), userID, now)
	if err != nil {
		return fmt.Errorf("demo: reset usage: %w", err)
	}
	return nil
}

func insertDemoTx(ctx context.Context, tx pgx.Tx, schema string, now time.Time, demoID, userID string) error {
	_, err := tx.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s.demos (id, user_id, input_image, output_image, status, created_at, updated_at)
		VALUES ($1, $2, '', '', $3, $4, $4)
	`, schema), demoID, userID, string(StatusPending), now)
	if err != nil {
		return fmt.Errorf("demo: insert demo: %w", err)
	}
	return nil
}

func incrementUsageTx(ctx context.Context, tx pgx.Tx, schema, userID string) (used, limit int, err error) {
	err = tx.QueryRow(ctx, fmt.Sprintf(`
		UPDATE %s.users
		SET demo_used = demo_used + 1
		WHERE id = $1
		RETURNING demo_used, demo_limit
	`, schema), userID).Scan(&used, &limit)
	if err != nil {
		return 0, 0, fmt.Errorf("demo: increment usage: %w", err)
	}
	return used, limit, nil
}
