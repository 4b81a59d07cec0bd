// Package demo owns quota records and demo rows for the try-on feature.
//
// The quota gate lives in the stores: Reserve performs the per-principal
// check, the lazy window reset, the demo-row insert, and the usage increment
// as one atomic operation, so a principal is charged exactly when a demo row
// exists and two concurrent requests can never jointly exceed the limit.
package demo

import (
	"context"
	"time"
)

// Status is the lifecycle state of a demo row.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// User mirrors the quota columns of a users row.
type User struct {
	ID            string
	Email         string
	DemoLimit     int
	DemoUsed      int
	LastDemoReset time.Time
}

// Demo is one try-on attempt record.
type Demo struct {
	ID          string
	UserID      string
	InputImage  string
	OutputImage string
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Created is the result of a successful quota reservation.
type Created struct {
	DemoID    string
	Remaining int
}

// Store abstracts persistence for quota records and demo rows.
//
// Implementations must make Reserve atomic per principal: the usage check,
// any lazy reset, the demo insert, and the increment happen inside one
// transaction or critical section keyed by the principal.
type Store interface {
	// Reserve admits one submission for the principal, creating a PENDING
	// demo row and charging quota. Returns ErrUserNotFound for unknown
	// principals and *QuotaExceededError when the window is spent.
	Reserve(ctx context.Context, now time.Time, email string, resetPeriod time.Duration) (Created, error)

	// Remaining reports max(0, limit-used) for the principal.
	Remaining(ctx context.Context, email string) (int, error)

	// Complete records the terminal outcome of a demo row. Quota is charged
	// at reservation time and stays charged whatever the outcome.
	Complete(ctx context.Context, now time.Time, demoID string, status Status, outputImage string) error

	Close(ctx context.Context) error
}
