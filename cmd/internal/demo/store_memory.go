package demo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// MemoryStore is the in-memory Store used when no database is configured
// (dev mode) and by tests. A single mutex is the critical section that makes
// Reserve atomic per principal.
type MemoryStore struct {
	mu    sync.Mutex
	users map[string]*User
	demos map[string]*Demo

	// autoLimit > 0 provisions unknown principals on first sight, which keeps
	// the dev server usable without a sign-in flow.
	autoLimit int
}

var _ Store = (*MemoryStore)(nil)

// MemoryOption configures MemoryStore.
type MemoryOption func(*MemoryStore)

// WithAutoProvision provisions unknown principals with the given limit.
func WithAutoProvision(limit int) MemoryOption {
	return func(s *MemoryStore) { s.autoLimit = limit }
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		users: make(map[string]*User),
		demos: make(map[string]*Demo),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SeedUser installs a quota record, overwriting any existing one.
func (s *MemoryStore) SeedUser(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = ulid.Make().String()
	}
	s.users[u.Email] = &u
}

func (s *MemoryStore) Reserve(_ context.Context, now time.Time, email string, resetPeriod time.Duration) (Created, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[email]
	if !ok {
		if s.autoLimit <= 0 {
			return Created{}, ErrUserNotFound
		}
		u = &User{
			ID:            ulid.Make().String(),
			Email:         email,
			DemoLimit:     s.autoLimit,
			LastDemoReset: now,
		}
		s.users[email] = u
	}

	decision, retryIn := evaluateQuota(now, u.DemoUsed, u.DemoLimit, u.LastDemoReset, resetPeriod)
	switch decision {
	case quotaDeny:
		return Created{}, &QuotaExceededError{RetryIn: retryIn}
	case quotaReset:
		u.DemoUsed = 0
		u.LastDemoReset = now
	}

	d := &Demo{
		ID:        ulid.Make().String(),
		UserID:    u.ID,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.demos[d.ID] = d
	u.DemoUsed++

	return Created{DemoID: d.ID, Remaining: remaining(u.DemoLimit, u.DemoUsed)}, nil
}

func (s *MemoryStore) Remaining(_ context.Context, email string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[email]
	if !ok {
		return 0, ErrUserNotFound
	}
	return remaining(u.DemoLimit, u.DemoUsed), nil
}

func (s *MemoryStore) Complete(_ context.Context, now time.Time, demoID string, status Status, outputImage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.demos[demoID]
	if !ok {
		return fmt.Errorf("demo: complete: no demo row %s", demoID)
	}
	d.Status = status
	d.OutputImage = outputImage
	d.UpdatedAt = now
	return nil
}

// DemoRow returns a copy of a demo row for tests and inspection.
func (s *MemoryStore) DemoRow(demoID string) (Demo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.demos[demoID]
	if !ok {
		return Demo{}, false
	}
	return *d, true
}

// UserRow returns a copy of a user record for tests and inspection.
func (s *MemoryStore) UserRow(email string) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[email]
	if !ok {
		return User{}, false
	}
	return *u, true
}

func (s *MemoryStore) Close(_ context.Context) error { return nil }
