package demo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

const resetPeriod = 30 * 24 * time.Hour

func TestMemoryStore_ReserveChargesAndDenies(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	s := NewMemoryStore()
	s.SeedUser(User{Email: "a@example.com", DemoLimit: 5, DemoUsed: 4, LastDemoReset: now})

	created, err := s.Reserve(ctx, now, "a@example.com", resetPeriod)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if created.DemoID == "" {
		t.Fatalf("expected a demo id")
	}
	if created.Remaining != 0 {
		t.Fatalf("expected remaining=0, got %d", created.Remaining)
	}

	row, ok := s.DemoRow(created.DemoID)
	if !ok || row.Status != StatusPending {
		t.Fatalf("expected a PENDING demo row, got %+v ok=%v", row, ok)
	}

	// The very next submission in the same window is denied.
	_, err = s.Reserve(ctx, now.Add(time.Second), "a@example.com", resetPeriod)
	var qe *QuotaExceededError
	if !errors.As(err, &qe) {
		t.Fatalf("expected QuotaExceededError, got %v", err)
	}

	u, _ := s.UserRow("a@example.com")
	if u.DemoUsed != 5 {
		t.Fatalf("usage must not grow past the limit, got %d", u.DemoUsed)
	}
}

func TestMemoryStore_LazyResetThenAllow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	s := NewMemoryStore()
	s.SeedUser(User{Email: "b@example.com", DemoLimit: 5, DemoUsed: 5, LastDemoReset: now.Add(-31 * 24 * time.Hour)})

	created, err := s.Reserve(ctx, now, "b@example.com", resetPeriod)
	if err != nil {
		t.Fatalf("Reserve after elapsed window: %v", err)
	}
	if created.Remaining != 4 {
		t.Fatalf("expected remaining=4 after reset+charge, got %d", created.Remaining)
	}

	u, _ := s.UserRow("b@example.com")
	if u.DemoUsed != 1 {
		t.Fatalf("expected usage=1 after reset+charge, got %d", u.DemoUsed)
	}
	if !u.LastDemoReset.Equal(now) {
		t.Fatalf("expected last reset moved to now, got %v", u.LastDemoReset)
	}
}

func TestMemoryStore_UnknownPrincipal(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Reserve(context.Background(), time.Now(), "ghost@example.com", resetPeriod); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := s.Remaining(context.Background(), "ghost@example.com"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestMemoryStore_AutoProvision(t *testing.T) {
	s := NewMemoryStore(WithAutoProvision(5))

	created, err := s.Reserve(context.Background(), time.Now(), "new@example.com", resetPeriod)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if created.Remaining != 4 {
		t.Fatalf("expected remaining=4, got %d", created.Remaining)
	}
}

func TestMemoryStore_ConcurrentReservesHoldInvariant(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	s := NewMemoryStore()
	s.SeedUser(User{Email: "c@example.com", DemoLimit: 5, LastDemoReset: now})

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Reserve(ctx, now, "c@example.com", resetPeriod); err == nil {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if admitted != 5 {
		t.Fatalf("expected exactly 5 admissions, got %d", admitted)
	}
	u, _ := s.UserRow("c@example.com")
	if u.DemoUsed > u.DemoLimit {
		t.Fatalf("usage %d exceeded limit %d", u.DemoUsed, u.DemoLimit)
	}
}

func TestMemoryStore_Complete(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	s := NewMemoryStore()
	s.SeedUser(User{Email: "d@example.com", DemoLimit: 5, LastDemoReset: now})

	created, err := s.Reserve(ctx, now, "d@example.com", resetPeriod)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	if err := s.Complete(ctx, now.Add(10*time.Second), created.DemoID, StatusCompleted, "https://cdn.example/out.png"); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	row, _ := s.DemoRow(created.DemoID)
	if row.Status != StatusCompleted || row.OutputImage != "https://cdn.example/out.png" {
		t.Fatalf("unexpected row after completion: %+v", row)
	}

	if err := s.Complete(ctx, now, "missing", StatusFailed, ""); err == nil {
		t.Fatalf("expected error for unknown demo id")
	}
}
