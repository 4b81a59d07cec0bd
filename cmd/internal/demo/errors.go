package demo

import (
	"errors"
	"fmt"
	"time"
)

// ErrUserNotFound means no quota record exists for the principal. Records are
// provisioned at sign-in by the web tier, so this is a caller problem, not a
// lazy-creation trigger.
var ErrUserNotFound = errors.New("demo: user not found")

// QuotaExceededError is the user-facing denial from the quota gate.
type QuotaExceededError struct {
	RetryIn time.Duration
}

func (e *QuotaExceededError) Error() string {
	return "Demo limit reached. Please try again in " + retryMessage(e.RetryIn) + "."
}

func retryMessage(d time.Duration) string {
	if d >= 48*time.Hour {
		days := int64((d + 24*time.Hour - 1) / (24 * time.Hour))
		return fmt.Sprintf("%d days", days)
	}
	hours := int64((d + time.Hour - 1) / time.Hour)
	if hours < 1 {
		hours = 1
	}
	return fmt.Sprintf("%d hours", hours)
}
