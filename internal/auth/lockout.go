package auth

import (
	"context"
	"fmt"
	"time"
)

const (
	DefaultMaxFailedAttempts = 5
	DefaultLockWindow        = 15 * time.Minute
)

type LockStatus struct {
	Locked   bool
	Failures int
	RetryAt  time.Time
}

// LockoutGuard derives lock state from the attempt ledger on every call.
// Nothing is persisted, and successful logins never clear earlier failures.
type LockoutGuard struct {
	ledger    AttemptLedger
	threshold int
	window    time.Duration
	now       func() time.Time
}

func NewLockoutGuard(ledger AttemptLedger, threshold int, window time.Duration) *LockoutGuard {
	if threshold <= 0 {
		threshold = DefaultMaxFailedAttempts
	}
	if window <= 0 {
		window = DefaultLockWindow
	}

	return &LockoutGuard{
		ledger:    ledger,
		threshold: threshold,
		window:    window,
		now:       time.Now,
	}
}

func (g *LockoutGuard) Status(ctx context.Context, username string) (LockStatus, error) {
	now := g.now().UTC()

	failures, err := g.ledger.FailedAttemptsSince(ctx, username, now.Add(-g.window))
	if err != nil {
		return LockStatus{}, fmt.Errorf("count failed attempts: %w", err)
	}

	status := LockStatus{Failures: len(failures)}
	if len(failures) < g.threshold {
		return status, nil
	}

	// failures is oldest first; the lock lifts once all but threshold-1 of
	// them have aged out.
	status.Locked = true
	status.RetryAt = failures[len(failures)-g.threshold].Add(g.window)

	return status, nil
}

func (g *LockoutGuard) IsLocked(ctx context.Context, username string) (bool, error) {
	status, err := g.Status(ctx, username)
	if err != nil {
		return false, err
	}
	return status.Locked, nil
}
