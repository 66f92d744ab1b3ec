package auth

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/LyDawei/Rate-my-services/attempts"
)

// LockState is the lockout policy's answer for one username.
type LockState struct {
	Locked            bool
	RemainingAttempts int
	// UnlocksAt is set only when locked: the oldest offending failure in the
	// window plus the lockout duration. Sliding, so retrying just before
	// expiry cannot re-arm the lock past its original window.
	UnlocksAt *time.Time
}

// LockoutPolicy derives locked/unlocked state from the attempt ledger. It
// holds no state of its own; every check reads the ledger fresh.
type LockoutPolicy struct {
	ledger      attempts.Repo
	maxAttempts int
	window      time.Duration
}

// NewLockoutPolicy creates a policy over the given ledger. maxAttempts
// failures within window lock the account until the oldest of those failures
// ages out.
func NewLockoutPolicy(ledger attempts.Repo, maxAttempts int, window time.Duration) *LockoutPolicy {
	return &LockoutPolicy{
		ledger:      ledger,
		maxAttempts: maxAttempts,
		window:      window,
	}
}

// CheckLock reports the lock state for a username. Unknown usernames count
// zero failures and report "not locked", indistinguishable from a valid but
// never-failed username; the check leaks no account existence.
func (p *LockoutPolicy) CheckLock(ctx context.Context, username string) (LockState, error) {
	failures, err := p.ledger.CountRecentFailures(ctx, username, p.window)
	if err != nil {
		return LockState{}, errors.Wrap(err, "[LockoutPolicy.CheckLock] count failures")
	}

	remaining := p.maxAttempts - failures
	if remaining < 0 {
		remaining = 0
	}

	if failures < p.maxAttempts {
		return LockState{RemainingAttempts: remaining}, nil
	}

	state := LockState{Locked: true}
	oldest, ok, err := p.ledger.OldestRecentFailure(ctx, username, p.window)
	if err != nil {
		return LockState{}, errors.Wrap(err, "[LockoutPolicy.CheckLock] oldest failure")
	}
	if ok {
		unlocksAt := oldest.Add(p.window)
		state.UnlocksAt = &unlocksAt
	}
	return state, nil
}
