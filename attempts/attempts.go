// Package attempts is the append-only login attempt ledger. Every login
// call appends exactly one row, whether or not the typed username matches an
// existing account; the lockout policy derives its decisions from these rows.
package attempts

import (
	"context"
	"time"
)

// RetentionWindow is how long attempt rows are kept before the maintenance
// purge removes them.
const RetentionWindow = 24 * time.Hour

// Attempt is one immutable login attempt record.
type Attempt struct {
	ID        string    // Unique identifier (UUID)
	Username  string    // Subject username as typed, not necessarily an existing account
	Origin    string    // Network address the attempt came from
	Success   bool      // Outcome
	CreatedAt time.Time // When the attempt happened
}

// Repo is the persistence port for the ledger. Rows are append-only within
// the retention window; nothing updates them.
type Repo interface {
	// Record appends one row.
	Record(ctx context.Context, username, origin string, success bool) error
	// CountRecentFailures counts failure rows for the username within the
	// trailing window from now.
	CountRecentFailures(ctx context.Context, username string, window time.Duration) (int, error)
	// OldestRecentFailure returns the timestamp of the oldest failure row for
	// the username within the trailing window. ok is false when there are
	// none.
	OldestRecentFailure(ctx context.Context, username string, window time.Duration) (oldest time.Time, ok bool, err error)
	// ClearFailures deletes failure rows for the username. Called after a
	// successful login; bounds ledger growth and resets the lockout clock
	// immediately.
	ClearFailures(ctx context.Context, username string) error
	// PurgeOlderThan deletes all rows older than age. Invoked by the
	// maintenance job, independent of lockout logic.
	PurgeOlderThan(ctx context.Context, age time.Duration) error
}
