package sessions

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no session matches the given ID.
var ErrNotFound = errors.New("session not found")

// Store is the persistence port for sessions.
type Store interface {
	// Get retrieves a session by ID. Returns ErrNotFound for unknown IDs.
	Get(ctx context.Context, id string) (*Session, error)
	// Upsert creates or replaces the session row. expiry bounds how long the
	// sweep keeps the row around; the lifecycle checks proper expiry from the
	// payload timestamps.
	Upsert(ctx context.Context, session *Session, expiry time.Time) error
	// Delete removes a session. Deleting an absent session is not an error.
	Delete(ctx context.Context, id string) error
	// DeleteExpired removes every row whose expiry is at or before now.
	// Invoked by the maintenance sweep.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
