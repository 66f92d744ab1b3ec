package admins

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no account matches the lookup.
var ErrNotFound = errors.New("account not found")

// ErrDuplicateAccount is returned when provisioning collides with an
// existing username.
var ErrDuplicateAccount = errors.New("account already exists")

// Repo is the persistence port for administrator accounts.
type Repo interface {
	// GetByUsername is an exact, case-sensitive match. The returned account
	// includes the password hash; it is the verifier's input.
	GetByUsername(ctx context.Context, username string) (*Account, error)
	// GetByID excludes the password hash from the returned projection.
	GetByID(ctx context.Context, id string) (*Account, error)
	// Create provisions a new account. The password is hashed before storage.
	// Returns ErrDuplicateAccount if the username is taken.
	Create(ctx context.Context, username, password, displayName string) (*Account, error)
	// UpdateLastLogin stamps the account's last successful login with the
	// given time.
	UpdateLastLogin(ctx context.Context, id string) error
}
