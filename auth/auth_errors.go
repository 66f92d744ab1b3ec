package auth

import "errors"

var (
	// ErrInvalidInput means username or password was missing from the login
	// call.
	ErrInvalidInput = errors.New("username and password are required")

	// ErrInvalidCredentials covers both wrong password and unknown user;
	// callers must not be able to tell the two apart.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountLocked means the lockout threshold was exceeded. Wrapped in a
	// LockedError carrying the unlock estimate.
	ErrAccountLocked = errors.New("account locked")

	// Session failures. Distinct internally for logging; the HTTP boundary
	// collapses all four to one generic authentication-required response.
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrSessionInvalid  = errors.New("session invalid")
	ErrSessionExpired  = errors.New("session expired")
	ErrSessionIdle     = errors.New("session idle")
)

// LockedError carries the lock state alongside ErrAccountLocked so the login
// endpoint can report an estimated unlock time.
type LockedError struct {
	State LockState
}

func (e *LockedError) Error() string {
	return ErrAccountLocked.Error()
}

func (e *LockedError) Unwrap() error {
	return ErrAccountLocked
}
