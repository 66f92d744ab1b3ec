// Package auth is the administrator authentication core: lockout policy,
// constant-time credential verification, and session lifecycle management.
package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/LyDawei/Rate-my-services/admins"
	"github.com/LyDawei/Rate-my-services/attempts"
	"github.com/LyDawei/Rate-my-services/sessions"
)

// Repos holds all persistence ports for the Service.
type Repos struct {
	Accounts admins.Repo    // Administrator accounts
	Ledger   attempts.Repo  // Append-only login attempt ledger
	Sessions sessions.Store // Authenticated session store
}

// Settings are the auth core's policy knobs.
type Settings struct {
	MaxFailedAttempts int           // Failures within LockoutWindow that lock an account
	LockoutWindow     time.Duration // Trailing window for counting failures, and lock duration
	IdleTimeout       time.Duration // Max gap between authenticated requests
	AbsoluteMaxAge    time.Duration // Hard session ceiling regardless of activity
	BcryptCost        int           // Cost for the dummy digest; must match account hashing
	DummyDigest       string        // Optional pinned digest for unknown-user comparisons
}

// Service orchestrates login, session validation, logout, and identity
// resolution for the admin dashboard.
type Service struct {
	repos    Repos
	settings Settings
	lockout  *LockoutPolicy
	verifier *Verifier
	logger   zerolog.Logger
	nowTime  func() time.Time // nowTime function (injectable for testing)
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService initializes the auth Service with required dependencies.
func NewService(repos Repos, settings Settings, options ...ServiceOption) (*Service, error) {
	if repos.Accounts == nil {
		return nil, errors.New("[NewService] Accounts repo is required")
	}
	if repos.Ledger == nil {
		return nil, errors.New("[NewService] Ledger repo is required")
	}
	if repos.Sessions == nil {
		return nil, errors.New("[NewService] Sessions store is required")
	}
	if settings.MaxFailedAttempts <= 0 || settings.LockoutWindow <= 0 {
		return nil, errors.New("[NewService] lockout settings are required")
	}
	if settings.IdleTimeout <= 0 || settings.AbsoluteMaxAge <= 0 {
		return nil, errors.New("[NewService] session timeout settings are required")
	}

	verifier, err := NewVerifier(repos.Accounts, settings.DummyDigest, settings.BcryptCost)
	if err != nil {
		return nil, errors.Wrap(err, "[NewService] verifier")
	}

	service := &Service{
		repos:    repos,
		settings: settings,
		lockout:  NewLockoutPolicy(repos.Ledger, settings.MaxFailedAttempts, settings.LockoutWindow),
		verifier: verifier,
		logger:   zerolog.Nop(),
		nowTime:  time.Now,
	}

	for _, opt := range options {
		opt(service)
	}

	return service, nil
}

// CheckLock exposes the lockout policy's view of a username.
func (s *Service) CheckLock(ctx context.Context, username string) (LockState, error) {
	return s.lockout.CheckLock(ctx, username)
}

// Login runs the full login sequence: lockout pre-check, constant-time
// verification, ledger append, lockout post-check, then session issuance
// under a freshly generated identifier. Any pre-login session the client may
// hold is never promoted; callers must discard it.
//
// The failure-count read and the subsequent append are not serialized: two
// near-simultaneous failures can both read N-1 and transiently admit one
// attempt past the threshold. Accepted as a soft bound.
func (s *Service) Login(ctx context.Context, username, password, origin string) (*admins.Account, *sessions.Session, error) {
	if username == "" || password == "" {
		return nil, nil, ErrInvalidInput
	}

	// Pre-check, before burning a verification cycle on a locked account.
	state, err := s.lockout.CheckLock(ctx, username)
	if err != nil {
		return nil, nil, errors.Wrap(err, "[Service.Login] lockout pre-check")
	}
	if state.Locked {
		s.logger.Warn().Str("username", username).Str("origin", origin).Msg("login refused: account locked")
		return nil, nil, &LockedError{State: state}
	}

	valid, account, err := s.verifier.Verify(ctx, username, password)
	if err != nil {
		return nil, nil, errors.Wrap(err, "[Service.Login] verify")
	}

	s.recordAttempt(ctx, username, origin, valid)

	if !valid {
		// Post-check so the attempt that crosses the threshold reports the
		// lock and its unlock estimate, not a plain credential failure.
		state, err := s.lockout.CheckLock(ctx, username)
		if err != nil {
			return nil, nil, errors.Wrap(err, "[Service.Login] lockout post-check")
		}
		if state.Locked {
			s.logger.Warn().Str("username", username).Str("origin", origin).Msg("lockout engaged")
			return nil, nil, &LockedError{State: state}
		}
		return nil, nil, ErrInvalidCredentials
	}

	if err := s.repos.Ledger.ClearFailures(ctx, username); err != nil {
		s.logger.Error().Err(err).Str("username", username).Msg("failed to clear ledger failures after login")
	}
	if err := s.repos.Accounts.UpdateLastLogin(ctx, account.ID); err != nil {
		s.logger.Error().Err(err).Str("username", username).Msg("failed to stamp last login")
	}

	session, err := s.issueSession(ctx, account)
	if err != nil {
		return nil, nil, errors.Wrap(err, "[Service.Login] issue session")
	}

	s.logger.Info().Str("username", username).Str("origin", origin).Msg("admin logged in")
	return account, session, nil
}

// issueSession creates and persists a session under a new identifier. On any
// failure the partial session is destroyed so the client can never end up
// holding a valid-looking but unauthenticated cookie.
func (s *Service) issueSession(ctx context.Context, account *admins.Account) (*sessions.Session, error) {
	now := s.nowTime().UTC()
	session := &sessions.Session{
		ID:           uuid.New().String(),
		AccountID:    account.ID,
		Username:     account.Username,
		CreatedAt:    now,
		LastActivity: now,
	}

	if err := s.repos.Sessions.Upsert(ctx, session, s.sessionExpiry(session)); err != nil {
		if delErr := s.repos.Sessions.Delete(ctx, session.ID); delErr != nil {
			s.logger.Error().Err(delErr).Str("session_id", session.ID).Msg("failed to destroy half-issued session")
		}
		return nil, errors.Wrap(err, "[Service.issueSession] persist")
	}
	return session, nil
}

// Validate checks a session against both timeout clocks and refreshes its
// activity stamp. Every failure destroys the session; none of them are
// repairable states.
func (s *Service) Validate(ctx context.Context, sessionID string) (*sessions.Session, error) {
	if sessionID == "" {
		return nil, ErrUnauthenticated
	}

	session, err := s.repos.Sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sessions.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, errors.Wrap(err, "[Service.Validate] get session")
	}

	if session.AccountID == "" {
		return nil, ErrUnauthenticated
	}

	now := s.nowTime().UTC()

	if session.CreatedAt.IsZero() || session.LastActivity.IsZero() {
		// Legacy or malformed session. Never repaired, only rejected.
		s.destroy(ctx, sessionID, "missing lifecycle metadata")
		return nil, ErrSessionInvalid
	}
	if now.Sub(session.CreatedAt) > s.settings.AbsoluteMaxAge {
		s.destroy(ctx, sessionID, "absolute age exceeded")
		return nil, ErrSessionExpired
	}
	if now.Sub(session.LastActivity) > s.settings.IdleTimeout {
		s.destroy(ctx, sessionID, "idle timeout exceeded")
		return nil, ErrSessionIdle
	}

	session.LastActivity = now
	if err := s.repos.Sessions.Upsert(ctx, session, s.sessionExpiry(session)); err != nil {
		return nil, errors.Wrap(err, "[Service.Validate] refresh activity")
	}
	return session, nil
}

// Logout destroys the session unconditionally. Idempotent: logging out an
// absent session is not an error.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.repos.Sessions.Delete(ctx, sessionID); err != nil {
		return errors.Wrap(err, "[Service.Logout] delete session")
	}
	return nil
}

// ResolveIdentity resolves a validated session's account. A session whose
// account no longer resolves is destroyed and reported invalid rather than
// yielding a partial identity.
func (s *Service) ResolveIdentity(ctx context.Context, session *sessions.Session) (*admins.Account, error) {
	account, err := s.repos.Accounts.GetByID(ctx, session.AccountID)
	if err != nil {
		if errors.Is(err, admins.ErrNotFound) {
			s.destroy(ctx, session.ID, "account no longer resolves")
			return nil, ErrSessionInvalid
		}
		return nil, errors.Wrap(err, "[Service.ResolveIdentity] get account")
	}
	return account, nil
}

// Identity is Validate followed by ResolveIdentity for callers holding only
// the session ID.
func (s *Service) Identity(ctx context.Context, sessionID string) (*admins.Account, error) {
	session, err := s.Validate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.ResolveIdentity(ctx, session)
}

// RunMaintenance purges ledger rows past retention and sweeps expired
// session rows. Timestamp-scoped deletes only; safe to run next to live
// login traffic.
func (s *Service) RunMaintenance(ctx context.Context) {
	if err := s.repos.Ledger.PurgeOlderThan(ctx, attempts.RetentionWindow); err != nil {
		s.logger.Error().Err(err).Msg("ledger purge failed")
	}
	swept, err := s.repos.Sessions.DeleteExpired(ctx, s.nowTime().UTC())
	if err != nil {
		s.logger.Error().Err(err).Msg("session sweep failed")
		return
	}
	if swept > 0 {
		s.logger.Info().Int64("sessions", swept).Msg("swept expired sessions")
	}
}

// recordAttempt appends to the ledger. A transient persistence error is
// logged, not propagated; a ledger outage must not take logins down with it.
func (s *Service) recordAttempt(ctx context.Context, username, origin string, success bool) {
	if err := s.repos.Ledger.Record(ctx, username, origin, success); err != nil {
		s.logger.Error().Err(err).Str("username", username).Str("origin", origin).Msg("failed to record login attempt")
	}
}

func (s *Service) destroy(ctx context.Context, sessionID, reason string) {
	// Destruction is always attempted eagerly; a session must never sit in a
	// maybe-still-valid state after a failed check.
	if err := s.repos.Sessions.Delete(ctx, sessionID); err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Str("reason", reason).Msg("failed to destroy session")
		return
	}
	s.logger.Info().Str("session_id", sessionID).Str("reason", reason).Msg("session destroyed")
}

// sessionExpiry is the sweep bound for a session row: whichever of the two
// timeout clocks runs out first.
func (s *Service) sessionExpiry(session *sessions.Session) time.Time {
	absolute := session.CreatedAt.Add(s.settings.AbsoluteMaxAge)
	idle := session.LastActivity.Add(s.settings.IdleTimeout)
	if idle.Before(absolute) {
		return idle
	}
	return absolute
}
