package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	adminfake "github.com/LyDawei/Rate-my-services/admins/repofake"
	attemptfake "github.com/LyDawei/Rate-my-services/attempts/repofake"
	"github.com/LyDawei/Rate-my-services/auth"
	"github.com/LyDawei/Rate-my-services/sessions"
	"github.com/LyDawei/Rate-my-services/sessions/storefake"
)

const (
	testUsername    = "admin"
	testPassword    = "Sup3rSecret"
	testDisplayName = "Site Admin"
	testOrigin      = "203.0.113.7"

	maxFailedAttempts = 5
	lockoutWindow     = 15 * time.Minute
	idleTimeout       = 30 * time.Minute
	absoluteMaxAge    = 24 * time.Hour
)

// testFixture holds all test dependencies
type testFixture struct {
	accounts *adminfake.FakeAdminRepo
	ledger   *attemptfake.FakeAttemptRepo
	store    *storefake.FakeSessionStore
	service  *auth.Service
	now      time.Time
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		accounts: adminfake.NewFakeAdminRepo(),
		ledger:   attemptfake.NewFakeAttemptRepo(),
		store:    storefake.NewFakeSessionStore(),
		now:      time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC),
	}
	nowFn := func() time.Time { return f.now }
	f.accounts.NowTime = nowFn
	f.ledger.NowTime = nowFn

	service, err := auth.NewService(
		auth.Repos{Accounts: f.accounts, Ledger: f.ledger, Sessions: f.store},
		auth.Settings{
			MaxFailedAttempts: maxFailedAttempts,
			LockoutWindow:     lockoutWindow,
			IdleTimeout:       idleTimeout,
			AbsoluteMaxAge:    absoluteMaxAge,
			BcryptCost:        4, // bcrypt.MinCost keeps the suite fast
		},
		auth.WithNowTime(nowFn),
	)
	require.NoError(t, err)
	f.service = service

	_, err = f.accounts.Create(context.Background(), testUsername, testPassword, testDisplayName)
	require.NoError(t, err)

	return f
}

func (f *testFixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *testFixture) failLogin(t *testing.T, username string) {
	t.Helper()
	_, _, err := f.service.Login(context.Background(), username, "wrong-password", testOrigin)
	require.Error(t, err)
}

func TestLoginSucceedsWithCorrectCredentials(t *testing.T) {
	f := setupTestFixture(t)

	account, session, err := f.service.Login(context.Background(), testUsername, testPassword, testOrigin)
	require.NoError(t, err)
	require.Equal(t, testUsername, account.Username)
	require.Equal(t, testDisplayName, account.DisplayName)

	require.NotEmpty(t, session.ID)
	require.Equal(t, account.ID, session.AccountID)
	require.Equal(t, f.now, session.CreatedAt)
	require.Equal(t, f.now, session.LastActivity)
	require.Equal(t, 1, f.store.Len())
}

func TestLoginRejectsMissingInput(t *testing.T) {
	f := setupTestFixture(t)

	for _, tc := range []struct{ username, password string }{
		{"", testPassword},
		{testUsername, ""},
		{"", ""},
	} {
		_, _, err := f.service.Login(context.Background(), tc.username, tc.password, testOrigin)
		require.ErrorIs(t, err, auth.ErrInvalidInput)
	}
}

func TestLoginFailureIsGenericForUnknownUserAndWrongPassword(t *testing.T) {
	f := setupTestFixture(t)

	_, _, errUnknown := f.service.Login(context.Background(), "nobody", testPassword, testOrigin)
	_, _, errWrong := f.service.Login(context.Background(), testUsername, "wrong-password", testOrigin)

	require.ErrorIs(t, errUnknown, auth.ErrInvalidCredentials)
	require.ErrorIs(t, errWrong, auth.ErrInvalidCredentials)
	require.Equal(t, errUnknown.Error(), errWrong.Error())
}

func TestLoginRecordsAttemptsForUnknownUsernames(t *testing.T) {
	f := setupTestFixture(t)

	f.failLogin(t, "nobody")

	rows := f.ledger.Rows()
	require.Len(t, rows, 1)
	require.Equal(t, "nobody", rows[0].Username)
	require.Equal(t, testOrigin, rows[0].Origin)
	require.False(t, rows[0].Success)
}

func TestLedgerFailureDoesNotFailLogin(t *testing.T) {
	f := setupTestFixture(t)
	f.ledger.RecordErr = errors.New("disk full")

	account, session, err := f.service.Login(context.Background(), testUsername, testPassword, testOrigin)
	require.NoError(t, err)
	require.NotNil(t, account)
	require.NotNil(t, session)
}

func TestSixthAttemptIsLockedEvenWithCorrectPassword(t *testing.T) {
	f := setupTestFixture(t)

	for i := 0; i < maxFailedAttempts; i++ {
		f.failLogin(t, testUsername)
	}

	_, _, err := f.service.Login(context.Background(), testUsername, testPassword, testOrigin)
	require.ErrorIs(t, err, auth.ErrAccountLocked)

	var locked *auth.LockedError
	require.ErrorAs(t, err, &locked)
	require.True(t, locked.State.Locked)
	require.NotNil(t, locked.State.UnlocksAt)
	// Sliding lockout: expiry ties to the oldest failure, not to "now".
	require.Equal(t, f.now.Add(lockoutWindow), *locked.State.UnlocksAt)
}

func TestLockExpiresWhenOldestFailureAgesOut(t *testing.T) {
	f := setupTestFixture(t)

	for i := 0; i < maxFailedAttempts; i++ {
		f.failLogin(t, testUsername)
	}

	f.advance(lockoutWindow + time.Minute)

	account, _, err := f.service.Login(context.Background(), testUsername, testPassword, testOrigin)
	require.NoError(t, err)
	require.Equal(t, testUsername, account.Username)
}

func TestSuccessfulLoginClearsFailures(t *testing.T) {
	f := setupTestFixture(t)

	for i := 0; i < maxFailedAttempts-1; i++ {
		f.failLogin(t, testUsername)
	}

	state, err := f.service.CheckLock(context.Background(), testUsername)
	require.NoError(t, err)
	require.False(t, state.Locked)
	require.Equal(t, 1, state.RemainingAttempts)

	_, _, err = f.service.Login(context.Background(), testUsername, testPassword, testOrigin)
	require.NoError(t, err)

	state, err = f.service.CheckLock(context.Background(), testUsername)
	require.NoError(t, err)
	require.False(t, state.Locked)
	require.Equal(t, maxFailedAttempts, state.RemainingAttempts)
}

func TestLoginStampsLastLogin(t *testing.T) {
	f := setupTestFixture(t)

	account, _, err := f.service.Login(context.Background(), testUsername, testPassword, testOrigin)
	require.NoError(t, err)

	stored, err := f.accounts.GetByID(context.Background(), account.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastLogin)
	require.Equal(t, f.now, *stored.LastLogin)
}

func TestLoginDestroysHalfIssuedSession(t *testing.T) {
	f := setupTestFixture(t)
	f.store.UpsertErr = errors.New("store down")

	_, _, err := f.service.Login(context.Background(), testUsername, testPassword, testOrigin)
	require.Error(t, err)
	require.Equal(t, 0, f.store.Len())
}

func TestConsecutiveLoginsIssueFreshIdentifiers(t *testing.T) {
	f := setupTestFixture(t)

	_, first, err := f.service.Login(context.Background(), testUsername, testPassword, testOrigin)
	require.NoError(t, err)
	_, second, err := f.service.Login(context.Background(), testUsername, testPassword, testOrigin)
	require.NoError(t, err)

	require.NotEqual(t, first.ID, second.ID)
}

func TestValidateRefreshesActivity(t *testing.T) {
	f := setupTestFixture(t)

	_, session, err := f.service.Login(context.Background(), testUsername, testPassword, testOrigin)
	require.NoError(t, err)

	f.advance(10 * time.Minute)

	validated, err := f.service.Validate(context.Background(), session.ID)
	require.NoError(t, err)
	require.Equal(t, f.now, validated.LastActivity)
	require.Equal(t, session.CreatedAt, validated.CreatedAt)
}

func TestValidateRejectsMissingSession(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.service.Validate(context.Background(), "")
	require.ErrorIs(t, err, auth.ErrUnauthenticated)

	_, err = f.service.Validate(context.Background(), "no-such-session")
	require.ErrorIs(t, err, auth.ErrUnauthenticated)
}

func TestValidateRejectsIdleSession(t *testing.T) {
	f := setupTestFixture(t)

	_, session, err := f.service.Login(context.Background(), testUsername, testPassword, testOrigin)
	require.NoError(t, err)

	f.advance(idleTimeout + time.Minute)

	_, err = f.service.Validate(context.Background(), session.ID)
	require.ErrorIs(t, err, auth.ErrSessionIdle)
	require.Equal(t, 0, f.store.Len())
}

func TestValidateRejectsOldSessionDespiteFreshActivity(t *testing.T) {
	f := setupTestFixture(t)

	_, session, err := f.service.Login(context.Background(), testUsername, testPassword, testOrigin)
	require.NoError(t, err)

	// Keep the session active right up to the absolute ceiling.
	for i := 0; i < 96; i++ {
		f.advance(15 * time.Minute)
		_, err := f.service.Validate(context.Background(), session.ID)
		require.NoError(t, err)
	}

	f.advance(time.Minute)
	_, err = f.service.Validate(context.Background(), session.ID)
	require.ErrorIs(t, err, auth.ErrSessionExpired)
	require.Equal(t, 0, f.store.Len())
}

func TestValidateDestroysStructurallyInvalidSession(t *testing.T) {
	f := setupTestFixture(t)

	// A legacy session with no lifecycle metadata is rejected, not repaired.
	f.store.Put(sessions.Session{ID: "legacy", AccountID: "some-account"}, f.now.Add(time.Hour))

	_, err := f.service.Validate(context.Background(), "legacy")
	require.ErrorIs(t, err, auth.ErrSessionInvalid)
	require.Equal(t, 0, f.store.Len())
}

func TestValidateRejectsSessionWithoutAccountID(t *testing.T) {
	f := setupTestFixture(t)

	f.store.Put(sessions.Session{ID: "anon", CreatedAt: f.now, LastActivity: f.now}, f.now.Add(time.Hour))

	_, err := f.service.Validate(context.Background(), "anon")
	require.ErrorIs(t, err, auth.ErrUnauthenticated)
}

func TestLogoutThenValidateFails(t *testing.T) {
	f := setupTestFixture(t)

	_, session, err := f.service.Login(context.Background(), testUsername, testPassword, testOrigin)
	require.NoError(t, err)

	require.NoError(t, f.service.Logout(context.Background(), session.ID))

	_, err = f.service.Validate(context.Background(), session.ID)
	require.ErrorIs(t, err, auth.ErrUnauthenticated)
}

func TestLogoutIsIdempotent(t *testing.T) {
	f := setupTestFixture(t)

	require.NoError(t, f.service.Logout(context.Background(), "never-existed"))
	require.NoError(t, f.service.Logout(context.Background(), ""))
}

func TestIdentityReturnsLoginAccount(t *testing.T) {
	f := setupTestFixture(t)

	account, session, err := f.service.Login(context.Background(), testUsername, testPassword, testOrigin)
	require.NoError(t, err)

	resolved, err := f.service.Identity(context.Background(), session.ID)
	require.NoError(t, err)
	require.Equal(t, account.ID, resolved.ID)
	require.Equal(t, account.Username, resolved.Username)
	// The by-ID projection never carries the hash.
	require.Empty(t, resolved.PasswordHash)
}

func TestIdentityDestroysSessionForDeletedAccount(t *testing.T) {
	f := setupTestFixture(t)

	_, session, err := f.service.Login(context.Background(), testUsername, testPassword, testOrigin)
	require.NoError(t, err)

	f.accounts.Delete(testUsername)

	_, err = f.service.Identity(context.Background(), session.ID)
	require.ErrorIs(t, err, auth.ErrSessionInvalid)
	require.Equal(t, 0, f.store.Len())
}

func TestRunMaintenancePurgesLedgerAndSweepsSessions(t *testing.T) {
	f := setupTestFixture(t)

	f.failLogin(t, testUsername)
	_, session, err := f.service.Login(context.Background(), testUsername, testPassword, testOrigin)
	require.NoError(t, err)
	require.Equal(t, 1, f.store.Len())

	f.advance(25 * time.Hour)
	f.service.RunMaintenance(context.Background())

	require.Empty(t, f.ledger.Rows())
	require.Equal(t, 0, f.store.Len())

	_, err = f.service.Validate(context.Background(), session.ID)
	require.ErrorIs(t, err, auth.ErrUnauthenticated)
}
