package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	attemptfake "github.com/LyDawei/Rate-my-services/attempts/repofake"
	"github.com/LyDawei/Rate-my-services/auth"
)

type lockoutFixture struct {
	ledger *attemptfake.FakeAttemptRepo
	policy *auth.LockoutPolicy
	now    time.Time
}

func setupLockoutFixture(t *testing.T) *lockoutFixture {
	t.Helper()

	f := &lockoutFixture{
		ledger: attemptfake.NewFakeAttemptRepo(),
		now:    time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC),
	}
	f.ledger.NowTime = func() time.Time { return f.now }
	f.policy = auth.NewLockoutPolicy(f.ledger, maxFailedAttempts, lockoutWindow)
	return f
}

func (f *lockoutFixture) recordFailure(t *testing.T, username string) {
	t.Helper()
	require.NoError(t, f.ledger.Record(context.Background(), username, testOrigin, false))
}

func TestCheckLockUnknownUsernameIsNotLocked(t *testing.T) {
	f := setupLockoutFixture(t)

	state, err := f.policy.CheckLock(context.Background(), "never-seen")
	require.NoError(t, err)
	require.False(t, state.Locked)
	require.Equal(t, maxFailedAttempts, state.RemainingAttempts)
	require.Nil(t, state.UnlocksAt)
}

func TestCheckLockCountsDownRemainingAttempts(t *testing.T) {
	f := setupLockoutFixture(t)

	for i := 1; i < maxFailedAttempts; i++ {
		f.recordFailure(t, testUsername)

		state, err := f.policy.CheckLock(context.Background(), testUsername)
		require.NoError(t, err)
		require.False(t, state.Locked)
		require.Equal(t, maxFailedAttempts-i, state.RemainingAttempts)
	}
}

func TestCheckLockLocksAtExactlyThreshold(t *testing.T) {
	f := setupLockoutFixture(t)

	for i := 0; i < maxFailedAttempts-1; i++ {
		f.recordFailure(t, testUsername)
	}
	state, err := f.policy.CheckLock(context.Background(), testUsername)
	require.NoError(t, err)
	require.False(t, state.Locked)
	require.Equal(t, 1, state.RemainingAttempts)

	f.recordFailure(t, testUsername)
	state, err = f.policy.CheckLock(context.Background(), testUsername)
	require.NoError(t, err)
	require.True(t, state.Locked)
	require.Equal(t, 0, state.RemainingAttempts)
}

func TestLockExpirySlidesWithOldestFailure(t *testing.T) {
	f := setupLockoutFixture(t)

	firstFailure := f.now
	f.recordFailure(t, testUsername)
	for i := 0; i < maxFailedAttempts-1; i++ {
		f.now = f.now.Add(time.Minute)
		f.recordFailure(t, testUsername)
	}

	state, err := f.policy.CheckLock(context.Background(), testUsername)
	require.NoError(t, err)
	require.True(t, state.Locked)
	// Tied to the oldest offending failure, not to the check moment, so
	// re-checking just before expiry cannot extend the lock.
	require.Equal(t, firstFailure.Add(lockoutWindow), *state.UnlocksAt)
}

func TestFailuresOutsideWindowDoNotCount(t *testing.T) {
	f := setupLockoutFixture(t)

	for i := 0; i < maxFailedAttempts; i++ {
		f.recordFailure(t, testUsername)
	}

	f.now = f.now.Add(lockoutWindow + time.Second)

	state, err := f.policy.CheckLock(context.Background(), testUsername)
	require.NoError(t, err)
	require.False(t, state.Locked)
	require.Equal(t, maxFailedAttempts, state.RemainingAttempts)
}

func TestSuccessRowsNeverCountTowardLock(t *testing.T) {
	f := setupLockoutFixture(t)

	for i := 0; i < maxFailedAttempts*2; i++ {
		require.NoError(t, f.ledger.Record(context.Background(), testUsername, testOrigin, true))
	}

	state, err := f.policy.CheckLock(context.Background(), testUsername)
	require.NoError(t, err)
	require.False(t, state.Locked)
}
