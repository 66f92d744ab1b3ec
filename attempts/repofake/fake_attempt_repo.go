package repofake

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/LyDawei/Rate-my-services/attempts"
)

var _ attempts.Repo = (*FakeAttemptRepo)(nil)

type FakeAttemptRepo struct {
	rows []attempts.Attempt
	lock sync.RWMutex

	NowTime func() time.Time
	// RecordErr, when set, makes Record fail; lets tests assert the ledger
	// never fails the caller's login.
	RecordErr error
}

func NewFakeAttemptRepo() *FakeAttemptRepo {
	return &FakeAttemptRepo{NowTime: time.Now}
}

func (ar *FakeAttemptRepo) Record(_ context.Context, username, origin string, success bool) error {
	if ar.RecordErr != nil {
		return ar.RecordErr
	}

	ar.lock.Lock()
	defer ar.lock.Unlock()

	ar.rows = append(ar.rows, attempts.Attempt{
		ID:        uuid.New().String(),
		Username:  username,
		Origin:    origin,
		Success:   success,
		CreatedAt: ar.NowTime().UTC(),
	})
	return nil
}

func (ar *FakeAttemptRepo) CountRecentFailures(_ context.Context, username string, window time.Duration) (int, error) {
	ar.lock.RLock()
	defer ar.lock.RUnlock()

	cutoff := ar.NowTime().Add(-window)
	count := 0
	for _, row := range ar.rows {
		if row.Username == username && !row.Success && row.CreatedAt.After(cutoff) {
			count++
		}
	}
	return count, nil
}

func (ar *FakeAttemptRepo) OldestRecentFailure(_ context.Context, username string, window time.Duration) (time.Time, bool, error) {
	ar.lock.RLock()
	defer ar.lock.RUnlock()

	cutoff := ar.NowTime().Add(-window)
	var oldest time.Time
	found := false
	for _, row := range ar.rows {
		if row.Username != username || row.Success || !row.CreatedAt.After(cutoff) {
			continue
		}
		if !found || row.CreatedAt.Before(oldest) {
			oldest = row.CreatedAt
			found = true
		}
	}
	return oldest, found, nil
}

func (ar *FakeAttemptRepo) ClearFailures(_ context.Context, username string) error {
	ar.lock.Lock()
	defer ar.lock.Unlock()

	kept := ar.rows[:0]
	for _, row := range ar.rows {
		if row.Username == username && !row.Success {
			continue
		}
		kept = append(kept, row)
	}
	ar.rows = kept
	return nil
}

func (ar *FakeAttemptRepo) PurgeOlderThan(_ context.Context, age time.Duration) error {
	ar.lock.Lock()
	defer ar.lock.Unlock()

	cutoff := ar.NowTime().Add(-age)
	kept := ar.rows[:0]
	for _, row := range ar.rows {
		if !row.CreatedAt.After(cutoff) {
			continue
		}
		kept = append(kept, row)
	}
	ar.rows = kept
	return nil
}

// Rows returns a copy of the ledger contents for assertions.
func (ar *FakeAttemptRepo) Rows() []attempts.Attempt {
	ar.lock.RLock()
	defer ar.lock.RUnlock()

	out := make([]attempts.Attempt, len(ar.rows))
	copy(out, ar.rows)
	return out
}
