package storefake

import (
	"context"
	"sync"
	"time"

	"github.com/LyDawei/Rate-my-services/sessions"
)

var _ sessions.Store = (*FakeSessionStore)(nil)

type FakeSessionStore struct {
	rows    map[string]entry
	lock    sync.RWMutex
	deletes int

	// UpsertErr, when set, makes Upsert fail; lets tests assert that a
	// half-issued session is destroyed.
	UpsertErr error
	// GetErr, when set, makes Get fail with a store-level error rather than
	// a lifecycle verdict.
	GetErr error
}

type entry struct {
	session sessions.Session
	expiry  time.Time
}

func NewFakeSessionStore() *FakeSessionStore {
	return &FakeSessionStore{rows: make(map[string]entry)}
}

func (st *FakeSessionStore) Get(_ context.Context, id string) (*sessions.Session, error) {
	if st.GetErr != nil {
		return nil, st.GetErr
	}

	st.lock.RLock()
	defer st.lock.RUnlock()

	e, ok := st.rows[id]
	if !ok {
		return nil, sessions.ErrNotFound
	}
	copied := e.session
	return &copied, nil
}

func (st *FakeSessionStore) Upsert(_ context.Context, session *sessions.Session, expiry time.Time) error {
	if st.UpsertErr != nil {
		return st.UpsertErr
	}

	st.lock.Lock()
	defer st.lock.Unlock()

	st.rows[session.ID] = entry{session: *session, expiry: expiry}
	return nil
}

func (st *FakeSessionStore) Delete(_ context.Context, id string) error {
	st.lock.Lock()
	defer st.lock.Unlock()

	if _, ok := st.rows[id]; ok {
		delete(st.rows, id)
		st.deletes++
	}
	return nil
}

func (st *FakeSessionStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	st.lock.Lock()
	defer st.lock.Unlock()

	var n int64
	for id, e := range st.rows {
		if !e.expiry.After(now) {
			delete(st.rows, id)
			n++
		}
	}
	return n, nil
}

// Len reports how many sessions are stored.
func (st *FakeSessionStore) Len() int {
	st.lock.RLock()
	defer st.lock.RUnlock()
	return len(st.rows)
}

// Deletes reports how many explicit deletes have happened.
func (st *FakeSessionStore) Deletes() int {
	st.lock.RLock()
	defer st.lock.RUnlock()
	return st.deletes
}

// Put stores a session directly, bypassing Upsert errors; for test setup of
// malformed or legacy sessions.
func (st *FakeSessionStore) Put(session sessions.Session, expiry time.Time) {
	st.lock.Lock()
	defer st.lock.Unlock()
	st.rows[session.ID] = entry{session: session, expiry: expiry}
}
