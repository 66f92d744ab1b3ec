package repofake

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/LyDawei/Rate-my-services/admins"
)

var _ admins.Repo = (*FakeAdminRepo)(nil)

type FakeAdminRepo struct {
	accounts    map[string]*admins.Account
	usernameIds map[string]string // username to account id
	lock        sync.RWMutex

	BcryptCost int
	NowTime    func() time.Time
}

func NewFakeAdminRepo() *FakeAdminRepo {
	return &FakeAdminRepo{
		accounts:    make(map[string]*admins.Account),
		usernameIds: make(map[string]string),
		BcryptCost:  4, // bcrypt.MinCost, keeps tests fast
		NowTime:     time.Now,
	}
}

func (ar *FakeAdminRepo) GetByUsername(_ context.Context, username string) (*admins.Account, error) {
	ar.lock.RLock()
	defer ar.lock.RUnlock()

	id, ok := ar.usernameIds[username]
	if !ok {
		return nil, admins.ErrNotFound
	}
	copied := *ar.accounts[id]
	return &copied, nil
}

func (ar *FakeAdminRepo) GetByID(_ context.Context, id string) (*admins.Account, error) {
	ar.lock.RLock()
	defer ar.lock.RUnlock()

	account, ok := ar.accounts[id]
	if !ok {
		return nil, admins.ErrNotFound
	}
	copied := *account
	copied.PasswordHash = ""
	return &copied, nil
}

func (ar *FakeAdminRepo) Create(_ context.Context, username, password, displayName string) (*admins.Account, error) {
	ar.lock.Lock()
	defer ar.lock.Unlock()

	if _, ok := ar.usernameIds[username]; ok {
		return nil, admins.ErrDuplicateAccount
	}

	hash, err := admins.HashPassword(password, ar.BcryptCost)
	if err != nil {
		return nil, err
	}

	account := &admins.Account{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: hash,
		DisplayName:  displayName,
		CreatedAt:    ar.NowTime().UTC(),
	}
	ar.accounts[account.ID] = account
	ar.usernameIds[username] = account.ID

	copied := *account
	return &copied, nil
}

func (ar *FakeAdminRepo) UpdateLastLogin(_ context.Context, id string) error {
	ar.lock.Lock()
	defer ar.lock.Unlock()

	account, ok := ar.accounts[id]
	if !ok {
		return admins.ErrNotFound
	}
	now := ar.NowTime().UTC()
	account.LastLogin = &now
	return nil
}

// Delete removes an account, letting tests exercise sessions whose account
// no longer resolves.
func (ar *FakeAdminRepo) Delete(username string) {
	ar.lock.Lock()
	defer ar.lock.Unlock()

	id, ok := ar.usernameIds[username]
	if !ok {
		return
	}
	delete(ar.usernameIds, username)
	delete(ar.accounts, id)
}
