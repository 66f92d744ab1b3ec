// Package sqliterepo persists administrator accounts in SQLite.
package sqliterepo

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/LyDawei/Rate-my-services/admins"
)

// Repo is a SQLite-backed admins.Repo.
type Repo struct {
	db         *sql.DB
	bcryptCost int
	nowTime    func() time.Time
}

// Option modifies a Repo instance.
type Option func(*Repo)

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) Option {
	return func(r *Repo) {
		r.nowTime = nowFunc
	}
}

// New creates a Repo over an open database. bcryptCost applies to account
// provisioning.
func New(db *sql.DB, bcryptCost int, options ...Option) *Repo {
	r := &Repo{
		db:         db,
		bcryptCost: bcryptCost,
		nowTime:    time.Now,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

var _ admins.Repo = (*Repo)(nil)

func (r *Repo) GetByUsername(ctx context.Context, username string) (*admins.Account, error) {
	query := `SELECT id, username, password_hash, display_name, created_at, last_login
	          FROM admins WHERE username = ?`

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, username))
	if err != nil {
		return nil, errors.Wrap(err, "[Repo.GetByUsername] scan")
	}
	return account, nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*admins.Account, error) {
	// Hash deliberately excluded from the by-ID projection.
	query := `SELECT id, username, '', display_name, created_at, last_login
	          FROM admins WHERE id = ?`

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, errors.Wrap(err, "[Repo.GetByID] scan")
	}
	account.PasswordHash = ""
	return account, nil
}

func (r *Repo) Create(ctx context.Context, username, password, displayName string) (*admins.Account, error) {
	hash, err := admins.HashPassword(password, r.bcryptCost)
	if err != nil {
		return nil, errors.Wrap(err, "[Repo.Create] hash password")
	}

	account := &admins.Account{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: hash,
		DisplayName:  displayName,
		CreatedAt:    r.nowTime().UTC(),
	}

	query := `INSERT INTO admins (id, username, password_hash, display_name, created_at)
	          VALUES (?, ?, ?, ?, ?)`

	if _, err := r.db.ExecContext(ctx, query,
		account.ID, account.Username, account.PasswordHash, account.DisplayName,
		account.CreatedAt.UnixMilli()); err != nil {
		if isUniqueViolation(err) {
			return nil, admins.ErrDuplicateAccount
		}
		return nil, errors.Wrap(err, "[Repo.Create] insert")
	}

	return account, nil
}

func (r *Repo) UpdateLastLogin(ctx context.Context, id string) error {
	query := `UPDATE admins SET last_login = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, r.nowTime().UTC().UnixMilli(), id); err != nil {
		return errors.Wrap(err, "[Repo.UpdateLastLogin] update")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAccount(row rowScanner) (*admins.Account, error) {
	var (
		account   admins.Account
		createdAt int64
		lastLogin sql.NullInt64
	)
	err := row.Scan(&account.ID, &account.Username, &account.PasswordHash,
		&account.DisplayName, &createdAt, &lastLogin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, admins.ErrNotFound
		}
		return nil, err
	}
	account.CreatedAt = time.UnixMilli(createdAt).UTC()
	if lastLogin.Valid {
		t := time.UnixMilli(lastLogin.Int64).UTC()
		account.LastLogin = &t
	}
	return &account, nil
}

// isUniqueViolation matches the SQLite unique-constraint error without
// depending on driver-specific error types.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
